package comms

import (
	"fmt"
	"strings"
)

// Default COMMS subjects.
const (
	// SubjectDispatch receives every dispatch event.
	SubjectDispatch = "gateway.dispatch"
)

// BuildDispatchSubject builds a granular per-service/action dispatch event
// subject. Dots in names are replaced so they cannot split subject tokens.
func BuildDispatchSubject(service, action string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectDispatch, sanitize(service), sanitize(action))
}

func sanitize(token string) string {
	return strings.ReplaceAll(token, ".", "_")
}
