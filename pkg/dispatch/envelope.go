// Package dispatch routes {service, action, payload} requests to handlers
// and shapes every outcome into the uniform response envelope.
package dispatch

import (
	"github.com/restrpc/gateway/pkg/registry"
)

// Envelope codes carried in the data object of unsuccessful responses.
const (
	CodeVersionNotFound = registry.ErrCodeVersionNotFound
	CodeServiceNotFound = registry.ErrCodeServiceNotFound
	CodeActionNotFound  = registry.ErrCodeActionNotFound
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInternal        = "INTERNAL_ERROR"
	CodeInvalidRequest  = "INVALID_REQUEST"
)

// Envelope is the uniform {status, message, data} response wrapper used by
// every endpoint. status=true means data holds the operation's result;
// status=false means data is null or a structured error object.
type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Success wraps a bare handler result.
func Success(data interface{}) *Envelope {
	return &Envelope{Status: true, Message: "OK", Data: data}
}

// SuccessMessage wraps a handler result with a handler-supplied message.
func SuccessMessage(message string, data interface{}) *Envelope {
	return &Envelope{Status: true, Message: message, Data: data}
}

// Unauthorized reports a denied protected action.
func Unauthorized(reason string) *Envelope {
	return &Envelope{
		Status:  false,
		Message: "Unauthorized",
		Data: map[string]interface{}{
			"code":   CodeUnauthorized,
			"reason": reason,
		},
	}
}

// InvalidPayload reports schema validation failures: required fields absent
// from the payload and present fields violating a constraint.
func InvalidPayload(missing []string, invalid map[string]string) *Envelope {
	if missing == nil {
		missing = []string{}
	}
	if invalid == nil {
		invalid = map[string]string{}
	}
	return &Envelope{
		Status:  false,
		Message: "invalid request format",
		Data: map[string]interface{}{
			"missing": missing,
			"invalid": invalid,
		},
	}
}

// Internal reports a caught handler fault. The requestId correlates the
// response with server logs.
func Internal(requestID string) *Envelope {
	data := map[string]interface{}{"code": CodeInternal}
	if requestID != "" {
		data["requestId"] = requestID
	}
	return &Envelope{
		Status:  false,
		Message: "Internal server error",
		Data:    data,
	}
}

// Malformed reports an undecodable or incomplete request body.
func Malformed(message string) *Envelope {
	if message == "" {
		message = "invalid request format"
	}
	return &Envelope{
		Status:  false,
		Message: message,
		Data:    map[string]interface{}{"code": CodeInvalidRequest},
	}
}

// FromRegistryError maps a registry lookup error to its canonical
// not-found envelope. The registry owns the message text; this only
// shapes the data object.
func FromRegistryError(err *registry.Error) *Envelope {
	data := map[string]interface{}{"code": err.Code}
	if available, ok := err.Details.([]string); ok {
		if available == nil {
			available = []string{}
		}
		data["availableActions"] = available
	}
	return &Envelope{Status: false, Message: err.Message, Data: data}
}
