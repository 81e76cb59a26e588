// Package events defines event types and publisher interfaces for dispatch
// events.
package events

// DispatchEvent is emitted after every action dispatch, successful or not.
type DispatchEvent struct {
	RequestID  string `json:"requestId"`
	APIVersion string `json:"apiVersion"`
	Service    string `json:"service"`
	Action     string `json:"action"`
	Outcome    string `json:"outcome"`
	Status     bool   `json:"status"`
	DurationMs int64  `json:"durationMs"`
	Timestamp  string `json:"timestamp"`
	Caller     string `json:"caller,omitempty"`
	ResourceID string `json:"resourceId,omitempty"`
}
