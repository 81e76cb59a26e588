// Package registry implements the service/action table behind dispatch.
//
// Definitions are loaded once at startup and compiled into an immutable
// Snapshot; concurrent readers share it without locking. Replacing the
// snapshot (hot reload) is an atomic swap guarded by a semver check.
package registry

import (
	"context"

	"github.com/restrpc/gateway/pkg/auth"
	"github.com/restrpc/gateway/pkg/schema"
)

// Error codes surfaced through envelopes.
const (
	ErrCodeVersionNotFound = "VERSION_NOT_FOUND"
	ErrCodeServiceNotFound = "SERVICE_NOT_FOUND"
	ErrCodeActionNotFound  = "ACTION_NOT_FOUND"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// Error is a structured registry error. Lookup failures are never fatal;
// callers surface them as unsuccessful envelopes.
type Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Invocation is the per-request input handed to a handler: the validated
// and normalized payload, the caller identity (nil for anonymous calls),
// and the opaque resourceId passed through from the request envelope.
type Invocation struct {
	Payload    map[string]interface{}
	Identity   *auth.Identity
	ResourceID string
	RequestID  string
}

// Handler executes one action's business logic. Implementations may return
// a bare result value, which the dispatcher wraps into a success envelope,
// or a ready-made envelope used verbatim.
type Handler interface {
	Invoke(ctx context.Context, inv *Invocation) (interface{}, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, inv *Invocation) (interface{}, error)

// Invoke calls f.
func (f HandlerFunc) Invoke(ctx context.Context, inv *Invocation) (interface{}, error) {
	return f(ctx, inv)
}

// Action is one named operation within a service. Schema is nil when the
// action accepts any payload.
type Action struct {
	Name        string
	Description string
	Protected   bool
	Schema      schema.Descriptor
	Handler     Handler
}

// Service is a named, ordered group of actions.
type Service struct {
	Name        string
	Description string
	Actions     []*Action
}

// Action resolves an action by exact, case-sensitive name.
func (s *Service) Action(name string) (*Action, bool) {
	for _, a := range s.Actions {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// ActionNames returns action names in registration order.
func (s *Service) ActionNames() []string {
	names := make([]string, 0, len(s.Actions))
	for _, a := range s.Actions {
		names = append(names, a.Name)
	}
	return names
}

// Catalog is the ordered service table of one API version.
type Catalog struct {
	Services []*Service
}

// Service resolves a service by exact, case-sensitive name.
func (c *Catalog) Service(name string) (*Service, bool) {
	for _, s := range c.Services {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// ServiceNames returns service names in registration order.
func (c *Catalog) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for _, s := range c.Services {
		names = append(names, s.Name)
	}
	return names
}
