package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/restrpc/gateway/pkg/auth"
	"github.com/restrpc/gateway/pkg/registry"
	"github.com/restrpc/gateway/pkg/schema"
)

const logPrefix = "dispatch:dispatcher"

// Outcome is the terminal state a dispatch reached.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotFound
	OutcomeUnauthorized
	OutcomeInvalidPayload
	OutcomeHandlerError
)

// String returns a label suitable for logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeUnauthorized:
		return "unauthorized"
	case OutcomeInvalidPayload:
		return "invalid_payload"
	case OutcomeHandlerError:
		return "handler_error"
	default:
		return "unknown"
	}
}

// Request is one inbound action invocation.
type Request struct {
	APIVersion string
	Service    string
	Action     string
	Payload    map[string]interface{}
	ResourceID string
	Credential string
	RequestID  string
}

// Result is the terminal outcome of one dispatch, always carrying a
// well-formed envelope.
type Result struct {
	Outcome  Outcome
	Envelope *Envelope
	Identity *auth.Identity
}

// Options configures a Dispatcher.
type Options struct {
	// HandlerTimeout bounds handler execution per request. Zero disables
	// the bound; the request context still applies.
	HandlerTimeout time.Duration
}

// Dispatcher resolves, authenticates, validates and executes action
// requests in that fixed order, shaping every outcome into an envelope.
// It is stateless per request and safe for unbounded concurrent use.
type Dispatcher struct {
	registry       *registry.Registry
	policy         *auth.Policy
	handlerTimeout time.Duration
}

// NewDispatcher creates a Dispatcher over the given registry and
// authentication policy.
func NewDispatcher(reg *registry.Registry, policy *auth.Policy, opts Options) *Dispatcher {
	return &Dispatcher{
		registry:       reg,
		policy:         policy,
		handlerTimeout: opts.HandlerTimeout,
	}
}

// Dispatch runs one request through the state machine. Failures never
// propagate as transport faults; the result always carries an envelope.
//
// The transition order is fixed: resolve, authenticate, validate, execute,
// envelope. Authentication precedes validation, so a protected action with
// a bad payload and no credential reports Unauthorized, not InvalidPayload.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Result {
	slog.Debug(fmt.Sprintf("%s - dispatch version=%s service=%s action=%s requestId=%s",
		logPrefix, req.APIVersion, req.Service, req.Action, req.RequestID))

	// Resolve and authenticate
	action, outcome, denied := d.admit(ctx, req)
	if denied != nil {
		return denied
	}

	// Validate
	payload := req.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	var validated *schema.Result
	if action.Schema != nil {
		validated = action.Schema.Validate(payload)
	} else {
		validated = schema.Valid(payload)
	}
	if !validated.OK() {
		return &Result{
			Outcome:  OutcomeInvalidPayload,
			Envelope: InvalidPayload(validated.Missing, validated.Invalid),
			Identity: outcome.Identity,
		}
	}

	// Execute
	inv := &registry.Invocation{
		Payload:    validated.Normalized,
		Identity:   outcome.Identity,
		ResourceID: req.ResourceID,
		RequestID:  req.RequestID,
	}
	value, err := d.invoke(ctx, action, inv)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - handler failed service=%s action=%s requestId=%s: %v",
			logPrefix, req.Service, req.Action, req.RequestID, err))
		return &Result{
			Outcome:  OutcomeHandlerError,
			Envelope: Internal(req.RequestID),
			Identity: outcome.Identity,
		}
	}

	// Envelope
	if env, ok := value.(*Envelope); ok {
		return &Result{Outcome: OutcomeSuccess, Envelope: env, Identity: outcome.Identity}
	}
	return &Result{Outcome: OutcomeSuccess, Envelope: Success(value), Identity: outcome.Identity}
}

// Authorize runs only the resolve and authenticate stages for a request.
// It returns nil when the caller may see the action's results, or the
// terminal NotFound/Unauthorized result otherwise. Callers serving stored
// responses for a request (idempotent replay) must gate on this so a
// recorded protected result is never handed to an unauthenticated caller.
func (d *Dispatcher) Authorize(ctx context.Context, req *Request) *Result {
	_, _, denied := d.admit(ctx, req)
	return denied
}

// admit resolves the action and applies the authentication policy, the
// first two transitions of every dispatch.
func (d *Dispatcher) admit(ctx context.Context, req *Request) (*registry.Action, auth.Outcome, *Result) {
	snap := d.registry.Snapshot()
	action, regErr := snap.GetAction(req.APIVersion, req.Service, req.Action)
	if regErr != nil {
		return nil, auth.Outcome{}, &Result{Outcome: OutcomeNotFound, Envelope: FromRegistryError(regErr)}
	}

	outcome := d.policy.Authenticate(ctx, action.Protected, req.Credential)
	if outcome.Kind == auth.KindDenied {
		return nil, auth.Outcome{}, &Result{Outcome: OutcomeUnauthorized, Envelope: Unauthorized(outcome.Reason)}
	}
	return action, outcome, nil
}

// invoke runs the handler under the configured timeout, converting panics
// into errors so no fault escapes the dispatch boundary.
func (d *Dispatcher) invoke(ctx context.Context, action *registry.Action, inv *registry.Invocation) (value interface{}, err error) {
	if action.Handler == nil {
		return nil, fmt.Errorf("action %q has no handler", action.Name)
	}
	if d.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.handlerTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	value, err = action.Handler.Invoke(ctx, inv)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return value, nil
}
