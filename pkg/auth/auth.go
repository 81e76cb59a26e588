// Package auth implements bearer-credential authentication for dispatch.
//
// The Policy decides allow/deny for an action given its protection flag and
// the request's credential material; credential verification is delegated
// to a pluggable Verifier (JWT, static token table).
package auth

import (
	"context"
	"errors"
	"strings"
)

// Credential verification failures. Verifiers return one of these (possibly
// wrapped) so the Policy can shape the denial reason.
var (
	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrExpiredCredential = errors.New("expired credential")
)

// genericDenialReason is reported for every denial unless verbose
// diagnostics are enabled; it never reveals missing vs invalid vs expired.
const genericDenialReason = "missing or invalid credential"

// Identity describes an authenticated caller. Derived per request, never
// persisted.
type Identity struct {
	Subject string   `json:"subject"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles,omitempty"`
}

// Kind classifies an authentication outcome.
type Kind int

const (
	// KindAnonymous means the action is unprotected; the credential was ignored.
	KindAnonymous Kind = iota
	// KindAuthenticated means a protected action received a valid credential.
	KindAuthenticated
	// KindDenied means a protected action received no or a bad credential.
	KindDenied
)

// Outcome is the per-request result of authentication. It lives for the
// duration of one dispatch.
type Outcome struct {
	Kind     Kind
	Identity *Identity
	Reason   string
}

// Verifier checks an opaque credential string and returns the caller's
// identity, or one of the Err* failures above.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Identity, error)
}

// Policy applies an action's protection flag to a request credential.
type Policy struct {
	Verifier Verifier
	// VerboseDenials reports the concrete failure (missing/invalid/expired)
	// in denial reasons. Off by default: denials stay generic.
	VerboseDenials bool
}

// Authenticate decides the outcome for one request. Unprotected actions are
// always Anonymous, regardless of any credential supplied.
func (p *Policy) Authenticate(ctx context.Context, protected bool, credential string) Outcome {
	if !protected {
		return Outcome{Kind: KindAnonymous}
	}
	if credential == "" {
		return Outcome{Kind: KindDenied, Reason: p.denialReason(ErrMissingCredential)}
	}
	if p.Verifier == nil {
		return Outcome{Kind: KindDenied, Reason: p.denialReason(ErrInvalidCredential)}
	}
	identity, err := p.Verifier.Verify(ctx, credential)
	if err != nil {
		return Outcome{Kind: KindDenied, Reason: p.denialReason(err)}
	}
	return Outcome{Kind: KindAuthenticated, Identity: identity}
}

func (p *Policy) denialReason(err error) string {
	if p.VerboseDenials {
		return err.Error()
	}
	return genericDenialReason
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. Returns "" when the header is absent or not a bearer scheme.
func BearerToken(header string) string {
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}
