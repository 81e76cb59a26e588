// Package store records successful dispatches keyed on their idempotency
// identity (apiVersion, service, action, resourceId) so repeated requests
// replay the original envelope. The dispatcher itself never consults the
// store; it is wired at the HTTP layer as an external collaborator.
package store

import (
	"context"
	"time"

	"github.com/restrpc/gateway/pkg/dispatch"
)

// Key identifies one idempotent operation. ResourceID is the client's
// opaque token; an empty ResourceID is never stored.
type Key struct {
	APIVersion string
	Service    string
	Action     string
	ResourceID string
}

// Record is one stored dispatch outcome.
type Record struct {
	RequestID string
	Envelope  *dispatch.Envelope
	CreatedAt time.Time
}

// Store persists and replays dispatch records. Save is first-writer-wins:
// a second save under the same key is a no-op.
type Store interface {
	Lookup(ctx context.Context, key Key) (*Record, bool, error)
	Save(ctx context.Context, key Key, rec *Record) error
	Close()
}
