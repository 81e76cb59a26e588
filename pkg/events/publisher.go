package events

import "context"

// Publisher is the interface for publishing dispatch events.
type Publisher interface {
	PublishDispatch(ctx context.Context, event *DispatchEvent) error
}

// NoOpPublisher is a Publisher that does nothing (for deployments without
// an event bus).
type NoOpPublisher struct{}

// PublishDispatch is a no-op.
func (p *NoOpPublisher) PublishDispatch(_ context.Context, _ *DispatchEvent) error {
	return nil
}

// CallbackPublisher is a Publisher that calls a callback function (for
// testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *DispatchEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *DispatchEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishDispatch calls the callback.
func (p *CallbackPublisher) PublishDispatch(ctx context.Context, event *DispatchEvent) error {
	return p.callback(ctx, event)
}
