package events

import (
	"context"
	"testing"
)

func TestNoOpPublisher(t *testing.T) {
	p := &NoOpPublisher{}
	if err := p.PublishDispatch(context.Background(), &DispatchEvent{Service: "todos"}); err != nil {
		t.Errorf("NoOpPublisher returned %v", err)
	}
}

func TestCallbackPublisher(t *testing.T) {
	var got *DispatchEvent
	p := NewCallbackPublisher(func(_ context.Context, event *DispatchEvent) error {
		got = event
		return nil
	})

	event := &DispatchEvent{
		RequestID:  "req-1",
		APIVersion: "v1",
		Service:    "todos",
		Action:     "create",
		Outcome:    "success",
		Status:     true,
	}
	if err := p.PublishDispatch(context.Background(), event); err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Service != "todos" || got.Outcome != "success" {
		t.Errorf("callback got %+v", got)
	}
}
