package comms

import "testing"

func TestBuildDispatchSubject(t *testing.T) {
	if got := BuildDispatchSubject("todos", "create"); got != "gateway.dispatch.todos.create" {
		t.Errorf("got %q", got)
	}
	// Dots in names must not split subject tokens.
	if got := BuildDispatchSubject("data.service", "bulk.load"); got != "gateway.dispatch.data_service.bulk_load" {
		t.Errorf("got %q", got)
	}
}
