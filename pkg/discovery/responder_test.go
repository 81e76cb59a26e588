package discovery

import (
	"context"
	"reflect"
	"testing"

	"github.com/restrpc/gateway/pkg/registry"
)

func testResponder(t *testing.T) *Responder {
	t.Helper()

	nop := registry.HandlerFunc(func(context.Context, *registry.Invocation) (interface{}, error) {
		return nil, nil
	})
	handlers := map[string]registry.Handler{
		"data.echo":    nop,
		"todos.create": nop,
		"todos.list":   nop,
		"users.me":     nop,
	}
	defs := &registry.Definitions{
		Version: "1.0.0",
		APIVersions: map[string]registry.VersionDefinition{
			"v1": {
				Services: []registry.ServiceDefinition{
					{
						Name:        "data-service",
						Description: "Generic data operations",
						Actions: []registry.ActionDefinition{
							{Name: "echo", Description: "Echo the payload back", Handler: "data.echo"},
						},
					},
					{
						Name:        "todos",
						Description: "Todo management",
						Actions: []registry.ActionDefinition{
							{
								Name:        "create",
								Description: "Create a todo",
								Handler:     "todos.create",
								Validation: map[string]interface{}{
									"fields": map[string]interface{}{
										"title":   map[string]interface{}{"type": "string", "required": true},
										"user_id": map[string]interface{}{"type": "uuid", "required": true},
									},
								},
							},
							{Name: "list", Handler: "todos.list"},
						},
					},
					{
						Name: "users",
						Actions: []registry.ActionDefinition{
							{Name: "me", Handler: "users.me", Protected: true},
						},
					},
				},
			},
		},
	}
	snap, err := registry.BuildSnapshot(defs, handlers, registry.BuildOptions{})
	if err != nil {
		t.Fatalf("BuildSnapshot: %v", err)
	}
	return NewResponder(registry.New(snap))
}

func TestListServices_RegistrationOrder(t *testing.T) {
	r := testResponder(t)

	names, err := r.ListServices("v1")
	if err != nil {
		t.Fatalf("ListServices: %v", err)
	}
	want := []string{"data-service", "todos", "users"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("services = %v, want %v", names, want)
	}

	if _, err := r.ListServices("v2"); err == nil || err.Code != registry.ErrCodeVersionNotFound {
		t.Errorf("unknown version: %v", err)
	}
}

func TestServiceDetail(t *testing.T) {
	r := testResponder(t)

	detail, err := r.ServiceDetail("v1", "todos")
	if err != nil {
		t.Fatalf("ServiceDetail: %v", err)
	}
	if detail.Name != "todos" || detail.Description != "Todo management" {
		t.Errorf("detail = %+v", detail)
	}
	if !reflect.DeepEqual(detail.AvailableActions, []string{"create", "list"}) {
		t.Errorf("availableActions = %v", detail.AvailableActions)
	}

	if _, err := r.ServiceDetail("v1", "billing"); err == nil || err.Code != registry.ErrCodeServiceNotFound {
		t.Errorf("unknown service: %v", err)
	}
}

func TestActionDetail_EmitsSchemaVerbatim(t *testing.T) {
	r := testResponder(t)

	detail, err := r.ActionDetail("v1", "todos", "create")
	if err != nil {
		t.Fatalf("ActionDetail: %v", err)
	}
	if detail.Name != "create" || detail.IsProtected {
		t.Errorf("detail = %+v", detail)
	}
	fields, ok := detail.Validation["fields"].(map[string]interface{})
	if !ok {
		t.Fatalf("validation = %v", detail.Validation)
	}
	if _, ok := fields["user_id"]; !ok {
		t.Error("raw descriptor must be emitted verbatim")
	}

	// No schema: validation is null.
	detail, err = r.ActionDetail("v1", "todos", "list")
	if err != nil {
		t.Fatal(err)
	}
	if detail.Validation != nil {
		t.Errorf("validation = %v, want nil", detail.Validation)
	}

	// Protection flag is reported.
	detail, err = r.ActionDetail("v1", "users", "me")
	if err != nil {
		t.Fatal(err)
	}
	if !detail.IsProtected {
		t.Error("isProtected must be true for protected actions")
	}

	if _, err := r.ActionDetail("v1", "todos", "destroy"); err == nil || err.Code != registry.ErrCodeActionNotFound {
		t.Errorf("unknown action: %v", err)
	}
}

func TestSchema_FullSnapshot(t *testing.T) {
	r := testResponder(t)

	snapshot, err := r.Schema("v1")
	if err != nil {
		t.Fatalf("Schema: %v", err)
	}
	if len(snapshot) != 3 {
		t.Fatalf("len = %d, want 3", len(snapshot))
	}

	// Order: one single-key object per service, in registration order.
	if _, ok := snapshot[0]["data-service"]; !ok {
		t.Errorf("snapshot[0] = %v", snapshot[0])
	}
	todos, ok := snapshot[1]["todos"]
	if !ok {
		t.Fatalf("snapshot[1] = %v", snapshot[1])
	}
	if len(todos) != 2 || todos[0].Name != "create" || todos[1].Name != "list" {
		t.Errorf("todos = %+v", todos)
	}
	if todos[0].Validation == nil {
		t.Error("create must carry its raw descriptor")
	}
	if todos[1].Validation != nil {
		t.Error("list has no descriptor, validation must be null")
	}

	if _, err := r.Schema("v9"); err == nil {
		t.Error("unknown version must fail")
	}
}
