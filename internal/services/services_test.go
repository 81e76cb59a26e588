package services

import (
	"context"
	"testing"

	"github.com/restrpc/gateway/pkg/auth"
	"github.com/restrpc/gateway/pkg/dispatch"
	"github.com/restrpc/gateway/pkg/registry"
)

func TestHandlers_Refs(t *testing.T) {
	handlers := Handlers()
	refs := []string{
		"data.echo", "data.upload",
		"todos.create", "todos.list", "todos.get", "todos.complete",
		"users.register", "users.me",
	}
	for _, ref := range refs {
		if _, ok := handlers[ref]; !ok {
			t.Errorf("services:services_test - handler ref %q missing", ref)
		}
	}
}

func TestDataEcho(t *testing.T) {
	got, err := dataEcho(context.Background(), &registry.Invocation{
		Payload: map[string]interface{}{"hello": "world"},
	})
	if err != nil {
		t.Fatal(err)
	}
	payload, ok := got.(map[string]interface{})
	if !ok || payload["hello"] != "world" {
		t.Errorf("services:services_test - echo returned %+v", got)
	}
}

func TestTodoLifecycle(t *testing.T) {
	s := newTodoStore()
	ctx := context.Background()

	created, err := s.create(ctx, &registry.Invocation{
		Payload: map[string]interface{}{
			"title":   "write docs",
			"user_id": "4b8c0d9e-1111-4222-8333-444455556666",
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	item, ok := created.(*todo)
	if !ok {
		t.Fatalf("services:services_test - create returned %T", created)
	}
	if item.ID == "" || item.Title != "write docs" || item.Done {
		t.Errorf("services:services_test - created %+v", item)
	}

	listed, err := s.list(ctx, &registry.Invocation{Payload: map[string]interface{}{}})
	if err != nil {
		t.Fatal(err)
	}
	todos := listed.(map[string]interface{})["todos"].([]*todo)
	if len(todos) != 1 {
		t.Fatalf("services:services_test - list returned %d items", len(todos))
	}

	completed, err := s.complete(ctx, &registry.Invocation{
		Payload: map[string]interface{}{"id": item.ID},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !completed.(*todo).Done {
		t.Error("services:services_test - complete did not mark done")
	}

	missing, err := s.complete(ctx, &registry.Invocation{
		Payload: map[string]interface{}{"id": "nope"},
	})
	if err != nil {
		t.Fatal(err)
	}
	env, ok := missing.(*dispatch.Envelope)
	if !ok || env.Status {
		t.Errorf("services:services_test - unknown id returned %+v", missing)
	}
}

func TestUsersRegisterAndMe(t *testing.T) {
	s := newUserStore()
	ctx := context.Background()

	first, err := s.register(ctx, &registry.Invocation{
		Payload: map[string]interface{}{"email": "a@example.com", "name": "Ada"},
	})
	if err != nil {
		t.Fatal(err)
	}
	u, ok := first.(*user)
	if !ok || u.Email != "a@example.com" {
		t.Fatalf("services:services_test - register returned %+v", first)
	}

	again, err := s.register(ctx, &registry.Invocation{
		Payload: map[string]interface{}{"email": "a@example.com", "name": "Ada"},
	})
	if err != nil {
		t.Fatal(err)
	}
	env, ok := again.(*dispatch.Envelope)
	if !ok || env.Message != "already registered" {
		t.Errorf("services:services_test - duplicate register returned %+v", again)
	}

	me, err := usersMe(ctx, &registry.Invocation{
		Identity: &auth.Identity{Subject: "u-1", Email: "a@example.com"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if me.(map[string]interface{})["subject"] != "u-1" {
		t.Errorf("services:services_test - me returned %+v", me)
	}
}
