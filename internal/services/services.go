// Package services holds the built-in demo handlers that ship with the
// gateway: a generic data-service, an in-memory todos service and a users
// service. Handler refs in the definitions file bind against Handlers().
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/restrpc/gateway/pkg/dispatch"
	"github.com/restrpc/gateway/pkg/registry"
)

// Handlers returns the gateway's built-in handlers keyed by definition ref.
func Handlers() map[string]registry.Handler {
	todos := newTodoStore()
	users := newUserStore()

	return map[string]registry.Handler{
		"data.echo":      registry.HandlerFunc(dataEcho),
		"data.upload":    registry.HandlerFunc(dataUpload),
		"todos.create":   registry.HandlerFunc(todos.create),
		"todos.list":     registry.HandlerFunc(todos.list),
		"todos.get":      registry.HandlerFunc(todos.get),
		"todos.complete": registry.HandlerFunc(todos.complete),
		"users.register": registry.HandlerFunc(users.register),
		"users.me":       registry.HandlerFunc(usersMe),
	}
}

// dataEcho returns the validated payload unchanged.
func dataEcho(_ context.Context, inv *registry.Invocation) (interface{}, error) {
	return inv.Payload, nil
}

// dataUpload reports metadata of uploaded files without retaining content.
func dataUpload(_ context.Context, inv *registry.Invocation) (interface{}, error) {
	files, _ := inv.Payload["files"].([]interface{})
	return map[string]interface{}{
		"received": len(files),
		"files":    files,
	}, nil
}

// todo is one stored todo item.
type todo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UserID    string `json:"user_id"`
	Done      bool   `json:"done"`
	CreatedAt string `json:"createdAt"`
}

type todoStore struct {
	mu    sync.Mutex
	items []*todo
	byID  map[string]*todo
}

func newTodoStore() *todoStore {
	return &todoStore{byID: map[string]*todo{}}
}

func (s *todoStore) create(_ context.Context, inv *registry.Invocation) (interface{}, error) {
	title, _ := inv.Payload["title"].(string)
	userID, _ := inv.Payload["user_id"].(string)

	item := &todo{
		ID:        uuid.NewString(),
		Title:     title,
		UserID:    userID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	s.mu.Lock()
	s.items = append(s.items, item)
	s.byID[item.ID] = item
	s.mu.Unlock()

	return item, nil
}

func (s *todoStore) list(_ context.Context, inv *registry.Invocation) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, _ := inv.Payload["user_id"].(string)
	out := make([]*todo, 0, len(s.items))
	for _, item := range s.items {
		if userID == "" || item.UserID == userID {
			out = append(out, item)
		}
	}
	return map[string]interface{}{"todos": out}, nil
}

func (s *todoStore) get(_ context.Context, inv *registry.Invocation) (interface{}, error) {
	id, _ := inv.Payload["id"].(string)

	s.mu.Lock()
	item, ok := s.byID[id]
	s.mu.Unlock()

	if !ok {
		return todoNotFound(id), nil
	}
	return item, nil
}

func (s *todoStore) complete(_ context.Context, inv *registry.Invocation) (interface{}, error) {
	id, _ := inv.Payload["id"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.byID[id]
	if !ok {
		return todoNotFound(id), nil
	}
	item.Done = true
	return item, nil
}

// todoNotFound is a handler-shaped envelope: the dispatch succeeded, the
// domain lookup did not.
func todoNotFound(id string) *dispatch.Envelope {
	return &dispatch.Envelope{
		Status:  false,
		Message: fmt.Sprintf("Todo '%s' not found", id),
		Data:    map[string]interface{}{"code": "TODO_NOT_FOUND"},
	}
}

// user is one registered account. Registration is demo-grade: no password
// hashing, no persistence.
type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type userStore struct {
	mu      sync.Mutex
	byEmail map[string]*user
}

func newUserStore() *userStore {
	return &userStore{byEmail: map[string]*user{}}
}

func (s *userStore) register(_ context.Context, inv *registry.Invocation) (interface{}, error) {
	email, _ := inv.Payload["email"].(string)
	name, _ := inv.Payload["name"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byEmail[email]; ok {
		return dispatch.SuccessMessage("already registered", existing), nil
	}
	u := &user{ID: uuid.NewString(), Email: email, Name: name}
	s.byEmail[email] = u
	return u, nil
}

// usersMe reflects the authenticated caller's identity. The action is
// protected, so Identity is always set here.
func usersMe(_ context.Context, inv *registry.Invocation) (interface{}, error) {
	return map[string]interface{}{
		"subject": inv.Identity.Subject,
		"email":   inv.Identity.Email,
		"roles":   inv.Identity.Roles,
	}, nil
}
