// Package discovery answers the read-only introspection queries over the
// registry: service list, service detail, action detail and the full
// schema snapshot. All queries are pure reflection with no side effects.
package discovery

import (
	"github.com/restrpc/gateway/pkg/registry"
)

// ServiceDetail describes one service for discovery clients.
type ServiceDetail struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	AvailableActions []string `json:"availableActions"`
}

// ActionDetail describes one action. Validation is the raw schema
// descriptor, emitted verbatim, or null when the action accepts any
// payload.
type ActionDetail struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	IsProtected bool                   `json:"isProtected"`
	Validation  map[string]interface{} `json:"validation"`
}

// ActionSchema is one action's entry in the full schema snapshot.
type ActionSchema struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Validation  map[string]interface{} `json:"validation"`
}

// Responder serves discovery queries from the current registry snapshot.
type Responder struct {
	registry *registry.Registry
}

// NewResponder creates a Responder over the given registry.
func NewResponder(reg *registry.Registry) *Responder {
	return &Responder{registry: reg}
}

// ListServices returns service names in registration order.
func (r *Responder) ListServices(apiVersion string) ([]string, *registry.Error) {
	return r.registry.Snapshot().ListServices(apiVersion)
}

// ServiceDetail returns one service's metadata and action list.
func (r *Responder) ServiceDetail(apiVersion, serviceName string) (*ServiceDetail, *registry.Error) {
	service, err := r.registry.Snapshot().GetService(apiVersion, serviceName)
	if err != nil {
		return nil, err
	}
	return &ServiceDetail{
		Name:             service.Name,
		Description:      service.Description,
		AvailableActions: service.ActionNames(),
	}, nil
}

// ActionDetail returns one action's metadata including its raw validation
// descriptor.
func (r *Responder) ActionDetail(apiVersion, serviceName, actionName string) (*ActionDetail, *registry.Error) {
	action, err := r.registry.Snapshot().GetAction(apiVersion, serviceName, actionName)
	if err != nil {
		return nil, err
	}
	return &ActionDetail{
		Name:        action.Name,
		Description: action.Description,
		IsProtected: action.Protected,
		Validation:  rawSchema(action),
	}, nil
}

// Schema returns the full static snapshot of one API version: an array of
// one-key objects {serviceName: [actions...]}, in registration order.
// Computed fresh per request; the snapshot itself is immutable.
func (r *Responder) Schema(apiVersion string) ([]map[string][]ActionSchema, *registry.Error) {
	catalog, ok := r.registry.Snapshot().Catalog(apiVersion)
	if !ok {
		return nil, registry.NewError(registry.ErrCodeVersionNotFound,
			"API version '"+apiVersion+"' not found")
	}

	out := make([]map[string][]ActionSchema, 0, len(catalog.Services))
	for _, service := range catalog.Services {
		actions := make([]ActionSchema, 0, len(service.Actions))
		for _, action := range service.Actions {
			actions = append(actions, ActionSchema{
				Name:        action.Name,
				Description: action.Description,
				Validation:  rawSchema(action),
			})
		}
		out = append(out, map[string][]ActionSchema{service.Name: actions})
	}
	return out, nil
}

func rawSchema(action *registry.Action) map[string]interface{} {
	if action.Schema == nil {
		return nil
	}
	return action.Schema.JSONDescriptor()
}
