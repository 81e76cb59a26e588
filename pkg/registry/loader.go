package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/restrpc/gateway/pkg/schema"
)

const logPrefix = "registry:loader"

// Definitions is the on-disk service/action table. One file covers every
// concurrently served API version.
type Definitions struct {
	Version     string                       `json:"version"`
	APIVersions map[string]VersionDefinition `json:"apiVersions"`
}

// VersionDefinition holds one API version's ordered services.
type VersionDefinition struct {
	Services []ServiceDefinition `json:"services"`
}

// ServiceDefinition declares one service.
type ServiceDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Actions     []ActionDefinition `json:"actions"`
}

// ActionDefinition declares one action. Handler names a code-registered
// handler ("todos.create"); Validation is a raw schema descriptor or null.
type ActionDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Protected   bool                   `json:"protected,omitempty"`
	Handler     string                 `json:"handler"`
	Validation  map[string]interface{} `json:"validation,omitempty"`
}

// LoadDefinitions loads the definitions file. It tries paths in order:
// any paths passed in, then the GATEWAY_SERVICES_FILE env var, then the
// defaults config/services.json and services.json.
func LoadDefinitions(paths ...string) (*Definitions, error) {
	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("GATEWAY_SERVICES_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/services.json", "services.json")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		var defs Definitions
		if err := json.Unmarshal(data, &defs); err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse definitions file %s: %v", logPrefix, p, err))
			continue
		}

		slog.Info(fmt.Sprintf("%s - Loaded service definitions from %s", logPrefix, p))
		return &defs, nil
	}

	return nil, fmt.Errorf("%s - no definitions file found (tried %v)", logPrefix, all)
}

// BuildOptions configures snapshot compilation.
type BuildOptions struct {
	// Coerce enables string-to-typed payload coercion in compiled schemas.
	Coerce bool
}

// BuildSnapshot compiles definitions into an immutable Snapshot, binding
// each action's handler ref against the supplied handler map. Duplicate
// names, unknown handler refs and malformed schemas fail the build.
func BuildSnapshot(defs *Definitions, handlers map[string]Handler, opts BuildOptions) (*Snapshot, error) {
	version := defs.Version
	if version == "" {
		version = "0.1.0"
	}
	if len(defs.APIVersions) == 0 {
		return nil, fmt.Errorf("%s - definitions declare no API versions", logPrefix)
	}

	catalogs := make(map[string]*Catalog, len(defs.APIVersions))
	for apiVersion, vdef := range defs.APIVersions {
		catalog := &Catalog{}
		seenServices := map[string]bool{}
		for _, sdef := range vdef.Services {
			if sdef.Name == "" {
				return nil, fmt.Errorf("%s - %s: service with empty name", logPrefix, apiVersion)
			}
			if seenServices[sdef.Name] {
				return nil, fmt.Errorf("%s - %s: duplicate service %q", logPrefix, apiVersion, sdef.Name)
			}
			seenServices[sdef.Name] = true

			service, err := buildService(apiVersion, sdef, handlers, opts)
			if err != nil {
				return nil, err
			}
			catalog.Services = append(catalog.Services, service)
		}
		catalogs[apiVersion] = catalog
	}

	return NewSnapshot(version, catalogs)
}

func buildService(apiVersion string, sdef ServiceDefinition, handlers map[string]Handler, opts BuildOptions) (*Service, error) {
	service := &Service{Name: sdef.Name, Description: sdef.Description}
	seen := map[string]bool{}
	for _, adef := range sdef.Actions {
		if adef.Name == "" {
			return nil, fmt.Errorf("%s - %s/%s: action with empty name", logPrefix, apiVersion, sdef.Name)
		}
		if seen[adef.Name] {
			return nil, fmt.Errorf("%s - %s/%s: duplicate action %q", logPrefix, apiVersion, sdef.Name, adef.Name)
		}
		seen[adef.Name] = true

		handler, ok := handlers[adef.Handler]
		if !ok {
			return nil, fmt.Errorf("%s - %s/%s/%s: no handler registered for ref %q",
				logPrefix, apiVersion, sdef.Name, adef.Name, adef.Handler)
		}

		action := &Action{
			Name:        adef.Name,
			Description: adef.Description,
			Protected:   adef.Protected,
			Handler:     handler,
		}
		if adef.Validation != nil {
			desc, err := schema.ParseObject(adef.Validation, schema.Options{Coerce: opts.Coerce})
			if err != nil {
				return nil, fmt.Errorf("%s - %s/%s/%s: %w", logPrefix, apiVersion, sdef.Name, adef.Name, err)
			}
			action.Schema = desc
		}
		service.Actions = append(service.Actions, action)
	}
	return service, nil
}
