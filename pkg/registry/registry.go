package registry

import (
	"fmt"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"
)

// Snapshot is one immutable registry generation: every API version's
// catalog plus the snapshot's own semver version string.
type Snapshot struct {
	Version  string
	catalogs map[string]*Catalog
}

// NewSnapshot creates a Snapshot. Version must be valid semver.
func NewSnapshot(version string, catalogs map[string]*Catalog) (*Snapshot, error) {
	if _, err := semver.NewVersion(version); err != nil {
		return nil, fmt.Errorf("registry: snapshot version %q is not semver: %w", version, err)
	}
	if catalogs == nil {
		catalogs = map[string]*Catalog{}
	}
	return &Snapshot{Version: version, catalogs: catalogs}, nil
}

// Catalog resolves an API version's catalog.
func (s *Snapshot) Catalog(apiVersion string) (*Catalog, bool) {
	c, ok := s.catalogs[apiVersion]
	return c, ok
}

// ListServices returns the ordered service names of one API version.
func (s *Snapshot) ListServices(apiVersion string) ([]string, *Error) {
	catalog, ok := s.Catalog(apiVersion)
	if !ok {
		return nil, versionNotFound(apiVersion)
	}
	return catalog.ServiceNames(), nil
}

// GetService resolves a service by API version and name.
func (s *Snapshot) GetService(apiVersion, serviceName string) (*Service, *Error) {
	catalog, ok := s.Catalog(apiVersion)
	if !ok {
		return nil, versionNotFound(apiVersion)
	}
	service, ok := catalog.Service(serviceName)
	if !ok {
		return nil, serviceNotFound(serviceName)
	}
	return service, nil
}

// GetAction resolves an action by API version, service name and action
// name. A missing action reports the service's full action list in the
// error details.
func (s *Snapshot) GetAction(apiVersion, serviceName, actionName string) (*Action, *Error) {
	service, err := s.GetService(apiVersion, serviceName)
	if err != nil {
		return nil, err
	}
	action, ok := service.Action(actionName)
	if !ok {
		return nil, actionNotFound(actionName, serviceName, service.ActionNames())
	}
	return action, nil
}

func versionNotFound(apiVersion string) *Error {
	return NewError(ErrCodeVersionNotFound, fmt.Sprintf("API version '%s' not found", apiVersion))
}

func serviceNotFound(name string) *Error {
	return NewError(ErrCodeServiceNotFound, fmt.Sprintf("Service '%s' not found", name))
}

func actionNotFound(action, service string, available []string) *Error {
	e := NewError(ErrCodeActionNotFound,
		fmt.Sprintf("Action '%s' not found in service '%s'", action, service))
	e.Details = available
	return e
}

// Registry holds the current snapshot behind an atomic pointer. Dispatch
// and discovery read the snapshot; it is never mutated in place.
type Registry struct {
	snapshot atomic.Pointer[Snapshot]
}

// New creates a Registry serving the given snapshot.
func New(snap *Snapshot) *Registry {
	r := &Registry{}
	r.snapshot.Store(snap)
	return r
}

// Snapshot returns the current snapshot.
func (r *Registry) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Swap atomically replaces the snapshot. The replacement's version must
// compare strictly greater under semver, so a stale or replayed reload can
// never clobber a newer table.
func (r *Registry) Swap(next *Snapshot) error {
	current := r.snapshot.Load()
	curVer, err := semver.NewVersion(current.Version)
	if err != nil {
		return fmt.Errorf("registry: current snapshot version %q is not semver: %w", current.Version, err)
	}
	nextVer, err := semver.NewVersion(next.Version)
	if err != nil {
		return fmt.Errorf("registry: snapshot version %q is not semver: %w", next.Version, err)
	}
	if !nextVer.GreaterThan(curVer) {
		return fmt.Errorf("registry: snapshot version %s does not supersede %s", next.Version, current.Version)
	}
	r.snapshot.Store(next)
	return nil
}
