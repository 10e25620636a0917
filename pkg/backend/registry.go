package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/viewgate-dev/viewgate/pkg/session"
)

// ErrUnknownProtocol is returned when no module matches the protocol
// identifier named by a handshake. No Session is created and no handler is
// ever invoked.
var ErrUnknownProtocol = errors.New("backend: unknown protocol")

// Loader locates and loads the backend module for a protocol identifier.
// Load is called once per connection; each returned Module is owned by
// exactly one Session for that Session's entire lifetime.
type Loader interface {
	Load(protocol string) (session.Module, error)
}

// Factory produces a fresh Module instance for one connection.
type Factory func() session.Module

// Registry is the compiled-in Loader: a table of protocol identifiers to
// module factories. The zero value is not usable; call NewRegistry.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a module factory under the given protocol identifier,
// replacing any previous registration for that identifier.
func (r *Registry) Register(protocol string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[protocol] = factory
}

// Load implements Loader.
func (r *Registry) Load(protocol string) (session.Module, error) {
	r.mu.RLock()
	factory, ok := r.factories[protocol]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, protocol)
	}
	return factory(), nil
}

// Protocols returns the registered protocol identifiers, sorted.
func (r *Registry) Protocols() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Module adapts plain functions to the session.Module contract. OnRelease
// is optional.
type Module struct {
	Protocol  string
	OnInit    func(s *session.Session, args []string) error
	OnRelease func() error
}

// Name implements session.Module.
func (m *Module) Name() string { return m.Protocol }

// Init implements session.Module.
func (m *Module) Init(s *session.Session, args []string) error {
	return m.OnInit(s, args)
}

// Release implements session.Module.
func (m *Module) Release() error {
	if m.OnRelease == nil {
		return nil
	}
	return m.OnRelease()
}
