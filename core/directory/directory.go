// Package directory resolves provider handles by kind.
package directory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kilianp07/emsdispatch/core/model"
)

var (
	// ErrUnavailable is returned by Reserve when the provider cannot take the incident.
	ErrUnavailable = errors.New("provider unavailable")
	// ErrNotHeld is returned by Release for an incident the provider does not hold.
	ErrNotHeld = errors.New("incident not held by provider")
	// ErrDuplicateProvider is returned when registering an id twice.
	ErrDuplicateProvider = errors.New("provider already registered")
)

// Reservation describes the incident a provider is being reserved for.
type Reservation struct {
	IncidentID uint64
	Kind       model.Kind
	Severity   model.Severity
	Location   model.Location
}

// Handle is the coordinator's view of a single provider. Reserve and Release
// are the only operations allowed to change the provider's counters.
type Handle interface {
	ID() string
	Kind() model.ProviderKind
	Reserve(ctx context.Context, r Reservation) error
	Release(ctx context.Context, incidentID uint64) error
}

// Directory finds providers.
type Directory interface {
	FindProviders(ctx context.Context, kind model.ProviderKind) []Handle
	Lookup(id string) (Handle, bool)
}

// RegistrationListener is notified when a provider of the given kind joins.
type RegistrationListener func(ctx context.Context, kind model.ProviderKind)

// Memory is an in-process Directory. Providers are returned in registration order.
type Memory struct {
	mu        sync.RWMutex
	handles   map[string]Handle
	order     []string
	listeners []RegistrationListener
}

// NewMemory returns an empty directory.
func NewMemory() *Memory {
	return &Memory{handles: make(map[string]Handle)}
}

// OnRegister adds a listener invoked after each successful registration.
func (m *Memory) OnRegister(l RegistrationListener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	m.mu.Unlock()
}

// Register adds the handle and notifies listeners.
func (m *Memory) Register(ctx context.Context, h Handle) error {
	m.mu.Lock()
	if _, ok := m.handles[h.ID()]; ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateProvider, h.ID())
	}
	m.handles[h.ID()] = h
	m.order = append(m.order, h.ID())
	listeners := append([]RegistrationListener(nil), m.listeners...)
	m.mu.Unlock()

	for _, l := range listeners {
		l(ctx, h.Kind())
	}
	return nil
}

// Deregister removes a provider. Unknown ids are ignored.
func (m *Memory) Deregister(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.handles[id]; !ok {
		return
	}
	delete(m.handles, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Memory) FindProviders(_ context.Context, kind model.ProviderKind) []Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Handle
	for _, id := range m.order {
		if h := m.handles[id]; h.Kind() == kind {
			out = append(out, h)
		}
	}
	return out
}

func (m *Memory) Lookup(id string) (Handle, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handles[id]
	return h, ok
}

// Len returns the number of registered providers.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}
