package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/emsdispatch/core/model"
)

// LocalTransport delivers coordinator messages to in-process actors.
type LocalTransport struct {
	mu     sync.RWMutex
	actors map[string]*Actor
}

// NewLocalTransport returns an empty transport.
func NewLocalTransport() *LocalTransport {
	return &LocalTransport{actors: make(map[string]*Actor)}
}

// Add makes an actor reachable by id.
func (t *LocalTransport) Add(a *Actor) {
	t.mu.Lock()
	t.actors[a.ID()] = a
	t.mu.Unlock()
}

func (t *LocalTransport) deliver(ctx context.Context, id string, msg any) error {
	t.mu.RLock()
	a, ok := t.actors[id]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown provider %s", id)
	}
	return a.Deliver(ctx, msg)
}

func (t *LocalTransport) SendCFP(ctx context.Context, providerID string, cfp model.CallForProposal) error {
	return t.deliver(ctx, providerID, cfp)
}

func (t *LocalTransport) SendAccept(ctx context.Context, m model.Accept) error {
	return t.deliver(ctx, m.ProviderID, m)
}

func (t *LocalTransport) SendReject(ctx context.Context, m model.Reject) error {
	return t.deliver(ctx, m.ProviderID, m)
}

func (t *LocalTransport) SendDestination(ctx context.Context, m model.Destination) error {
	return t.deliver(ctx, m.AmbulanceID, m)
}

func (t *LocalTransport) SendCancel(ctx context.Context, m model.Cancel) error {
	return t.deliver(ctx, m.ProviderID, m)
}
