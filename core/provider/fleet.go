package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/kilianp07/emsdispatch/core/directory"
	"github.com/kilianp07/emsdispatch/core/model"
)

// Fleet owns a set of in-process actors built from a roster.
type Fleet struct {
	actors []*Actor
	wg     sync.WaitGroup
}

// NewFleet builds one actor per spec and makes each reachable through tr.
// The scorer for each actor is derived from its kind unless opts override it.
func NewFleet(specs []Spec, coord Coordinator, tr *LocalTransport, gaz model.Gazetteer, opts ...Option) (*Fleet, error) {
	f := &Fleet{}
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if _, dup := seen[s.ID]; dup {
			return nil, fmt.Errorf("%w: %s", directory.ErrDuplicateProvider, s.ID)
		}
		seen[s.ID] = struct{}{}
		st, err := s.State()
		if err != nil {
			return nil, err
		}
		actorOpts := append([]Option{WithScorer(ScorerFor(st.Kind, gaz))}, opts...)
		a := NewActor(st, coord, actorOpts...)
		f.actors = append(f.actors, a)
		if tr != nil {
			tr.Add(a)
		}
	}
	return f, nil
}

// Start runs every actor until ctx is canceled.
func (f *Fleet) Start(ctx context.Context) {
	for _, a := range f.actors {
		f.wg.Add(1)
		go func(a *Actor) {
			defer f.wg.Done()
			a.Run(ctx)
		}(a)
	}
}

// Register adds every actor to the directory.
func (f *Fleet) Register(ctx context.Context, dir *directory.Memory) error {
	for _, a := range f.actors {
		if err := dir.Register(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Wait blocks until all actors have stopped.
func (f *Fleet) Wait() { f.wg.Wait() }

func (f *Fleet) Actors() []*Actor { return f.actors }

// Lookup returns the actor with the given id.
func (f *Fleet) Lookup(id string) (*Actor, bool) {
	for _, a := range f.actors {
		if a.ID() == id {
			return a, true
		}
	}
	return nil, false
}

// Snapshot returns the state of every actor.
func (f *Fleet) Snapshot() []model.ProviderState {
	out := make([]model.ProviderState, 0, len(f.actors))
	for _, a := range f.actors {
		out = append(out, a.Snapshot())
	}
	return out
}
