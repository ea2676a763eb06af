package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/emsdispatch/core/directory"
	"github.com/kilianp07/emsdispatch/core/logger"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/core/scheduler"
)

// ErrStopped is returned when delivering to an actor that has exited.
var ErrStopped = errors.New("provider actor stopped")

// Coordinator is the upstream an actor answers to.
type Coordinator interface {
	ReceiveProposal(ctx context.Context, p model.Proposal) error
	ReceiveRefusal(ctx context.Context, r model.Refusal) error
	CompleteIncident(ctx context.Context, incidentID uint64, responseSeconds float64) error
}

// Timing controls the simulated delays of an actor.
type Timing struct {
	// ThinkDelay is the time between receiving a call and replying.
	ThinkDelay time.Duration
	// TravelToScene is the drive from the ambulance base to the incident.
	TravelToScene time.Duration
	// Transport is the drive from the incident to the hospital.
	Transport time.Duration
}

// DefaultTiming returns the delays used when none are configured.
func DefaultTiming() Timing {
	return Timing{ThinkDelay: 200 * time.Millisecond, TravelToScene: 5 * time.Second, Transport: 8 * time.Second}
}

type trip struct {
	acceptedAt time.Time
	timers     []scheduler.Timer
}

// Actor is a single ambulance or hospital. Messages are processed on the
// goroutine running Run; replies are posted through the scheduler so the
// actor never calls back into the coordinator from its own loop.
type Actor struct {
	mu    sync.Mutex
	state model.ProviderState
	holds map[uint64]int
	trips map[uint64]*trip
	ctx   context.Context

	coord  Coordinator
	scorer Scorer
	sched  scheduler.Scheduler
	log    logger.Logger
	timing Timing
	inbox  chan any
	done   chan struct{}
}

// Option configures an Actor.
type Option func(*Actor)

func WithScheduler(s scheduler.Scheduler) Option { return func(a *Actor) { a.sched = s } }
func WithLogger(l logger.Logger) Option          { return func(a *Actor) { a.log = l } }
func WithScorer(s Scorer) Option                 { return func(a *Actor) { a.scorer = s } }
func WithTiming(t Timing) Option                 { return func(a *Actor) { a.timing = t } }

// WithInbox sets the inbox capacity.
func WithInbox(n int) Option {
	return func(a *Actor) {
		if n > 0 {
			a.inbox = make(chan any, n)
		}
	}
}

// NewActor creates an actor for the given initial state.
func NewActor(state model.ProviderState, coord Coordinator, opts ...Option) *Actor {
	a := &Actor{
		state:  state.Clone(),
		holds:  make(map[uint64]int),
		trips:  make(map[uint64]*trip),
		coord:  coord,
		sched:  scheduler.Real{},
		log:    logger.Nop{},
		timing: DefaultTiming(),
		inbox:  make(chan any, 64),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	if a.scorer == nil {
		a.scorer = ScorerFor(state.Kind, nil)
	}
	return a
}

func (a *Actor) ID() string               { return a.state.ID }
func (a *Actor) Kind() model.ProviderKind { return a.state.Kind }

// Snapshot returns a copy of the current state.
func (a *Actor) Snapshot() model.ProviderState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state.Clone()
}

// Deliver queues a message for the actor.
func (a *Actor) Deliver(ctx context.Context, msg any) error {
	select {
	case <-a.done:
		return ErrStopped
	default:
	}
	select {
	case a.inbox <- msg:
		return nil
	case <-a.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes messages until the context is canceled.
func (a *Actor) Run(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			a.stopTrips()
			return
		case msg := <-a.inbox:
			a.handle(msg)
		}
	}
}

func (a *Actor) handle(msg any) {
	switch m := msg.(type) {
	case model.CallForProposal:
		a.onCallForProposal(m)
	case model.Accept:
		a.onAccept(m)
	case model.Reject:
		a.log.Debugf("%s: proposal for incident %d rejected", a.ID(), m.IncidentID)
	case model.Destination:
		a.onDestination(m)
	case model.Cancel:
		a.onCancel(m)
	default:
		a.log.Warnf("%s: unexpected message %T", a.ID(), msg)
	}
}

func (a *Actor) context() context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

func (a *Actor) onCallForProposal(cfp model.CallForProposal) {
	snap := a.Snapshot()
	if !snap.CanServe() {
		reason := "unavailable"
		if snap.Kind == model.Hospital {
			reason = "at capacity"
		}
		ref := model.Refusal{IncidentID: cfp.IncidentID, ProviderKind: snap.Kind, ProviderID: snap.ID, Reason: reason}
		a.sched.AfterFunc(a.timing.ThinkDelay, func() {
			if err := a.coord.ReceiveRefusal(a.context(), ref); err != nil {
				a.log.Debugf("%s: refusal for incident %d not taken: %v", snap.ID, cfp.IncidentID, err)
			}
		})
		return
	}
	p := model.Proposal{
		IncidentID:   cfp.IncidentID,
		ProviderKind: snap.Kind,
		ProviderID:   snap.ID,
		Score:        a.scorer.Score(cfp, snap),
		Metadata:     map[string]string{"tier": snap.Tier, "location": string(snap.Location)},
	}
	a.log.Debugw("proposal", map[string]any{"provider": snap.ID, "incident": cfp.IncidentID, "score": p.Score})
	a.sched.AfterFunc(a.timing.ThinkDelay, func() {
		if err := a.coord.ReceiveProposal(a.context(), p); err != nil {
			a.log.Debugf("%s: proposal for incident %d not taken: %v", snap.ID, cfp.IncidentID, err)
		}
	})
}

func (a *Actor) onAccept(m model.Accept) {
	if a.Kind() == model.Hospital {
		a.log.Infof("%s: admitting patient of incident %d", a.ID(), m.IncidentID)
		return
	}
	now := a.sched.Now()
	a.mu.Lock()
	tr := &trip{acceptedAt: now}
	a.trips[m.IncidentID] = tr
	tr.timers = append(tr.timers, a.sched.AfterFunc(a.timing.TravelToScene, func() {
		a.log.Infof("%s: arrived at %s for incident %d", a.ID(), m.Location, m.IncidentID)
	}))
	a.mu.Unlock()
	a.log.Infof("%s: dispatched to %s for incident %d", a.ID(), m.Location, m.IncidentID)
}

func (a *Actor) onDestination(m model.Destination) {
	now := a.sched.Now()
	a.mu.Lock()
	tr, ok := a.trips[m.IncidentID]
	if !ok {
		tr = &trip{acceptedAt: now}
		a.trips[m.IncidentID] = tr
	}
	remaining := tr.acceptedAt.Add(a.timing.TravelToScene + a.timing.Transport).Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	id := m.IncidentID
	tr.timers = append(tr.timers, a.sched.AfterFunc(remaining, func() { a.deliverPatient(id) }))
	a.mu.Unlock()
	a.log.Infof("%s: transporting incident %d to %s", a.ID(), m.IncidentID, m.HospitalID)
}

func (a *Actor) deliverPatient(incidentID uint64) {
	now := a.sched.Now()
	a.mu.Lock()
	tr, ok := a.trips[incidentID]
	delete(a.trips, incidentID)
	a.mu.Unlock()
	if !ok {
		return
	}
	resp := now.Sub(tr.acceptedAt).Seconds()
	if err := a.coord.CompleteIncident(a.context(), incidentID, resp); err != nil {
		a.log.Warnf("%s: completion of incident %d failed: %v", a.ID(), incidentID, err)
	}
}

func (a *Actor) onCancel(m model.Cancel) {
	a.mu.Lock()
	tr, ok := a.trips[m.IncidentID]
	delete(a.trips, m.IncidentID)
	a.mu.Unlock()
	if ok {
		for _, t := range tr.timers {
			t.Stop()
		}
	}
	a.log.Infof("%s: incident %d cancelled", a.ID(), m.IncidentID)
}

func (a *Actor) stopTrips() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, tr := range a.trips {
		for _, t := range tr.timers {
			t.Stop()
		}
		delete(a.trips, id)
	}
}

// Reserve claims the provider for an incident. It is idempotent per incident.
func (a *Actor) Reserve(_ context.Context, r directory.Reservation) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.holds[r.IncidentID]; ok {
		return nil
	}
	switch a.state.Kind {
	case model.Ambulance:
		if !a.state.Available {
			return fmt.Errorf("%w: %s busy", directory.ErrUnavailable, a.state.ID)
		}
		a.state.Available = false
		a.holds[r.IncidentID] = -1
	case model.Hospital:
		if a.state.Load >= a.state.Capacity {
			return fmt.Errorf("%w: %s at capacity %d", directory.ErrUnavailable, a.state.ID, a.state.Capacity)
		}
		a.state.Load++
		idx := BestSpecialist(a.state.Specialists, r.Kind)
		if idx >= 0 {
			a.state.Specialists[idx].Available = false
		}
		a.holds[r.IncidentID] = idx
	}
	return nil
}

// Release frees the capacity held for an incident.
func (a *Actor) Release(_ context.Context, incidentID uint64) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	idx, ok := a.holds[incidentID]
	if !ok {
		return fmt.Errorf("%w: %s incident %d", directory.ErrNotHeld, a.state.ID, incidentID)
	}
	delete(a.holds, incidentID)
	switch a.state.Kind {
	case model.Ambulance:
		a.state.Available = true
	case model.Hospital:
		a.state.Load--
		if idx >= 0 && idx < len(a.state.Specialists) {
			a.state.Specialists[idx].Available = true
		}
	}
	return nil
}
