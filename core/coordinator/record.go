package coordinator

import (
	"sync"
	"time"

	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/core/scheduler"
)

// phase tracks one round of bidding for a provider kind.
type phase struct {
	round     int
	invited   map[string]struct{}
	responded map[string]struct{}
	rejected  map[string]struct{}
	timer     scheduler.Timer
	armed     bool
	stalled   bool
	startedAt time.Time
}

func newPhase(round int, now time.Time) *phase {
	return &phase{
		round:     round,
		invited:   make(map[string]struct{}),
		responded: make(map[string]struct{}),
		rejected:  make(map[string]struct{}),
		startedAt: now,
	}
}

func (p *phase) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// record is the coordinator-owned state of one incident. All fields are
// guarded by mu.
type record struct {
	mu      sync.Mutex
	inc     model.Incident
	phases  map[model.ProviderKind]*phase
	seq     uint64
	faulted error
}

func newRecord(inc model.Incident) *record {
	return &record{inc: inc, phases: make(map[model.ProviderKind]*phase)}
}

func (r *record) setProposals(kind model.ProviderKind, ps []model.Proposal) {
	if kind == model.Hospital {
		r.inc.HospitalProposals = ps
		return
	}
	r.inc.AmbulanceProposals = ps
}

func (r *record) setAssigned(kind model.ProviderKind, id string) {
	if kind == model.Hospital {
		r.inc.AssignedHospital = id
		return
	}
	r.inc.AssignedAmbulance = id
}

func (r *record) stalledIn() (model.ProviderKind, bool) {
	kind, ok := r.inc.State.Bidding()
	if !ok || r.faulted != nil {
		return "", false
	}
	ph := r.phases[kind]
	return kind, ph != nil && ph.stalled
}

// effects are side effects collected under a record lock and run after it is released.
type effects []func()

func (fx *effects) add(f func()) { *fx = append(*fx, f) }

func (fx effects) run() {
	for _, f := range fx {
		f()
	}
}
