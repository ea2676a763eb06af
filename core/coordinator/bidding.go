package coordinator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/emsdispatch/core/directory"
	"github.com/kilianp07/emsdispatch/core/events"
	"github.com/kilianp07/emsdispatch/core/metrics"
	"github.com/kilianp07/emsdispatch/core/model"
)

// ReceiveProposal records a provider's bid and resolves the phase once the
// resolution policy is met.
func (c *Coordinator) ReceiveProposal(ctx context.Context, p model.Proposal) (err error) {
	ctx, span := c.startSpan(ctx, "ReceiveProposal", p.IncidentID)
	defer func() { endSpan(span, err) }()

	if p.Score < 0 || p.Score > 100 {
		c.proposalDropped(ctx, p, "out_of_range")
		return fmt.Errorf("%w: score %d out of range", ErrInvalidProposal, p.Score)
	}
	if p.ProviderKind != model.Ambulance && p.ProviderKind != model.Hospital {
		return fmt.Errorf("%w: unknown provider kind %q", ErrInvalidProposal, p.ProviderKind)
	}
	rec := c.lookup(p.IncidentID)
	if rec == nil {
		c.proposalDropped(ctx, p, "not_bidding")
		return fmt.Errorf("%w: incident %d: %w", ErrIncidentNotBidding, p.IncidentID, ErrUnknownIncident)
	}
	var fx effects
	rec.mu.Lock()
	err = c.recordProposal(ctx, rec, p, &fx)
	rec.mu.Unlock()
	fx.run()
	return err
}

func (c *Coordinator) recordProposal(ctx context.Context, rec *record, p model.Proposal, fx *effects) error {
	id := rec.inc.ID
	if rec.faulted != nil {
		return fmt.Errorf("incident %d: %w", id, rec.faulted)
	}
	kind, bidding := rec.inc.State.Bidding()
	if !bidding || kind != p.ProviderKind {
		if rec.inc.State.Terminal() || rec.inc.Assigned(p.ProviderKind) != "" {
			if !rec.inc.State.Terminal() {
				c.rejectLate(ctx, rec, p, fx)
			}
			fx.add(func() { c.proposalDropped(ctx, p, "not_bidding") })
			return fmt.Errorf("%w: incident %d is %s", ErrIncidentNotBidding, id, rec.inc.State)
		}
		fx.add(func() { c.proposalDropped(ctx, p, "wrong_phase") })
		return fmt.Errorf("%w: incident %d is %s, not bidding for %s", ErrInvalidProposal, id, rec.inc.State, p.ProviderKind)
	}
	ph := rec.phases[kind]
	if _, ok := ph.invited[p.ProviderID]; !ok {
		fx.add(func() { c.proposalDropped(ctx, p, "not_invited") })
		return fmt.Errorf("%w: %s was not invited to incident %d", ErrInvalidProposal, p.ProviderID, id)
	}
	if _, ok := ph.responded[p.ProviderID]; ok {
		fx.add(func() { c.proposalDropped(ctx, p, "duplicate") })
		return fmt.Errorf("%w: duplicate from %s for incident %d", ErrInvalidProposal, p.ProviderID, id)
	}

	rec.seq++
	p = p.Clone()
	p.Seq = rec.seq
	p.ReceivedAt = c.sched.Now()
	rec.setProposals(kind, append(rec.inc.Proposals(kind), p))
	ph.responded[p.ProviderID] = struct{}{}
	fx.add(func() { c.proposalRecorded(ctx, p) })

	if !ph.armed {
		ph.armed = true
		round := ph.round
		ph.timer = c.sched.AfterFunc(c.cfg.Deadline(), func() { c.onDeadline(id, kind, round) })
	}
	c.checkTrigger(ctx, rec, kind, fx)
	return nil
}

// ReceiveRefusal records that a provider declined the call for proposals.
func (c *Coordinator) ReceiveRefusal(ctx context.Context, r model.Refusal) error {
	rec := c.lookup(r.IncidentID)
	if rec == nil {
		return fmt.Errorf("%w: incident %d: %w", ErrIncidentNotBidding, r.IncidentID, ErrUnknownIncident)
	}
	var fx effects
	rec.mu.Lock()
	err := c.recordRefusal(ctx, rec, r, &fx)
	rec.mu.Unlock()
	fx.run()
	return err
}

func (c *Coordinator) recordRefusal(ctx context.Context, rec *record, r model.Refusal, fx *effects) error {
	id := rec.inc.ID
	if rec.faulted != nil {
		return fmt.Errorf("incident %d: %w", id, rec.faulted)
	}
	kind, bidding := rec.inc.State.Bidding()
	if !bidding || kind != r.ProviderKind {
		return fmt.Errorf("%w: incident %d is %s", ErrIncidentNotBidding, id, rec.inc.State)
	}
	ph := rec.phases[kind]
	if _, ok := ph.invited[r.ProviderID]; !ok {
		return fmt.Errorf("%w: %s was not invited to incident %d", ErrInvalidProposal, r.ProviderID, id)
	}
	if _, ok := ph.responded[r.ProviderID]; ok {
		return fmt.Errorf("%w: duplicate from %s for incident %d", ErrInvalidProposal, r.ProviderID, id)
	}
	ph.responded[r.ProviderID] = struct{}{}
	fx.add(func() {
		proposalsTotal.WithLabelValues(string(kind), "refused").Inc()
		c.log.Debugf("incident %d: %s refused (%s)", id, r.ProviderID, r.Reason)
	})
	c.checkTrigger(ctx, rec, kind, fx)
	return nil
}

// checkTrigger resolves the phase on quorum or once every invited provider
// answered, and stalls it when everyone refused. Caller holds rec.mu.
func (c *Coordinator) checkTrigger(ctx context.Context, rec *record, kind model.ProviderKind, fx *effects) {
	ph := rec.phases[kind]
	n := len(rec.inc.Proposals(kind))
	allAnswered := len(ph.responded) >= len(ph.invited)
	switch {
	case n >= c.cfg.Quorum || (allAnswered && n > 0):
		c.resolveLocked(ctx, rec, kind, fx)
	case allAnswered && !ph.stalled:
		c.stall(ctx, rec, kind, "every provider refused", fx)
	}
}

func (c *Coordinator) onDeadline(id uint64, kind model.ProviderKind, round int) {
	if c.ctx.Err() != nil {
		return
	}
	rec := c.lookup(id)
	if rec == nil {
		return
	}
	var fx effects
	rec.mu.Lock()
	ph := rec.phases[kind]
	bk, bidding := rec.inc.State.Bidding()
	if rec.faulted == nil && bidding && bk == kind && ph != nil && ph.round == round &&
		rec.inc.Assigned(kind) == "" && len(rec.inc.Proposals(kind)) > 0 {
		ph.timer = nil
		n := len(rec.inc.Proposals(kind))
		fx.add(func() { c.log.Debugf("incident %d: %s deadline reached with %d proposals", id, kind, n) })
		c.resolveLocked(c.ctx, rec, kind, &fx)
	}
	rec.mu.Unlock()
	fx.run()
}

// ResolvePhase selects the winner of a phase. It is idempotent: once a
// winner exists it is returned and nothing is issued again.
func (c *Coordinator) ResolvePhase(ctx context.Context, id uint64, kind model.ProviderKind) (winner string, err error) {
	ctx, span := c.startSpan(ctx, "ResolvePhase", id)
	defer func() { endSpan(span, err) }()

	rec := c.lookup(id)
	if rec == nil {
		return "", fmt.Errorf("%w: %d", ErrUnknownIncident, id)
	}
	var fx effects
	rec.mu.Lock()
	switch bk, bidding := rec.inc.State.Bidding(); {
	case rec.faulted != nil:
		err = fmt.Errorf("incident %d: %w", id, rec.faulted)
	case rec.inc.Assigned(kind) != "":
		winner = rec.inc.Assigned(kind)
	case !bidding || bk != kind:
		err = fmt.Errorf("%w: incident %d is %s", ErrIncidentNotBidding, id, rec.inc.State)
	case len(rec.inc.Proposals(kind)) == 0:
		err = fmt.Errorf("%w: incident %d %s phase", ErrNoProposals, id, kind)
	default:
		c.resolveLocked(ctx, rec, kind, &fx)
		winner = rec.inc.Assigned(kind)
		if winner == "" && rec.faulted == nil {
			err = fmt.Errorf("%w: incident %d %s phase", ErrNoProvidersAvailable, id, kind)
		}
	}
	rec.mu.Unlock()
	fx.run()
	return winner, err
}

// resolveLocked ranks the proposals, reserves the best provider that still
// accepts, rejects the others once and advances the incident. Caller holds rec.mu.
func (c *Coordinator) resolveLocked(ctx context.Context, rec *record, kind model.ProviderKind, fx *effects) {
	id := rec.inc.ID
	ph := rec.phases[kind]
	ph.stopTimer()
	if rec.inc.Assigned(kind) != "" {
		*fx = append(*fx, c.violate(rec, fmt.Errorf("%w: incident %d %s phase", ErrDoubleAssignment, id, kind))...)
		return
	}

	ranked := append([]model.Proposal(nil), rec.inc.Proposals(kind)...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Better(ranked[j]) })
	res := directory.Reservation{IncidentID: id, Kind: rec.inc.Kind, Severity: rec.inc.Severity, Location: rec.inc.Location}
	winner := -1
	for i, p := range ranked {
		h, ok := c.dir.Lookup(p.ProviderID)
		if !ok {
			pid := p.ProviderID
			fx.add(func() { c.log.Warnf("incident %d: %s left the directory", id, pid) })
			continue
		}
		if err := h.Reserve(ctx, res); err != nil {
			pid := p.ProviderID
			fx.add(func() { c.log.Infof("incident %d: %s could not be reserved: %v", id, pid, err) })
			continue
		}
		winner = i
		break
	}

	var losers []model.Proposal
	for i, p := range ranked {
		if i == winner {
			continue
		}
		if _, done := ph.rejected[p.ProviderID]; done {
			continue
		}
		ph.rejected[p.ProviderID] = struct{}{}
		losers = append(losers, p)
	}
	rejects := func() {
		for _, p := range losers {
			m := model.Reject{IncidentID: id, ProviderKind: kind, ProviderID: p.ProviderID}
			if err := c.tr.SendReject(ctx, m); err != nil {
				c.log.Warnf("incident %d: reject to %s failed: %v", id, p.ProviderID, err)
			}
			c.proposalDropped(ctx, p, "lost")
		}
	}

	if winner < 0 {
		fx.add(rejects)
		c.stall(ctx, rec, kind, "no candidate could be reserved", fx)
		return
	}

	w := ranked[winner]
	now := c.sched.Now()
	latency := now.Sub(ph.startedAt)
	ph.stalled = false
	rec.setAssigned(kind, w.ProviderID)
	loc := rec.inc.Location
	resolved := events.PhaseResolved{
		IncidentID: id, Phase: kind, Winner: w, Candidates: len(ranked),
		Latency: latency, Kind: rec.inc.Kind, Severity: rec.inc.Severity,
	}
	accept := model.Accept{IncidentID: id, ProviderKind: kind, ProviderID: w.ProviderID, Location: loc}
	fx.add(func() {
		if err := c.tr.SendAccept(ctx, accept); err != nil {
			c.log.Warnf("incident %d: accept to %s failed: %v", id, w.ProviderID, err)
		}
	})
	fx.add(rejects)
	fx.add(func() { c.phaseResolved(ctx, resolved, now) })

	switch kind {
	case model.Ambulance:
		rec.inc.AssignedAt = now
		if err := c.transition(rec, model.StateAmbulanceAssigned); err != nil {
			*fx = append(*fx, c.violate(rec, err)...)
			return
		}
		route := c.cfg.RoutePriority()
		fx.add(func() {
			c.gw.RequestRoutePriority(ctx, loc, route)
			c.gw.BroadcastTrafficHold(ctx, loc)
		})
		if err := c.transition(rec, model.StateHospitalBidding); err != nil {
			*fx = append(*fx, c.violate(rec, err)...)
			return
		}
		c.openPhase(ctx, rec, model.Hospital, fx)
	case model.Hospital:
		if err := c.transition(rec, model.StateHospitalAssigned); err != nil {
			*fx = append(*fx, c.violate(rec, err)...)
			return
		}
		dest := model.Destination{IncidentID: id, AmbulanceID: rec.inc.AssignedAmbulance, HospitalID: w.ProviderID, Location: loc}
		fx.add(func() {
			c.gw.NotifyDestination(ctx, model.DestinationNotice{IncidentID: id, AmbulanceID: dest.AmbulanceID, HospitalID: dest.HospitalID})
			if err := c.tr.SendDestination(ctx, dest); err != nil {
				c.log.Warnf("incident %d: destination to %s failed: %v", id, dest.AmbulanceID, err)
				return
			}
			c.markEnRoute(id)
		})
	}
}

// openPhase starts a new bidding round and queues the calls for proposals.
// Caller holds rec.mu. It returns the number of providers invited.
func (c *Coordinator) openPhase(ctx context.Context, rec *record, kind model.ProviderKind, fx *effects) int {
	round := 1
	if old := rec.phases[kind]; old != nil {
		old.stopTimer()
		round = old.round + 1
	}
	now := c.sched.Now()
	ph := newPhase(round, now)
	rec.phases[kind] = ph
	rec.setProposals(kind, nil)

	handles := c.dir.FindProviders(ctx, kind)
	if len(handles) == 0 {
		c.stall(ctx, rec, kind, "no providers registered", fx)
		return 0
	}
	id := rec.inc.ID
	cfp := model.CallForProposal{
		IncidentID:   id,
		ProviderKind: kind,
		Kind:         rec.inc.Kind,
		Severity:     rec.inc.Severity,
		Location:     rec.inc.Location,
		IssuedAt:     now,
	}
	ids := make([]string, 0, len(handles))
	for _, h := range handles {
		ph.invited[h.ID()] = struct{}{}
		ids = append(ids, h.ID())
	}
	fx.add(func() {
		for _, pid := range ids {
			if err := c.tr.SendCFP(ctx, pid, cfp); err != nil {
				c.log.Warnf("incident %d: cfp to %s failed: %v", id, pid, err)
				// An unreachable provider counts as a refusal so the phase can still complete.
				_ = c.ReceiveRefusal(ctx, model.Refusal{IncidentID: id, ProviderKind: kind, ProviderID: pid, Reason: "unreachable"})
			}
		}
	})
	return len(ids)
}

// stall parks a phase until a provider registers or is released. Caller holds rec.mu.
func (c *Coordinator) stall(ctx context.Context, rec *record, kind model.ProviderKind, reason string, fx *effects) {
	ph := rec.phases[kind]
	ph.stalled = true
	ph.stopTimer()
	id := rec.inc.ID
	fx.add(func() {
		phasesStalled.WithLabelValues(string(kind)).Inc()
		c.log.Warnf("incident %d: %s phase waiting: %v (%s)", id, kind, ErrNoProvidersAvailable, reason)
		c.gw.Emit(ctx, events.IncidentStalled{IncidentID: id, Phase: kind, Reason: reason})
		if sr, ok := c.sink.(metrics.StallRecorder); ok {
			if err := sr.RecordStall(metrics.StallEvent{IncidentID: id, Phase: kind, Reason: reason, Time: c.sched.Now()}); err != nil {
				c.log.Errorf("stall metrics error: %v", err)
			}
		}
	})
}

// rejectLate answers a bidder whose phase was already resolved. Caller holds rec.mu.
func (c *Coordinator) rejectLate(ctx context.Context, rec *record, p model.Proposal, fx *effects) {
	ph := rec.phases[p.ProviderKind]
	if ph == nil || p.ProviderID == rec.inc.Assigned(p.ProviderKind) {
		return
	}
	if _, done := ph.rejected[p.ProviderID]; done {
		return
	}
	ph.rejected[p.ProviderID] = struct{}{}
	m := model.Reject{IncidentID: p.IncidentID, ProviderKind: p.ProviderKind, ProviderID: p.ProviderID}
	fx.add(func() {
		if err := c.tr.SendReject(ctx, m); err != nil {
			c.log.Warnf("incident %d: reject to %s failed: %v", m.IncidentID, m.ProviderID, err)
		}
	})
}

func (c *Coordinator) markEnRoute(id uint64) {
	rec := c.lookup(id)
	if rec == nil {
		return
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.faulted == nil && rec.inc.State == model.StateHospitalAssigned {
		rec.inc.State = model.StateEnRoute
	}
}

func (c *Coordinator) proposalRecorded(ctx context.Context, p model.Proposal) {
	proposalsTotal.WithLabelValues(string(p.ProviderKind), "recorded").Inc()
	c.gw.Emit(ctx, events.ProposalRecorded{Proposal: p})
	if pr, ok := c.sink.(metrics.ProposalRecorder); ok {
		if err := pr.RecordProposal(metrics.ProposalEvent{
			IncidentID: p.IncidentID, Phase: p.ProviderKind, ProviderID: p.ProviderID,
			Score: p.Score, Result: "recorded", Time: p.ReceivedAt,
		}); err != nil {
			c.log.Errorf("proposal metrics error: %v", err)
		}
	}
}

func (c *Coordinator) proposalDropped(ctx context.Context, p model.Proposal, reason string) {
	proposalsTotal.WithLabelValues(string(p.ProviderKind), reason).Inc()
	c.log.Debugf("incident %d: proposal from %s dropped (%s)", p.IncidentID, p.ProviderID, reason)
	c.gw.Emit(ctx, events.ProposalRejected{Proposal: p, Reason: reason})
	if pr, ok := c.sink.(metrics.ProposalRecorder); ok {
		if err := pr.RecordProposal(metrics.ProposalEvent{
			IncidentID: p.IncidentID, Phase: p.ProviderKind, ProviderID: p.ProviderID,
			Score: p.Score, Result: reason, Time: c.sched.Now(),
		}); err != nil {
			c.log.Errorf("proposal metrics error: %v", err)
		}
	}
}

func (c *Coordinator) phaseResolved(ctx context.Context, ev events.PhaseResolved, at time.Time) {
	resolutionLatency.WithLabelValues(string(ev.Phase)).Observe(ev.Latency.Seconds())
	c.log.Infof("incident %d: %s %s assigned (score %d, %d candidates)",
		ev.IncidentID, ev.Phase, ev.Winner.ProviderID, ev.Winner.Score, ev.Candidates)
	c.gw.Emit(ctx, ev)
	if err := c.sink.RecordAllocation(metrics.AllocationEvent{
		IncidentID: ev.IncidentID, Phase: ev.Phase, ProviderID: ev.Winner.ProviderID,
		Score: ev.Winner.Score, Candidates: ev.Candidates, Kind: ev.Kind, Severity: ev.Severity,
		Latency: ev.Latency, Time: at,
	}); err != nil {
		c.log.Errorf("allocation metrics error: %v", err)
	}
}
