package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/emsdispatch/core/archive"
	"github.com/kilianp07/emsdispatch/core/directory"
	"github.com/kilianp07/emsdispatch/core/events"
	"github.com/kilianp07/emsdispatch/core/metrics"
	"github.com/kilianp07/emsdispatch/core/model"
	"github.com/kilianp07/emsdispatch/core/monitoring"
)

// Submit registers a new incident and opens ambulance bidding.
func (c *Coordinator) Submit(ctx context.Context, kind model.Kind, sev model.Severity, loc model.Location) (id uint64, err error) {
	if strings.TrimSpace(string(loc)) == "" {
		return 0, fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	if kind.String() == "unknown" || sev.String() == "unknown" {
		return 0, fmt.Errorf("%w: kind %d severity %d", ErrInvalidInput, kind, sev)
	}
	id = c.nextID.Add(1)
	ctx, span := c.startSpan(ctx, "Submit", id)
	defer func() { endSpan(span, err) }()

	rec := newRecord(model.Incident{
		ID:          id,
		Kind:        kind,
		Severity:    sev,
		Location:    loc,
		State:       model.StateCreated,
		SubmittedAt: c.sched.Now(),
	})
	var fx effects
	rec.mu.Lock()
	c.mu.Lock()
	c.records[id] = rec
	c.mu.Unlock()
	c.stats.submit()
	incidentsSubmitted.WithLabelValues(kind.String(), sev.String()).Inc()
	openIncidents.Inc()

	var invited int
	if err := c.transition(rec, model.StateAmbulanceBidding); err != nil {
		fx = append(fx, c.violate(rec, err)...)
	} else {
		invited = c.openPhase(ctx, rec, model.Ambulance, &fx)
	}
	submitted := events.IncidentSubmitted{Incident: rec.inc.Clone(), Invited: invited}
	rec.mu.Unlock()

	c.log.Infof("incident %d submitted: %s %s at %s, %d ambulances invited", id, kind, sev, loc, invited)
	c.gw.Emit(ctx, submitted)
	fx.run()
	return id, nil
}

// CompleteIncident closes an incident once the patient reached the hospital
// and frees both providers.
func (c *Coordinator) CompleteIncident(ctx context.Context, id uint64, responseSeconds float64) (err error) {
	ctx, span := c.startSpan(ctx, "CompleteIncident", id)
	defer func() { endSpan(span, err) }()

	if responseSeconds < 0 {
		return fmt.Errorf("%w: negative response time %.1f", ErrInvalidInput, responseSeconds)
	}
	rec := c.lookup(id)
	if rec == nil {
		return fmt.Errorf("%w: %d", ErrUnknownIncident, id)
	}
	var fx effects
	rec.mu.Lock()
	err = c.completeLocked(ctx, rec, responseSeconds, &fx)
	rec.mu.Unlock()
	fx.run()
	if err == nil {
		c.retryStalled(ctx)
	}
	return err
}

func (c *Coordinator) completeLocked(ctx context.Context, rec *record, secs float64, fx *effects) error {
	id := rec.inc.ID
	if rec.faulted != nil {
		return fmt.Errorf("incident %d: %w", id, rec.faulted)
	}
	if s := rec.inc.State; s != model.StateHospitalAssigned && s != model.StateEnRoute {
		return fmt.Errorf("%w: cannot complete incident %d in %s", ErrInvalidTransition, id, s)
	}
	for _, pid := range []string{rec.inc.AssignedAmbulance, rec.inc.AssignedHospital} {
		if err := c.release(ctx, id, pid, fx); err != nil {
			*fx = append(*fx, c.violate(rec, err)...)
			return err
		}
	}
	if err := c.transition(rec, model.StateCompleted); err != nil {
		*fx = append(*fx, c.violate(rec, err)...)
		return err
	}
	rec.inc.ClosedAt = c.sched.Now()
	rec.inc.ResponseSeconds = secs
	snap := rec.inc.Clone()
	fx.add(func() {
		c.gw.ClearRoutePriority(ctx, snap.Location)
		c.gw.BroadcastTrafficResume(ctx, snap.Location)
		c.log.Infof("incident %d completed: %s to %s in %.1fs", id, snap.AssignedAmbulance, snap.AssignedHospital, secs)
		c.gw.Emit(ctx, events.IncidentCompleted{Incident: snap})
		c.closeIncident(ctx, snap)
	})
	return nil
}

// Cancel withdraws an incident that has no hospital yet.
func (c *Coordinator) Cancel(ctx context.Context, id uint64) (err error) {
	ctx, span := c.startSpan(ctx, "Cancel", id)
	defer func() { endSpan(span, err) }()

	rec := c.lookup(id)
	if rec == nil {
		return fmt.Errorf("%w: %d", ErrUnknownIncident, id)
	}
	var fx effects
	rec.mu.Lock()
	freed, err := c.cancelLocked(ctx, rec, &fx)
	rec.mu.Unlock()
	fx.run()
	if freed {
		c.retryStalled(ctx)
	}
	return err
}

func (c *Coordinator) cancelLocked(ctx context.Context, rec *record, fx *effects) (bool, error) {
	id := rec.inc.ID
	if !rec.inc.State.Cancellable() {
		return false, fmt.Errorf("%w: cannot cancel incident %d in %s", ErrInvalidTransition, id, rec.inc.State)
	}
	for _, ph := range rec.phases {
		ph.stopTimer()
	}
	if kind, ok := rec.inc.State.Bidding(); ok {
		ph := rec.phases[kind]
		var pending []model.Reject
		for _, p := range rec.inc.Proposals(kind) {
			if _, done := ph.rejected[p.ProviderID]; done {
				continue
			}
			ph.rejected[p.ProviderID] = struct{}{}
			pending = append(pending, model.Reject{IncidentID: id, ProviderKind: kind, ProviderID: p.ProviderID})
		}
		fx.add(func() {
			for _, m := range pending {
				if err := c.tr.SendReject(ctx, m); err != nil {
					c.log.Warnf("incident %d: reject to %s failed: %v", id, m.ProviderID, err)
				}
			}
		})
	}

	freed := false
	if amb := rec.inc.AssignedAmbulance; amb != "" {
		if err := c.release(ctx, id, amb, fx); err != nil {
			*fx = append(*fx, c.violate(rec, err)...)
			return false, err
		}
		freed = true
		loc := rec.inc.Location
		fx.add(func() {
			if err := c.tr.SendCancel(ctx, model.Cancel{IncidentID: id, ProviderKind: model.Ambulance, ProviderID: amb}); err != nil {
				c.log.Warnf("incident %d: cancel to %s failed: %v", id, amb, err)
			}
			c.gw.ClearRoutePriority(ctx, loc)
			c.gw.BroadcastTrafficResume(ctx, loc)
		})
	}
	if err := c.transition(rec, model.StateCancelled); err != nil {
		*fx = append(*fx, c.violate(rec, err)...)
		return freed, err
	}
	rec.inc.ClosedAt = c.sched.Now()
	snap := rec.inc.Clone()
	fx.add(func() {
		c.log.Infof("incident %d cancelled", id)
		c.gw.Emit(ctx, events.IncidentCancelled{Incident: snap})
		c.closeIncident(ctx, snap)
	})
	return freed, nil
}

// release frees a provider held for an incident. A provider that left the
// directory is only logged; one that does not hold the incident is an invariant violation.
func (c *Coordinator) release(ctx context.Context, id uint64, providerID string, fx *effects) error {
	h, ok := c.dir.Lookup(providerID)
	if !ok {
		fx.add(func() { c.log.Warnf("incident %d: %s left the directory before release", id, providerID) })
		return nil
	}
	if err := h.Release(ctx, id); err != nil {
		if errors.Is(err, directory.ErrNotHeld) {
			return fmt.Errorf("%w: %s incident %d: %v", ErrReleaseMismatch, providerID, id, err)
		}
		fx.add(func() { c.log.Warnf("incident %d: release of %s failed: %v", id, providerID, err) })
	}
	return nil
}

// closeIncident updates statistics and archives a terminal incident.
func (c *Coordinator) closeIncident(ctx context.Context, inc model.Incident) {
	openIncidents.Dec()
	incidentsClosed.WithLabelValues(strings.ToLower(inc.State.String())).Inc()
	if inc.State == model.StateCompleted {
		c.stats.complete(inc.ResponseSeconds)
		responseSeconds.Observe(inc.ResponseSeconds)
	} else {
		c.stats.cancel()
	}
	if cr, ok := c.sink.(metrics.CompletionRecorder); ok {
		if err := cr.RecordCompletion(metrics.CompletionEvent{
			IncidentID: inc.ID, Kind: inc.Kind, Severity: inc.Severity, State: inc.State,
			AmbulanceID: inc.AssignedAmbulance, HospitalID: inc.AssignedHospital,
			ResponseSeconds: inc.ResponseSeconds, Time: inc.ClosedAt,
		}); err != nil {
			c.log.Errorf("completion metrics error: %v", err)
		}
	}
	if err := c.store.Append(ctx, archive.FromIncident(inc)); err != nil {
		c.log.Errorf("archive incident %d: %v", inc.ID, err)
	}

	c.mu.Lock()
	c.closed = append(c.closed, inc.ID)
	if n := len(c.closed) - c.cfg.RetainClosed; n > 0 {
		for _, old := range c.closed[:n] {
			delete(c.records, old)
		}
		c.closed = append([]uint64(nil), c.closed[n:]...)
	}
	c.mu.Unlock()
}

// retryStalled reopens bidding for stalled incidents, oldest first. With no
// kinds every stalled phase is retried.
func (c *Coordinator) retryStalled(ctx context.Context, kinds ...model.ProviderKind) {
	for _, rec := range c.snapshotRecords() {
		var fx effects
		rec.mu.Lock()
		kind, stalled := rec.stalledIn()
		if stalled && matchKind(kind, kinds) {
			c.log.Infof("incident %d: retrying %s bidding", rec.inc.ID, kind)
			c.openPhase(ctx, rec, kind, &fx)
		}
		rec.mu.Unlock()
		fx.run()
	}
}

func matchKind(k model.ProviderKind, kinds []model.ProviderKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, want := range kinds {
		if want == k {
			return true
		}
	}
	return false
}

// transition moves the incident to the next state. Caller holds rec.mu.
func (c *Coordinator) transition(rec *record, to model.State) error {
	if !rec.inc.State.CanTransition(to) {
		return fmt.Errorf("%w: incident %d %s -> %s", ErrInvariantViolation, rec.inc.ID, rec.inc.State, to)
	}
	rec.inc.State = to
	return nil
}

// violate aborts an incident. The record stays queryable but refuses every
// further operation. Caller holds rec.mu.
func (c *Coordinator) violate(rec *record, err error) effects {
	rec.faulted = err
	for _, ph := range rec.phases {
		ph.stopTimer()
	}
	id := rec.inc.ID
	return effects{func() {
		invariantFailures.Inc()
		c.log.Errorf("incident %d aborted: %v", id, err)
		monitoring.CaptureIncident(c.mon, err, "coordinator", id)
		if c.onViolation != nil {
			c.onViolation(id, err)
		}
		c.gw.Emit(c.ctx, events.InvariantViolated{IncidentID: id, Err: err})
	}}
}
