// Package events defines the allocation events emitted towards the dashboard
// and the event bus.
//
// Available event types:
//   - IncidentSubmitted, IncidentStalled, IncidentCompleted, IncidentCancelled
//   - ProposalRecorded, ProposalRejected, PhaseResolved
//   - RoutePriorityRequested, RoutePriorityCleared, TrafficHold, TrafficResume
//   - DestinationNotified, InvariantViolated
package events

import (
	"time"

	"github.com/kilianp07/emsdispatch/core/model"
)

// Event is anything published on the allocation event bus.
type Event interface {
	Name() string
}

// IncidentSubmitted is emitted when a new incident enters ambulance bidding.
type IncidentSubmitted struct {
	Incident model.Incident
	Invited  int
}

// ProposalRecorded is emitted for every accepted proposal.
type ProposalRecorded struct {
	Proposal model.Proposal
}

// ProposalRejected is emitted when a proposal is refused by the coordinator.
// Reason is one of "out_of_range", "duplicate", "not_bidding", "wrong_phase",
// "not_invited" or "lost".
type ProposalRejected struct {
	Proposal model.Proposal
	Reason   string
}

// PhaseResolved is emitted when a winner is assigned for a phase.
type PhaseResolved struct {
	IncidentID uint64
	Phase      model.ProviderKind
	Winner     model.Proposal
	Candidates int
	Latency    time.Duration
	Kind       model.Kind
	Severity   model.Severity
}

// IncidentStalled is emitted when a phase cannot find any provider.
type IncidentStalled struct {
	IncidentID uint64
	Phase      model.ProviderKind
	Reason     string
}

// IncidentCompleted is emitted when the patient has been delivered.
type IncidentCompleted struct {
	Incident model.Incident
}

// IncidentCancelled is emitted when an incident is withdrawn.
type IncidentCancelled struct {
	Incident model.Incident
}

// RoutePriorityRequested mirrors a gateway route priority request.
type RoutePriorityRequested struct {
	Location model.Location
	Duration time.Duration
}

// RoutePriorityCleared mirrors a gateway route priority release.
type RoutePriorityCleared struct {
	Location model.Location
}

// TrafficHold is broadcast so general traffic pulls over.
type TrafficHold struct {
	Location model.Location
}

// TrafficResume is broadcast when the route is clear.
type TrafficResume struct {
	Location model.Location
}

// DestinationNotified mirrors the ambulance to hospital hand-off.
type DestinationNotified struct {
	Notice model.DestinationNotice
}

// InvariantViolated reports an aborted incident.
type InvariantViolated struct {
	IncidentID uint64
	Err        error
}

func (IncidentSubmitted) Name() string      { return "incident_submitted" }
func (ProposalRecorded) Name() string       { return "proposal_recorded" }
func (ProposalRejected) Name() string       { return "proposal_rejected" }
func (PhaseResolved) Name() string          { return "phase_resolved" }
func (IncidentStalled) Name() string        { return "incident_stalled" }
func (IncidentCompleted) Name() string      { return "incident_completed" }
func (IncidentCancelled) Name() string      { return "incident_cancelled" }
func (RoutePriorityRequested) Name() string { return "route_priority_requested" }
func (RoutePriorityCleared) Name() string   { return "route_priority_cleared" }
func (TrafficHold) Name() string            { return "traffic_hold" }
func (TrafficResume) Name() string          { return "traffic_resume" }
func (DestinationNotified) Name() string    { return "destination_notified" }
func (InvariantViolated) Name() string      { return "invariant_violated" }
