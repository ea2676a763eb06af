package metrics

import (
	"time"

	"github.com/kilianp07/emsdispatch/core/model"
)

// AllocationEvent describes a provider assigned to one phase of an incident.
type AllocationEvent struct {
	IncidentID uint64
	Phase      model.ProviderKind
	ProviderID string
	Score      int
	Candidates int
	Kind       model.Kind
	Severity   model.Severity
	Latency    time.Duration
	Time       time.Time
}

// MetricsSink records allocation outcomes for observability purposes.
type MetricsSink interface {
	RecordAllocation(ev AllocationEvent) error
}

// ProposalEvent captures a proposal accepted or rejected by the coordinator.
type ProposalEvent struct {
	IncidentID uint64
	Phase      model.ProviderKind
	ProviderID string
	Score      int
	// Result is "recorded" or the rejection reason.
	Result string
	Time   time.Time
}

// ProposalRecorder records proposal outcomes.
type ProposalRecorder interface {
	RecordProposal(ev ProposalEvent) error
}

// CompletionEvent is recorded once an incident closes.
type CompletionEvent struct {
	IncidentID      uint64
	Kind            model.Kind
	Severity        model.Severity
	State           model.State
	AmbulanceID     string
	HospitalID      string
	ResponseSeconds float64
	Time            time.Time
}

// CompletionRecorder records closed incidents.
type CompletionRecorder interface {
	RecordCompletion(ev CompletionEvent) error
}

// StallEvent is recorded when a phase cannot find a provider.
type StallEvent struct {
	IncidentID uint64
	Phase      model.ProviderKind
	Reason     string
	Time       time.Time
}

// StallRecorder records stalled phases.
type StallRecorder interface {
	RecordStall(ev StallEvent) error
}

// GatewayEvent is recorded for every traffic or hospital hand-off action.
type GatewayEvent struct {
	// Action is the event name, e.g. "route_priority_requested".
	Action     string
	Location   model.Location
	IncidentID uint64
	Time       time.Time
}

// GatewayRecorder records gateway actions observed on the event bus.
type GatewayRecorder interface {
	RecordGatewayAction(ev GatewayEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordAllocation(AllocationEvent) error { return nil }
func (NopSink) RecordProposal(ProposalEvent) error     { return nil }
func (NopSink) RecordCompletion(CompletionEvent) error { return nil }
func (NopSink) RecordStall(StallEvent) error           { return nil }
func (NopSink) RecordGatewayAction(GatewayEvent) error { return nil }
