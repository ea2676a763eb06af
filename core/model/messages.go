package model

import "time"

// CallForProposal asks a provider to bid for an incident phase.
type CallForProposal struct {
	IncidentID   uint64       `json:"incident_id"`
	ProviderKind ProviderKind `json:"provider_kind"`
	Kind         Kind         `json:"kind"`
	Severity     Severity     `json:"severity"`
	Location     Location     `json:"location"`
	IssuedAt     time.Time    `json:"issued_at"`
}

// Refusal is sent by a provider that cannot serve a call for proposal.
type Refusal struct {
	IncidentID   uint64       `json:"incident_id"`
	ProviderKind ProviderKind `json:"provider_kind"`
	ProviderID   string       `json:"provider_id"`
	Reason       string       `json:"reason,omitempty"`
}

// Accept tells the winning provider it has been assigned.
type Accept struct {
	IncidentID   uint64       `json:"incident_id"`
	ProviderKind ProviderKind `json:"provider_kind"`
	ProviderID   string       `json:"provider_id"`
	Location     Location     `json:"location"`
}

// Reject tells a losing provider its proposal was not selected.
type Reject struct {
	IncidentID   uint64       `json:"incident_id"`
	ProviderKind ProviderKind `json:"provider_kind"`
	ProviderID   string       `json:"provider_id"`
}

// Destination hands the chosen hospital to the assigned ambulance.
type Destination struct {
	IncidentID  uint64   `json:"incident_id"`
	AmbulanceID string   `json:"ambulance_id"`
	HospitalID  string   `json:"hospital_id"`
	Location    Location `json:"location"`
}

// Cancel withdraws an assignment from a provider.
type Cancel struct {
	IncidentID   uint64       `json:"incident_id"`
	ProviderKind ProviderKind `json:"provider_kind"`
	ProviderID   string       `json:"provider_id"`
}

// Completion is reported by the ambulance once the patient is delivered.
type Completion struct {
	IncidentID      uint64  `json:"incident_id"`
	AmbulanceID     string  `json:"ambulance_id"`
	ResponseSeconds float64 `json:"response_seconds"`
}

// RoutePriorityRequest asks traffic control to favour a route.
type RoutePriorityRequest struct {
	IncidentID uint64        `json:"incident_id,omitempty"`
	Location   Location      `json:"location"`
	Duration   time.Duration `json:"duration"`
}

// DestinationNotice informs the outside world of the ambulance to hospital pairing.
type DestinationNotice struct {
	IncidentID  uint64 `json:"incident_id"`
	AmbulanceID string `json:"ambulance_id"`
	HospitalID  string `json:"hospital_id"`
}
