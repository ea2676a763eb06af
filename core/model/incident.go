package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the medical category of an incident.
type Kind int

const (
	KindGeneral Kind = iota
	KindTrauma
	KindCardiac
	KindRespiratory
	KindNeurological
)

// Kinds lists every incident kind in a stable order.
var Kinds = []Kind{KindTrauma, KindCardiac, KindRespiratory, KindNeurological, KindGeneral}

// String returns the lower-case name used on the wire and in configuration.
func (k Kind) String() string {
	switch k {
	case KindTrauma:
		return "trauma"
	case KindCardiac:
		return "cardiac"
	case KindRespiratory:
		return "respiratory"
	case KindNeurological:
		return "neurological"
	case KindGeneral:
		return "general"
	default:
		return "unknown"
	}
}

// ParseKind converts a name into a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return KindGeneral, fmt.Errorf("unknown incident kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	v, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Severity grades how urgent an incident is.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Severities lists every severity from least to most urgent.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity converts a name into a Severity.
func ParseSeverity(s string) (Severity, error) {
	for _, v := range Severities {
		if strings.EqualFold(s, v.String()) {
			return v, nil
		}
	}
	return SeverityLow, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Location is an opaque token naming a place in the city.
type Location string

// Incident is a single emergency moving through the allocation lifecycle.
type Incident struct {
	ID                 uint64     `json:"id"`
	Kind               Kind       `json:"kind"`
	Severity           Severity   `json:"severity"`
	Location           Location   `json:"location"`
	State              State      `json:"state"`
	AmbulanceProposals []Proposal `json:"ambulance_proposals"`
	HospitalProposals  []Proposal `json:"hospital_proposals"`
	AssignedAmbulance  string     `json:"assigned_ambulance,omitempty"`
	AssignedHospital   string     `json:"assigned_hospital,omitempty"`

	SubmittedAt     time.Time `json:"submitted_at"`
	AssignedAt      time.Time `json:"assigned_at,omitempty"`
	ClosedAt        time.Time `json:"closed_at,omitempty"`
	ResponseSeconds float64   `json:"response_seconds,omitempty"`
}

// Proposals returns the proposals recorded for the given phase.
func (i Incident) Proposals(kind ProviderKind) []Proposal {
	if kind == Hospital {
		return i.HospitalProposals
	}
	return i.AmbulanceProposals
}

// Assigned returns the provider assigned for the given phase, if any.
func (i Incident) Assigned(kind ProviderKind) string {
	if kind == Hospital {
		return i.AssignedHospital
	}
	return i.AssignedAmbulance
}

// Clone returns a deep copy safe to hand out to callers.
func (i Incident) Clone() Incident {
	out := i
	out.AmbulanceProposals = cloneProposals(i.AmbulanceProposals)
	out.HospitalProposals = cloneProposals(i.HospitalProposals)
	return out
}

func cloneProposals(in []Proposal) []Proposal {
	if in == nil {
		return nil
	}
	out := make([]Proposal, len(in))
	for idx, p := range in {
		out[idx] = p.Clone()
	}
	return out
}

// Proposal is a provider's scored bid for one phase of an incident.
type Proposal struct {
	IncidentID   uint64            `json:"incident_id"`
	ProviderKind ProviderKind      `json:"provider_kind"`
	ProviderID   string            `json:"provider_id"`
	Score        int               `json:"score"`
	Seq          uint64            `json:"seq"`
	ReceivedAt   time.Time         `json:"received_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Clone copies the proposal including its metadata.
func (p Proposal) Clone() Proposal {
	if p.Metadata != nil {
		md := make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			md[k] = v
		}
		p.Metadata = md
	}
	return p
}

// Better reports whether p outranks q: higher score first, earlier arrival on ties.
func (p Proposal) Better(q Proposal) bool {
	if p.Score != q.Score {
		return p.Score > q.Score
	}
	return p.Seq < q.Seq
}
