// Package archive keeps an append-only audit trail of closed incidents.
// It is never read back to rebuild coordinator state.
package archive

import (
	"context"
	"time"

	"github.com/kilianp07/emsdispatch/core/model"
)

// Record captures one closed incident.
type Record struct {
	IncidentID         uint64           `json:"incident_id"`
	Kind               model.Kind       `json:"kind"`
	Severity           model.Severity   `json:"severity"`
	Location           model.Location   `json:"location"`
	State              model.State      `json:"state"`
	Ambulance          string           `json:"ambulance,omitempty"`
	Hospital           string           `json:"hospital,omitempty"`
	AmbulanceProposals []model.Proposal `json:"ambulance_proposals,omitempty"`
	HospitalProposals  []model.Proposal `json:"hospital_proposals,omitempty"`
	SubmittedAt        time.Time        `json:"submitted_at"`
	ClosedAt           time.Time        `json:"closed_at"`
	ResponseSeconds    float64          `json:"response_seconds,omitempty"`
}

// FromIncident converts a closed incident into a record.
func FromIncident(inc model.Incident) Record {
	c := inc.Clone()
	return Record{
		IncidentID:         c.ID,
		Kind:               c.Kind,
		Severity:           c.Severity,
		Location:           c.Location,
		State:              c.State,
		Ambulance:          c.AssignedAmbulance,
		Hospital:           c.AssignedHospital,
		AmbulanceProposals: c.AmbulanceProposals,
		HospitalProposals:  c.HospitalProposals,
		SubmittedAt:        c.SubmittedAt,
		ClosedAt:           c.ClosedAt,
		ResponseSeconds:    c.ResponseSeconds,
	}
}

// Involves reports whether the provider was assigned or bid on the incident.
func (r Record) Involves(providerID string) bool {
	if r.Ambulance == providerID || r.Hospital == providerID {
		return true
	}
	for _, p := range r.AmbulanceProposals {
		if p.ProviderID == providerID {
			return true
		}
	}
	for _, p := range r.HospitalProposals {
		if p.ProviderID == providerID {
			return true
		}
	}
	return false
}

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	Start      time.Time
	End        time.Time
	ProviderID string
	Kind       *model.Kind
	State      *model.State
	Limit      int
}

// Match reports whether r satisfies every filter of q except Limit.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.ClosedAt.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.ClosedAt.After(q.End) {
		return false
	}
	if q.Kind != nil && r.Kind != *q.Kind {
		return false
	}
	if q.State != nil && r.State != *q.State {
		return false
	}
	if q.ProviderID != "" && !r.Involves(q.ProviderID) {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore drops every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

func limit(res []Record, n int) []Record {
	if n > 0 && len(res) > n {
		return res[len(res)-n:]
	}
	return res
}
