package model

import (
	"fmt"
	"strings"
)

// ProviderKind distinguishes ambulances from hospitals.
type ProviderKind string

const (
	Ambulance ProviderKind = "ambulance"
	Hospital  ProviderKind = "hospital"
)

// ParseProviderKind validates a provider kind name.
func ParseProviderKind(s string) (ProviderKind, error) {
	switch ProviderKind(strings.ToLower(s)) {
	case Ambulance:
		return Ambulance, nil
	case Hospital:
		return Hospital, nil
	}
	return "", fmt.Errorf("unknown provider kind %q", s)
}

// Specialist is a doctor attached to a hospital.
type Specialist struct {
	Specialty string `json:"specialty" yaml:"specialty"`
	Skill     int    `json:"skill" yaml:"skill"`
	Available bool   `json:"available" yaml:"available"`
}

// ProviderState is the mutable status of an ambulance or hospital.
//
// Ambulances use Available. Hospitals use Load, Capacity and Specialists.
type ProviderState struct {
	ID           string       `json:"id"`
	Kind         ProviderKind `json:"kind"`
	Tier         string       `json:"tier,omitempty"`
	Location     Location     `json:"location"`
	Capabilities map[Kind]int `json:"capabilities"`
	Available    bool         `json:"available"`
	Load         int          `json:"load"`
	Capacity     int          `json:"capacity"`
	Specialists  []Specialist `json:"specialists,omitempty"`
}

// CanServe reports whether the provider can take one more incident.
func (p ProviderState) CanServe() bool {
	if p.Kind == Hospital {
		return p.Load < p.Capacity
	}
	return p.Available
}

// Capability returns the base score for an incident kind, 50 when unspecified.
func (p ProviderState) Capability(k Kind) int {
	if v, ok := p.Capabilities[k]; ok {
		return v
	}
	return 50
}

// Clone returns a deep copy of the state.
func (p ProviderState) Clone() ProviderState {
	out := p
	if p.Capabilities != nil {
		out.Capabilities = make(map[Kind]int, len(p.Capabilities))
		for k, v := range p.Capabilities {
			out.Capabilities[k] = v
		}
	}
	if p.Specialists != nil {
		out.Specialists = append([]Specialist(nil), p.Specialists...)
	}
	return out
}
