package model

import (
	"fmt"
	"strings"
)

// State is the lifecycle position of an incident.
type State int

const (
	StateCreated State = iota
	StateAmbulanceBidding
	StateAmbulanceAssigned
	StateHospitalBidding
	StateHospitalAssigned
	StateEnRoute
	StateCompleted
	StateCancelled
)

var stateNames = map[State]string{
	StateCreated:           "CREATED",
	StateAmbulanceBidding:  "AMBULANCE_BIDDING",
	StateAmbulanceAssigned: "AMBULANCE_ASSIGNED",
	StateHospitalBidding:   "HOSPITAL_BIDDING",
	StateHospitalAssigned:  "HOSPITAL_ASSIGNED",
	StateEnRoute:           "EN_ROUTE",
	StateCompleted:         "COMPLETED",
	StateCancelled:         "CANCELLED",
}

var transitions = map[State][]State{
	StateCreated:           {StateAmbulanceBidding, StateCancelled},
	StateAmbulanceBidding:  {StateAmbulanceAssigned, StateCancelled},
	StateAmbulanceAssigned: {StateHospitalBidding, StateCancelled},
	StateHospitalBidding:   {StateHospitalAssigned, StateCancelled},
	StateHospitalAssigned:  {StateEnRoute, StateCompleted},
	StateEnRoute:           {StateCompleted},
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// ParseState converts a state name (case-insensitive) into a State.
func ParseState(v string) (State, error) {
	for s, n := range stateNames {
		if strings.EqualFold(v, n) {
			return s, nil
		}
	}
	return StateCreated, fmt.Errorf("unknown state %q", v)
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// CanTransition reports whether moving from s to next is allowed.
func (s State) CanTransition(next State) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal is true for COMPLETED and CANCELLED.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// Cancellable is true while no hospital has been assigned.
func (s State) Cancellable() bool {
	return s.CanTransition(StateCancelled)
}

// Bidding returns the provider kind being auctioned in this state.
func (s State) Bidding() (ProviderKind, bool) {
	switch s {
	case StateAmbulanceBidding:
		return Ambulance, true
	case StateHospitalBidding:
		return Hospital, true
	default:
		return "", false
	}
}
