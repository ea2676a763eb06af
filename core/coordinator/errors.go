package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidProposal is returned for out of range scores, wrong phases,
	// duplicates and proposals from providers that were not invited.
	ErrInvalidProposal = errors.New("invalid proposal")
	// ErrIncidentNotBidding is returned for late proposals.
	ErrIncidentNotBidding = errors.New("incident not bidding")
	// ErrNoProvidersAvailable means a phase stalled waiting for providers.
	ErrNoProvidersAvailable = errors.New("no providers available")
	// ErrNoProposals is returned when resolving a phase that has no proposals.
	ErrNoProposals = errors.New("no proposals to resolve")
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrUnknownIncident is returned for ids the coordinator does not track.
	ErrUnknownIncident = errors.New("unknown incident")
	// ErrInvalidInput is returned for malformed submissions and completions.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvariantViolation marks an incident aborted by an internal inconsistency.
	ErrInvariantViolation = errors.New("invariant violation")

	ErrDoubleAssignment = fmt.Errorf("%w: double assignment", ErrInvariantViolation)
	ErrReleaseMismatch  = fmt.Errorf("%w: release of a provider not held", ErrInvariantViolation)
)
