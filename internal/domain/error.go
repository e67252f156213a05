package domain

import (
	"errors"
)

var (
	// ErrMissingRate is returned when neither an arrival rate nor an inter-arrival time was supplied.
	ErrMissingRate = errors.New("must specify at least one rate or at least one inter-arrival time")

	// ErrNoEvents is returned when the Poisson draw for a session yields zero training events.
	// The rate or time duration should be adjusted (or the zero-event policy set to "retry").
	ErrNoEvents = errors.New("poisson process produced no events")

	// ErrInconsistentTimeline indicates that an inter-arrival time reconstructed from the event timeline
	// disagrees with the inter-arrival time that was originally drawn. This is a bug, not a runtime condition.
	ErrInconsistentTimeline = errors.New("reconstructed inter-arrival time does not match simulated inter-arrival time")

	// ErrMalformedDistributionTable is returned for an empirical CDF table that cannot be inverted.
	ErrMalformedDistributionTable = errors.New("malformed empirical distribution table")

	// ErrMalformedSimulation is returned when the output of a Poisson simulation is unusable
	// (NaN values, negative durations, or mismatched lengths).
	ErrMalformedSimulation = errors.New("malformed poisson simulation output")

	ErrInvalidDistribution  = errors.New("invalid distribution parameters")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrDuplicateSession     = errors.New("duplicate session id")

	// ErrInvalidTemplate is returned when a serialized workload violates one of the tick invariants.
	ErrInvalidTemplate = errors.New("invalid workload template")
)
