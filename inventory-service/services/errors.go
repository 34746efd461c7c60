package services

import "errors"

// Engine error taxonomy. Every error returned by the services wraps exactly
// one of these sentinels; handlers map them to HTTP statuses. Allocation
// errors are surfaced unmodified — the engine never retries a conflicting
// allocation, re-selection is the caller's decision.
var (
	ErrValidation         = errors.New("validation failed")
	ErrStateConflict      = errors.New("state conflict")
	ErrAllocationConflict = errors.New("allocation conflict")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyConfirmed   = errors.New("already confirmed")
	ErrForbidden          = errors.New("principal not permitted")
)
