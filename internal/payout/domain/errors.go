package domain

import "errors"

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidState      = errors.New("invalid_state")
	ErrNothingEligible   = errors.New("nothing_eligible")
	ErrAllocationClaimed = errors.New("allocation_claimed")
	ErrRetriesExhausted  = errors.New("retries_exhausted")
)
