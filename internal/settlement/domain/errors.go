package domain

import "errors"

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidState   = errors.New("invalid_state")
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrNoCommission   = errors.New("no_commission_rule")
	ErrNothingToRoll  = errors.New("nothing_to_roll_up")
	ErrDuplicateOrder = errors.New("duplicate_settlement_version")
)
