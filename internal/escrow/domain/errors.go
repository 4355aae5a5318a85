package domain

import "errors"

var (
	ErrNotFound                = errors.New("not_found")
	ErrAmountMismatch          = errors.New("amount_mismatch")
	ErrInvalidState            = errors.New("invalid_state")
	ErrInvalidAmount           = errors.New("invalid_amount")
	ErrCurrencyMismatch        = errors.New("currency_mismatch")
	ErrRefundExceedsAllocation = errors.New("refund_exceeds_allocation")
	ErrNoAllocations           = errors.New("no_allocations")
)
