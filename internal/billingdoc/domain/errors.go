package domain

import "errors"

var (
	ErrNotFound        = errors.New("not_found")
	ErrInvalidState    = errors.New("invalid_state")
	ErrAlreadyInvoiced = errors.New("already_invoiced")
	ErrInvalidKind     = errors.New("invalid_kind")
	ErrNoLines         = errors.New("no_lines")
	ErrInvalidAmount   = errors.New("invalid_amount")
)
