package domain

import "errors"

var (
	ErrNotFound          = errors.New("not_found")
	ErrInvalidRate       = errors.New("invalid_rate")
	ErrInvalidScope      = errors.New("invalid_scope")
	ErrInvalidRange      = errors.New("invalid_range")
	ErrOverlappingWindow = errors.New("overlapping_window")
)
