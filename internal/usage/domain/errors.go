package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrInvalidPeriod    = errors.New("invalid_period")
	ErrInvalidUser      = errors.New("invalid_user")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrDuplicateEvent   = errors.New("duplicate_event")
	ErrLockUnavailable  = errors.New("usage_lock_unavailable")
)

// ValidationError reports which field of a usage event was rejected.
// It unwraps to ErrInvalidEvent.
type ValidationError struct {
	Field string
	Code  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidEvent, e.Field, e.Code)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidEvent }

func invalid(field, code string) error {
	return &ValidationError{Field: field, Code: code}
}

// Validation codes.
const (
	CodeRequired    = "required"
	CodeNegative    = "negative"
	CodeNotFinite   = "not_finite"
	CodeUnsupported = "unsupported"
	CodeOutOfRange  = "out_of_range"
)
