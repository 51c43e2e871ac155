package paper

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the referenced position is not open.
	ErrNotFound = errors.New("paper: position not found")
	// ErrInsufficientBalance rejects an open whose notional exceeds available balance.
	ErrInsufficientBalance = errors.New("paper: insufficient balance")
	// ErrPositionSizeExceeded rejects an open larger than the allowed balance fraction.
	ErrPositionSizeExceeded = errors.New("paper: position size exceeds limit")
)

// ValidationError reports caller misuse (bad amount, bad price). It is never
// retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("paper: invalid %s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
