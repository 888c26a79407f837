// Package domain defines the error kinds shared across the booking and
// qualification services.
package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced to callers.
var (
	// ErrNotFound means an unknown kitchen, reservation or record.
	ErrNotFound = errors.New("not found")

	// ErrCapacityExceeded means the slot is full or the request lost a
	// write race. Callers may retry against a refreshed slot list.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// ValidationError reports a malformed request: inverted window, slot
// misalignment, interval outside the operating hours. Not retryable.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// Validationf builds a ValidationError.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// NotQualifiedError means the requester has not cleared the booking
// gate. Missing lists every unmet requirement when available.
type NotQualifiedError struct {
	Missing []string
}

func (e *NotQualifiedError) Error() string {
	if len(e.Missing) == 0 {
		return "not qualified to book"
	}
	return fmt.Sprintf("not qualified to book: %d missing requirements", len(e.Missing))
}

// ConfigurationError reports an operator data-quality issue, such as an
// open override with missing hours. Logged, and the day is treated as
// closed rather than guessed.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Detail
}
