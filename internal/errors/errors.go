// Package errors provides consolidated error definitions for seriesstore.
//
// It defines sentinel errors for every error condition in the storage,
// merge, and view layers, category checking functions, and wrapping
// utilities used throughout the project.
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors for common conditions
// ============================================================================

var (
	// Not found errors
	ErrNotFound      = errors.New("not found")
	ErrTypeNotFound  = errors.New("data type not found")
	ErrFieldNotFound = errors.New("field not found")

	// Validation errors
	ErrShapeMismatch        = errors.New("field length does not match timeline length")
	ErrNonMonotonicTimeline = errors.New("timeline is not strictly increasing")
	ErrFieldConflict        = errors.New("field kind or shape conflicts between batches")
	ErrInvalidKey           = errors.New("invalid key")
	ErrInvalidConfig        = errors.New("invalid configuration")

	// Type errors
	ErrNotNumeric = errors.New("field is not numeric")

	// Service errors
	ErrQueueFull  = errors.New("ingest queue full")
	ErrNotRunning = errors.New("service not running")
	ErrRunning    = errors.New("service already running")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTypeNotFound) ||
		errors.Is(err, ErrFieldNotFound)
}

// IsValidation returns true if err is a batch validation error.
// Validation errors are rejected at the stash/merge boundary before
// any mutation; the stored Container is unchanged and the caller may
// retry with a corrected batch.
func IsValidation(err error) bool {
	return errors.Is(err, ErrShapeMismatch) ||
		errors.Is(err, ErrNonMonotonicTimeline) ||
		errors.Is(err, ErrFieldConflict) ||
		errors.Is(err, ErrInvalidKey) ||
		errors.Is(err, ErrInvalidConfig)
}

// IsRetriable returns true if the error is potentially retriable.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrQueueFull)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewNotFound creates a not-found error with context.
func NewNotFound(entityType, identifier string) error {
	return fmt.Errorf("%s '%s': %w", entityType, identifier, ErrNotFound)
}

// NewShapeMismatch creates a shape mismatch error carrying the
// offending field and the conflicting lengths.
func NewShapeMismatch(field string, fieldLen, timelineLen int) error {
	return fmt.Errorf("field '%s' has %d rows, timeline has %d: %w",
		field, fieldLen, timelineLen, ErrShapeMismatch)
}

// NewNonMonotonic creates a non-monotonic timeline error carrying the
// position and the out-of-order timestamps.
func NewNonMonotonic(index int, prev, next int64) error {
	return fmt.Errorf("timeline[%d]=%d does not follow timeline[%d]=%d: %w",
		index, next, index-1, prev, ErrNonMonotonicTimeline)
}

// NewFieldConflict creates a field conflict error for a field whose
// kind or per-sample shape differs between the existing and incoming
// batches.
func NewFieldConflict(field, reason string) error {
	return fmt.Errorf("field '%s': %s: %w", field, reason, ErrFieldConflict)
}
