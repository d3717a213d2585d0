package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the target document doesn't exist.
	ErrNotFound = errors.New("persistence: document not found")

	// ErrVersionConflict is returned when the optimistic version check fails.
	ErrVersionConflict = errors.New("persistence: document was modified concurrently")

	// ErrValidationFailed is matched by *ValidationError when the validator rejects a record.
	ErrValidationFailed = errors.New("persistence: validation failed")

	// ErrInstanceDestroyed is returned for any mutation of a destroyed record.
	ErrInstanceDestroyed = errors.New("persistence: record is destroyed")

	// ErrNotPersisted is returned when an operation needs a saved record.
	ErrNotPersisted = errors.New("persistence: record is not persisted")

	// ErrIDImmutable is returned when changing the id of a persisted record.
	ErrIDImmutable = errors.New("persistence: id of a persisted record cannot change")

	// ErrTimeout is returned when a store call exceeds its deadline.
	ErrTimeout = errors.New("persistence: store call timed out")

	// ErrTransport wraps any other failure reported by the Client.
	ErrTransport = errors.New("persistence: store transport error")
)

// Violation is one failed validation rule.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	if v.Field == "" {
		return v.Message
	}
	return v.Field + " " + v.Message
}

// ValidationError carries the violations that aborted a save.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrValidationFailed) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// classify maps a Client error onto the package taxonomy.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrVersionConflict):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
}
