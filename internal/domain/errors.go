package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed input rejected before any store or
	// embedder call.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a uniqueness violation, e.g. two concurrent inserts
	// of the same fingerprint. The engine recovers from it by re-resolving.
	ErrConflict = errors.New("conflict")

	// ErrNotFound marks a missing document.
	ErrNotFound = errors.New("not found")

	// ErrDependency marks an embedder or store failure. Callers may retry.
	ErrDependency = errors.New("dependency unavailable")
)

// Invalid returns an ErrValidation carrying a formatted reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Dependency wraps err as an ErrDependency for operation op. A nil err
// yields nil. Errors already classified are returned unchanged.
func Dependency(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrDependency, ErrValidation, ErrConflict, ErrNotFound} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrDependency, op, err)
}
