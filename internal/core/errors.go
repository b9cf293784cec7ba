package core

import "errors"

// Sentinel error kinds. Services wrap these with fmt.Errorf("...: %w", ...)
// so the web boundary can map them to HTTP statuses with errors.Is.
var (
	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrConflict marks a business-rule violation: insufficient funds,
	// duplicate external reference, illegal state transition.
	ErrConflict = errors.New("conflict")

	// ErrForbidden marks a role or ownership mismatch.
	ErrForbidden = errors.New("forbidden")
)
