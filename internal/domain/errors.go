package domain

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repo and service functions when the requested
// record does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. empty customer name, non-positive quantity).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrNotAuthenticated is returned when an operation needs an acting identity
// and the request carries none. Page handlers redirect to /login; API
// handlers answer 401.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrForbidden is returned when the acting identity lacks the admin role.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a unique key (e.g. username) is already taken.
var ErrConflict = errors.New("conflict")

// ErrStorage marks failures of the underlying store. These are propagated
// as-is and never retried; handlers map them to a generic HTTP 500.
var ErrStorage = errors.New("storage error")

// StorageError tags err with ErrStorage unless it already carries one of the
// domain sentinels, so callers can tell "row missing" apart from "db down".
func StorageError(err error) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{ErrNotFound, ErrConflict, ErrValidation, ErrStorage} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
