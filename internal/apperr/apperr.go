// Package apperr defines the error taxonomy shared by repositories and
// controllers. Handlers classify with errors.Is and map each class to a
// status code in one place.
package apperr

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a referenced book, entry, session, or path is absent.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a malformed or empty request payload.
var ErrValidation = errors.New("validation failed")

// ErrConflict indicates a uniqueness violation, such as adding a book that
// is already in the library or a duplicate path membership.
var ErrConflict = errors.New("conflict")

// ErrUpstreamUnavailable indicates the metadata lookup failed at the network
// level. Callers recover it locally as "no match found".
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// NotFound wraps ErrNotFound naming the missing resource.
func NotFound(resource string) error {
	return fmt.Errorf("%s: %w", resource, ErrNotFound)
}

// Validation wraps ErrValidation with a caller-facing message.
func Validation(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrValidation)
}

// Conflict wraps ErrConflict with a caller-facing message.
func Conflict(msg string) error {
	return fmt.Errorf("%s: %w", msg, ErrConflict)
}
