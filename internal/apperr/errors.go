// Package apperr defines the error kinds shared across the service.
// Handlers map these to HTTP statuses with errors.Is; everything else
// just wraps and propagates.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrBadRequest  = errors.New("bad request")
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("forbidden")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("service unavailable")
)

// Unavailable wraps a repository failure so callers can retry by policy.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
