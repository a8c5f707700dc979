package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")

	// ErrUnavailable marks an optional dependency that is not configured.
	ErrUnavailable = errors.New("unavailable")
)

// ErrInvalidProduct returns an error matching [ErrInvalid].
func ErrInvalidProduct(reason string) error {
	return fmt.Errorf("%w product: %s", ErrInvalid, reason)
}
