// Package apperr defines the error taxonomy shared by all Seedbank layers.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSeedNotFound     = errors.New("seed not found")
	ErrStoreUnavailable = errors.New("usage store unavailable")
	ErrInvalidVerdict   = errors.New("invalid verdict")
)

// SeedNotFoundError reports a lookup of an identifier absent from the library.
// Available lists every identifier currently in the library.
type SeedNotFoundError struct {
	ID        string
	Location  string
	Available []string
}

func (e *SeedNotFoundError) Error() string {
	return fmt.Sprintf("seed not found: %s (expected at %s; available: %s)",
		e.ID, e.Location, strings.Join(e.Available, ", "))
}

// Is reports whether target is ErrSeedNotFound.
func (e *SeedNotFoundError) Is(target error) bool {
	return target == ErrSeedNotFound
}

// StoreError reports a usage store that exists but cannot be read or parsed.
type StoreError struct {
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("usage store %s unavailable: %v", e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}
