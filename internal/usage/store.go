// Package usage persists the record of seed applications across invocations.
package usage

import (
	"context"
	"fmt"

	"github.com/starford/seedbank/internal/models"
)

// Backends accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Store loads and persists a UsageState.
//
// Load on a store with no backing data returns an empty state, not an error.
// A backing that exists but cannot be read or parsed fails with
// *apperr.StoreError. Save replaces the whole state. Update runs fn inside
// an exclusive read-modify-write section, so concurrent updaters cannot
// lose each other's changes; fn's error aborts without persisting.
type Store interface {
	Load(ctx context.Context) (*models.UsageState, error)
	Save(ctx context.Context, state *models.UsageState) error
	Update(ctx context.Context, fn func(*models.UsageState) error) error
	Close() error
}

// Open returns the Store for backend at path.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONStore(path), nil
	case BackendSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("usage: unknown backend %q", backend)
	}
}
