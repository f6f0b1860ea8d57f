// Package storage defines the seed library abstraction and its file-system backing.
package storage

import "github.com/starford/seedbank/internal/models"

// Provider is the read-only view of the seed library.
type Provider interface {
	// List returns every seed document in the library, sorted by identifier.
	List() ([]models.SeedMeta, error)
	// Load reads and parses one seed. Unknown identifiers fail with
	// *apperr.SeedNotFoundError.
	Load(id string) (*models.Seed, error)
}
