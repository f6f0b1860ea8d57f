// Package models defines the domain types for Seedbank.
package models

// Seed is a pattern document loaded from the seed library.
type Seed struct {
	ID       string            `json:"id"`
	Path     string            `json:"path"`
	Content  []byte            `json:"-"`
	Body     string            `json:"body"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Checksum string            `json:"checksum"`
}

// Name returns the header "name" field, falling back to the identifier.
func (s *Seed) Name() string {
	if n := s.Metadata["name"]; n != "" {
		return n
	}
	return s.ID
}

// SeedMeta is a lightweight library entry returned by list operations.
type SeedMeta struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
}

// Suggestion is one ranked result of a keyword query.
type Suggestion struct {
	Rank    int    `json:"rank"`
	SeedID  string `json:"seed_id"`
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Preview string `json:"preview,omitempty"`
	File    string `json:"file,omitempty"`
}

// Number returns the two-character ordinal prefix of the seed identifier.
func (s Suggestion) Number() string {
	if len(s.SeedID) < 2 {
		return s.SeedID
	}
	return s.SeedID[:2]
}
