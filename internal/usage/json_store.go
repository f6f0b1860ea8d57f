package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/starford/seedbank/internal/apperr"
	"github.com/starford/seedbank/internal/models"
	"github.com/starford/seedbank/internal/storage"
)

// JSONStore keeps the state in a single JSON document. Writes go through a
// temporary file and an atomic rename; Update additionally holds an
// exclusive lock on "<path>.lock" for the whole load-modify-save sequence.
type JSONStore struct {
	path string
}

var _ Store = (*JSONStore)(nil)

// NewJSONStore creates a store backed by the file at path. The file is not
// touched until the first Load or Save.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the backing file path.
func (s *JSONStore) Path() string { return s.path }

// Load reads the state. A missing file yields an empty state.
func (s *JSONStore) Load(_ context.Context) (*models.UsageState, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.NewUsageState(), nil
		}
		return nil, &apperr.StoreError{Path: s.path, Err: err}
	}

	var state models.UsageState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, &apperr.StoreError{Path: s.path, Err: fmt.Errorf("parse: %w", err)}
	}
	state.Normalize()
	return &state, nil
}

// Save overwrites the file with state.
func (s *JSONStore) Save(_ context.Context, state *models.UsageState) error {
	if state == nil {
		state = models.NewUsageState()
	}
	state.Normalize()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("usage: encode: %w", err)
	}
	if err := storage.WriteAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("usage: save %s: %w", s.path, err)
	}
	return nil
}

// Update runs fn on the current state under an exclusive file lock and saves
// the result.
func (s *JSONStore) Update(ctx context.Context, fn func(*models.UsageState) error) error {
	unlock, err := lockFile(ctx, s.path+".lock")
	if err != nil {
		return fmt.Errorf("usage: lock: %w", err)
	}
	defer unlock() //nolint:errcheck // release is best-effort

	state, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(state); err != nil {
		return err
	}
	return s.Save(ctx, state)
}

// Close is a no-op; JSONStore holds no open handles between calls.
func (s *JSONStore) Close() error { return nil }
