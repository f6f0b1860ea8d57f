// Package seedservice applies seeds, records feedback, and reports usage.
package seedservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/seedbank/internal/apperr"
	"github.com/starford/seedbank/internal/models"
	"github.com/starford/seedbank/internal/storage"
	"github.com/starford/seedbank/internal/triggers"
	"github.com/starford/seedbank/internal/usage"
)

// Guide is the rendered application guide for one seed.
type Guide struct {
	SeedID string `json:"seed_id"`
	Name   string `json:"name"`
	Text   string `json:"text"`
}

// SeedListItem describes one seed known to the library or the Trigger Index.
type SeedListItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Triggers int    `json:"triggers"`
	// Indexed is false for documents with no Trigger Index entry; they never
	// appear in suggestions.
	Indexed bool `json:"indexed"`
	// InLibrary is false for index entries with no document.
	InLibrary bool `json:"in_library"`
}

// UsageStat is one row of the usage report.
type UsageStat struct {
	SeedID     string     `json:"seed_id"`
	UsageCount int        `json:"usage_count"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
	Sessions   int        `json:"sessions"`
	Helpful    int        `json:"helpful"`
	NotHelpful int        `json:"not_helpful"`
}

// Service coordinates the seed library, the Trigger Index, and the usage store.
type Service struct {
	library  storage.Provider
	index    *triggers.Index
	store    usage.Store
	logger   *slog.Logger
	now      func() time.Time
	trackCmd string
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for last_used.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithTrackCommand sets the command shown in the guide's feedback footer.
// The seed identifier is substituted for %s.
func WithTrackCommand(cmd string) Option {
	return func(s *Service) { s.trackCmd = cmd }
}

// NewService creates a new seed service.
func NewService(library storage.Provider, index *triggers.Index, store usage.Store, opts ...Option) *Service {
	s := &Service{
		library:  library,
		index:    index,
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
		trackCmd: "seedbank track %s <session_id> <helpful|not_helpful>",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply records one application of seedID (linked to sessionID when
// non-empty) and returns its guide. Unknown seeds fail with
// *apperr.SeedNotFoundError before the usage store is touched.
func (s *Service) Apply(ctx context.Context, seedID, sessionID string) (*Guide, error) {
	seed, err := s.library.Load(seedID)
	if err != nil {
		return nil, err
	}

	err = s.store.Update(ctx, func(state *models.UsageState) error {
		state.RecordApplication(seedID, sessionID, s.now())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record usage of %s: %w", seedID, err)
	}
	s.logger.Debug("seed applied", slog.String("seed", seedID), slog.String("session", sessionID))

	text, err := renderGuide(seed, fmt.Sprintf(s.trackCmd, seedID))
	if err != nil {
		return nil, err
	}
	return &Guide{SeedID: seedID, Name: seed.Name(), Text: text}, nil
}

// Track records the operator's verdict on seedID and links sessionID.
// It never changes usage_count.
func (s *Service) Track(ctx context.Context, seedID, sessionID string, verdict models.Verdict) (*models.SeedUsage, error) {
	if err := ValidateVerdict(verdict); err != nil {
		return nil, err
	}
	if _, err := s.library.Load(seedID); err != nil {
		return nil, err
	}

	var out models.SeedUsage
	err := s.store.Update(ctx, func(state *models.UsageState) error {
		u := state.Record(seedID)
		switch verdict {
		case models.VerdictHelpful:
			u.Helpful++
		case models.VerdictNotHelpful:
			u.NotHelpful++
		}
		state.LinkSession(seedID, sessionID)
		out = *u
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record feedback on %s: %w", seedID, err)
	}
	s.logger.Debug("seed feedback recorded", slog.String("seed", seedID), slog.String("verdict", string(verdict)))
	return &out, nil
}

// ValidateVerdict rejects anything but helpful or not_helpful.
func ValidateVerdict(v models.Verdict) error {
	err := validation.Validate(string(v),
		validation.Required,
		validation.In(string(models.VerdictHelpful), string(models.VerdictNotHelpful)),
	)
	if err != nil {
		return fmt.Errorf("%w %q: %v", apperr.ErrInvalidVerdict, v, err)
	}
	return nil
}

// List returns every seed in the library followed by index entries that
// have no document.
func (s *Service) List(_ context.Context) ([]SeedListItem, error) {
	metas, err := s.library.List()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(metas))
	items := make([]SeedListItem, 0, len(metas))
	for _, m := range metas {
		seen[m.ID] = struct{}{}
		item := SeedListItem{
			ID:        m.ID,
			Name:      m.ID,
			Triggers:  len(s.index.TriggersFor(m.ID)),
			Indexed:   s.index.Has(m.ID),
			InLibrary: true,
		}
		seed, err := s.library.Load(m.ID)
		switch {
		case err == nil:
			item.Name = seed.Name()
		case errors.Is(err, apperr.ErrSeedNotFound):
			// Removed between List and Load.
			continue
		default:
			return nil, err
		}
		items = append(items, item)
	}
	for _, id := range s.index.SeedIDs() {
		if _, ok := seen[id]; ok {
			continue
		}
		items = append(items, SeedListItem{
			ID:       id,
			Name:     id,
			Triggers: len(s.index.TriggersFor(id)),
			Indexed:  true,
		})
	}
	return items, nil
}

// Stats returns usage records ordered by usage count, most used first.
func (s *Service) Stats(ctx context.Context) ([]UsageStat, error) {
	state, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]UsageStat, 0, len(state.Seeds))
	for _, id := range state.SeedIDs() {
		u := state.Seeds[id]
		st := UsageStat{
			SeedID:     id,
			UsageCount: u.UsageCount,
			Sessions:   len(u.Sessions),
			Helpful:    u.Helpful,
			NotHelpful: u.NotHelpful,
		}
		if u.LastUsed != nil {
			t := u.LastUsed.Time
			st.LastUsed = &t
		}
		out = append(out, st)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UsageCount > out[j].UsageCount })
	return out, nil
}
