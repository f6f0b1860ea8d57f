package suggest

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/starford/seedbank/internal/apperr"
	"github.com/starford/seedbank/internal/models"
	"github.com/starford/seedbank/internal/parser"
	"github.com/starford/seedbank/internal/storage"
	"github.com/starford/seedbank/internal/triggers"
)

// PreviewSection is the subsection title used for suggestion previews.
const PreviewSection = "What It Is"

// Defaults for Rank.
const (
	DefaultTopN          = 3
	DefaultPreviewLength = 200
)

// Ranker orders seeds by relevance and attaches previews from the library.
type Ranker struct {
	index      *triggers.Index
	scorer     *Scorer
	library    storage.Provider
	logger     *slog.Logger
	previewLen int
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithPreviewLength sets the maximum preview length in characters.
func WithPreviewLength(n int) RankerOption {
	return func(r *Ranker) {
		if n > 0 {
			r.previewLen = n
		}
	}
}

// WithLogger sets the logger used for per-seed preview failures.
func WithLogger(l *slog.Logger) RankerOption {
	return func(r *Ranker) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRanker creates a Ranker over idx that reads previews from library.
func NewRanker(idx *triggers.Index, library storage.Provider, opts ...RankerOption) *Ranker {
	r := &Ranker{
		index:      idx,
		scorer:     NewScorer(idx),
		library:    library,
		logger:     slog.Default(),
		previewLen: DefaultPreviewLength,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type scored struct {
	id    string
	score int
}

// Rank returns the topN seeds with a positive score, highest first. Equal
// scores keep Trigger Index declaration order. topN <= 0 means DefaultTopN.
//
// The sequence is computed afresh on every iteration and loads previews
// lazily; a seed whose document is missing or unreadable gets an empty
// preview without affecting the others.
func (r *Ranker) Rank(keywords []string, topN int) iter.Seq[models.Suggestion] {
	if topN <= 0 {
		topN = DefaultTopN
	}
	query := slices.Clone(keywords)

	return func(yield func(models.Suggestion) bool) {
		var hits []scored
		for _, id := range r.index.SeedIDs() {
			if s := r.scorer.Score(query, id); s > 0 {
				hits = append(hits, scored{id: id, score: s})
			}
		}
		slices.SortStableFunc(hits, func(a, b scored) int { return b.score - a.score })
		if len(hits) > topN {
			hits = hits[:topN]
		}

		for i, h := range hits {
			if !yield(r.suggestion(i+1, h)) {
				return
			}
		}
	}
}

// Collect runs Rank and gathers the results.
func (r *Ranker) Collect(keywords []string, topN int) []models.Suggestion {
	return slices.Collect(r.Rank(keywords, topN))
}

func (r *Ranker) suggestion(rank int, h scored) models.Suggestion {
	s := models.Suggestion{
		Rank:   rank,
		SeedID: h.id,
		Name:   h.id,
		Score:  h.score,
	}

	seed, err := r.library.Load(h.id)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, apperr.ErrSeedNotFound) {
			level = slog.LevelDebug
		}
		r.logger.Log(context.Background(), level, "suggest: preview unavailable",
			slog.String("seed", h.id), slog.String("error", err.Error()))
		return s
	}

	s.Name = seed.Name()
	s.File = seed.Path
	if section, ok := parser.Section(seed.Body, PreviewSection); ok {
		s.Preview = parser.Truncate(section, r.previewLen)
	}
	return s
}

// Report ranks keywords and assembles the report input. When nothing
// matches, every indexed seed is listed as available.
func (r *Ranker) Report(keywords []string, topN int, generated time.Time) Report {
	rep := Report{
		Keywords:    slices.Clone(keywords),
		Generated:   generated,
		Suggestions: r.Collect(keywords, topN),
	}
	if len(rep.Suggestions) == 0 {
		rep.Available = r.index.SeedIDs()
	}
	return rep
}
