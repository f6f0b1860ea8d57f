// Package suggest scores seeds against keyword queries and ranks the results.
package suggest

import (
	"strings"

	"github.com/starford/seedbank/internal/triggers"
)

// Scorer computes relevance scores against a Trigger Index.
type Scorer struct {
	index *triggers.Index
}

// NewScorer creates a Scorer over idx.
func NewScorer(idx *triggers.Index) *Scorer {
	return &Scorer{index: idx}
}

// Score counts the (keyword, trigger) pairs of seedID where either string
// contains the other. Keywords are lowercased; empty strings never match.
// Unknown seeds score 0.
func (s *Scorer) Score(keywords []string, seedID string) int {
	trigs := s.index.TriggersFor(seedID)
	if len(trigs) == 0 {
		return 0
	}
	score := 0
	for _, kw := range normalize(keywords) {
		for _, t := range trigs {
			if strings.Contains(t, kw) || strings.Contains(kw, t) {
				score++
			}
		}
	}
	return score
}

// normalize lowercases keywords and drops empty ones.
func normalize(keywords []string) []string {
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(k)
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}
