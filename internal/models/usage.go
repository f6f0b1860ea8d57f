package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"time"
)

// Verdict is the operator's effectiveness rating for an applied seed.
type Verdict string

// Verdicts accepted by Track.
const (
	VerdictHelpful    Verdict = "helpful"
	VerdictNotHelpful Verdict = "not_helpful"
)

// UsageState is the persisted record of seed applications.
type UsageState struct {
	Seeds        map[string]*SeedUsage `json:"seeds"`
	SessionSeeds map[string][]string   `json:"session_seeds"`
}

// SeedUsage is the usage record of one seed.
type SeedUsage struct {
	UsageCount int        `json:"usage_count"`
	LastUsed   *Timestamp `json:"last_used"`
	Sessions   []string   `json:"sessions"`
	Helpful    int        `json:"helpful,omitempty"`
	NotHelpful int        `json:"not_helpful,omitempty"`
}

// NewUsageState returns an empty state with both mappings initialised.
func NewUsageState() *UsageState {
	return &UsageState{
		Seeds:        make(map[string]*SeedUsage),
		SessionSeeds: make(map[string][]string),
	}
}

// Normalize fills in mappings and records absent from older files.
func (s *UsageState) Normalize() {
	if s.Seeds == nil {
		s.Seeds = make(map[string]*SeedUsage)
	}
	if s.SessionSeeds == nil {
		s.SessionSeeds = make(map[string][]string)
	}
	for id, u := range s.Seeds {
		if u == nil {
			s.Seeds[id] = &SeedUsage{}
		}
	}
}

// Record returns the usage record for id, creating it on first use.
func (s *UsageState) Record(id string) *SeedUsage {
	s.Normalize()
	u, ok := s.Seeds[id]
	if !ok {
		u = &SeedUsage{Sessions: []string{}}
		s.Seeds[id] = u
	}
	return u
}

// RecordApplication counts one application of seed id at now and links the
// session, if any. LastUsed never moves backwards.
func (s *UsageState) RecordApplication(id, session string, now time.Time) {
	u := s.Record(id)
	u.UsageCount++
	if u.LastUsed != nil && now.Before(u.LastUsed.Time) {
		now = u.LastUsed.Time
	}
	u.LastUsed = &Timestamp{Time: now}
	s.LinkSession(id, session)
}

// LinkSession adds session to the seed's sessions and the seed to the
// session's seeds. Both insertions are idempotent; empty session is a no-op.
func (s *UsageState) LinkSession(id, session string) {
	if session == "" {
		return
	}
	u := s.Record(id)
	if !slices.Contains(u.Sessions, session) {
		u.Sessions = append(u.Sessions, session)
	}
	if !slices.Contains(s.SessionSeeds[session], id) {
		s.SessionSeeds[session] = append(s.SessionSeeds[session], id)
	}
}

// SeedIDs returns the identifiers with usage records, sorted.
func (s *UsageState) SeedIDs() []string {
	ids := make([]string, 0, len(s.Seeds))
	for id := range s.Seeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Timestamp is an ISO-8601 instant. Zone-less values written by older
// versions are accepted and read as local time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// MarshalJSON encodes the timestamp as RFC 3339 with fractional seconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts RFC 3339 and the legacy zone-less layouts.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTimestamp parses raw using the accepted layouts.
func ParseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if layout == time.RFC3339Nano {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts, nil
			}
			continue
		}
		if ts, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("models: unrecognised timestamp %q", raw)
}
