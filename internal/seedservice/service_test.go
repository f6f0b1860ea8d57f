package seedservice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/starford/seedbank/internal/apperr"
	"github.com/starford/seedbank/internal/models"
	"github.com/starford/seedbank/internal/testutil"
	"github.com/starford/seedbank/internal/triggers"
	"github.com/starford/seedbank/internal/usage"
)

type fixture struct {
	dir   string
	svc   *Service
	store *usage.JSONStore
	clock *time.Time
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir, lib := testutil.DefaultLibrary(t)
	store := usage.NewJSONStore(filepath.Join(t.TempDir(), ".seed-usage.json"))
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	clock := &now
	svc := NewService(lib, triggers.Default(), store, WithClock(func() time.Time {
		*clock = clock.Add(time.Second)
		return *clock
	}))
	return fixture{dir: dir, svc: svc, store: store, clock: clock}
}

func (f fixture) state(t *testing.T) *models.UsageState {
	t.Helper()
	st, err := f.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return st
}

func TestApply_RendersGuide(t *testing.T) {
	f := newFixture(t)
	g, err := f.svc.Apply(context.Background(), "04_agent_connect", "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if g.Name != "Agent Connect" {
		t.Errorf("name = %q", g.Name)
	}
	for _, want := range []string{
		"# Applying Seed: 04_agent_connect",
		testutil.AgentConnect,
		"## Application Checklist",
		"3. **Apply the pattern** - Follow the \"Dojo Application\" section",
		"seedbank track 04_agent_connect <session_id> <helpful|not_helpful>",
	} {
		if !strings.Contains(g.Text, want) {
			t.Errorf("guide missing %q", want)
		}
	}
}

func TestApply_CountsAreMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var prev time.Time
	for n := 1; n <= 3; n++ {
		if _, err := f.svc.Apply(ctx, "04_agent_connect", ""); err != nil {
			t.Fatalf("Apply %d: %v", n, err)
		}
		u := f.state(t).Seeds["04_agent_connect"]
		if u.UsageCount != n {
			t.Errorf("usage_count = %d, want %d", u.UsageCount, n)
		}
		if u.LastUsed == nil || u.LastUsed.Before(prev) {
			t.Errorf("last_used %v not >= %v", u.LastUsed, prev)
		}
		prev = u.LastUsed.Time
	}
}

func TestApply_SessionBidirectional(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := f.svc.Apply(ctx, "04_agent_connect", "sess-1"); err != nil {
			t.Fatalf("Apply: %v", err)
		}
	}
	st := f.state(t)
	if got := st.Seeds["04_agent_connect"].Sessions; !reflect.DeepEqual(got, []string{"sess-1"}) {
		t.Errorf("sessions = %v", got)
	}
	if got := st.SessionSeeds["sess-1"]; !reflect.DeepEqual(got, []string{"04_agent_connect"}) {
		t.Errorf("session_seeds = %v", got)
	}
	if st.Seeds["04_agent_connect"].UsageCount != 2 {
		t.Errorf("usage_count = %d", st.Seeds["04_agent_connect"].UsageCount)
	}
}

func TestApply_UnknownSeed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Apply(context.Background(), "99_does_not_exist", "sess-1")
	if !errors.Is(err, apperr.ErrSeedNotFound) {
		t.Fatalf("err = %v, want ErrSeedNotFound", err)
	}
	var nf *apperr.SeedNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected SeedNotFoundError, got %T", err)
	}
	want := []string{"04_agent_connect", "09_mode_based_complexity_gating"}
	if !reflect.DeepEqual(nf.Available, want) {
		t.Errorf("available = %v, want %v", nf.Available, want)
	}
	if len(f.state(t).Seeds) != 0 {
		t.Error("failed apply must not record usage")
	}
}

func TestApply_StoreUnavailableSurfaces(t *testing.T) {
	_, lib := testutil.DefaultLibrary(t)
	path := filepath.Join(t.TempDir(), "usage.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	svc := NewService(lib, triggers.Default(), usage.NewJSONStore(path))

	_, err := svc.Apply(context.Background(), "04_agent_connect", "")
	if !errors.Is(err, apperr.ErrStoreUnavailable) {
		t.Fatalf("err = %v, want ErrStoreUnavailable", err)
	}
}

func TestTrack_RecordsVerdictWithoutCountingUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.svc.Apply(ctx, "09_mode_based_complexity_gating", ""); err != nil {
		t.Fatal(err)
	}
	u, err := f.svc.Track(ctx, "09_mode_based_complexity_gating", "sess-7", models.VerdictHelpful)
	if err != nil {
		t.Fatalf("Track: %v", err)
	}
	if u.Helpful != 1 || u.UsageCount != 1 {
		t.Errorf("record = %+v", u)
	}
	_, _ = f.svc.Track(ctx, "09_mode_based_complexity_gating", "sess-7", models.VerdictNotHelpful)

	st := f.state(t)
	rec := st.Seeds["09_mode_based_complexity_gating"]
	if rec.Helpful != 1 || rec.NotHelpful != 1 || rec.UsageCount != 1 {
		t.Errorf("record = %+v", rec)
	}
	if !reflect.DeepEqual(st.SessionSeeds["sess-7"], []string{"09_mode_based_complexity_gating"}) {
		t.Errorf("session_seeds = %v", st.SessionSeeds)
	}
}

func TestTrack_InvalidVerdict(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Track(context.Background(), "04_agent_connect", "s", models.Verdict("meh"))
	if !errors.Is(err, apperr.ErrInvalidVerdict) {
		t.Errorf("err = %v, want ErrInvalidVerdict", err)
	}
	if _, err := f.svc.Track(context.Background(), "04_agent_connect", "s", ""); !errors.Is(err, apperr.ErrInvalidVerdict) {
		t.Errorf("empty verdict err = %v", err)
	}
}

func TestTrack_UnknownSeed(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Track(context.Background(), "nope", "s", models.VerdictHelpful)
	if !errors.Is(err, apperr.ErrSeedNotFound) {
		t.Errorf("err = %v, want ErrSeedNotFound", err)
	}
}

func TestList_FlagsDrift(t *testing.T) {
	f := newFixture(t)
	testutil.WriteSeeds(t, f.dir, map[string]string{"14_unindexed": "---\nname: Orphan\n---\n"})

	items, err := f.svc.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	// 3 library seeds + 11 index entries without a document.
	if len(items) != 14 {
		t.Fatalf("len = %d, want 14", len(items))
	}
	if items[0].ID != "04_agent_connect" || items[0].Name != "Agent Connect" || !items[0].Indexed || !items[0].InLibrary {
		t.Errorf("first = %+v", items[0])
	}
	if items[2].ID != "14_unindexed" || items[2].Name != "Orphan" || items[2].Indexed || items[2].Triggers != 0 {
		t.Errorf("unindexed = %+v", items[2])
	}
	last := items[len(items)-1]
	if last.ID != "13_granular_visibility" || last.InLibrary {
		t.Errorf("last = %+v", last)
	}
}

func TestStats_OrderedByUsage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _ = f.svc.Apply(ctx, "09_mode_based_complexity_gating", "a")
	_, _ = f.svc.Apply(ctx, "04_agent_connect", "a")
	_, _ = f.svc.Apply(ctx, "04_agent_connect", "b")

	stats, err := f.svc.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) != 2 || stats[0].SeedID != "04_agent_connect" || stats[0].UsageCount != 2 || stats[0].Sessions != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats[1].LastUsed == nil {
		t.Error("expected last_used")
	}
}

func TestGuideFile(t *testing.T) {
	if got := GuideFile("04_agent_connect"); got != "seed-04_agent_connect-applied.md" {
		t.Errorf("GuideFile = %q", got)
	}
}
