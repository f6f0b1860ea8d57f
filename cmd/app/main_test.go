package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/seedbank/internal"
	"github.com/starford/seedbank/internal/apperr"
)

// runCLI runs the command tree against a home directory without a seed library.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	home := t.TempDir()
	argv := append([]string{
		"seedbank",
		"--config", filepath.Join(home, "config.yaml"),
		"--library", filepath.Join(home, "seeds"),
		"--usage-file", filepath.Join(home, ".seed-usage.json"),
		"--output-dir", home,
	}, args...)
	err := newCommand().Run(context.Background(), argv)
	return home, err
}

func TestSuggest_NoKeywordsPrintsUsageWithoutLibrary(t *testing.T) {
	home, err := runCLI(t, "suggest")
	if !errors.Is(err, internal.ErrNoKeywords) {
		t.Fatalf("err = %v, want ErrNoKeywords", err)
	}

	var buf bytes.Buffer
	report(&buf, err)
	if !strings.HasPrefix(buf.String(), "Usage: seedbank suggest <keywords...>") {
		t.Errorf("diagnostic = %q", buf.String())
	}
	if _, statErr := os.Stat(filepath.Join(home, "seed-suggestions.md")); !os.IsNotExist(statErr) {
		t.Error("no report should be written without keywords")
	}
}

func TestApply_MissingArgsIsUsageError(t *testing.T) {
	_, err := runCLI(t, "apply")
	var ue usageError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want usage error", err)
	}
	if !strings.Contains(ue.Error(), "apply <seed_id> [session_id]") {
		t.Errorf("usage = %q", ue.Error())
	}
}

func TestTrack_WrongArgCountIsUsageError(t *testing.T) {
	_, err := runCLI(t, "track", "04_agent_connect", "s1")
	var ue usageError
	if !errors.As(err, &ue) {
		t.Fatalf("err = %v, want usage error", err)
	}
}

func TestApply_UnknownSeedListsAvailable(t *testing.T) {
	_, err := runCLI(t, "apply", "99_nope")
	if !errors.Is(err, apperr.ErrSeedNotFound) {
		t.Fatalf("err = %v, want ErrSeedNotFound", err)
	}
	var buf bytes.Buffer
	report(&buf, err)
	if !strings.Contains(buf.String(), "Seed not found: 99_nope") || !strings.Contains(buf.String(), "Available seeds:") {
		t.Errorf("diagnostic = %q", buf.String())
	}
}

func TestSuggest_WithoutLibraryStillWritesReport(t *testing.T) {
	home, err := runCLI(t, "suggest", "routing")
	if err != nil {
		t.Fatalf("suggest: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(home, "seed-suggestions.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "## Recommended Seeds") {
		t.Errorf("report:\n%s", data)
	}
}

func TestUsageBackendSwitchUsesBackendDefaultFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	err := newCommand().Run(context.Background(), []string{
		"seedbank",
		"--config", filepath.Join(home, "config.yaml"),
		"--library", filepath.Join(home, "seeds"),
		"--output-dir", home,
		"--usage-backend", "sqlite",
		"stats",
	})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".seed-usage.db")); err != nil {
		t.Errorf("sqlite store not at default path: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".seed-usage.json")); !os.IsNotExist(err) {
		t.Error("sqlite backend must not use the JSON file name")
	}
}
