// Package testutil provides shared test helpers for seed libraries and usage stores.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/seedbank/internal/storage"
)

// AgentConnect is a fixture seed with a header and a "What It Is" section.
const AgentConnect = `---
name: Agent Connect
category: coordination
---

# Seed 04: Agent Connect

## What It Is

Route work between specialized agents with explicit handoffs.

## Checks

- Every handoff names its receiver.

## Dojo Application

Apply to any multi-agent workflow.
`

// ComplexityGating is a fixture seed without a header.
const ComplexityGating = `# Seed 09: Mode-Based Complexity Gating

## What It Is

Pick a reasoning mode from the query's complexity before routing it.

## Checks

- Simple queries never take the expensive path.
`

// WriteSeeds writes each id → content pair as <id>.md under dir.
func WriteSeeds(t *testing.T, dir string, seeds map[string]string) {
	t.Helper()
	for id, content := range seeds {
		if err := os.WriteFile(filepath.Join(dir, id+".md"), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// TestLibrary creates a temporary seed library containing seeds.
func TestLibrary(t *testing.T, seeds map[string]string) (string, *storage.Library) {
	t.Helper()
	dir := t.TempDir()
	WriteSeeds(t, dir, seeds)
	lib, err := storage.NewLibrary(dir, ".md")
	if err != nil {
		t.Fatal(err)
	}
	return dir, lib
}

// DefaultLibrary creates a library with the AgentConnect and ComplexityGating fixtures.
func DefaultLibrary(t *testing.T) (string, *storage.Library) {
	t.Helper()
	return TestLibrary(t, map[string]string{
		"04_agent_connect":                AgentConnect,
		"09_mode_based_complexity_gating": ComplexityGating,
	})
}
