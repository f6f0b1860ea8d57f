package internal

import (
	"strings"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if !strings.HasSuffix(cfg.Usage.Path, ".seed-usage.json") {
		t.Errorf("usage path = %q", cfg.Usage.Path)
	}
}

func TestUsageConfig_EmptyBackendDefaultsJSON(t *testing.T) {
	cfg := UsageConfig{Path: "/tmp/u.json"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty backend should default: %v", err)
	}
	if cfg.Backend != "json" {
		t.Errorf("backend = %q, want json", cfg.Backend)
	}
}

func TestUsageConfig_UnknownBackend(t *testing.T) {
	cfg := UsageConfig{Backend: "redis", Path: "x"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown backend should fail validation")
	}
}

func TestLibraryConfig_ExtensionNeedsDot(t *testing.T) {
	cfg := LibraryConfig{Path: "./seeds", Extension: "md"}
	if err := cfg.Validate(); err == nil {
		t.Error("extension without dot should fail")
	}
}

func TestSuggestConfig_Bounds(t *testing.T) {
	for _, n := range []int{0, 51} {
		cfg := SuggestConfig{TopN: n, PreviewLength: 200}
		if err := cfg.Validate(); err == nil {
			t.Errorf("top_n %d should fail", n)
		}
	}
}

func TestFullConfig_ReportsSection(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Output.Dir = ""
	err := cfg.Validate()
	if err == nil || !strings.HasPrefix(err.Error(), "output:") {
		t.Errorf("err = %v", err)
	}
}

func TestUsageConfig_DefaultPathPerBackend(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := UsageConfig{Backend: "sqlite"}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(cfg.Path, ".seed-usage.db") {
		t.Errorf("sqlite path = %q", cfg.Path)
	}

	cfg = UsageConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(cfg.Path, ".seed-usage.json") {
		t.Errorf("json path = %q", cfg.Path)
	}
}
