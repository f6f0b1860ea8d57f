package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/seedbank/internal/suggest"
	"github.com/starford/seedbank/internal/usage"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Library  LibraryConfig     `yaml:"library"`
	Triggers TriggersConfig    `yaml:"triggers"`
	Usage    UsageConfig       `yaml:"usage"`
	Output   OutputConfig      `yaml:"output"`
	Suggest  SuggestConfig     `yaml:"suggest"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Library.Validate(); err != nil {
		return fmt.Errorf("library: %w", err)
	}
	if err := c.Usage.Validate(); err != nil {
		return fmt.Errorf("usage: %w", err)
	}
	if err := c.Output.Validate(); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if err := c.Suggest.Validate(); err != nil {
		return fmt.Errorf("suggest: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// LibraryConfig locates the seed documents.
type LibraryConfig struct {
	Path      string `yaml:"path"`
	Extension string `yaml:"extension"`
}

// Validate validates the library configuration.
func (c *LibraryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extension, validation.Required, validation.By(func(v any) error {
			if s, _ := v.(string); !strings.HasPrefix(s, ".") {
				return fmt.Errorf("must start with a dot")
			}
			return nil
		})),
	)
}

// TriggersConfig optionally replaces the built-in Trigger Index.
// An empty Path selects the embedded table.
type TriggersConfig struct {
	Path string `yaml:"path"`
}

// UsageConfig selects the usage store backing.
type UsageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// Validate validates the usage configuration. An empty Path selects the
// backend's default file in the home directory.
func (c *UsageConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = usage.BackendJSON
	}
	if c.Path == "" {
		c.Path = DefaultUsagePath(c.Backend)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(usage.BackendJSON, usage.BackendSQLite)),
		validation.Field(&c.Path, validation.Required),
	)
}

// DefaultUsagePath returns the usage file for backend in the user's home
// directory: ~/.seed-usage.json, or ~/.seed-usage.db for SQLite.
func DefaultUsagePath(backend string) string {
	name := ".seed-usage.json"
	if backend == usage.BackendSQLite {
		name = ".seed-usage.db"
	}
	return filepath.Join(homeDir(), name)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// OutputConfig holds where report artifacts are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the output configuration.
func (c *OutputConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// SuggestConfig tunes the ranker.
type SuggestConfig struct {
	TopN          int `yaml:"top_n"`
	PreviewLength int `yaml:"preview_length"`
}

// Validate validates the suggest configuration.
func (c *SuggestConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TopN, validation.Required, validation.Min(1), validation.Max(50)),
		validation.Field(&c.PreviewLength, validation.Required, validation.Min(1)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
// Artifacts live in the user's home directory; the usage path is
// filled in per backend by Validate.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelWarn,
		},
		Library: LibraryConfig{
			Path:      "./seeds",
			Extension: ".md",
		},
		Usage: UsageConfig{
			Backend: usage.BackendJSON,
		},
		Output: OutputConfig{
			Dir: homeDir(),
		},
		Suggest: SuggestConfig{
			TopN:          suggest.DefaultTopN,
			PreviewLength: suggest.DefaultPreviewLength,
		},
	}
}
