// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/seedbank/internal/mcpserver"
	"github.com/starford/seedbank/internal/models"
	"github.com/starford/seedbank/internal/seedservice"
	"github.com/starford/seedbank/internal/storage"
	"github.com/starford/seedbank/internal/suggest"
	"github.com/starford/seedbank/internal/triggers"
	"github.com/starford/seedbank/internal/usage"
)

// ErrNoKeywords is returned by Suggest when called without keywords.
var ErrNoKeywords = errors.New("at least one keyword is required")

// App wires the seed library, Trigger Index, usage store, and output
// directory behind the command-line operations.
type App struct {
	config  *Config
	logger  *slog.Logger
	now     func() time.Time
	library *storage.Library
	index   *triggers.Index
	store   usage.Store
	output  *storage.FS
	ranker  *suggest.Ranker
	svc     *seedservice.Service
}

// Artifact is rendered output together with the file it was persisted to.
type Artifact struct {
	Text string
	Path string
}

// New builds an App from the given options. Close releases the usage store.
func New(opts ...Option) (*App, error) {
	app := &App{now: time.Now}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	if app.logger == nil {
		// Initialize structured JSON logger. Stdout carries reports.
		app.logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
	}
	logger := app.logger

	logger.Debug("Configuration loaded",
		slog.String("library_path", cfg.Library.Path),
		slog.String("triggers_path", cfg.Triggers.Path),
		slog.String("usage_backend", cfg.Usage.Backend),
		slog.String("usage_path", cfg.Usage.Path),
		slog.String("output_dir", cfg.Output.Dir),
		slog.String("log_level", cfg.App.LogLevel.String()))

	library, err := storage.NewLibrary(cfg.Library.Path, cfg.Library.Extension)
	if err != nil {
		return nil, fmt.Errorf("open seed library: %w", err)
	}
	if _, err := os.Stat(library.Root()); err != nil {
		logger.Warn("seed library not found, previews will be empty", slog.String("library_path", library.Root()))
	}
	app.library = library

	index, err := triggers.Load(cfg.Triggers.Path)
	if err != nil {
		return nil, fmt.Errorf("load trigger index: %w", err)
	}
	app.index = index

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	output, err := storage.NewFS(cfg.Output.Dir)
	if err != nil {
		return nil, fmt.Errorf("init output: %w", err)
	}
	app.output = output

	store, err := usage.Open(cfg.Usage.Backend, cfg.Usage.Path)
	if err != nil {
		return nil, fmt.Errorf("init usage store: %w", err)
	}
	app.store = store

	app.ranker = suggest.NewRanker(index, library,
		suggest.WithPreviewLength(cfg.Suggest.PreviewLength),
		suggest.WithLogger(logger))
	app.svc = seedservice.NewService(library, index, store,
		seedservice.WithClock(app.now),
		seedservice.WithLogger(logger))

	return app, nil
}

// Close releases the usage store.
func (a *App) Close() error {
	return a.store.Close()
}

// Suggest ranks seeds for keywords and persists the report. topN <= 0
// uses the configured default.
func (a *App) Suggest(_ context.Context, keywords []string, topN int) (*Artifact, error) {
	if len(keywords) == 0 {
		return nil, ErrNoKeywords
	}
	if topN <= 0 {
		topN = a.config.Suggest.TopN
	}

	text, err := suggest.RenderReport(a.ranker.Report(keywords, topN, a.now()))
	if err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	path, err := a.output.Write(suggest.ReportFile, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	a.logger.Info("suggestions saved",
		slog.Any("keywords", keywords),
		slog.String("path", path))
	return &Artifact{Text: text, Path: path}, nil
}

// Apply records an application of seedID and persists its guide.
func (a *App) Apply(ctx context.Context, seedID, sessionID string) (*Artifact, error) {
	guide, err := a.svc.Apply(ctx, seedID, sessionID)
	if err != nil {
		return nil, err
	}
	path, err := a.output.Write(seedservice.GuideFile(seedID), []byte(guide.Text))
	if err != nil {
		return nil, fmt.Errorf("save guide: %w", err)
	}
	a.logger.Info("seed applied",
		slog.String("seed", seedID),
		slog.String("session", sessionID),
		slog.String("path", path))
	return &Artifact{Text: guide.Text, Path: path}, nil
}

// Track records feedback on an applied seed.
func (a *App) Track(ctx context.Context, seedID, sessionID string, verdict models.Verdict) (*models.SeedUsage, error) {
	return a.svc.Track(ctx, seedID, sessionID, verdict)
}

// List reports library and Trigger Index seeds.
func (a *App) List(ctx context.Context) ([]seedservice.SeedListItem, error) {
	return a.svc.List(ctx)
}

// Stats reports recorded usage.
func (a *App) Stats(ctx context.Context) ([]seedservice.UsageStat, error) {
	return a.svc.Stats(ctx)
}

// Serve runs the MCP server on in/out and watches the library, notifying
// clients when seeds change. It returns when ctx is cancelled or either
// side fails.
func (a *App) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	logger := a.logger
	srv := mcpserver.New(a.ranker, a.svc, a.library,
		mcpserver.WithTopN(a.config.Suggest.TopN),
		mcpserver.WithClock(a.now))

	logger.Info("MCP server starting", slog.String("library_path", a.library.Root()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	// Start library watcher with resource notifications.
	if _, err := os.Stat(a.library.Root()); err == nil {
		g.Go(func() error {
			return storage.Watch(gCtx, a.library, logger, func(kind, id string) {
				logger.Info("library changed", slog.String("kind", kind), slog.String("seed", id))
				srv.NotifyLibraryChanged(kind, id)
			})
		})
	} else {
		logger.Warn("library not watched", slog.String("library_path", a.library.Root()), slog.String("error", err.Error()))
	}

	// Client disconnect (EOF on in) stops the watcher too.
	g.Go(func() error {
		defer cancel()
		err := srv.ServeStdio(gCtx, in, out)
		if err != nil && gCtx.Err() == nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("MCP server stopped")
	return nil
}
