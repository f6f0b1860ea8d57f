package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/seedbank/internal"
	"github.com/starford/seedbank/internal/apperr"
	"github.com/starford/seedbank/internal/models"
	pkgconfig "github.com/starford/seedbank/pkg/config"
)

const configFile = "config/config.yaml"

// newApp builds the application from defaults, the optional config file,
// and flag or environment overrides, in that order.
func newApp(cmd *cli.Command) (*internal.App, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("library") {
		cfg.Library.Path = cmd.String("library")
	}
	if cmd.IsSet("usage-file") {
		cfg.Usage.Path = cmd.String("usage-file")
	}
	if cmd.IsSet("usage-backend") {
		prev := cfg.Usage.Backend
		cfg.Usage.Backend = cmd.String("usage-backend")
		if !cmd.IsSet("usage-file") && cfg.Usage.Path == internal.DefaultUsagePath(prev) {
			// Re-derived for the new backend by Validate.
			cfg.Usage.Path = ""
		}
	}
	if cmd.IsSet("output-dir") {
		cfg.Output.Dir = cmd.String("output-dir")
	}
	if err := pkgconfig.Validate(cfg); err != nil {
		return nil, err
	}

	return internal.New(internal.WithConfig(cfg))
}

// withApp checks the arguments, then opens the application for the
// duration of fn. Argument errors never touch the library or usage store.
func withApp(check func(cmd *cli.Command) error, fn func(ctx context.Context, cmd *cli.Command, app *internal.App) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if check != nil {
			if err := check(cmd); err != nil {
				return err
			}
		}
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()
		return fn(ctx, cmd, app)
	}
}

func suggestArgs(cmd *cli.Command) error {
	if cmd.NArg() == 0 {
		return internal.ErrNoKeywords
	}
	return nil
}

func applyArgs(cmd *cli.Command) error {
	if cmd.NArg() < 1 || cmd.NArg() > 2 {
		return errUsage("apply <seed_id> [session_id]")
	}
	return nil
}

func trackArgs(cmd *cli.Command) error {
	if cmd.NArg() != 3 {
		return errUsage("track <seed_id> <session_id> <helpful|not_helpful>")
	}
	return nil
}

func suggestAction(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	art, err := app.Suggest(ctx, cmd.Args().Slice(), int(cmd.Int("top")))
	if err != nil {
		return err
	}
	fmt.Println(art.Text)
	fmt.Printf("Suggestions saved to: %s\n", art.Path)
	return nil
}

func applyAction(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	art, err := app.Apply(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
	if err != nil {
		return err
	}
	fmt.Println(art.Text)
	fmt.Printf("Guide saved to: %s\n", art.Path)
	return nil
}

func trackAction(ctx context.Context, cmd *cli.Command, app *internal.App) error {
	args := cmd.Args()
	u, err := app.Track(ctx, args.Get(0), args.Get(1), models.Verdict(args.Get(2)))
	if err != nil {
		return err
	}
	fmt.Printf("Recorded %s for %s (helpful: %d, not helpful: %d)\n",
		args.Get(2), args.Get(0), u.Helpful, u.NotHelpful)
	return nil
}

func listAction(ctx context.Context, _ *cli.Command, app *internal.App) error {
	items, err := app.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTRIGGERS\tNOTE")
	for _, it := range items {
		note := ""
		switch {
		case !it.InLibrary:
			note = "no document"
		case !it.Indexed:
			note = "not indexed"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", it.ID, it.Name, it.Triggers, note)
	}
	return w.Flush()
}

func statsAction(ctx context.Context, _ *cli.Command, app *internal.App) error {
	stats, err := app.Stats(ctx)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		fmt.Println("No seeds applied yet.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tUSES\tLAST USED\tSESSIONS\tHELPFUL\tNOT HELPFUL")
	for _, st := range stats {
		last := "-"
		if st.LastUsed != nil {
			last = st.LastUsed.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%d\n",
			st.SeedID, st.UsageCount, last, st.Sessions, st.Helpful, st.NotHelpful)
	}
	return w.Flush()
}

func serveAction(ctx context.Context, _ *cli.Command, app *internal.App) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return app.Serve(ctx, os.Stdin, os.Stdout)
}

type usageError string

func (e usageError) Error() string { return "usage: seedbank " + string(e) }

func errUsage(synopsis string) error { return usageError(synopsis) }

// report prints a human diagnostic for err to w.
func report(w io.Writer, err error) {
	var nf *apperr.SeedNotFoundError
	var ue usageError
	switch {
	case errors.As(err, &nf):
		fmt.Fprintf(w, "Seed not found: %s\n   Expected at: %s\n\nAvailable seeds:\n", nf.ID, nf.Location)
		for _, id := range nf.Available {
			fmt.Fprintf(w, "  - %s\n", id)
		}
	case errors.Is(err, internal.ErrNoKeywords):
		fmt.Fprintln(w, "Usage: seedbank suggest <keywords...>")
		fmt.Fprintln(w, "Example: seedbank suggest multi-agent architecture coordination")
	case errors.As(err, &ue):
		fmt.Fprintln(w, ue.Error())
	case errors.Is(err, apperr.ErrStoreUnavailable):
		fmt.Fprintf(w, "Usage history could not be read, leaving it untouched: %v\n", err)
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "seedbank",
		Usage: "Suggest, apply, and track reusable engineering seeds",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file (optional)",
				DefaultText: configFile,
				Value:       configFile,
				Sources:     cli.EnvVars("SEEDBANK_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "library",
				Aliases: []string{"l"},
				Usage:   "Seed library directory",
				Sources: cli.EnvVars("SEEDBANK_LIBRARY"),
			},
			&cli.StringFlag{
				Name:    "usage-file",
				Usage:   "Usage history file",
				Sources: cli.EnvVars("SEEDBANK_USAGE_FILE"),
			},
			&cli.StringFlag{
				Name:    "usage-backend",
				Usage:   "Usage history backend (json or sqlite)",
				Sources: cli.EnvVars("SEEDBANK_USAGE_BACKEND"),
			},
			&cli.StringFlag{
				Name:    "output-dir",
				Usage:   "Directory for suggestion reports and guides",
				Sources: cli.EnvVars("SEEDBANK_OUTPUT_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "suggest",
				Usage:     "Rank seeds by relevance to keywords",
				ArgsUsage: "<keywords...>",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top",
						Aliases: []string{"n"},
						Usage:   "Number of suggestions (default from config)",
					},
				},
				Action: withApp(suggestArgs, suggestAction),
			},
			{
				Name:      "apply",
				Usage:     "Show a seed's application guide and record its use",
				ArgsUsage: "<seed_id> [session_id]",
				Action:    withApp(applyArgs, applyAction),
			},
			{
				Name:      "track",
				Usage:     "Record whether an applied seed helped",
				ArgsUsage: "<seed_id> <session_id> <helpful|not_helpful>",
				Action:    withApp(trackArgs, trackAction),
			},
			{
				Name:   "list",
				Usage:  "List seeds and flag library/index drift",
				Action: withApp(nil, listAction),
			},
			{
				Name:   "stats",
				Usage:  "Show usage history",
				Action: withApp(nil, statsAction),
			},
			{
				Name:   "serve",
				Usage:  "Serve seeds over MCP on stdin/stdout",
				Action: withApp(nil, serveAction),
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Debug("application error", slog.String("error", err.Error()))
		report(os.Stderr, err)
		os.Exit(1)
	}
}
