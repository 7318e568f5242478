package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/priceforge/internal/config"
	"github.com/roach88/priceforge/internal/pricing"
	"github.com/roach88/priceforge/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DBPath  string

	// Config is loaded before any subcommand runs. Flags win over it.
	Config config.Config

	// Clock overrides the default as-of date source. Tests pin it.
	Clock pricing.Clock

	logger *slog.Logger
	errW   io.Writer
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the PriceForge CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "priceforge",
		Short: "PriceForge - BOM cost explosion and pricing",
		Long: `Compute product prices by exploding multi-level bills of materials,
pricing every leaf with time-versioned costs, and recording each
calculation as an immutable, replayable run.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			opts.Config = cfg
			if opts.DBPath == "" {
				opts.DBPath = cfg.DBPath
			}
			opts.errW = cmd.ErrOrStderr()
			opts.logger = newLogger(opts.errW, cfg.LogFormat, logLevel(opts.Verbose, slog.LevelWarn))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to SQLite database (default $PRICEFORGE_DB or priceforge.db)")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewCalculateCommand(opts))
	cmd.AddCommand(NewRunsCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// logLevel is Debug when verbose and base otherwise.
func logLevel(verbose bool, base slog.Level) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return base
}

// newLogger writes diagnostics to w.
func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// Logger returns the configured logger, or a discarding one before
// PersistentPreRunE has run.
func (o *RootOptions) Logger() *slog.Logger {
	if o.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.logger
}

// openStore opens the configured database.
func (o *RootOptions) openStore() (*store.Store, error) {
	st, err := store.Open(o.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// newService builds the pricing service over st.
func (o *RootOptions) newService(st *store.Store) *pricing.Service {
	return pricing.NewService(st, pricing.Options{
		MaxDepth: o.Config.MaxDepth,
		Clock:    o.Clock,
		Logger:   o.Logger(),
	})
}
