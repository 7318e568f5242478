package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/priceforge/internal/domain"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Markup   string
	Currency string
}

// InitResult is the JSON payload of init.
type InitResult struct {
	Database         string `json:"database"`
	DefaultMarkupPct string `json:"default_markup_pct"`
	Currency         string `json:"currency"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and the pricing settings",
		Long: `Create the database schema and the pricing settings row.

Settings default to $PRICEFORGE_DEFAULT_MARKUP and
$PRICEFORGE_DEFAULT_CURRENCY (15 and EUR when unset). An existing
settings row is kept unless --markup or --currency is given.

Examples:
  priceforge init --db ./priceforge.db
  priceforge init --markup 20 --currency EUR`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Markup, "markup", "", "default markup percentage")
	cmd.Flags().StringVar(&opts.Currency, "currency", "", "default currency (ISO 4217)")

	return cmd
}

func runInit(ctx context.Context, opts *InitOptions, cmd *cobra.Command) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	current, exists, err := st.Settings(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read settings", err)
	}

	settings := opts.Config.Defaults
	if exists {
		settings = current
	}
	if opts.Markup != "" {
		markup, err := domain.ParseDecimal("markup", opts.Markup)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --markup", err)
		}
		if markup.IsNegative() {
			return NewExitError(ExitCommandError, "invalid --markup: must be >= 0")
		}
		settings.DefaultMarkupPct = markup
	}
	if opts.Currency != "" {
		if len(opts.Currency) != 3 {
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid --currency %q: want a 3-letter code", opts.Currency))
		}
		settings.Currency = opts.Currency
	}

	if !exists || opts.Markup != "" || opts.Currency != "" {
		if err := st.PutSettings(ctx, settings); err != nil {
			return WrapExitError(ExitCommandError, "failed to write settings", err)
		}
	}
	opts.Logger().Info("database initialized", "path", opts.DBPath)

	result := InitResult{
		Database:         opts.DBPath,
		DefaultMarkupPct: settings.DefaultMarkupPct.String(),
		Currency:         settings.Currency,
	}
	return newFormatter(opts.RootOptions, cmd).Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "Initialized %s (markup %s%%, currency %s)\n", result.Database, result.DefaultMarkupPct, result.Currency)
	})
}
