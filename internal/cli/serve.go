package cli

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/priceforge/internal/api"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the pricing HTTP API",
		Long: `Serve the pricing HTTP API until SIGINT or SIGTERM, then drain
in-flight requests and exit.

Examples:
  priceforge serve
  priceforge serve --addr 127.0.0.1:9000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = rootOpts.Config.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $PRICEFORGE_ADDR or :8080)")

	return cmd
}

func runServe(ctx context.Context, opts *RootOptions, addr string) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	// Request and lifecycle logs are Info; other commands only show warnings.
	if opts.errW != nil {
		opts.logger = newLogger(opts.errW, opts.Config.LogFormat, logLevel(opts.Verbose, slog.LevelInfo))
	}
	logger := opts.Logger()
	router := api.NewRouter(opts.newService(st), st, logger)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}
	if err := api.Serve(ctx, ln, router, logger); err != nil {
		return WrapExitError(ExitCommandError, "server failed", err)
	}
	return nil
}
