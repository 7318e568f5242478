package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/priceforge/internal/domain"
)

// NewRunsCommand creates the runs command group.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded price runs",
	}
	cmd.AddCommand(newRunsListCommand(rootOpts))
	cmd.AddCommand(newRunsShowCommand(rootOpts))
	cmd.AddCommand(newRunsValidateCommand(rootOpts))
	return cmd
}

func newRunsListCommand(opts *RootOptions) *cobra.Command {
	var sku string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs in the order they were recorded",
		Example: `  priceforge runs list
  priceforge runs list --sku P001 --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(cmd.Context(), sku)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to list runs", err)
			}
			return newFormatter(opts, cmd).Success(runs, func(w io.Writer) {
				if len(runs) == 0 {
					fmt.Fprintln(w, "No runs found.")
					return
				}
				printRunList(w, runs)
			})
		},
	}
	cmd.Flags().StringVar(&sku, "sku", "", "only runs of this product")
	return cmd
}

func printRunList(w io.Writer, runs []domain.Run) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSKU\tAS OF\tQTY\tPRICE\tVALIDATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s %s\t%t\n",
			r.ID, r.ProductSKU, r.AsOf, r.RequestedQty, r.Price.StringFixed(4), r.Currency, r.Validated)
	}
	tw.Flush()
}

func newRunsShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run with its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			run, err := st.ReadRun(cmd.Context(), args[0])
			if err != nil {
				return runLookupError(newFormatter(opts, cmd), args[0], err)
			}
			return newFormatter(opts, cmd).Success(run, func(w io.Writer) { printRun(w, run) })
		},
	}
}

func newRunsValidateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <run-id>",
		Short: "Mark a run as validated",
		Long: `Mark a run as validated. The flag is the only mutable field of a
run and is not part of its snapshot, so the snapshot hash is unchanged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			out := newFormatter(opts, cmd)
			run, err := opts.newService(st).Validate(cmd.Context(), args[0])
			if err != nil {
				return runLookupError(out, args[0], err)
			}
			return out.Success(run, func(w io.Writer) {
				fmt.Fprintf(w, "✓ run %s validated\n", run.ID)
			})
		},
	}
}
