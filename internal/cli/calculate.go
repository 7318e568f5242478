package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/priceforge/internal/domain"
	"github.com/roach88/priceforge/internal/pricing"
)

// CalculateOptions holds flags for the calculate command.
type CalculateOptions struct {
	*RootOptions
	Qty      string
	AsOf     string
	Validate bool
}

// NewCalculateCommand creates the calculate command.
func NewCalculateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CalculateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "calculate <sku>",
		Short: "Calculate a product price and record the run",
		Long: `Explode the product's BOM, price every leaf line as of the given
date, apply the markup and store the result as a price run.

Exit codes:
  0 - Run recorded
  1 - Calculation failed (missing cost, cyclic BOM, ...); nothing recorded
  2 - Command error (database errors, bad flags)

Examples:
  priceforge calculate P001
  priceforge calculate P001 --qty 3 --as-of 2024-06-01 --validate
  priceforge calculate P001 --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalculate(cmd.Context(), opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Qty, "qty", "", "requested quantity (default 1)")
	cmd.Flags().StringVar(&opts.AsOf, "as-of", "", "pricing date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&opts.Validate, "validate", false, "mark the run as validated")

	return cmd
}

func runCalculate(ctx context.Context, opts *CalculateOptions, sku string, cmd *cobra.Command) error {
	req := pricing.Request{SKU: sku, Validate: opts.Validate}
	if opts.Qty != "" {
		qty, err := domain.ParseDecimal("qty", opts.Qty)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --qty", err)
		}
		req.Quantity = &qty
	}
	if opts.AsOf != "" {
		asOf, err := domain.ParseDate(opts.AsOf)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --as-of", err)
		}
		req.AsOf = &asOf
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	out := newFormatter(opts.RootOptions, cmd)
	run, err := opts.newService(st).CalculateAndPersist(ctx, req)
	if err != nil {
		return out.reportCalcError(err, fmt.Sprintf("calculation for %s failed", sku))
	}
	return out.Success(run, func(w io.Writer) { printRun(w, run) })
}

// printRun renders a run with its lines.
func printRun(w io.Writer, run domain.Run) {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "  product:   %s (BOM v%d)\n", run.ProductSKU, run.BOMVersion)
	fmt.Fprintf(w, "  quantity:  %s\n", run.RequestedQty)
	fmt.Fprintf(w, "  as of:     %s\n", run.AsOf)
	fmt.Fprintf(w, "  validated: %t\n", run.Validated)

	if len(run.Items) > 0 {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "LINE\tKIND\tITEM\tQTY\tUNIT COST\tEXTENDED\tSOURCE\t")
		for _, it := range run.Items {
			desc := it.RefID
			if it.Description != nil {
				desc = *it.Description
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s %s\t%s\t%s\t\n",
				it.LineNo, it.Kind, desc, it.Quantity, it.UnitCost, it.Currency, it.ExtendedCost, it.Source)
		}
		tw.Flush()
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "  materials:  %s\n", run.TotalMaterial)
	fmt.Fprintf(w, "  operations: %s\n", run.TotalOperation)
	fmt.Fprintf(w, "  total cost: %s\n", run.TotalCost)
	fmt.Fprintf(w, "  markup:     %s%%\n", run.MarkupPct)
	fmt.Fprintf(w, "  price:      %s %s\n", run.Price.StringFixed(4), run.Currency)
	if run.MixedCurrency {
		fmt.Fprintln(w, "  warning:    lines use more than one currency; totals are not converted")
	}
	fmt.Fprintf(w, "  snapshot:   %s\n", run.SnapshotHash)
}
