package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/priceforge/internal/pricing"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	SKU string
}

// ReplaySummary holds the overall replay result.
type ReplaySummary struct {
	Runs     []pricing.ReplayResult `json:"runs"`
	Total    int                    `json:"total"`
	Matched  int                    `json:"matched"`
	AllMatch bool                   `json:"all_match"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay [run-id]",
		Short: "Recompute runs and verify their snapshot hashes",
		Long: `Recompute recorded runs from their inputs (product, quantity, as-of
date) against the current catalog and compare snapshot hashes. Nothing
is written.

A mismatch means the catalog changed in a way that affects a past
calculation, for example a back-dated cost entry.

Exit codes:
  0 - Every replayed run matches
  1 - At least one run drifted or no longer calculates
  2 - Command error (database not found, etc.)

Examples:
  priceforge replay
  priceforge replay 01927c4e-...
  priceforge replay --sku P001 --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runReplay(cmd.Context(), opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SKU, "sku", "", "replay runs of this product only")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, runID string, cmd *cobra.Command) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	out := newFormatter(opts.RootOptions, cmd)
	svc := opts.newService(st)

	var results []pricing.ReplayResult
	if runID != "" {
		res, err := svc.Replay(ctx, runID)
		if err != nil {
			return runLookupError(out, runID, err)
		}
		results = []pricing.ReplayResult{res}
	} else {
		results, err = svc.ReplayAll(ctx, opts.SKU)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to replay runs", err)
		}
	}

	summary := ReplaySummary{Runs: results, Total: len(results), AllMatch: true}
	for _, r := range results {
		if r.Match {
			summary.Matched++
		} else {
			summary.AllMatch = false
		}
	}

	if err := out.Success(summary, func(w io.Writer) { printReplay(w, summary) }); err != nil {
		return err
	}
	if !summary.AllMatch {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d run(s) drifted", summary.Total-summary.Matched, summary.Total))
	}
	return nil
}

func printReplay(w io.Writer, s ReplaySummary) {
	if s.Total == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}
	for _, r := range s.Runs {
		switch {
		case r.Match:
			fmt.Fprintf(w, "✓ %s %s@%s\n", r.RunID, r.SKU, r.AsOf)
		case r.Error != "":
			fmt.Fprintf(w, "✗ %s %s@%s\n  %s\n", r.RunID, r.SKU, r.AsOf, r.Error)
		default:
			fmt.Fprintf(w, "✗ %s %s@%s\n  stored:   %s\n  computed: %s\n", r.RunID, r.SKU, r.AsOf, r.StoredHash, r.ComputedHash)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Replay Summary: %d matched, %d drifted, %d total\n", s.Matched, s.Total-s.Matched, s.Total)
}
