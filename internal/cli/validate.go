package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/priceforge/internal/catalog"
)

// ValidateResult is the JSON payload of validate.
type ValidateResult struct {
	Catalog    string `json:"catalog"`
	Valid      bool   `json:"valid"`
	Materials  int    `json:"materials"`
	Operations int    `json:"operations"`
	Products   int    `json:"products"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog>",
		Short: "Check a CUE catalog without importing it",
		Long: `Compile a CUE catalog and report every error with its position.
Nothing is written; no database is needed.

Exit codes:
  0 - Catalog is valid
  1 - Catalog has errors
  2 - Command error (file not found)

Examples:
  priceforge validate ./catalog.cue`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	cat, err := catalog.LoadFile(path)
	if err != nil {
		return reportCatalogErrors(out, path, err)
	}

	result := ValidateResult{
		Catalog:    path,
		Valid:      true,
		Materials:  len(cat.Materials),
		Operations: len(cat.Operations),
		Products:   len(cat.Products),
	}
	return out.Success(result, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s: %d materials, %d operations, %d products\n",
			path, result.Materials, result.Operations, result.Products)
	})
}
