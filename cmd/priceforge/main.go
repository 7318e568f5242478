// Command priceforge computes product prices from multi-level bills of
// materials and records every calculation as a replayable run.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/priceforge/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
