package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "roaster",
		Short: "Roaster - repository security scanner with a sense of humor",
		Long: `Roaster clones a GitHub repository, runs secret, static-analysis and
dependency scanners over it, scores the result from 1 to 10 and explains
the findings as a roast with suggested fixes. Clones are always deleted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd(), newScanCmd(), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
