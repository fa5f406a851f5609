package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mycelium",
		Short: "Mycelium - a generative growth animation",
		Long: `mycelium grows a population of filaments toward moving targets and draws
them as a slowly shifting network.

Every run is recorded with its seed and parameters so it can be replayed,
rendered headlessly, charted or served to a browser.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("data-dir", "", "Directory for run history and logs (default ~/.mycelium)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newSimulateCmd(),
		newServeCmd(),
		newMCPServerCmd(),
		newRunsCmd(),
		newConfigCmd(),
	)

	return rootCmd
}
