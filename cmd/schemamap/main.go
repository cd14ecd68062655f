// Package main provides the schemamap command: the mapping API server and a
// plan checker.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "schemamap",
		Short: "Reshape tabular data with declarative mapping plans",
		Long: `schemamap renames, combines, relocates and deletes table columns
according to named plans, and serves the engine over HTTP.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCmd(), newCheckCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
