package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lungscan",
	Short: "Backend API server for the lung-scan analysis service",
	Long: `Backend API server for the lung-scan analysis service.

It authenticates users, relays CT-scan uploads to the external
inference service, and persists prediction records and doctor reports.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
