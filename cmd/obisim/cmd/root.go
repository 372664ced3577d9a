// Package cmd implements the obisim command line.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "obisim",
	Short: "obisim simulates traffic on an OBI bus.",
	Long: `obisim connects a manager driver, a RAM subordinate and a passive
observer to one OBI bus and runs write/read-back traffic through them.
Settings can also be given as OBI_* variables or in a .env file.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
