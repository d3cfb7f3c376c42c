// Package cmd provides the command-line interface for nucleosim.
package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nucleosim",
	Short: "Nucleosim simulates nucleosome modification dynamics.",
	Long: `Nucleosim simulates the stochastic dynamics of nucleosome ` +
		`modification states on a chromatin region with recruitment ` +
		`feedback. It runs single trials (run), feedback sweeps (sweep), ` +
		`and macrostate lifetime measurements (lifetime).`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		// Optional .env file supplies defaults such as
		// NUCLEOSIM_OUTPUT and NUCLEOSIM_MONITOR_PORT.
		_ = godotenv.Load()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
