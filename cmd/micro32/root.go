package main

import (
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "micro32",
	Short: "Micro32 CLI tool runs and inspects the modeled Micro32 board.",
	Long: `Micro32 CLI tool runs and inspects the modeled Micro32 board. ` +
		`The boot subcommand assembles a machine, runs the boot sequence, ` +
		`and reports the negotiated RAM region.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
