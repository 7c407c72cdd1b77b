package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ovrld/boardhal/internal/app"
	"github.com/ovrld/boardhal/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "boardhal",
	Short: "USB gadget and power residency management",
	Long:  "Boardhal composes the board's USB gadget functions and serves power state residency counters",
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(
		app.NewGadgetCommand(),
		app.NewPowerCommand(),
		app.NewServiceCommand(),
		app.NewStatusCommand(),
	)
}

func main() {
	if err := config.InitConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
