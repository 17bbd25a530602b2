package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/rotor/cmd/rotor/commands"
	"github.com/systmms/rotor/internal/config"
	"github.com/systmms/rotor/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "rotor",
		Short: "Keep live store connections valid across credential rotation",
		Long: `rotor holds a connection to a document store whose credential rotates
out-of-band, detects the rotation, and swaps in a reconnected client
without dropping in-flight work.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "rotor.yaml", "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		commands.NewRunCommand(cfg),
		commands.NewCheckCommand(cfg),
		commands.NewGetCommand(cfg),
	)

	return rootCmd.Execute()
}
