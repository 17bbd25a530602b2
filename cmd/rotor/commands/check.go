package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/rotor/internal/config"
)

// NewCheckCommand creates the configuration and connectivity check command.
func NewCheckCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration, secret provider, and store connectivity",
		Long: `Load the configuration, authenticate against the secret provider, and
open a connection to the store. Exits non-zero at the first failure, with
a suggestion where one is known.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg.Logger.Info("checking rotor configuration...")
			if err := cfg.Load(); err != nil {
				return err
			}
			cfg.Logger.Info("✓ configuration loaded")

			provider, err := buildProvider(ctx, cfg)
			if err != nil {
				return err
			}
			if provider != nil {
				if err := provider.Validate(ctx); err != nil {
					return err
				}
				cfg.Logger.Info("✓ secret provider %s authenticated", provider.Name())
			}

			source := config.NewSource(cfg.Path, provider, cfg.Logger)
			manager, err := connect(ctx, cfg, source)
			if err != nil {
				return err
			}
			state := manager.Current()
			cfg.Logger.Info("✓ connected to %s (database %s, collection %s)",
				state.Config.Endpoint.Redacted(), state.Config.DatabaseID, state.Config.CollectionID)

			return state.Container.Close()
		},
	}
}
