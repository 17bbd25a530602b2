package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/rotor/internal/config"
	"github.com/systmms/rotor/internal/conn"
	"github.com/systmms/rotor/internal/rotation"
	"github.com/systmms/rotor/pkg/store"
)

// NewGetCommand creates the single-item fetch command. It runs the read
// through the recovery policy, so a credential rotated since the connection
// was opened is handled transparently.
func NewGetCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "get <item-id>",
		Short: "Fetch one item from the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			itemID := args[0]

			partitionKey, err := conn.PartitionKey(itemID)
			if err != nil {
				return err
			}

			if err := cfg.Load(); err != nil {
				return err
			}
			provider, err := buildProvider(ctx, cfg)
			if err != nil {
				return err
			}

			source := config.NewSource(cfg.Path, provider, cfg.Logger)
			manager, err := connect(ctx, cfg, source)
			if err != nil {
				return err
			}
			defer func() {
				if container := manager.Current().Container; container != nil {
					_ = container.Close()
				}
			}()

			secrets, secretName, err := policyProvider(cfg, provider)
			if err != nil {
				return err
			}

			rotation.InitMetrics()
			policy := rotation.NewPolicy(manager, secrets, rotation.PolicyConfig{
				SecretName:  secretName,
				MaxAttempts: cfg.Definition.Rotation.MaxAttempts,
			}, cfg.Logger)

			var item store.Item
			err = policy.Execute(ctx, func(ctx context.Context, state *conn.State) error {
				var opErr error
				item, opErr = state.Container.GetItem(ctx, itemID, partitionKey)
				return opErr
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(item.Body))
			return nil
		},
	}
}
