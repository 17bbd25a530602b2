package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/rotor/internal/config"
	"github.com/systmms/rotor/internal/conn"
	"github.com/systmms/rotor/internal/rotation"
	"github.com/systmms/rotor/internal/rotation/health"
)

// NewRunCommand creates the long-running daemon command.
func NewRunCommand(cfg *config.Config) *cobra.Command {
	var (
		metricsEnabled bool
		metricsPort    int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Connect to the store and keep the connection valid",
		Long: `Open the store connection, then watch for credential rotation: poll the
configuration source on a timer and reconnect whenever the secret or the
connection parameters change. The current connection keeps serving until
its replacement is proven healthy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Wipes every enclave on exit, including the sealed inline secret.
			defer memguard.Purge()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if err := cfg.Load(); err != nil {
				return err
			}

			provider, err := buildProvider(ctx, cfg)
			if err != nil {
				return err
			}
			if provider != nil {
				if err := provider.Validate(ctx); err != nil {
					return err
				}
				cfg.Logger.Info("secret provider %s validated", provider.Name())
			}

			source := config.NewSource(cfg.Path, provider, cfg.Logger)
			manager, err := connect(ctx, cfg, source)
			if err != nil {
				return err
			}
			state := manager.Current()
			cfg.Logger.Info("connected to %s/%s", state.Config.DatabaseID, state.Config.CollectionID)

			rotation.InitMetrics()

			scheduler := rotation.NewScheduler(manager, source, rotation.SchedulerConfig{
				Interval:    cfg.Definition.Rotation.Interval(),
				TickTimeout: cfg.Definition.Store.RequestTimeout(),
			}, cfg.Logger)
			scheduler.Start(ctx)
			defer scheduler.Stop()

			serverCfg := health.DefaultServerConfig()
			serverCfg.Enabled = metricsEnabled
			serverCfg.Port = metricsPort
			server := health.NewServer(serverCfg, managerStatus(manager))
			if err := server.Start(); err != nil {
				return err
			}
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				_ = server.Stop(shutdownCtx)
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			select {
			case sig := <-sigCh:
				cfg.Logger.Info("received %s, shutting down", sig)
			case <-ctx.Done():
			}

			if container := manager.Current().Container; container != nil {
				_ = container.Close()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&metricsEnabled, "metrics", false, "Serve Prometheus metrics and /health")
	cmd.Flags().IntVar(&metricsPort, "metrics-port", 9090, "Metrics server port")

	return cmd
}

func managerStatus(manager *conn.Manager) health.StatusFunc {
	return func() health.Status {
		state := manager.Current()
		return health.Status{
			Endpoint:       state.Config.Endpoint.Redacted(),
			Database:       state.Config.DatabaseID,
			Collection:     state.Config.CollectionID,
			ConnectedSince: state.CreatedAt,
		}
	}
}
