// Package commands implements the rotor CLI subcommands.
package commands

import (
	"context"
	"fmt"

	"github.com/systmms/rotor/internal/config"
	"github.com/systmms/rotor/internal/conn"
	"github.com/systmms/rotor/internal/secretstores"
	"github.com/systmms/rotor/internal/sqlstore"
	"github.com/systmms/rotor/pkg/secretstore"
)

// buildProvider creates the configured secret provider, or nil when the
// configuration carries an inline secret only.
func buildProvider(ctx context.Context, cfg *config.Config) (secretstore.Provider, error) {
	storeCfg := cfg.Definition.Secret.Store
	if storeCfg == nil {
		return nil, nil
	}

	provider, err := secretstores.New(ctx, *storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret provider: %w", err)
	}
	return provider, nil
}

// policyProvider picks the secret provider the recovery policy fetches from.
// With an inline secret the literal provider stands in, so re-reading the
// sealed value behaves like any other store lookup.
func policyProvider(cfg *config.Config, provider secretstore.Provider) (secretstore.Provider, string, error) {
	if provider != nil {
		return provider, cfg.Definition.Secret.Name, nil
	}

	value, ok, err := cfg.Definition.Secret.InlineSecret()
	if err != nil {
		return nil, "", err
	}
	if !ok {
		return nil, "", fmt.Errorf("no secret source configured")
	}

	name := cfg.Definition.Secret.Name
	if name == "" {
		name = "inline"
	}
	return secretstores.NewLiteralProvider(map[string]string{name: value}), name, nil
}

// connect loads the desired configuration and opens the initial connection.
func connect(ctx context.Context, cfg *config.Config, source *config.Source) (*conn.Manager, error) {
	connCfg, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}

	client := sqlstore.NewClient(cfg.Logger,
		sqlstore.WithRequestTimeout(cfg.Definition.Store.RequestTimeout()))

	return conn.NewManager(ctx, connCfg, client, cfg.Logger)
}
