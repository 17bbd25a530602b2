package config

import (
	"context"
	"fmt"
	"time"

	"github.com/systmms/rotor/internal/conn"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/secretstore"
)

// Source yields the current desired connection configuration by re-reading
// rotor.yaml and resolving the secret on every call. Re-reading means an
// edited endpoint or a rotated inline literal is picked up on the next poll
// without a restart.
type Source struct {
	path     string
	provider secretstore.Provider
	logger   *logging.Logger
}

// NewSource creates a configuration source. The provider may be nil when
// the configuration carries an inline secret value.
func NewSource(path string, provider secretstore.Provider, logger *logging.Logger) *Source {
	return &Source{
		path:     path,
		provider: provider,
		logger:   logger.Named("config"),
	}
}

// Load implements rotation.Source.
func (s *Source) Load(ctx context.Context) (conn.Config, error) {
	cfg := &Config{Path: s.path, Logger: s.logger}
	if err := cfg.Load(); err != nil {
		return conn.Config{}, err
	}

	endpoint, err := cfg.Endpoint()
	if err != nil {
		return conn.Config{}, err
	}

	secret, err := s.resolveSecret(ctx, cfg)
	if err != nil {
		return conn.Config{}, err
	}

	return conn.Config{
		Endpoint:     endpoint,
		Secret:       secret,
		DatabaseID:   cfg.Definition.Store.Database,
		CollectionID: cfg.Definition.Store.Collection,
	}, nil
}

func (s *Source) resolveSecret(ctx context.Context, cfg *Config) (string, error) {
	if inline, ok, err := cfg.Definition.Secret.InlineSecret(); err != nil {
		return "", err
	} else if ok {
		return inline, nil
	}

	if s.provider == nil {
		return "", fmt.Errorf("secret %q requires a secret store provider", cfg.Definition.Secret.Name)
	}

	timeout := 30 * time.Second
	if store := cfg.Definition.Secret.Store; store != nil {
		timeout = time.Duration(store.GetTimeout()) * time.Millisecond
	}
	resolveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	value, err := s.provider.Resolve(resolveCtx, cfg.Definition.Secret.Name)
	if err != nil {
		return "", err
	}
	return value.Value, nil
}
