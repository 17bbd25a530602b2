// Package rotation recovers from rotated credentials, reactively and
// proactively.
//
// The Policy wraps request-path store operations: when an operation fails
// because the store rejected the credential, the policy fetches the current
// secret, reconnects, and retries the operation, bounded by a retry budget.
// The Scheduler polls the configuration source on a timer and reconnects
// when it sees the secret has changed out-of-band. Both paths funnel into
// the connection manager's serialized Reconnect, so only one recovery is in
// flight process-wide at any time.
package rotation

import (
	"context"
	"time"

	"github.com/systmms/rotor/internal/conn"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/secretstore"
	"github.com/systmms/rotor/pkg/store"
)

// Operation is a store operation executed against the current connection
// state. It is retried after recovery, so it must be safe to re-run.
type Operation func(ctx context.Context, state *conn.State) error

// PolicyConfig holds configuration for the reactive recovery policy.
type PolicyConfig struct {
	// SecretName is the name the rotating credential is stored under.
	SecretName string

	// MaxAttempts bounds recovery retries after an auth failure.
	// Default: 3
	MaxAttempts int
}

// Policy transparently recovers from stale-credential failures during
// request-path operations.
type Policy struct {
	manager *conn.Manager
	secrets secretstore.Provider
	config  PolicyConfig
	metrics *Metrics
	logger  *logging.Logger
}

// NewPolicy creates a reactive recovery policy around the manager.
func NewPolicy(manager *conn.Manager, secrets secretstore.Provider, config PolicyConfig, logger *logging.Logger) *Policy {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	return &Policy{
		manager: manager,
		secrets: secrets,
		config:  config,
		metrics: NewMetrics(),
		logger:  logger.Named("policy"),
	}
}

// Execute runs op against the current connection state. When the store
// rejects the credential, Execute fetches the current secret, reconnects and
// retries, up to MaxAttempts times. If the credential is still rejected after
// the budget is spent, the original auth error is surfaced unchanged: the
// process keeps serving with the state it has rather than crashing.
//
// Concurrent callers that all hit an auth failure at once coalesce: the
// first through the guard performs the one fetch and reconnect, the rest
// find the state already refreshed and go straight to their retry.
func (p *Policy) Execute(ctx context.Context, op Operation) error {
	state := p.manager.Current()
	err := op(ctx, state)
	if err == nil || !store.IsAuth(err) {
		return err
	}

	origErr := err
	start := time.Now()

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		p.logger.Warn("store rejected credential, recovery attempt %d/%d", attempt, p.config.MaxAttempts)

		if rerr := p.recover(ctx, state); rerr != nil {
			p.logger.Error("recovery attempt %d failed: %v", attempt, rerr)
			p.metrics.RecordReconnectAttempt("policy", "failure")
		}

		state = p.manager.Current()
		err = op(ctx, state)
		if err == nil {
			p.metrics.RecordRecoveryDuration(time.Since(start).Seconds())
			p.logger.Info("operation succeeded after credential recovery")
			return nil
		}
		if !store.IsAuth(err) {
			return err
		}
	}

	p.logger.Error("recovery budget exhausted after %d attempts, surfacing auth failure", p.config.MaxAttempts)
	return origErr
}

// recover performs fetch-secret + reconnect under the manager's guard. The
// observed state tells the manager what this caller saw failing; if the
// published state has already moved on, the whole recovery collapses to a
// no-op and the caller simply retries.
func (p *Policy) recover(ctx context.Context, observed *conn.State) error {
	rotated, err := p.manager.Refresh(ctx, observed, func(ctx context.Context, current conn.Config) (conn.Config, error) {
		value, err := p.secrets.Resolve(ctx, p.config.SecretName)
		if err != nil {
			return conn.Config{}, err
		}
		candidate := current
		candidate.Secret = value.Value
		return candidate, nil
	})
	if err != nil {
		return err
	}
	if rotated {
		p.metrics.RecordCredentialRotated()
		p.metrics.RecordReconnectAttempt("policy", "success")
		p.logger.Info("recovered with rotated credential")
	} else {
		p.metrics.RecordReconnectAttempt("policy", "noop")
	}
	return nil
}
