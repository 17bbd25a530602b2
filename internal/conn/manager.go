// Package conn owns the single current, validated store connection.
//
// The manager publishes an immutable State through an atomic pointer: readers
// get whole snapshots without locking, and the only writer path (Reconnect)
// is serialized by a manager-scoped mutex shared between the reactive
// recovery path and the proactive poll loop. A candidate connection is opened
// and canary-read off to the side; it becomes current only after validation
// succeeds, so a reader never observes a half-built or invalid state.
package conn

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	rotorerrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/store"
)

// State is an immutable snapshot of an opened, validated connection. It is
// replaced wholesale on reconnect, never mutated in place; in-flight readers
// holding a superseded State are unaffected by the swap.
type State struct {
	Config    Config
	Container store.Container
	CreatedAt time.Time
}

// Manager is the single source of truth for the current connection.
type Manager struct {
	client store.Client
	logger *logging.Logger

	// mu serializes Reconnect across both trigger paths. Holding it is the
	// transient "reconnecting" sub-state; it always returns to connected.
	mu    sync.Mutex
	state atomic.Pointer[State]
}

// NewManager validates the initial configuration by opening the store client
// (which performs the canary read) and returns a manager holding that state.
// A failed first connect is fatal: the process cannot proceed.
func NewManager(ctx context.Context, cfg Config, client store.Client, logger *logging.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, rotorerrors.FatalStartupError{Endpoint: endpointString(cfg.Endpoint), Err: err}
	}

	container, err := client.Open(ctx, store.Params{
		Endpoint:     cfg.Endpoint,
		Secret:       cfg.Secret,
		DatabaseID:   cfg.DatabaseID,
		CollectionID: cfg.CollectionID,
	})
	if err != nil {
		return nil, rotorerrors.FatalStartupError{Endpoint: endpointString(cfg.Endpoint), Err: err}
	}

	m := &Manager{
		client: client,
		logger: logger.Named("conn"),
	}
	m.state.Store(&State{Config: cfg, Container: container, CreatedAt: time.Now()})
	m.logger.Info("connected to %s/%s", cfg.DatabaseID, cfg.CollectionID)
	return m, nil
}

// Current returns the presently-published state. It never blocks, and never
// returns a partially-built state: publication is a single pointer swap.
func (m *Manager) Current() *State {
	return m.state.Load()
}

// Reconnect validates newCfg and atomically publishes it as current.
//
// When force is false and newCfg equals the current config, Reconnect is a
// no-op: no external calls are made. Otherwise a brand-new connection is
// opened and canary-read; on failure the current state is left untouched and
// a ReconnectError is returned. Reconnect is serialized with respect to any
// other concurrent Reconnect.
//
// The returned rotated flag is true only when a state was published whose
// secret differs from the previous one; it backs the credential-rotated
// signal and can never fire on the no-op path.
func (m *Manager) Reconnect(ctx context.Context, newCfg Config, force bool) (rotated bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnectLocked(ctx, newCfg, force)
}

// Refresh runs fetch-then-reconnect under the reconnect guard, coalescing
// concurrent recoveries: if the published state is no longer the one the
// caller observed failing, someone else already rotated while this caller
// waited for the guard, and both the fetch and the reconnect are skipped.
func (m *Manager) Refresh(ctx context.Context, observed *State, fetch func(ctx context.Context, current Config) (Config, error)) (rotated bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state.Load() != observed {
		m.logger.Debug("state already refreshed by a concurrent recovery, skipping fetch")
		return false, nil
	}

	candidate, err := fetch(ctx, m.state.Load().Config)
	if err != nil {
		return false, err
	}
	return m.reconnectLocked(ctx, candidate, false)
}

func (m *Manager) reconnectLocked(ctx context.Context, newCfg Config, force bool) (bool, error) {
	current := m.state.Load()

	if !force && newCfg.Equal(current.Config) {
		return false, nil
	}

	if err := newCfg.Validate(); err != nil {
		return false, rotorerrors.ReconnectError{Endpoint: endpointString(newCfg.Endpoint), Err: err}
	}

	// Build the candidate fully off to the side; the published state is not
	// touched until validation succeeds.
	container, err := m.client.Open(ctx, store.Params{
		Endpoint:     newCfg.Endpoint,
		Secret:       newCfg.Secret,
		DatabaseID:   newCfg.DatabaseID,
		CollectionID: newCfg.CollectionID,
	})
	if err != nil {
		m.logger.Warn("candidate connection rejected, keeping current state: %v", err)
		return false, rotorerrors.ReconnectError{Endpoint: endpointString(newCfg.Endpoint), Err: err}
	}

	rotated := newCfg.Secret != current.Config.Secret
	m.state.Store(&State{Config: newCfg, Container: container, CreatedAt: time.Now()})

	// The superseded container is dropped, not closed: in-flight operations
	// that captured it must complete unaffected by the swap.
	if rotated {
		m.logger.Info("published connection with rotated credential")
	} else {
		m.logger.Info("published reconnected state")
	}
	return rotated, nil
}
