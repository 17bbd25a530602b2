package conn_test

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/rotor/internal/conn"
	rotorerrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/store"
)

// fakeClient is a store.Client that accepts exactly one secret value and
// counts Open calls.
type fakeClient struct {
	mu           sync.Mutex
	acceptSecret string
	opens        int
	openDelay    time.Duration
}

func (f *fakeClient) Open(ctx context.Context, params store.Params) (store.Container, error) {
	f.mu.Lock()
	f.opens++
	accept := f.acceptSecret
	delay := f.openDelay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if params.Secret != accept {
		return nil, store.AuthError{Endpoint: params.Endpoint.Redacted(), Err: fmt.Errorf("bad password")}
	}
	return &fakeContainer{secret: params.Secret, database: params.DatabaseID}, nil
}

func (f *fakeClient) openCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

type fakeContainer struct {
	secret   string
	database string
}

func (f *fakeContainer) GetItem(ctx context.Context, id, partitionKey string) (store.Item, error) {
	return store.Item{ID: id, PartitionKey: partitionKey}, nil
}

func (f *fakeContainer) QueryItems(ctx context.Context, query string, args ...interface{}) ([]store.Item, error) {
	return nil, nil
}

func (f *fakeContainer) Close() error { return nil }

func testConfig(t *testing.T, secret string) conn.Config {
	t.Helper()
	endpoint, err := url.Parse("postgres://app@db.example.com:5432")
	require.NoError(t, err)
	return conn.Config{
		Endpoint:     endpoint,
		Secret:       secret,
		DatabaseID:   "moviesdb",
		CollectionID: "movies",
	}
}

func newManager(t *testing.T, client *fakeClient, secret string) *conn.Manager {
	t.Helper()
	m, err := conn.NewManager(context.Background(), testConfig(t, secret), client, logging.New(false, true))
	require.NoError(t, err)
	return m
}

func TestStartupWithInvalidSecretIsFatal(t *testing.T) {
	t.Parallel()

	client := &fakeClient{acceptSecret: "right"}
	_, err := conn.NewManager(context.Background(), testConfig(t, "wrong"), client, logging.New(false, true))
	require.Error(t, err)
	assert.True(t, rotorerrors.IsFatalStartup(err), "expected FatalStartupError, got %v", err)
}

func TestStartupWithIncompleteConfigIsFatal(t *testing.T) {
	t.Parallel()

	client := &fakeClient{acceptSecret: "s1"}
	cfg := testConfig(t, "s1")
	cfg.CollectionID = ""

	_, err := conn.NewManager(context.Background(), cfg, client, logging.New(false, true))
	require.Error(t, err)
	assert.True(t, rotorerrors.IsFatalStartup(err))
	// No point opening a connection for a config that cannot be valid.
	assert.Equal(t, 0, client.openCount())
}

func TestReconnectNoOpForEqualConfig(t *testing.T) {
	t.Parallel()

	client := &fakeClient{acceptSecret: "s1"}
	m := newManager(t, client, "s1")
	require.Equal(t, 1, client.openCount())

	client.mu.Lock()
	client.acceptSecret = "s2"
	client.mu.Unlock()

	// First call with the new secret validates and swaps.
	rotated, err := m.Reconnect(context.Background(), testConfig(t, "s2"), false)
	require.NoError(t, err)
	assert.True(t, rotated)
	assert.Equal(t, 2, client.openCount())

	// Second identical call is the no-op path: zero external calls.
	rotated, err = m.Reconnect(context.Background(), testConfig(t, "s2"), false)
	require.NoError(t, err)
	assert.False(t, rotated)
	assert.Equal(t, 2, client.openCount())
}

func TestReconnectForceRevalidates(t *testing.T) {
	t.Parallel()

	client := &fakeClient{acceptSecret: "s1"}
	m := newManager(t, client, "s1")

	rotated, err := m.Reconnect(context.Background(), testConfig(t, "s1"), true)
	require.NoError(t, err)
	assert.False(t, rotated, "same secret must not count as a rotation")
	assert.Equal(t, 2, client.openCount())
}

func TestFailedReconnectPreservesCurrentState(t *testing.T) {
	t.Parallel()

	client := &fakeClient{acceptSecret: "s1"}
	m := newManager(t, client, "s1")
	before := m.Current()

	rotated, err := m.Reconnect(context.Background(), testConfig(t, "rejected"), false)
	require.Error(t, err)
	assert.True(t, rotorerrors.IsReconnect(err), "expected ReconnectError, got %v", err)
	assert.False(t, rotated)
	assert.Same(t, before, m.Current(), "previous state must remain published")
}

func TestRotatedFlagOnlyOnSecretTransition(t *testing.T) {
	t.Parallel()

	client := &fakeClient{acceptSecret: "s1"}
	m := newManager(t, client, "s1")

	// Endpoint change with same secret: reconnect happens but no rotation.
	cfg := testConfig(t, "s1")
	endpoint, err := url.Parse("postgres://app@replica.example.com:5432")
	require.NoError(t, err)
	cfg.Endpoint = endpoint

	rotated, err := m.Reconnect(context.Background(), cfg, false)
	require.NoError(t, err)
	assert.False(t, rotated)
}

// Readers racing a reconnect must observe either the whole old state or the
// whole new state, never a mix of fields.
func TestCurrentNeverObservesPartialState(t *testing.T) {
	t.Parallel()

	client := &fakeClient{acceptSecret: "s1"}
	m := newManager(t, client, "s1")

	var torn atomic.Bool
	stop := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				state := m.Current()
				container, ok := state.Container.(*fakeContainer)
				if !ok || state.Config.Secret != container.secret {
					torn.Store(true)
					return
				}
			}
		}()
	}

	for i := 0; i < 50; i++ {
		secret := fmt.Sprintf("s%d", i%2+1)
		client.mu.Lock()
		client.acceptSecret = secret
		client.mu.Unlock()
		_, err := m.Reconnect(context.Background(), testConfig(t, secret), true)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()

	assert.False(t, torn.Load(), "a reader observed a state with mixed fields")
}

func TestRefreshSkipsFetchWhenStateAlreadyReplaced(t *testing.T) {
	t.Parallel()

	client := &fakeClient{acceptSecret: "s1"}
	m := newManager(t, client, "s1")
	stale := m.Current()

	// Someone else rotates first.
	client.mu.Lock()
	client.acceptSecret = "s2"
	client.mu.Unlock()
	_, err := m.Reconnect(context.Background(), testConfig(t, "s2"), false)
	require.NoError(t, err)

	fetches := 0
	rotated, err := m.Refresh(context.Background(), stale, func(ctx context.Context, current conn.Config) (conn.Config, error) {
		fetches++
		return current, nil
	})
	require.NoError(t, err)
	assert.False(t, rotated)
	assert.Equal(t, 0, fetches, "a waiter behind a completed rotation must not re-fetch")
}

func TestRefreshFetchErrorLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	client := &fakeClient{acceptSecret: "s1"}
	m := newManager(t, client, "s1")
	before := m.Current()

	_, err := m.Refresh(context.Background(), before, func(ctx context.Context, current conn.Config) (conn.Config, error) {
		return conn.Config{}, fmt.Errorf("secret provider down")
	})
	require.Error(t, err)
	assert.Same(t, before, m.Current())
}
