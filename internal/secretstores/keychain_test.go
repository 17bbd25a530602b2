package secretstores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	rotorerrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/pkg/secretstore"
)

func TestKeychainResolve(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set("rotor", "db-password", "kc-password"))

	p := NewKeychainProvider(nil)

	got, err := p.Resolve(context.Background(), "rotor/db-password")
	require.NoError(t, err)
	assert.Equal(t, "kc-password", got.Value)
	assert.Equal(t, "rotor", got.Metadata["service"])
	assert.Equal(t, "db-password", got.Metadata["account"])
}

func TestKeychainResolveWithPrefix(t *testing.T) {
	keyring.MockInit()
	require.NoError(t, keyring.Set("acme-rotor", "db-password", "prefixed"))

	p := NewKeychainProvider(map[string]interface{}{"service_prefix": "acme-"})

	got, err := p.Resolve(context.Background(), "rotor/db-password")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", got.Value)
}

func TestKeychainResolveNotFound(t *testing.T) {
	keyring.MockInit()

	p := NewKeychainProvider(nil)

	_, err := p.Resolve(context.Background(), "rotor/absent")
	require.Error(t, err)
	assert.True(t, secretstore.IsNotFound(err))
}

func TestKeychainResolveBadReference(t *testing.T) {
	p := NewKeychainProvider(nil)

	for _, ref := range []string{"no-slash", "/leading", "trailing/", ""} {
		_, err := p.Resolve(context.Background(), ref)
		require.Error(t, err, "ref %q", ref)

		var cfgErr rotorerrors.ConfigError
		assert.ErrorAs(t, err, &cfgErr, "ref %q", ref)
	}
}
