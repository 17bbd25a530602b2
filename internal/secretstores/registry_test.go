package secretstores

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/rotor/internal/config"
)

func TestRegistryUnknownType(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), config.SecretStoreConfig{Type: "vault9000"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault9000")
	assert.Contains(t, err.Error(), "aws-secrets-manager")
}

func TestRegistryKeychain(t *testing.T) {
	t.Parallel()

	p, err := New(context.Background(), config.SecretStoreConfig{Type: "keychain"})
	require.NoError(t, err)
	assert.Equal(t, "keychain", p.Name())
}

func TestRegistryAzureConfigError(t *testing.T) {
	t.Parallel()

	// A known type with broken config surfaces the constructor's error.
	_, err := New(context.Background(), config.SecretStoreConfig{Type: "azure-keyvault"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vault_url")
}

func TestSupportedTypesSorted(t *testing.T) {
	t.Parallel()

	types := SupportedTypes()
	require.NotEmpty(t, types)
	for i := 1; i < len(types); i++ {
		assert.Less(t, types[i-1], types[i])
	}
}
