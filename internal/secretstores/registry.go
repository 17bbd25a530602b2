package secretstores

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/systmms/rotor/internal/config"
	"github.com/systmms/rotor/pkg/secretstore"
)

// supportedTypes maps each configurable store type to its constructor.
var supportedTypes = map[string]func(ctx context.Context, cfg map[string]interface{}) (secretstore.Provider, error){
	"aws-secrets-manager": func(ctx context.Context, cfg map[string]interface{}) (secretstore.Provider, error) {
		return NewAWSSecretsManagerProvider(cfg)
	},
	"aws-ssm": func(ctx context.Context, cfg map[string]interface{}) (secretstore.Provider, error) {
		return NewAWSSSMProvider(cfg)
	},
	"azure-keyvault": func(ctx context.Context, cfg map[string]interface{}) (secretstore.Provider, error) {
		return NewAzureKeyVaultProvider(cfg)
	},
	"gcp-secret-manager": func(ctx context.Context, cfg map[string]interface{}) (secretstore.Provider, error) {
		return NewGCPSecretManagerProvider(ctx, cfg)
	},
	"akeyless": func(ctx context.Context, cfg map[string]interface{}) (secretstore.Provider, error) {
		return NewAkeylessProvider(cfg)
	},
	"keychain": func(ctx context.Context, cfg map[string]interface{}) (secretstore.Provider, error) {
		return NewKeychainProvider(cfg), nil
	},
}

// New creates the secret provider named by the configuration's store type.
func New(ctx context.Context, cfg config.SecretStoreConfig) (secretstore.Provider, error) {
	construct, ok := supportedTypes[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unknown secret store type %q (supported: %s)",
			cfg.Type, strings.Join(SupportedTypes(), ", "))
	}
	return construct(ctx, cfg.Config)
}

// SupportedTypes lists the configurable store types, sorted.
func SupportedTypes() []string {
	types := make([]string, 0, len(supportedTypes))
	for storeType := range supportedTypes {
		types = append(types, storeType)
	}
	sort.Strings(types)
	return types
}
