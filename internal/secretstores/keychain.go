package secretstores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zalando/go-keyring"

	rotorerrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/pkg/secretstore"
)

// KeychainProvider resolves secrets from the OS keychain (macOS Keychain,
// Linux Secret Service, Windows Credential Manager). Mostly useful for
// local development where the database password lives in the login keychain.
type KeychainProvider struct {
	name          string
	servicePrefix string
}

// NewKeychainProvider creates a keychain provider from configuration.
// Recognised keys: service_prefix.
func NewKeychainProvider(cfg map[string]interface{}) *KeychainProvider {
	p := &KeychainProvider{name: "keychain"}
	if prefix, ok := cfg["service_prefix"].(string); ok {
		p.servicePrefix = prefix
	}
	return p
}

// Name returns the provider name.
func (p *KeychainProvider) Name() string {
	return p.name
}

// Resolve retrieves a secret. The name uses the "service/account" form.
func (p *KeychainProvider) Resolve(ctx context.Context, name string) (secretstore.SecretValue, error) {
	service, account, err := splitKeychainName(name)
	if err != nil {
		return secretstore.SecretValue{}, err
	}
	if p.servicePrefix != "" {
		service = p.servicePrefix + service
	}

	value, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return secretstore.SecretValue{}, secretstore.NotFoundError{Provider: p.name, Name: name}
		}
		return secretstore.SecretValue{}, secretstore.TransientError{Provider: p.name, Err: err}
	}

	return secretstore.SecretValue{
		Value:     value,
		UpdatedAt: time.Time{}, // keychains do not expose modification times
		Metadata: map[string]string{
			"provider": p.name,
			"service":  service,
			"account":  account,
		},
	}, nil
}

// Validate is a no-op: the keychain needs no credentials of its own, and
// availability only shows up when a real lookup runs.
func (p *KeychainProvider) Validate(ctx context.Context) error {
	return nil
}

func splitKeychainName(name string) (service, account string, err error) {
	parts := strings.SplitN(name, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", rotorerrors.ConfigError{
			Field:      "secret.name",
			Value:      name,
			Message:    fmt.Sprintf("invalid keychain reference %q", name),
			Suggestion: "Use the form service/account, e.g. rotor/db-password",
		}
	}
	return parts[0], parts[1], nil
}
