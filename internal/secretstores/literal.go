package secretstores

import (
	"context"
	"time"

	"github.com/systmms/rotor/internal/secure"
	"github.com/systmms/rotor/pkg/secretstore"
)

// LiteralProvider serves values configured inline. The values are kept in
// protected memory, not as plain strings on the heap.
type LiteralProvider struct {
	name   string
	values map[string]*secure.Credential
}

// NewLiteralProvider creates a literal provider. The input map values are
// sealed immediately; the caller should drop its references.
func NewLiteralProvider(values map[string]string) *LiteralProvider {
	sealed := make(map[string]*secure.Credential, len(values))
	for name, value := range values {
		sealed[name] = secure.NewCredentialFromString(value)
	}
	return &LiteralProvider{
		name:   "literal",
		values: sealed,
	}
}

// Name returns the provider name.
func (l *LiteralProvider) Name() string {
	return l.name
}

// Resolve returns the configured value for name.
func (l *LiteralProvider) Resolve(ctx context.Context, name string) (secretstore.SecretValue, error) {
	cred, ok := l.values[name]
	if !ok {
		return secretstore.SecretValue{}, secretstore.NotFoundError{Provider: l.name, Name: name}
	}

	value, err := cred.Reveal()
	if err != nil {
		return secretstore.SecretValue{}, secretstore.TransientError{Provider: l.name, Err: err}
	}

	return secretstore.SecretValue{
		Value:     value,
		Version:   "1",
		UpdatedAt: time.Now(),
		Metadata: map[string]string{
			"provider": l.name,
		},
	}, nil
}

// Validate always succeeds.
func (l *LiteralProvider) Validate(ctx context.Context) error {
	return nil
}

// Set replaces the value for name, sealing it. Used by tests to simulate a
// rotation.
func (l *LiteralProvider) Set(name, value string) {
	if old, ok := l.values[name]; ok {
		old.Destroy()
	}
	l.values[name] = secure.NewCredentialFromString(value)
}
