// Package secretstore defines the interface and types for secret providers.
//
// A secret provider is the external system that holds the rotating credential
// the store connection authenticates with: AWS Secrets Manager, Azure Key
// Vault, Google Secret Manager, Akeyless, the OS keychain, and so on. All
// provider implementations must implement the Provider interface so the
// rotation machinery can fetch the current secret value without knowing
// which backend holds it.
//
// # Implementing a Provider
//
//	type MyProvider struct {
//	    client myClient
//	}
//
//	func (p *MyProvider) Name() string { return "my-provider" }
//
//	func (p *MyProvider) Resolve(ctx context.Context, name string) (secretstore.SecretValue, error) {
//	    value, err := p.client.Fetch(ctx, name)
//	    if err != nil {
//	        return secretstore.SecretValue{}, err
//	    }
//	    return secretstore.SecretValue{Value: value, UpdatedAt: time.Now()}, nil
//	}
//
// # Error Handling
//
// Providers should return the typed errors defined in this package so callers
// can distinguish failure classes:
//   - NotFoundError: the named secret does not exist
//   - AuthError: the caller is not allowed to read the secret
//   - TimeoutError: the backend did not answer within the request timeout
//   - TransientError: network noise; the operation may be retried later
//
// # Security Considerations
//
// Providers must never log secret values (use logging.Secret), must honor
// context cancellation, and must be safe for concurrent use: the reactive
// recovery path and the proactive poll loop may both resolve the same secret
// at any time.
package secretstore

import (
	"context"
	"errors"
	"time"
)

// Provider defines the interface all secret providers must implement.
//
// Implementations must be thread-safe as multiple goroutines may call these
// methods concurrently.
type Provider interface {
	// Name returns the provider's stable, lowercase identifier, matching the
	// type used in configuration files. Examples: "aws-secrets-manager",
	// "azure-keyvault", "gcp-secret-manager", "literal".
	Name() string

	// Resolve fetches the current value of the named secret.
	//
	// Implementations should:
	//   - Support context cancellation and deadlines
	//   - Return NotFoundError for missing secrets
	//   - Return AuthError when access is denied
	//   - Return TimeoutError / TransientError for network failures
	//   - Never log the secret value
	Resolve(ctx context.Context, name string) (SecretValue, error)

	// Validate checks that the provider is configured and can reach its
	// backend with the credentials it was given. Called once at startup,
	// before the first Resolve.
	Validate(ctx context.Context) error
}

// SecretValue represents a retrieved secret with its metadata.
type SecretValue struct {
	// Value is the actual secret data. Never log this field.
	Value string

	// Version identifies the specific version of this secret.
	// Format is provider-specific. May be empty if versioning not supported.
	Version string

	// UpdatedAt indicates when this secret was last modified.
	// May be zero time if the provider doesn't support timestamps.
	UpdatedAt time.Time

	// Metadata contains provider-specific information about the secret.
	Metadata map[string]string
}

// NotFoundError indicates that a requested secret does not exist.
type NotFoundError struct {
	// Provider is the name of the provider where the secret was not found.
	Provider string

	// Name is the secret identifier that could not be found.
	Name string
}

func (e NotFoundError) Error() string {
	return "secret not found: " + e.Name + " in " + e.Provider
}

// AuthError indicates that authentication to the provider failed or the
// caller is not permitted to read the secret.
type AuthError struct {
	// Provider is the name of the provider that failed authentication.
	Provider string

	// Message provides details about the authentication failure.
	Message string
}

func (e AuthError) Error() string {
	return "authentication failed for " + e.Provider + ": " + e.Message
}

// TimeoutError indicates the provider did not answer within the request
// timeout.
type TimeoutError struct {
	Provider string
	Err      error
}

func (e TimeoutError) Error() string {
	msg := "timeout talking to " + e.Provider
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e TimeoutError) Unwrap() error { return e.Err }

// TransientError indicates network or backend noise. The operation was
// abandoned for this call but may succeed if retried later.
type TransientError struct {
	Provider string
	Err      error
}

func (e TransientError) Error() string {
	msg := "transient failure talking to " + e.Provider
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e TransientError) Unwrap() error { return e.Err }

// IsNotFound reports whether err indicates a missing secret.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsAuth reports whether err indicates denied access to the provider.
func IsAuth(err error) bool {
	var ae AuthError
	return errors.As(err, &ae)
}

// IsTimeout reports whether err indicates a provider timeout.
func IsTimeout(err error) bool {
	var te TimeoutError
	return errors.As(err, &te)
}

// IsTransient reports whether err indicates retryable provider noise.
// Timeouts count as transient.
func IsTransient(err error) bool {
	if IsTimeout(err) {
		return true
	}
	var tr TransientError
	return errors.As(err, &tr)
}
