package secretstores

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	akeyless "github.com/akeylesslabs/akeyless-go/v3"

	rotorerrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/pkg/secretstore"
)

// AkeylessClient is the slice of the Akeyless SDK this provider uses.
type AkeylessClient interface {
	Authenticate(ctx context.Context) (token string, ttl time.Duration, err error)
	GetSecret(ctx context.Context, token, path string) (string, error)
}

// AkeylessProvider resolves secrets from an Akeyless gateway. Tokens are
// cached in memory per process, never on disk.
type AkeylessProvider struct {
	name   string
	client AkeylessClient
	tokens *tokenCache
}

// NewAkeylessProvider creates a provider from configuration.
// Recognised keys: gateway_url, access_id, access_key.
func NewAkeylessProvider(cfg map[string]interface{}) (*AkeylessProvider, error) {
	gatewayURL, _ := cfg["gateway_url"].(string)
	if gatewayURL == "" {
		gatewayURL = "https://api.akeyless.io"
	}
	accessID, _ := cfg["access_id"].(string)
	accessKey, _ := cfg["access_key"].(string)
	if accessID == "" {
		return nil, rotorerrors.ConfigError{
			Field:      "access_id",
			Message:    "access_id is required for Akeyless",
			Suggestion: "Provide the access_id of an API-key auth method",
		}
	}

	return NewAkeylessProviderWithClient(&akeylessSDKClient{
		api:       akeyless.NewAPIClient(gatewayConfiguration(gatewayURL)),
		accessID:  accessID,
		accessKey: accessKey,
	}), nil
}

// NewAkeylessProviderWithClient creates a provider around a custom client,
// primarily for testing.
func NewAkeylessProviderWithClient(client AkeylessClient) *AkeylessProvider {
	return &AkeylessProvider{
		name:   "akeyless",
		client: client,
		tokens: &tokenCache{},
	}
}

// Name returns the provider name.
func (p *AkeylessProvider) Name() string {
	return p.name
}

// Resolve fetches the secret at the given path.
func (p *AkeylessProvider) Resolve(ctx context.Context, name string) (secretstore.SecretValue, error) {
	token, err := p.token(ctx)
	if err != nil {
		return secretstore.SecretValue{}, err
	}

	value, err := p.client.GetSecret(ctx, token, name)
	if err != nil {
		return secretstore.SecretValue{}, p.classify(err, name)
	}

	return secretstore.SecretValue{
		Value:     value,
		Version:   "latest",
		UpdatedAt: time.Now(),
		Metadata: map[string]string{
			"provider": p.name,
			"path":     name,
		},
	}, nil
}

// Validate authenticates against the gateway and caches the token.
func (p *AkeylessProvider) Validate(ctx context.Context) error {
	_, err := p.token(ctx)
	return err
}

func (p *AkeylessProvider) token(ctx context.Context) (string, error) {
	if token, ok := p.tokens.get(); ok {
		return token, nil
	}

	token, ttl, err := p.client.Authenticate(ctx)
	if err != nil {
		return "", secretstore.AuthError{
			Provider: p.name,
			Message:  fmt.Sprintf("Akeyless authentication failed: %v", err),
		}
	}
	p.tokens.set(token, ttl)
	return token, nil
}

func (p *AkeylessProvider) classify(err error, name string) error {
	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "not found") || strings.Contains(errStr, "404"):
		return secretstore.NotFoundError{Provider: p.name, Name: name}
	case strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "403") || strings.Contains(errStr, "401"):
		// Drop the cached token so the next attempt re-authenticates.
		p.tokens.clear()
		return secretstore.AuthError{
			Provider: p.name,
			Message:  fmt.Sprintf("Akeyless access denied: %v", err),
		}
	case strings.Contains(errStr, "deadline exceeded"):
		return secretstore.TimeoutError{Provider: p.name, Err: err}
	default:
		return secretstore.TransientError{Provider: p.name, Err: err}
	}
}

// tokenCache stores the gateway token in memory with its expiry. A small
// buffer is shaved off the TTL so the token is refreshed before it lapses
// server-side.
type tokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

func (c *tokenCache) get() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" || time.Now().After(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

func (c *tokenCache) set(token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buffer := 5 * time.Second
	if ttl > buffer {
		ttl -= buffer
	}
	c.token = token
	c.expiresAt = time.Now().Add(ttl)
}

func (c *tokenCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// akeylessSDKClient implements AkeylessClient with the official SDK.
type akeylessSDKClient struct {
	api       *akeyless.APIClient
	accessID  string
	accessKey string
}

func gatewayConfiguration(gatewayURL string) *akeyless.Configuration {
	configuration := akeyless.NewConfiguration()
	configuration.Servers = []akeyless.ServerConfiguration{
		{URL: gatewayURL},
	}
	return configuration
}

func (c *akeylessSDKClient) Authenticate(ctx context.Context) (string, time.Duration, error) {
	authBody := akeyless.NewAuthWithDefaults()
	authBody.SetAccessId(c.accessID)
	authBody.SetAccessKey(c.accessKey)

	authRes, _, err := c.api.V2Api.Auth(ctx).Body(*authBody).Execute()
	if err != nil {
		return "", 0, err
	}

	// Gateway tokens last about 30 minutes; refresh a little early.
	return authRes.GetToken(), 25 * time.Minute, nil
}

func (c *akeylessSDKClient) GetSecret(ctx context.Context, token, path string) (string, error) {
	body := akeyless.NewGetSecretValue([]string{path})
	body.SetToken(token)

	res, _, err := c.api.V2Api.GetSecretValue(ctx).Body(*body).Execute()
	if err != nil {
		return "", err
	}

	value, ok := res[path]
	if !ok {
		return "", fmt.Errorf("secret %q not found in response", path)
	}
	return value, nil
}
