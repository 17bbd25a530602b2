package secretstores

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	rotorerrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/pkg/secretstore"
)

// KeyVaultAPI is the slice of the Azure Key Vault client this provider uses.
type KeyVaultAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// AzureKeyVaultProvider resolves secrets from Azure Key Vault.
type AzureKeyVaultProvider struct {
	name     string
	vaultURL string
	client   KeyVaultAPI
}

// AzureOption is a functional option for configuring the Azure provider.
type AzureOption func(*AzureKeyVaultProvider)

// WithKeyVaultClient sets a custom Key Vault client (for testing).
func WithKeyVaultClient(client KeyVaultAPI) AzureOption {
	return func(p *AzureKeyVaultProvider) {
		p.client = client
	}
}

// NewAzureKeyVaultProvider creates a provider from configuration.
// Recognised keys: vault_url (required), tenant_id, client_id,
// client_secret. When the service principal triple is absent the default
// Azure credential chain is used (managed identity, CLI, environment).
func NewAzureKeyVaultProvider(cfg map[string]interface{}, opts ...AzureOption) (*AzureKeyVaultProvider, error) {
	vaultURL, _ := cfg["vault_url"].(string)
	if vaultURL == "" {
		return nil, rotorerrors.ConfigError{
			Field:      "vault_url",
			Message:    "vault_url is required for Azure Key Vault",
			Suggestion: "Provide the Key Vault URL (e.g., https://my-vault.vault.azure.net/)",
		}
	}
	if _, err := url.Parse(vaultURL); err != nil {
		return nil, rotorerrors.ConfigError{
			Field:      "vault_url",
			Value:      vaultURL,
			Message:    "invalid vault_url format",
			Suggestion: "Use the form https://vault-name.vault.azure.net/",
		}
	}

	p := &AzureKeyVaultProvider{
		name:     "azure-keyvault",
		vaultURL: vaultURL,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		cred, err := azureCredential(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to build Azure credential: %w", err)
		}
		client, err := azsecrets.NewClient(vaultURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
		}
		p.client = client
	}

	return p, nil
}

func azureCredential(cfg map[string]interface{}) (azcore.TokenCredential, error) {
	tenantID, _ := cfg["tenant_id"].(string)
	clientID, _ := cfg["client_id"].(string)
	clientSecret, _ := cfg["client_secret"].(string)

	if tenantID != "" && clientID != "" && clientSecret != "" {
		return azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	}
	return azidentity.NewDefaultAzureCredential(nil)
}

// Name returns the provider name.
func (p *AzureKeyVaultProvider) Name() string {
	return p.name
}

// Resolve fetches the named secret. A "name/version" form pins a specific
// version; otherwise the latest is returned.
func (p *AzureKeyVaultProvider) Resolve(ctx context.Context, name string) (secretstore.SecretValue, error) {
	secretName, version := parseAzureName(name)

	resp, err := p.client.GetSecret(ctx, secretName, version, nil)
	if err != nil {
		return secretstore.SecretValue{}, p.classify(err, name)
	}
	if resp.Value == nil {
		return secretstore.SecretValue{}, secretstore.NotFoundError{Provider: p.name, Name: name}
	}

	resolvedVersion := version
	if resp.ID != nil {
		resolvedVersion = resp.ID.Version()
	}
	updatedAt := time.Now()
	if resp.Attributes != nil && resp.Attributes.Updated != nil {
		updatedAt = *resp.Attributes.Updated
	}

	return secretstore.SecretValue{
		Value:     *resp.Value,
		Version:   resolvedVersion,
		UpdatedAt: updatedAt,
		Metadata: map[string]string{
			"provider": p.name,
			"vault":    p.vaultURL,
		},
	}, nil
}

// Validate probes the vault with a well-known name. Any answer that got past
// authentication, including 404, proves the credential works.
func (p *AzureKeyVaultProvider) Validate(ctx context.Context) error {
	_, err := p.client.GetSecret(ctx, "rotor-healthcheck", "", nil)
	if err == nil {
		return nil
	}

	classified := p.classify(err, "rotor-healthcheck")
	if secretstore.IsNotFound(classified) {
		return nil
	}
	return classified
}

func (p *AzureKeyVaultProvider) classify(err error, name string) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case 401, 403:
			return secretstore.AuthError{
				Provider: p.name,
				Message:  fmt.Sprintf("Azure Key Vault access denied: %v", err),
			}
		case 404:
			return secretstore.NotFoundError{Provider: p.name, Name: name}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return secretstore.TimeoutError{Provider: p.name, Err: err}
	}
	return secretstore.TransientError{Provider: p.name, Err: err}
}

func parseAzureName(name string) (secretName, version string) {
	if idx := strings.Index(name, "/"); idx != -1 {
		return name[:idx], name[idx+1:]
	}
	return name, ""
}
