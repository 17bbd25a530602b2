package secretstores

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	rotorerrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/pkg/secretstore"
)

// GCPSecretManagerProvider resolves secrets from Google Cloud Secret Manager.
type GCPSecretManagerProvider struct {
	name      string
	client    *secretmanager.Client
	projectID string
}

// NewGCPSecretManagerProvider creates a provider from configuration.
// Recognised keys: project_id (falls back to GOOGLE_CLOUD_PROJECT),
// service_account_key_path, impersonate_service_account.
func NewGCPSecretManagerProvider(ctx context.Context, cfg map[string]interface{}) (*GCPSecretManagerProvider, error) {
	projectID, _ := cfg["project_id"].(string)
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if projectID == "" {
		return nil, rotorerrors.ConfigError{
			Field:      "project_id",
			Message:    "project_id is required for GCP Secret Manager",
			Suggestion: "Set project_id in config or the GOOGLE_CLOUD_PROJECT environment variable",
		}
	}

	var clientOptions []option.ClientOption

	if keyPath, ok := cfg["service_account_key_path"].(string); ok && keyPath != "" {
		if strings.HasPrefix(keyPath, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to resolve home directory: %w", err)
			}
			keyPath = filepath.Join(home, keyPath[2:])
		}
		clientOptions = append(clientOptions, option.WithCredentialsFile(keyPath))
	}

	if principal, ok := cfg["impersonate_service_account"].(string); ok && principal != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: principal,
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create impersonated credentials: %w", err)
		}
		clientOptions = append(clientOptions, option.WithTokenSource(ts))
	}

	client, err := secretmanager.NewClient(ctx, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Secret Manager client: %w", err)
	}

	return &GCPSecretManagerProvider{
		name:      "gcp-secret-manager",
		client:    client,
		projectID: projectID,
	}, nil
}

// Name returns the provider name.
func (p *GCPSecretManagerProvider) Name() string {
	return p.name
}

// Resolve fetches a secret version. The name may be a bare secret id, a
// "name@version" pin, or a full projects/... resource name.
func (p *GCPSecretManagerProvider) Resolve(ctx context.Context, name string) (secretstore.SecretValue, error) {
	resourceName := p.resourceName(name)

	result, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName,
	})
	if err != nil {
		return secretstore.SecretValue{}, p.classify(err, name)
	}
	if result.Payload == nil || result.Payload.Data == nil {
		return secretstore.SecretValue{}, secretstore.NotFoundError{Provider: p.name, Name: name}
	}

	return secretstore.SecretValue{
		Value:   string(result.Payload.Data),
		Version: versionFromResource(result.Name),
		Metadata: map[string]string{
			"provider":   p.name,
			"project_id": p.projectID,
			"resource":   result.Name,
		},
	}, nil
}

// Validate checks the client holds working credentials by probing for a
// well-known secret; NotFound proves auth succeeded.
func (p *GCPSecretManagerProvider) Validate(ctx context.Context) error {
	probe := fmt.Sprintf("projects/%s/secrets/rotor-healthcheck/versions/latest", p.projectID)
	_, err := p.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: probe})
	if err == nil {
		return nil
	}

	classified := p.classify(err, "rotor-healthcheck")
	if secretstore.IsNotFound(classified) {
		return nil
	}
	return classified
}

// Close releases the underlying gRPC connection.
func (p *GCPSecretManagerProvider) Close() error {
	return p.client.Close()
}

func (p *GCPSecretManagerProvider) classify(err error, name string) error {
	switch status.Code(err) {
	case codes.NotFound:
		return secretstore.NotFoundError{Provider: p.name, Name: name}
	case codes.PermissionDenied, codes.Unauthenticated:
		return secretstore.AuthError{
			Provider: p.name,
			Message:  fmt.Sprintf("GCP access denied: %v", err),
		}
	case codes.DeadlineExceeded:
		return secretstore.TimeoutError{Provider: p.name, Err: err}
	default:
		return secretstore.TransientError{Provider: p.name, Err: err}
	}
}

// resourceName builds the full versioned resource name for a secret
// reference.
func (p *GCPSecretManagerProvider) resourceName(name string) string {
	version := "latest"
	if idx := strings.Index(name, "@"); idx != -1 && !strings.HasPrefix(name, "projects/") {
		name, version = name[:idx], name[idx+1:]
	}

	if strings.HasPrefix(name, "projects/") {
		if strings.Contains(name, "/versions/") {
			return name
		}
		return fmt.Sprintf("%s/versions/%s", name, version)
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", p.projectID, name, version)
}

func versionFromResource(resource string) string {
	if idx := strings.LastIndex(resource, "/versions/"); idx != -1 {
		return resource[idx+len("/versions/"):]
	}
	return "latest"
}
