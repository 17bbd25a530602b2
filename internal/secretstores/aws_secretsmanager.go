// Package secretstores implements the secret providers a rotating credential
// can be resolved from. Each provider adapts one backend to the
// secretstore.Provider interface and maps backend failures onto the shared
// error taxonomy so the recovery machinery can tell auth problems from
// transient ones.
package secretstores

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	smtypes "github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/systmms/rotor/pkg/secretstore"
)

// SecretsManagerAPI is the slice of the AWS Secrets Manager client this
// provider uses. It exists so tests can inject a mock.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// STSAPI is the slice of the AWS STS client used for the credential
// preflight in Validate.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// AWSSecretsManagerProvider resolves secrets from AWS Secrets Manager.
type AWSSecretsManagerProvider struct {
	name   string
	region string
	client SecretsManagerAPI
	sts    STSAPI
}

// AWSOption is a functional option for configuring the AWS provider.
type AWSOption func(*AWSSecretsManagerProvider)

// WithSecretsManagerClient sets a custom Secrets Manager client (for testing).
func WithSecretsManagerClient(client SecretsManagerAPI) AWSOption {
	return func(p *AWSSecretsManagerProvider) {
		p.client = client
	}
}

// WithSTSClient sets a custom STS client (for testing).
func WithSTSClient(client STSAPI) AWSOption {
	return func(p *AWSSecretsManagerProvider) {
		p.sts = client
	}
}

// NewAWSSecretsManagerProvider creates a provider from configuration.
// Recognised keys: region, endpoint (for LocalStack), access_key_id and
// secret_access_key (static credentials, also for LocalStack).
func NewAWSSecretsManagerProvider(cfg map[string]interface{}, opts ...AWSOption) (*AWSSecretsManagerProvider, error) {
	region := "us-east-1"
	if r, ok := cfg["region"].(string); ok && r != "" {
		region = r
	}
	var endpoint string
	if e, ok := cfg["endpoint"].(string); ok && e != "" {
		endpoint = e
	}
	var accessKeyID, secretAccessKey string
	if ak, ok := cfg["access_key_id"].(string); ok && ak != "" {
		accessKeyID = ak
	}
	if sk, ok := cfg["secret_access_key"].(string); ok && sk != "" {
		secretAccessKey = sk
	}

	p := &AWSSecretsManagerProvider{
		name:   "aws-secrets-manager",
		region: region,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		configOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
		if accessKeyID != "" && secretAccessKey != "" {
			configOpts = append(configOpts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
			))
		}

		awsCfg, err := config.LoadDefaultConfig(context.Background(), configOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		var clientOpts []func(*secretsmanager.Options)
		if endpoint != "" {
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		p.client = secretsmanager.NewFromConfig(awsCfg, clientOpts...)
		p.sts = sts.NewFromConfig(awsCfg)
	}

	return p, nil
}

// Name returns the provider name.
func (p *AWSSecretsManagerProvider) Name() string {
	return p.name
}

// Resolve fetches the current version of the named secret.
func (p *AWSSecretsManagerProvider) Resolve(ctx context.Context, name string) (secretstore.SecretValue, error) {
	input := &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	}

	result, err := p.client.GetSecretValue(ctx, input)
	if err != nil {
		return secretstore.SecretValue{}, p.classify(err, name)
	}

	var value string
	switch {
	case result.SecretString != nil:
		value = *result.SecretString
	case result.SecretBinary != nil:
		value = string(result.SecretBinary)
	default:
		return secretstore.SecretValue{}, secretstore.NotFoundError{Provider: p.name, Name: name}
	}

	return secretstore.SecretValue{
		Value:     value,
		Version:   awsVersion(result),
		UpdatedAt: awsUpdatedAt(result),
		Metadata: map[string]string{
			"provider": p.name,
			"region":   p.region,
		},
	}, nil
}

// Validate verifies the AWS credential chain resolves to a real identity.
func (p *AWSSecretsManagerProvider) Validate(ctx context.Context) error {
	if p.sts == nil {
		return nil
	}
	if _, err := p.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{}); err != nil {
		return secretstore.AuthError{
			Provider: p.name,
			Message:  fmt.Sprintf("AWS credential check failed: %v", err),
		}
	}
	return nil
}

func (p *AWSSecretsManagerProvider) classify(err error, name string) error {
	var notFound *smtypes.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return secretstore.NotFoundError{Provider: p.name, Name: name}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return secretstore.TimeoutError{Provider: p.name, Err: err}
	}
	if isAWSAuthError(err) {
		return secretstore.AuthError{
			Provider: p.name,
			Message:  fmt.Sprintf("AWS access denied: %v", err),
		}
	}
	return secretstore.TransientError{Provider: p.name, Err: err}
}

func isAWSAuthError(err error) bool {
	errStr := err.Error()
	return strings.Contains(errStr, "AccessDenied") ||
		strings.Contains(errStr, "UnauthorizedOperation") ||
		strings.Contains(errStr, "InvalidSignature") ||
		strings.Contains(errStr, "ExpiredToken") ||
		strings.Contains(errStr, "Forbidden")
}

func awsVersion(result *secretsmanager.GetSecretValueOutput) string {
	if result.VersionId != nil {
		return *result.VersionId
	}
	if len(result.VersionStages) > 0 {
		return result.VersionStages[0]
	}
	return "latest"
}

func awsUpdatedAt(result *secretsmanager.GetSecretValueOutput) time.Time {
	if result.CreatedDate != nil {
		return *result.CreatedDate
	}
	return time.Now()
}
