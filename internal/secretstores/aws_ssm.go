package secretstores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/systmms/rotor/pkg/secretstore"
)

// SSMAPI is the slice of the SSM client this provider uses.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// AWSSSMProvider resolves secrets from AWS Systems Manager Parameter Store.
// SecureString parameters are decrypted server-side.
type AWSSSMProvider struct {
	name   string
	region string
	client SSMAPI
}

// SSMOption is a functional option for configuring the SSM provider.
type SSMOption func(*AWSSSMProvider)

// WithSSMClient sets a custom SSM client (for testing).
func WithSSMClient(client SSMAPI) SSMOption {
	return func(p *AWSSSMProvider) {
		p.client = client
	}
}

// NewAWSSSMProvider creates a Parameter Store provider from configuration.
// Recognised keys: region, endpoint.
func NewAWSSSMProvider(cfg map[string]interface{}, opts ...SSMOption) (*AWSSSMProvider, error) {
	region := "us-east-1"
	if r, ok := cfg["region"].(string); ok && r != "" {
		region = r
	}
	var endpoint string
	if e, ok := cfg["endpoint"].(string); ok && e != "" {
		endpoint = e
	}

	p := &AWSSSMProvider{
		name:   "aws-ssm",
		region: region,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.client == nil {
		awsCfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		var clientOpts []func(*ssm.Options)
		if endpoint != "" {
			clientOpts = append(clientOpts, func(o *ssm.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		p.client = ssm.NewFromConfig(awsCfg, clientOpts...)
	}

	return p, nil
}

// Name returns the provider name.
func (p *AWSSSMProvider) Name() string {
	return p.name
}

// Resolve fetches and decrypts the named parameter.
func (p *AWSSSMProvider) Resolve(ctx context.Context, name string) (secretstore.SecretValue, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	}

	result, err := p.client.GetParameter(ctx, input)
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return secretstore.SecretValue{}, secretstore.NotFoundError{Provider: p.name, Name: name}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return secretstore.SecretValue{}, secretstore.TimeoutError{Provider: p.name, Err: err}
		}
		if isAWSAuthError(err) {
			return secretstore.SecretValue{}, secretstore.AuthError{
				Provider: p.name,
				Message:  fmt.Sprintf("AWS access denied: %v", err),
			}
		}
		return secretstore.SecretValue{}, secretstore.TransientError{Provider: p.name, Err: err}
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return secretstore.SecretValue{}, secretstore.NotFoundError{Provider: p.name, Name: name}
	}

	version := "latest"
	if result.Parameter.Version != 0 {
		version = fmt.Sprintf("%d", result.Parameter.Version)
	}
	updatedAt := time.Now()
	if result.Parameter.LastModifiedDate != nil {
		updatedAt = *result.Parameter.LastModifiedDate
	}

	return secretstore.SecretValue{
		Value:     *result.Parameter.Value,
		Version:   version,
		UpdatedAt: updatedAt,
		Metadata: map[string]string{
			"provider": p.name,
			"region":   p.region,
		},
	}, nil
}

// Validate checks the parameter store is reachable with the ambient
// credentials. A not-found answer still proves auth worked.
func (p *AWSSSMProvider) Validate(ctx context.Context) error {
	_, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{Name: aws.String("/rotor/healthcheck")})
	if err != nil {
		var notFound *ssmtypes.ParameterNotFound
		if errors.As(err, &notFound) {
			return nil
		}
		if isAWSAuthError(err) {
			return secretstore.AuthError{
				Provider: p.name,
				Message:  fmt.Sprintf("AWS credential check failed: %v", err),
			}
		}
		return secretstore.TransientError{Provider: p.name, Err: err}
	}
	return nil
}
