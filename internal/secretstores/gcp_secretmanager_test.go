package secretstores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/systmms/rotor/pkg/secretstore"
)

func TestGCPResourceName(t *testing.T) {
	t.Parallel()

	p := &GCPSecretManagerProvider{name: "gcp-secret-manager", projectID: "movies-prod"}

	tests := []struct {
		name     string
		ref      string
		expected string
	}{
		{
			name:     "bare name",
			ref:      "db-password",
			expected: "projects/movies-prod/secrets/db-password/versions/latest",
		},
		{
			name:     "pinned version",
			ref:      "db-password@12",
			expected: "projects/movies-prod/secrets/db-password/versions/12",
		},
		{
			name:     "full resource without version",
			ref:      "projects/other/secrets/db-password",
			expected: "projects/other/secrets/db-password/versions/latest",
		},
		{
			name:     "full resource with version",
			ref:      "projects/other/secrets/db-password/versions/3",
			expected: "projects/other/secrets/db-password/versions/3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.resourceName(tt.ref))
		})
	}
}

func TestGCPVersionFromResource(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "5", versionFromResource("projects/p/secrets/s/versions/5"))
	assert.Equal(t, "latest", versionFromResource("projects/p/secrets/s"))
}

func TestGCPClassify(t *testing.T) {
	t.Parallel()

	p := &GCPSecretManagerProvider{name: "gcp-secret-manager", projectID: "movies-prod"}

	tests := []struct {
		name  string
		code  codes.Code
		check func(error) bool
	}{
		{name: "missing", code: codes.NotFound, check: secretstore.IsNotFound},
		{name: "permission denied", code: codes.PermissionDenied, check: secretstore.IsAuth},
		{name: "unauthenticated", code: codes.Unauthenticated, check: secretstore.IsAuth},
		{name: "deadline exceeded", code: codes.DeadlineExceeded, check: secretstore.IsTimeout},
		{name: "unavailable", code: codes.Unavailable, check: secretstore.IsTransient},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := p.classify(status.Error(tt.code, "boom"), "db-password")
			assert.True(t, tt.check(err), "got %v", err)
		})
	}
}
