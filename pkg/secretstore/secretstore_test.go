package secretstore_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/systmms/rotor/pkg/secretstore"
)

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	notFound := secretstore.NotFoundError{Provider: "aws.secretsmanager", Name: "db-password"}
	auth := secretstore.AuthError{Provider: "azure.keyvault", Message: "token expired"}
	timeout := secretstore.TimeoutError{Provider: "gcp.secretmanager", Err: fmt.Errorf("deadline exceeded")}
	transient := secretstore.TransientError{Provider: "akeyless", Err: fmt.Errorf("connection reset")}

	tests := []struct {
		name      string
		err       error
		notFound  bool
		auth      bool
		timeout   bool
		transient bool
	}{
		{name: "not found", err: notFound, notFound: true},
		{name: "auth", err: auth, auth: true},
		{name: "timeout", err: timeout, timeout: true, transient: true},
		{name: "transient", err: transient, transient: true},
		{name: "wrapped auth", err: fmt.Errorf("resolving: %w", auth), auth: true},
		{name: "plain error", err: fmt.Errorf("boom")},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.notFound, secretstore.IsNotFound(tt.err))
			assert.Equal(t, tt.auth, secretstore.IsAuth(tt.err))
			assert.Equal(t, tt.timeout, secretstore.IsTimeout(tt.err))
			assert.Equal(t, tt.transient, secretstore.IsTransient(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	err := secretstore.NotFoundError{Provider: "keychain", Name: "moviesdb-password"}
	assert.Contains(t, err.Error(), "moviesdb-password")
	assert.Contains(t, err.Error(), "keychain")

	auth := secretstore.AuthError{Provider: "aws.secretsmanager", Message: "AccessDenied"}
	assert.Contains(t, auth.Error(), "AccessDenied")

	timeout := secretstore.TimeoutError{Provider: "aws.ssm", Err: fmt.Errorf("deadline exceeded")}
	assert.Equal(t, "deadline exceeded", timeout.Unwrap().Error())
}
