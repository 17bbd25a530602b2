package health

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	since := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewServer(DefaultServerConfig(), func() Status {
		return Status{
			Endpoint:       "postgres://app@db.example.com:5432",
			Database:       "moviesdb",
			Collection:     "movies",
			ConnectedSince: since,
		}
	})

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	require.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "moviesdb", got.Database)
	assert.Equal(t, since, got.ConnectedSince)
}

func TestServerDisabledByDefault(t *testing.T) {
	t.Parallel()

	s := NewServer(DefaultServerConfig(), func() Status { return Status{} })
	require.NoError(t, s.Start())
	assert.Empty(t, s.Addr())
}
