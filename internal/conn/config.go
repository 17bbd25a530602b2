package conn

import (
	"net/url"

	rotorerrors "github.com/systmms/rotor/internal/errors"
)

// Config is an immutable connection configuration snapshot. Two configs are
// equal iff all four fields match; equality is what makes a Reconnect a no-op.
type Config struct {
	Endpoint     *url.URL
	Secret       string
	DatabaseID   string
	CollectionID string
}

// Equal reports value equality of all fields.
func (c Config) Equal(other Config) bool {
	return endpointString(c.Endpoint) == endpointString(other.Endpoint) &&
		c.Secret == other.Secret &&
		c.DatabaseID == other.DatabaseID &&
		c.CollectionID == other.CollectionID
}

// Validate checks the config is complete enough to attempt a connection.
func (c Config) Validate() error {
	if c.Endpoint == nil || c.Endpoint.Host == "" {
		return rotorerrors.ValidationError{Field: "endpoint", Message: "endpoint is required"}
	}
	if c.Secret == "" {
		return rotorerrors.ValidationError{Field: "secret", Message: "secret is required"}
	}
	if c.DatabaseID == "" {
		return rotorerrors.ValidationError{Field: "databaseId", Message: "database id is required"}
	}
	if c.CollectionID == "" {
		return rotorerrors.ValidationError{Field: "collectionId", Message: "collection id is required"}
	}
	return nil
}

func endpointString(u *url.URL) string {
	if u == nil {
		return ""
	}
	return u.String()
}
