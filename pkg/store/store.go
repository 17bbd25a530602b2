// Package store defines the interface and types for data store clients.
//
// A store client opens and validates a connection to the remote data store
// using a credential that may rotate underneath the process. Open performs an
// implicit canary read so a handle is never returned unless the endpoint,
// credential, database and collection are all actually usable.
//
// Clients must return the typed errors defined here so the rotation machinery
// can distinguish a rejected credential (AuthError, triggers recovery) from a
// missing database or collection (NotFoundError) and from network noise
// (TimeoutError).
//
// Implementations must be thread-safe: many request goroutines read through a
// Container concurrently, and Open may be called while previous handles are
// still serving in-flight reads.
package store

import (
	"context"
	"errors"
	"net/url"
)

// Params identifies the connection a client should open: where the store
// lives, which credential to present, and which database/collection the
// canary read validates.
type Params struct {
	// Endpoint is the store URL. The scheme selects the driver and the
	// userinfo carries the login name; the password comes from Secret.
	Endpoint *url.URL

	// Secret is the current credential. Never log this field.
	Secret string

	// DatabaseID names the database to connect to.
	DatabaseID string

	// CollectionID names the collection the canary read validates.
	CollectionID string
}

// Client opens validated connections to a data store.
type Client interface {
	// Open connects with the given parameters and performs a canary read
	// against the collection. It returns a usable Container or a typed error:
	// AuthError when the credential is rejected, NotFoundError when the
	// database or collection does not exist, TimeoutError when the store
	// did not answer in time.
	Open(ctx context.Context, params Params) (Container, error)
}

// Container is an opened, validated handle performing data operations.
//
// A Container is immutable with respect to its credential: once opened it
// keeps using the secret it was opened with. Rotation replaces the whole
// Container rather than mutating it, so in-flight reads against an old handle
// are unaffected by a swap.
type Container interface {
	// GetItem fetches a single document by id within a partition.
	// Returns NotFoundError if no such document exists.
	GetItem(ctx context.Context, id, partitionKey string) (Item, error)

	// QueryItems runs a query against the collection and returns the
	// matching documents.
	QueryItems(ctx context.Context, query string, args ...interface{}) ([]Item, error)

	// Close releases the handle. The connection manager does not close
	// superseded handles on swap (in-flight readers may still hold them);
	// Close exists for process shutdown.
	Close() error
}

// Item is a single document read from the store.
type Item struct {
	ID           string
	PartitionKey string
	Body         []byte
}

// AuthError indicates the store rejected the presented credential.
type AuthError struct {
	Endpoint string
	Err      error
}

func (e AuthError) Error() string {
	msg := "store rejected credential"
	if e.Endpoint != "" {
		msg += " for " + e.Endpoint
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e AuthError) Unwrap() error { return e.Err }

// NotFoundError indicates a missing database, collection, or document.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	msg := "not found"
	if e.Resource != "" {
		msg = e.Resource + " not found"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e NotFoundError) Unwrap() error { return e.Err }

// TimeoutError indicates the store did not answer within the request timeout.
type TimeoutError struct {
	Err error
}

func (e TimeoutError) Error() string {
	msg := "store request timed out"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e TimeoutError) Unwrap() error { return e.Err }

// IsAuth reports whether err indicates a rejected credential.
func IsAuth(err error) bool {
	var ae AuthError
	return errors.As(err, &ae)
}

// IsNotFound reports whether err indicates a missing resource.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsTimeout reports whether err indicates a store timeout.
func IsTimeout(err error) bool {
	var te TimeoutError
	return errors.As(err, &te)
}
