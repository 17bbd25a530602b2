// Package sqlstore implements the store.Client interface on top of
// database/sql, with postgres (lib/pq) and mysql (go-sql-driver) drivers.
// The endpoint URL scheme selects the driver; the rotating secret is the
// connection password.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	rotorerrors "github.com/systmms/rotor/internal/errors"
	"github.com/systmms/rotor/internal/logging"
	"github.com/systmms/rotor/pkg/store"
)

// identPattern restricts database and collection ids so they can be inlined
// as SQL identifiers.
var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Client opens validated SQL connections. It implements store.Client.
type Client struct {
	logger  *logging.Logger
	timeout time.Duration
	open    func(driver, dsn string) (*sql.DB, error)
}

// Option is a functional option for configuring the client
type Option func(*Client)

// WithOpener sets a custom database opener (for testing with sqlmock)
func WithOpener(open func(driver, dsn string) (*sql.DB, error)) Option {
	return func(c *Client) {
		c.open = open
	}
}

// WithRequestTimeout bounds every network round trip the client makes.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a SQL store client.
func NewClient(logger *logging.Logger, opts ...Option) *Client {
	c := &Client{
		logger:  logger.Named("sqlstore"),
		timeout: 30 * time.Second,
		open:    sql.Open,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open connects with the given parameters and performs the canary read.
// The returned container is fully validated: the credential was accepted and
// the collection exists.
func (c *Client) Open(ctx context.Context, params store.Params) (store.Container, error) {
	driver, dsn, err := buildDSN(params)
	if err != nil {
		return nil, err
	}

	db, err := c.open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s handle: %w", driver, err)
	}

	endpoint := params.Endpoint.Redacted()
	c.logger.Debug("validating connection to %s (secret %s)", endpoint, logging.Secret(params.Secret))

	pingCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Ping authenticates; this is where a stale credential surfaces.
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, classify(err, endpoint, params)
	}

	// Canary read: prove the collection is actually readable before the
	// handle is ever published.
	canary := fmt.Sprintf("SELECT 1 FROM %s WHERE 1=0", params.CollectionID)
	rows, err := db.QueryContext(pingCtx, canary)
	if err != nil {
		_ = db.Close()
		return nil, classify(err, endpoint, params)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		_ = db.Close()
		return nil, classify(err, endpoint, params)
	}

	return &container{
		db:       db,
		driver:   driver,
		table:    params.CollectionID,
		endpoint: endpoint,
		timeout:  c.timeout,
	}, nil
}

// buildDSN derives the driver name and DSN from the endpoint URL, database id
// and secret. The secret always supplies the password; a password embedded in
// the endpoint URL is ignored.
func buildDSN(params store.Params) (driver, dsn string, err error) {
	if params.Endpoint == nil {
		return "", "", rotorerrors.ValidationError{Field: "endpoint", Message: "endpoint is required"}
	}
	if !identPattern.MatchString(params.DatabaseID) {
		return "", "", rotorerrors.ValidationError{
			Field:   "databaseId",
			Value:   params.DatabaseID,
			Message: "must be a plain identifier",
		}
	}
	if !identPattern.MatchString(params.CollectionID) {
		return "", "", rotorerrors.ValidationError{
			Field:   "collectionId",
			Value:   params.CollectionID,
			Message: "must be a plain identifier",
		}
	}

	user := ""
	if params.Endpoint.User != nil {
		user = params.Endpoint.User.Username()
	}

	switch params.Endpoint.Scheme {
	case "postgres", "postgresql":
		u := *params.Endpoint
		u.Scheme = "postgres"
		u.User = url.UserPassword(user, params.Secret)
		u.Path = "/" + params.DatabaseID
		return "postgres", u.String(), nil
	case "mysql":
		host := params.Endpoint.Host
		if params.Endpoint.Port() == "" {
			host = net.JoinHostPort(params.Endpoint.Hostname(), "3306")
		}
		cfg := mysql.NewConfig()
		cfg.User = user
		cfg.Passwd = params.Secret
		cfg.Net = "tcp"
		cfg.Addr = host
		cfg.DBName = params.DatabaseID
		return "mysql", cfg.FormatDSN(), nil
	default:
		return "", "", rotorerrors.ValidationError{
			Field:   "endpoint",
			Value:   params.Endpoint.Scheme,
			Message: "unsupported scheme, expected postgres:// or mysql://",
		}
	}
}

// classify maps driver errors onto the store error taxonomy.
func classify(err error, endpoint string, params store.Params) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return store.TimeoutError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return store.TimeoutError{Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code.Class() == "28": // invalid_authorization_specification
			return store.AuthError{Endpoint: endpoint, Err: err}
		case pqErr.Code == "3D000": // invalid_catalog_name
			return store.NotFoundError{Resource: "database '" + params.DatabaseID + "'", Err: err}
		case pqErr.Code == "42P01": // undefined_table
			return store.NotFoundError{Resource: "collection '" + params.CollectionID + "'", Err: err}
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1044, 1045, 1698: // access denied
			return store.AuthError{Endpoint: endpoint, Err: err}
		case 1049: // unknown database
			return store.NotFoundError{Resource: "database '" + params.DatabaseID + "'", Err: err}
		case 1146: // table doesn't exist
			return store.NotFoundError{Resource: "collection '" + params.CollectionID + "'", Err: err}
		}
	}

	return fmt.Errorf("store error for %s: %w", endpoint, err)
}

// container is an opened, validated handle. It implements store.Container.
type container struct {
	db       *sql.DB
	driver   string
	table    string
	endpoint string
	timeout  time.Duration
}

func (c *container) placeholders(n int) []interface{} {
	out := make([]interface{}, n)
	for i := range out {
		if c.driver == "postgres" {
			out[i] = fmt.Sprintf("$%d", i+1)
		} else {
			out[i] = "?"
		}
	}
	return out
}

// GetItem fetches a single document by id within a partition.
func (c *container) GetItem(ctx context.Context, id, partitionKey string) (store.Item, error) {
	ph := c.placeholders(2)
	query := fmt.Sprintf(
		"SELECT id, partition_key, body FROM %s WHERE id = %s AND partition_key = %s",
		c.table, ph[0], ph[1],
	)

	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var item store.Item
	row := c.db.QueryRowContext(opCtx, query, id, partitionKey)
	if err := row.Scan(&item.ID, &item.PartitionKey, &item.Body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Item{}, store.NotFoundError{Resource: "item '" + id + "'", Err: err}
		}
		return store.Item{}, classifyOp(err, c.endpoint)
	}
	return item, nil
}

// QueryItems runs a query against the collection. The query must yield
// id, partition_key and body columns.
func (c *container) QueryItems(ctx context.Context, query string, args ...interface{}) ([]store.Item, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows, err := c.db.QueryContext(opCtx, query, args...)
	if err != nil {
		return nil, classifyOp(err, c.endpoint)
	}
	defer rows.Close()

	var items []store.Item
	for rows.Next() {
		var item store.Item
		if err := rows.Scan(&item.ID, &item.PartitionKey, &item.Body); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyOp(err, c.endpoint)
	}
	return items, nil
}

// classifyOp maps data-operation errors. Unlike Open-time classification it
// has no params to name, so missing-table errors keep the driver message.
func classifyOp(err error, endpoint string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return store.TimeoutError{Err: err}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "28" {
		return store.AuthError{Endpoint: endpoint, Err: err}
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && (myErr.Number == 1044 || myErr.Number == 1045 || myErr.Number == 1698) {
		return store.AuthError{Endpoint: endpoint, Err: err}
	}

	return fmt.Errorf("store error for %s: %w", endpoint, err)
}

// Close releases the pooled connections.
func (c *container) Close() error {
	return c.db.Close()
}
