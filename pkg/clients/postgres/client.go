// Package postgres provides the pooled, traced PostgreSQL client behind
// the vidhive stores. Member accounts and video metadata live here; the
// media files themselves go to object storage.
//
// # Connection Management
//
// The client wraps pgxpool, which maintains a pool of persistent
// connections and replaces failed ones on its own. Callers do not need
// retry logic for connection-level errors.
//
// # Usage
//
//	cfg := postgres.DefaultConfig()
//	cfg.Password = postgres.Secret(os.Getenv("VIDHIVE_DB_PASSWORD"))
//	client, err := postgres.NewClient(ctx, *cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Tests inject a mock pool instead:
//
//	mock, _ := pgxmock.NewPool()
//	client := postgres.NewFromPool(mock, &postgres.Config{Database: "vidhive_test"})
//
// # Tracing
//
// Every operation opens an OpenTelemetry span with the standard database
// attributes (db.system, db.name, db.statement). Statements on spans are
// truncated so member ids and video titles embedded in SQL stay out of
// the telemetry backend.
package postgres

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope for this package.
const tracerName = "github.com/vidhive/vidhive-server/pkg/clients/postgres"

// Pool is the connection pool surface the client needs. [*pgxpool.Pool]
// satisfies it directly, and pgxmock satisfies it for unit tests, so
// [NewFromPool] can inject either.
type Pool interface {
	// Query executes a SQL query that returns rows.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)

	// QueryRow executes a SQL query expected to return at most one row.
	// Errors surface when the returned pgx.Row is scanned.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row

	// Exec executes a statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)

	// Begin starts a transaction.
	Begin(ctx context.Context) (pgx.Tx, error)

	// Ping verifies the database connection is alive.
	Ping(ctx context.Context) error

	// Close releases all pool resources.
	Close()
}

var _ Pool = (*pgxpool.Pool)(nil)

// Client is a PostgreSQL client that layers tracing and coded error
// classification over a [Pool]. It is safe for concurrent use; create
// one per database and share it.
type Client struct {
	pool         Pool
	config       *Config
	tracer       trace.Tracer
	databaseName string
}

// NewClient validates cfg, opens a connection pool, applies TLS when a
// custom CA certificate is configured, and pings the database before
// returning. The caller owns the client and must call [Client.Close].
//
// Error codes:
//   - [vherr.CodeValidation]: invalid configuration
//   - [vherr.CodeInternalConfiguration]: TLS setup failure
//   - [vherr.CodeUnavailableDependency]: database unreachable
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, vherr.Wrap(err, vherr.CodeValidation,
			"postgres: invalid configuration")
	}

	connStr := cfg.ConnectionString()

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, vherr.Wrap(err, vherr.CodeValidation,
			"postgres: failed to parse connection string")
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolCfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	tlsCfg, err := cfg.tlsConfig()
	if err != nil {
		return nil, vherr.Wrap(err, vherr.CodeInternalConfiguration,
			"postgres: failed to configure TLS")
	}
	if tlsCfg != nil {
		poolCfg.ConnConfig.TLSConfig = tlsCfg
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, vherr.Wrap(err, vherr.CodeUnavailableDependency,
			"postgres: failed to create connection pool")
	}

	// Fail startup now rather than on the first request.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, vherr.Wrap(err, vherr.CodeUnavailableDependency,
			"postgres: failed to connect to database")
	}

	dbName := cfg.Database
	if cfg.URI != "" {
		if u, parseErr := url.Parse(cfg.URI); parseErr == nil {
			dbName = strings.TrimPrefix(u.Path, "/")
		}
	}

	return &Client{
		pool:         pool,
		config:       &cfg,
		tracer:       otel.Tracer(tracerName),
		databaseName: dbName,
	}, nil
}

// NewFromPool wraps an existing [Pool], typically a pgxmock pool in
// tests. cfg is stored without validation; nil means a zero Config.
// The config's Database feeds the db.name span attribute.
func NewFromPool(pool Pool, cfg *Config) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	return &Client{
		pool:         pool,
		config:       cfg,
		tracer:       otel.Tracer(tracerName),
		databaseName: cfg.Database,
	}
}

// Query executes a query that returns rows. The caller must close the
// returned [pgx.Rows].
//
// Failures come back as [*vherr.Error]: [vherr.CodeTimeoutDatabase] for
// deadline or cancellation, [vherr.CodeInternalDatabase] otherwise.
func (c *Client) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	ctx, span := c.startSpan(ctx, "Query", sql)

	rows, err := c.pool.Query(ctx, sql, args...)
	if err != nil {
		finishSpan(span, err)
		return nil, wrapError(err, "postgres: query failed")
	}
	// Row-level errors surface during iteration, after the span ends.
	finishSpan(span, nil)
	return rows, nil
}

// QueryRow executes a query expected to return at most one row. The
// returned [pgx.Row] is never nil; pgx defers errors until Scan, so the
// span covers only query submission. Callers should check Scan errors
// against pgx.ErrNoRows for the missing-row case.
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ctx, span := c.startSpan(ctx, "QueryRow", sql)
	defer span.End()

	return c.pool.QueryRow(ctx, sql, args...)
}

// Exec executes a statement that returns no rows (INSERT, UPDATE,
// DELETE, DDL) and returns its command tag.
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	ctx, span := c.startSpan(ctx, "Exec", sql)

	tag, err := c.pool.Exec(ctx, sql, args...)
	finishSpan(span, err)
	if err != nil {
		return tag, wrapError(err, "postgres: exec failed")
	}
	return tag, nil
}

// Begin starts a transaction. The caller must Commit or Rollback the
// returned [pgx.Tx]; deferring Rollback right after Begin is safe since
// pgx treats Rollback after Commit as a no-op.
func (c *Client) Begin(ctx context.Context) (pgx.Tx, error) {
	ctx, span := c.startSpan(ctx, "Begin", "BEGIN")

	tx, err := c.pool.Begin(ctx)
	finishSpan(span, err)
	if err != nil {
		return nil, wrapError(err, "postgres: begin transaction failed")
	}
	return tx, nil
}

// Health pings the database, applying [DefaultHealthTimeout] when the
// context has no deadline. A failed ping returns a [*vherr.Error] with
// [vherr.CodeUnavailableDependency]. Intended for readiness probes.
func (c *Client) Health(ctx context.Context) error {
	ctx, span := c.startSpan(ctx, "Health", "SELECT 1")

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	err := c.pool.Ping(ctx)
	finishSpan(span, err)
	if err != nil {
		return vherr.Wrap(err, vherr.CodeUnavailableDependency,
			"postgres: health check failed")
	}
	return nil
}

// Close releases the connection pool. The client must not be used
// afterwards. Safe to call more than once.
func (c *Client) Close() {
	c.pool.Close()
}

// Pool exposes the underlying [Pool] for operations the Client does not
// wrap, such as CopyFrom or SendBatch. Close the client, not the
// returned pool.
func (c *Client) Pool() Pool {
	return c.pool
}

// startSpan opens a client span with the OpenTelemetry database
// semantic attributes.
func (c *Client) startSpan(ctx context.Context, operationName, sql string) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "postgres."+operationName,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.name", c.databaseName),
		attribute.String("db.statement", truncateSQL(sql)),
	)
	return ctx, span
}

// finishSpan records err on the span, sets its status, and ends it.
func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// wrapError classifies a database error as timeout or internal so
// callers can distinguish retryable deadline failures from query bugs.
func wrapError(err error, message string) *vherr.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return vherr.Wrap(err, vherr.CodeTimeoutDatabase, message)
	}
	return vherr.Wrap(err, vherr.CodeInternalDatabase, message)
}
