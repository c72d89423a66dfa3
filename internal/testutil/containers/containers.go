//go:build integration

// Package containers provides testcontainers-go helpers for integration
// tests that need real backing services: PostgreSQL for member and
// video records, Redis for login rate limiting, and MinIO for media
// objects.
//
// Everything here is gated behind the "integration" build tag so Docker
// dependencies stay out of unit test builds. Use the helpers only from
// test files carrying the same tag:
//
//	//go:build integration
//
// Each Start* function returns a *Result struct holding the container
// handle and the connection details the matching client needs. The
// caller terminates the container:
//
//	result, err := containers.StartPostgres(ctx)
//	if err != nil { ... }
//	defer result.Container.Terminate(ctx)
//
//	cfg := postgres.Config{URI: result.ConnString, MaxConns: 5}
package containers

import (
	"context"
	"fmt"
	"strings"

	tcminio "github.com/testcontainers/testcontainers-go/modules/minio"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// StripScheme removes an http:// or https:// prefix and any trailing
// slash from an endpoint. minio-go expects a bare host:port.
func StripScheme(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")
	return strings.TrimRight(endpoint, "/")
}

// ===========================================================================
// PostgreSQL
// ===========================================================================

// DefaultPostgresImage is the PostgreSQL image for integration tests.
// The alpine variant keeps pulls small and startup fast.
const DefaultPostgresImage = "docker.io/postgres:16-alpine"

// DefaultPostgresDatabase is the database created inside the container.
const DefaultPostgresDatabase = "vidhive_test"

// DefaultPostgresUser is the container superuser, with full DDL
// privileges for schema setup in tests.
const DefaultPostgresUser = "vidhive"

// DefaultPostgresPassword is a throwaway credential for the ephemeral
// test container.
const DefaultPostgresPassword = "vidhive-test-password"

// PostgresResult holds a started PostgreSQL container and its
// connection string. ConnString carries sslmode=disable because
// testcontainers expose the server on localhost without TLS.
type PostgresResult struct {
	// Container is the started testcontainer; terminate it when done.
	Container *tcpostgres.PostgresContainer

	// ConnString is a URI-format connection string ready for
	// postgres.Config.URI.
	ConnString string
}

// StartPostgres starts a PostgreSQL 16 container and waits for it to
// accept connections. On a failure after startup the container is
// terminated before the error is returned.
func StartPostgres(ctx context.Context) (*PostgresResult, error) {
	container, err := tcpostgres.Run(ctx,
		DefaultPostgresImage,
		tcpostgres.WithDatabase(DefaultPostgresDatabase),
		tcpostgres.WithUsername(DefaultPostgresUser),
		tcpostgres.WithPassword(DefaultPostgresPassword),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("containers: failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("containers: failed to get connection string: %w", err)
	}

	return &PostgresResult{
		Container:  container,
		ConnString: connStr,
	}, nil
}

// ===========================================================================
// Redis
// ===========================================================================

// DefaultRedisImage is the Redis image for integration tests.
const DefaultRedisImage = "docker.io/redis:7-alpine"

// RedisResult holds a started Redis container and its connection
// string in redis:// URI format.
type RedisResult struct {
	// Container is the started testcontainer; terminate it when done.
	Container *tcredis.RedisContainer

	// ConnString is a redis:// connection string for the rate limiter
	// client configuration.
	ConnString string
}

// StartRedis starts a Redis 7 container without authentication,
// suitable for an ephemeral test container on a local network.
func StartRedis(ctx context.Context) (*RedisResult, error) {
	container, err := tcredis.Run(ctx, DefaultRedisImage)
	if err != nil {
		return nil, fmt.Errorf("containers: failed to start redis container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("containers: failed to get redis connection string: %w", err)
	}

	return &RedisResult{
		Container:  container,
		ConnString: connStr,
	}, nil
}

// ===========================================================================
// MinIO
// ===========================================================================

// DefaultMinIOImage is the MinIO image for integration tests.
const DefaultMinIOImage = "docker.io/minio/minio:latest"

// DefaultMinIOAccessKey is the container's root access key, a
// throwaway credential for ephemeral test containers.
const DefaultMinIOAccessKey = "minioadmin"

// DefaultMinIOSecretKey is the container's root secret key.
const DefaultMinIOSecretKey = "minioadmin"

// MinIOResult holds a started MinIO container and the credentials the
// media store client needs.
type MinIOResult struct {
	// Container is the started testcontainer; terminate it when done.
	Container *tcminio.MinioContainer

	// Endpoint is the API host:port, possibly prefixed with a scheme
	// that [StripScheme] removes for minio-go.
	Endpoint string

	// AccessKey is the root access key.
	AccessKey string

	// SecretKey is the root secret key.
	SecretKey string
}

// StartMinIO starts a MinIO container with the default root
// credentials.
func StartMinIO(ctx context.Context) (*MinIOResult, error) {
	container, err := tcminio.Run(ctx,
		DefaultMinIOImage,
		tcminio.WithUsername(DefaultMinIOAccessKey),
		tcminio.WithPassword(DefaultMinIOSecretKey),
	)
	if err != nil {
		return nil, fmt.Errorf("containers: failed to start minio container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("containers: failed to get minio connection string: %w", err)
	}

	return &MinIOResult{
		Container: container,
		Endpoint:  connStr,
		AccessKey: DefaultMinIOAccessKey,
		SecretKey: DefaultMinIOSecretKey,
	}, nil
}
