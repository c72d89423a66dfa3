// Package redis provides the traced Redis client behind the vidhive
// rate limiter. Login attempt counters live here; nothing else in the
// service uses Redis.
//
// The client wraps go-redis (github.com/redis/go-redis/v9), which
// handles pooling, reconnection, and retry internally, and layers
// tracing and coded error classification on top:
//
//	cfg := redis.DefaultConfig()
//	cfg.Password = redis.Secret(os.Getenv("VIDHIVE_REDIS_PASSWORD"))
//	client, err := redis.NewClient(ctx, *cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
// Tests inject a fake through [NewFromClient]. Every operation opens an
// OpenTelemetry span carrying db.system, db.redis.database_index, and a
// truncated db.statement, so rate limit keys derived from member ids
// stay out of the telemetry backend.
package redis

import (
	"fmt"
	"net/url"
	"time"
)

// maxStatementTruncateLen caps command statements recorded on trace
// spans. Rate limit keys embed member ids, so spans carry only a
// truncated prefix.
const maxStatementTruncateLen = 100

// Defaults for the vidhive Kubernetes deployment, where Redis runs as a
// Service in the same cluster as the API pods.
const (
	// DefaultHost is the in-cluster Service DNS name of the Redis
	// server.
	DefaultHost = "redis.vidhive.svc.cluster.local"

	// DefaultPort is the standard Redis port.
	DefaultPort = 6379

	// DefaultDB is the database index holding the rate limit counters.
	DefaultDB = 0

	// DefaultPoolSize is the pool's upper connection bound. Rate limit
	// checks are single round trips, so a modest pool is sufficient.
	DefaultPoolSize = 25

	// DefaultMinIdleConns is the number of idle connections kept warm.
	DefaultMinIdleConns = 5

	// DefaultMaxRetries is how often go-redis retries a command over
	// transient network failures before giving up.
	DefaultMaxRetries = 3

	// DefaultDialTimeout bounds establishment of a new connection.
	DefaultDialTimeout = 10 * time.Second

	// DefaultReadTimeout bounds a read from the server.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds a write to the server.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultHealthTimeout bounds a health check ping when the caller's
	// context carries no deadline.
	DefaultHealthTimeout = 5 * time.Second
)

// Secret holds the Redis password and redacts itself when printed or
// serialized. Use [Secret.Value] to read the actual value, and keep
// that value out of logs and error messages.
type Secret string

// redacted replaces secret values in all string output.
const redacted = "[REDACTED]"

// String returns "[REDACTED]".
func (s Secret) String() string {
	return redacted
}

// GoString returns "[REDACTED]" so %#v formatting stays safe.
func (s Secret) GoString() string {
	return redacted
}

// Value returns the underlying secret string.
func (s Secret) Value() string {
	return string(s)
}

// MarshalText implements encoding.TextMarshaler, returning "[REDACTED]"
// so the secret never lands in serialized configuration.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Config holds Redis connection settings. Either set [Config.URI] with
// a redis:// or rediss:// connection string, or fill the structured
// fields; a set URI wins over Host, Port, DB, and Password.
//
// The env tags are consumed by the config loader, which prefixes them
// with the service prefix and the parent section tag, so the Host field
// of a redis section is read from VIDHIVE_REDIS_HOST.
type Config struct {
	// URI is a full connection string such as
	// "redis://:password@host:6379/0". The rediss:// scheme enables
	// TLS.
	URI string `json:"uri,omitempty" yaml:"uri" env:"URI"`

	// Host is the Redis server hostname or IP.
	Host string `json:"host,omitempty" yaml:"host" env:"HOST"`

	// Port is the Redis server port.
	Port int `json:"port,omitempty" yaml:"port" env:"PORT"`

	// DB is the database index, 0 through 15 on a default server.
	DB int `json:"db" yaml:"db" env:"DB"`

	// Password is the Redis password, redacted in all output.
	Password Secret `json:"-" yaml:"password" env:"PASSWORD"`

	// PoolSize is the pool's maximum connection count.
	PoolSize int `json:"pool_size,omitempty" yaml:"pool_size" env:"POOL_SIZE"`

	// MinIdleConns is the number of idle connections kept open.
	MinIdleConns int `json:"min_idle_conns,omitempty" yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`

	// MaxRetries is the per-command retry budget. -1 disables retries.
	MaxRetries int `json:"max_retries,omitempty" yaml:"max_retries" env:"MAX_RETRIES"`

	// DialTimeout bounds establishment of a new connection.
	DialTimeout time.Duration `json:"dial_timeout,omitempty" yaml:"dial_timeout" env:"DIAL_TIMEOUT"`

	// ReadTimeout bounds a read from the server.
	ReadTimeout time.Duration `json:"read_timeout,omitempty" yaml:"read_timeout" env:"READ_TIMEOUT"`

	// WriteTimeout bounds a write to the server.
	WriteTimeout time.Duration `json:"write_timeout,omitempty" yaml:"write_timeout" env:"WRITE_TIMEOUT"`

	// TLSEnabled turns on TLS for structured configs. A rediss:// URI
	// enables TLS on its own.
	TLSEnabled bool `json:"tls_enabled,omitempty" yaml:"tls_enabled" env:"TLS_ENABLED"`
}

// DefaultConfig returns a Config with the in-cluster vidhive defaults.
// Override fields as needed before passing the config to [NewClient].
func DefaultConfig() *Config {
	return &Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		DB:           DefaultDB,
		PoolSize:     DefaultPoolSize,
		MinIdleConns: DefaultMinIdleConns,
		MaxRetries:   DefaultMaxRetries,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Validate fills zero-valued fields with defaults and checks the rest.
// It returns the first problem found, or nil.
//
// When [Config.URI] is set only the URI itself is checked; the
// structured connection fields are ignored. Pool and timeout defaults
// are applied either way.
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.URI != "" {
		u, err := url.Parse(c.URI)
		if err != nil {
			return fmt.Errorf("redis: config URI is invalid: %w", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return fmt.Errorf("redis: config URI scheme must be redis:// or rediss://, got %q", u.Scheme)
		}
		return nil
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("redis: config port must be between 1 and 65535, got %d", c.Port)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("redis: config pool_size must be >= 1, got %d", c.PoolSize)
	}
	if c.MinIdleConns < 0 {
		return fmt.Errorf("redis: config min_idle_conns must be >= 0, got %d", c.MinIdleConns)
	}
	if c.PoolSize < c.MinIdleConns {
		return fmt.Errorf("redis: config pool_size (%d) must be >= min_idle_conns (%d)", c.PoolSize, c.MinIdleConns)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("redis: config dial_timeout must not be negative, got %v", c.DialTimeout)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("redis: config read_timeout must not be negative, got %v", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("redis: config write_timeout must not be negative, got %v", c.WriteTimeout)
	}

	return nil
}

// applyDefaults fills zero-valued pool and timeout fields.
func (c *Config) applyDefaults() {
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = DefaultMinIdleConns
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// truncateStatement shortens a command statement to
// maxStatementTruncateLen runes for span attributes, appending "..."
// when it was cut. Rune-aware so multi-byte characters in keys are not
// split.
func truncateStatement(s string) string {
	runes := []rune(s)
	if len(runes) <= maxStatementTruncateLen {
		return s
	}
	return string(runes[:maxStatementTruncateLen]) + "..."
}
