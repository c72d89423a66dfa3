// Package ratelimit provides fixed-window rate limiters for login
// attempts. The Redis-backed limiter is the production choice because
// counters must be shared across replicas; the in-memory limiter
// serves single-instance deployments and tests.
//
// Both limiters satisfy the auth session service's limiter seam:
//
//	limiter := ratelimit.NewRedisLimiter(redisClient, ratelimit.Config{})
//	svc := auth.NewSessionService(codec, store,
//		auth.WithLoginRateLimiter(limiter))
package ratelimit

import (
	"context"
	"time"
)

const (
	// DefaultLimit is the number of attempts allowed per key per
	// window before Allow starts refusing.
	DefaultLimit = 10

	// DefaultWindow is the fixed window length.
	DefaultWindow = time.Minute
)

// Limiter reports whether another attempt under the given key is
// allowed right now. The key identifies what is being limited, for
// example "login:alice".
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Config holds the window parameters shared by both limiters.
type Config struct {
	// Limit is the number of allowed attempts per window. Zero means
	// DefaultLimit; a negative value disables limiting entirely.
	Limit int `env:"LIMIT" json:"limit" yaml:"limit"`

	// Window is the fixed window length. Zero means DefaultWindow.
	Window time.Duration `env:"WINDOW" json:"window" yaml:"window"`
}

func (c Config) withDefaults() Config {
	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	return c
}
