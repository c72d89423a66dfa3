package ratelimit

import (
	"context"
	"fmt"
)

// fixedWindowScript increments the counter for the key and, on the
// first hit of a window, arms the window expiry. Running both calls
// in one script keeps the counter and its TTL atomic under
// concurrent logins.
const fixedWindowScript = `
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`

// Evaler runs a Lua script against Redis. The traced client in
// pkg/clients/redis satisfies it.
type Evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// RedisLimiter is a fixed-window limiter whose counters live in
// Redis, shared across all server replicas.
type RedisLimiter struct {
	evaler Evaler
	config Config
}

// NewRedisLimiter creates a limiter over the given script runner.
func NewRedisLimiter(evaler Evaler, config Config) *RedisLimiter {
	return &RedisLimiter{
		evaler: evaler,
		config: config.withDefaults(),
	}
}

// Allow counts an attempt under key and reports whether it is within
// the window's limit. Errors come back as the client's coded errors;
// callers decide whether an unreachable Redis fails open or closed.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.config.Limit < 0 {
		return true, nil
	}

	result, err := l.evaler.Eval(ctx, fixedWindowScript,
		[]string{"ratelimit:" + key}, l.config.Window.Milliseconds())
	if err != nil {
		return false, err
	}

	current, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("ratelimit: unexpected script result %T", result)
	}
	return current <= int64(l.config.Limit), nil
}

var _ Limiter = (*RedisLimiter)(nil)
