package ratelimit

import (
	"context"
	"sync"
	"time"
)

// maxMemoryKeys bounds the counter map so an attacker cycling member
// ids cannot grow it without limit. Expired windows are collected
// when the bound is hit.
const maxMemoryKeys = 10000

// MemoryLimiter is a fixed-window limiter with in-process counters.
// Counters are not shared across replicas, so it suits
// single-instance deployments and tests.
type MemoryLimiter struct {
	mu      sync.Mutex
	config  Config
	now     func() time.Time
	windows map[string]*window
}

type window struct {
	count int
	until time.Time
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter(config Config) *MemoryLimiter {
	return &MemoryLimiter{
		config:  config.withDefaults(),
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow counts an attempt under key and reports whether it is within
// the window's limit.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	if l.config.Limit < 0 {
		return true, nil
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	win, ok := l.windows[key]
	if ok && now.After(win.until) {
		delete(l.windows, key)
		ok = false
	}
	if !ok {
		if len(l.windows) >= maxMemoryKeys {
			l.collect(now)
		}
		win = &window{until: now.Add(l.config.Window)}
		l.windows[key] = win
	}

	win.count++
	return win.count <= l.config.Limit, nil
}

func (l *MemoryLimiter) collect(now time.Time) {
	for key, win := range l.windows {
		if now.After(win.until) {
			delete(l.windows, key)
		}
	}
}

var _ Limiter = (*MemoryLimiter)(nil)
