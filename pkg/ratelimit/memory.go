package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter keeps buckets in process memory. Suitable for a single
// instance; a fleet behind a load balancer should use RedisLimiter instead.
type MemoryLimiter struct {
	max    int
	window time.Duration

	mu          sync.Mutex
	buckets     map[string]*bucket
	lastCleanup time.Time

	now func() time.Time
}

// NewMemory returns a limiter allowing max requests per window per key.
func NewMemory(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		max:     max,
		window:  window,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanup(now)

	b, ok := l.buckets[key]
	if !ok || !b.resetAt.After(now) {
		l.buckets[key] = &bucket{count: 1, resetAt: now.Add(l.window)}
		return Result{Allowed: true, Limit: l.max, Remaining: l.max - 1}, nil
	}

	if b.count >= l.max {
		return Result{
			Allowed:    false,
			Limit:      l.max,
			RetryAfter: retryAfter(b.resetAt.Sub(now)),
		}, nil
	}

	b.count++
	return Result{Allowed: true, Limit: l.max, Remaining: l.max - b.count}, nil
}

// cleanup opportunistically drops expired buckets, at most once per window.
// Stale buckets may linger up to one extra window; that bounds memory without
// a dedicated timer.
func (l *MemoryLimiter) cleanup(now time.Time) {
	if l.lastCleanup.IsZero() {
		l.lastCleanup = now
		return
	}
	if now.Sub(l.lastCleanup) < l.window {
		return
	}
	for key, b := range l.buckets {
		if !b.resetAt.After(now) {
			delete(l.buckets, key)
		}
	}
	l.lastCleanup = now
}

// size reports the live bucket count, for tests.
func (l *MemoryLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
