// Package ratelimit implements a sliding-window request counter for
// abuse mitigation on authentication-adjacent endpoints. The window resets
// relative to the first request after expiry; it is not a rolling window.
package ratelimit

import (
	"context"
	"time"
)

// FallbackKey buckets requests whose client address cannot be determined.
// Sharing one bucket is accepted imprecision, not a correctness bug.
const FallbackKey = "unknown"

// Result reports the outcome of a single check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // whole seconds, >= 1s; zero when allowed
}

// Limiter answers whether a request from the given client key may proceed.
// Implementations must make the per-key read-modify-write atomic.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// retryAfter rounds the remaining window up to whole seconds, minimum one.
func retryAfter(remaining time.Duration) time.Duration {
	d := remaining.Truncate(time.Second)
	if d < remaining {
		d += time.Second
	}
	if d < time.Second {
		d = time.Second
	}
	return d
}
