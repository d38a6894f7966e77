package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests in Redis so every instance behind a load
// balancer draws from the same per-client budget. INCR makes the per-key
// read-modify-write atomic; key TTL is the window.
type RedisLimiter struct {
	client redis.Cmdable
	max    int
	window time.Duration
	prefix string
}

func NewRedis(client redis.Cmdable, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		max:    max,
		window: window,
		prefix: "ratelimit:auth:",
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := l.prefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire: %w", err)
		}
	}

	if count > int64(l.max) {
		ttl, err := l.client.PTTL(ctx, k).Result()
		if err != nil {
			return Result{}, fmt.Errorf("rate limit ttl: %w", err)
		}
		if ttl <= 0 {
			// Key lost its TTL (e.g. crash between INCR and PEXPIRE); re-arm
			// so the bucket cannot live forever.
			ttl = l.window
			_ = l.client.PExpire(ctx, k, l.window).Err()
		}
		return Result{
			Allowed:    false,
			Limit:      l.max,
			RetryAfter: retryAfter(ttl),
		}, nil
	}

	return Result{Allowed: true, Limit: l.max, Remaining: l.max - int(count)}, nil
}
