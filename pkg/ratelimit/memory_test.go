package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock lets tests advance time without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(max int, window time.Duration) (*MemoryLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewMemory(max, window)
	l.now = clock.Now
	return l, clock
}

func TestMemoryLimiter_WindowSequence(t *testing.T) {
	l, clock := newTestLimiter(3, time.Second)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should pass", i+1)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.GreaterOrEqual(t, res.RetryAfter, time.Second)

	// A different key has its own budget.
	other, err := l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	// After the window elapses the counter starts fresh.
	clock.Advance(1100 * time.Millisecond)
	res, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)
}

func TestMemoryLimiter_RetryAfterRoundsUp(t *testing.T) {
	l, clock := newTestLimiter(1, 10*time.Second)
	ctx := context.Background()

	_, err := l.Allow(ctx, "k")
	require.NoError(t, err)

	clock.Advance(9500 * time.Millisecond) // 500ms left in the window
	res, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, time.Second, res.RetryAfter)
}

func TestMemoryLimiter_CleanupDropsExpiredBuckets(t *testing.T) {
	l, clock := newTestLimiter(5, time.Second)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		_, err := l.Allow(ctx, key)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, l.size())

	// Expired buckets go away on the next check once a full window has
	// passed since the last sweep.
	clock.Advance(2500 * time.Millisecond)
	_, err := l.Allow(ctx, "d")
	require.NoError(t, err)
	assert.Equal(t, 1, l.size())
}

func TestMemoryLimiter_ConcurrentSameKey(t *testing.T) {
	l, _ := newTestLimiter(100, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	allowed := make([]bool, 150)
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := l.Allow(ctx, "shared")
			assert.NoError(t, err)
			allowed[i] = res.Allowed
		}(i)
	}
	wg.Wait()

	count := 0
	for _, ok := range allowed {
		if ok {
			count++
		}
	}
	// No lost increments: exactly the budget is admitted.
	assert.Equal(t, 100, count)
}
