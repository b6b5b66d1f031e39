package bucket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestAllowNWithinLimit(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := New(WithClock(clock.Now))
	ctx := context.Background()

	for i := range 3 {
		res, err := store.AllowN(ctx, "k", 1, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 2-i, res.Remaining)
		assert.Equal(t, 3, res.Limit)
	}

	res, err := store.AllowN(ctx, "k", 1, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 60, res.RetryAfter)
}

// Justification: the sliding window must admit again once the oldest entry ages out,
// not at a fixed boundary.
func TestSlidingWindowReadmits(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := New(WithClock(clock.Now))
	ctx := context.Background()

	_, _ = store.AllowN(ctx, "k", 1, 2, time.Minute)
	clock.Advance(30 * time.Second)
	_, _ = store.AllowN(ctx, "k", 1, 2, time.Minute)

	res, _ := store.AllowN(ctx, "k", 1, 2, time.Minute)
	require.False(t, res.Allowed)
	assert.Equal(t, 30, res.RetryAfter)

	clock.Advance(31 * time.Second)
	res, err := store.AllowN(ctx, "k", 1, 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func TestCostLargerThanRemaining(t *testing.T) {
	store := New()
	ctx := context.Background()

	res, err := store.AllowN(ctx, "k", 4, 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = store.AllowN(ctx, "k", 2, 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
}

func TestKeysAreIndependentAndResettable(t *testing.T) {
	store := New()
	ctx := context.Background()

	res, _ := store.AllowN(ctx, "a", 1, 1, time.Minute)
	require.True(t, res.Allowed)
	res, _ = store.AllowN(ctx, "a", 1, 1, time.Minute)
	require.False(t, res.Allowed)

	res, _ = store.AllowN(ctx, "b", 1, 1, time.Minute)
	assert.True(t, res.Allowed)

	require.NoError(t, store.Reset(ctx, "a"))
	res, _ = store.AllowN(ctx, "a", 1, 1, time.Minute)
	assert.True(t, res.Allowed)
}

func TestConcurrentAllowNNeverExceedsLimit(t *testing.T) {
	store := New()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.AllowN(ctx, "k", 1, 10, time.Minute)
			if err == nil && res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowed)
}

// Justification: every distinct client key creates a bucket, so keys that go
// quiet must not accumulate for the life of the process.
func TestIdleBucketsAreSwept(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := New(WithClock(clock.Now), WithSweepInterval(time.Minute))
	ctx := context.Background()

	for _, key := range []string{"ip:192.0.2.1", "ip:192.0.2.2", "ip:192.0.2.3"} {
		_, err := store.AllowN(ctx, key, 1, 5, 30*time.Second)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.Len())

	clock.Advance(61 * time.Second)
	_, err := store.AllowN(ctx, "ip:192.0.2.9", 1, 5, 30*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}

func TestSweepKeepsActiveBuckets(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := New(WithClock(clock.Now), WithSweepInterval(time.Minute))
	ctx := context.Background()

	_, _ = store.AllowN(ctx, "idle", 1, 5, 30*time.Second)
	clock.Advance(50 * time.Second)
	_, _ = store.AllowN(ctx, "busy", 1, 5, 30*time.Second)

	clock.Advance(15 * time.Second)
	res, err := store.AllowN(ctx, "busy", 1, 2, 30*time.Second)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 1, store.Len())
}

func TestRejectedRequestOnEmptyBucketLeavesNothingBehind(t *testing.T) {
	store := New()
	res, err := store.AllowN(context.Background(), "k", 3, 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Zero(t, store.Len())
}
