package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLimiter(t *testing.T, max int64, window time.Duration) (*FixedWindowLimiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewFixedWindowLimiter(client, "test:rate_counter", max, window, 5*time.Millisecond), mr
}

func TestAcquireWithinLimit(t *testing.T) {
	limiter, _ := setupTestLimiter(t, 5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Acquire(ctx))
	}
}

func TestAcquireSetsWindowExpiry(t *testing.T) {
	limiter, mr := setupTestLimiter(t, 5, time.Minute)

	require.NoError(t, limiter.Acquire(context.Background()))
	assert.Equal(t, time.Minute, mr.TTL("test:rate_counter"))
}

func TestAcquireBlocksUntilWindowRollover(t *testing.T) {
	limiter, mr := setupTestLimiter(t, 2, time.Minute)
	ctx := context.Background()

	require.NoError(t, limiter.Acquire(ctx))
	require.NoError(t, limiter.Acquire(ctx))

	// The third acquire must wait for the window to roll over. miniredis only
	// expires keys on FastForward, so advance its clock from a goroutine.
	done := make(chan error, 1)
	go func() {
		done <- limiter.Acquire(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("acquire returned before the window rolled over: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	mr.FastForward(time.Minute)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not return after the window rolled over")
	}
}

func TestAcquireHonorsCancellation(t *testing.T) {
	limiter, _ := setupTestLimiter(t, 1, time.Minute)

	require.NoError(t, limiter.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- limiter.Acquire(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not return after cancellation")
	}
}

func TestAcquireSharedAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	// Two limiter instances over the same key model two processes sharing the
	// budget.
	first := NewFixedWindowLimiter(client, "shared:counter", 2, time.Minute, 5*time.Millisecond)
	second := NewFixedWindowLimiter(client, "shared:counter", 2, time.Minute, 5*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, first.Acquire(ctx))
	require.NoError(t, second.Acquire(ctx))

	blockedCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	err = first.Acquire(blockedCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
