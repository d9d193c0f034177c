package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Limiter gates outbound calls to the upstream market API.
type Limiter interface {
	// Acquire blocks until the caller may make one upstream call, or until
	// the context is cancelled.
	Acquire(ctx context.Context) error
}

// FixedWindowLimiter throttles calls with a shared Redis counter: no more
// than Max calls proceed within one Window, across all processes sharing the
// counter key. This is a fixed-window limiter, not a sliding one; bursts at
// a window boundary can reach up to 2x the nominal rate.
type FixedWindowLimiter struct {
	redis        *redis.Client
	key          string
	max          int64
	window       time.Duration
	pollInterval time.Duration
	log          *logrus.Entry
}

// NewFixedWindowLimiter creates a limiter over the given shared counter key.
func NewFixedWindowLimiter(redisClient *redis.Client, key string, max int64, window, pollInterval time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		redis:        redisClient,
		key:          key,
		max:          max,
		window:       window,
		pollInterval: pollInterval,
		log:          logrus.WithField("component", "rate_limiter"),
	}
}

// Acquire atomically increments the shared counter. The increment that
// creates the counter also sets its expiry to the window length. When the
// counter is over the max, the caller polls until the key expires and then
// retries the whole increment step. Cancellation aborts the wait immediately.
func (l *FixedWindowLimiter) Acquire(ctx context.Context) error {
	for {
		count, err := l.redis.Incr(ctx, l.key).Result()
		if err != nil {
			return fmt.Errorf("failed to increment rate counter: %w", err)
		}

		if count == 1 {
			if err := l.redis.Expire(ctx, l.key, l.window).Err(); err != nil {
				return fmt.Errorf("failed to set rate counter expiry: %w", err)
			}
		}

		if count <= l.max {
			return nil
		}

		l.log.WithField("count", count).Debug("Rate limit reached, waiting for window rollover")

		if err := l.waitForRollover(ctx); err != nil {
			return err
		}
	}
}

// waitForRollover polls until the counter key no longer exists.
func (l *FixedWindowLimiter) waitForRollover(ctx context.Context) error {
	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			exists, err := l.redis.Exists(ctx, l.key).Result()
			if err != nil {
				return fmt.Errorf("failed to check rate counter: %w", err)
			}
			if exists == 0 {
				return nil
			}
		}
	}
}
