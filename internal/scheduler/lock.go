package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistributedLock is a named, time-boxed claim in Redis used to elect one
// active scheduler instance among replicas. At most one owner holds a
// non-expired lock for a given key; a lock auto-expires if its owner stops
// renewing it.
type DistributedLock struct {
	redis *redis.Client
	owner string
	ttl   time.Duration
}

// NewDistributedLock creates a lock client for one owner (typically one
// owner id per process instance).
func NewDistributedLock(redisClient *redis.Client, owner string, ttl time.Duration) *DistributedLock {
	return &DistributedLock{
		redis: redisClient,
		owner: owner,
		ttl:   ttl,
	}
}

// Acquire claims the lock key for this owner. A claim by the current holder
// refreshes the TTL, so the holder keeps leadership by re-acquiring each
// tick. Returns false when another owner holds a non-expired claim; that is
// the expected multi-instance steady state, not an error.
func (l *DistributedLock) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := l.redis.SetNX(ctx, key, l.owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if ok {
		return true, nil
	}

	holder, err := l.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Lock expired between SETNX and GET; next tick retries.
			return false, nil
		}
		return false, fmt.Errorf("failed to read lock %s: %w", key, err)
	}
	if holder != l.owner {
		return false, nil
	}

	// Still the holder: refresh the TTL.
	if err := l.redis.Set(ctx, key, l.owner, l.ttl).Err(); err != nil {
		return false, fmt.Errorf("failed to refresh lock %s: %w", key, err)
	}
	return true, nil
}

// Owner returns the owner id this lock client claims with.
func (l *DistributedLock) Owner() string {
	return l.owner
}
