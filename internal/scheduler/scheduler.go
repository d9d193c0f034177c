package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/coinfolio/coinfolio-go/internal/queue"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	lockKeyFormat          = "scheduler:lock:%s"
	schedulesHashKeyFormat = "scheduler:schedules:%s"
	lastFiredField         = "last_fired"
)

// MessagePreparer builds the job messages for one due schedule. Implemented
// per job type; preparers read the stored collection settings and return one
// batch of outbound messages.
type MessagePreparer interface {
	PrepareMessages(ctx context.Context) ([]queue.Outbound, error)
}

// Scheduler runs the distributed scheduling loop for one job type. Every
// check interval it claims the job type's lock; only the holder evaluates
// whether the schedule is due and enqueues the prepared batch. Replicas that
// lose the claim skip the tick, which is the expected steady state.
type Scheduler struct {
	jobType       string
	interval      time.Duration
	checkInterval time.Duration
	lock          *DistributedLock
	redis         *redis.Client
	preparer      MessagePreparer
	publisher     queue.Publisher
	log           *logrus.Entry
}

// New creates a scheduler for one job type. The firing interval is derived
// from the job's cron expression.
func New(jobType, cronExpr string, checkInterval time.Duration, lock *DistributedLock, redisClient *redis.Client, preparer MessagePreparer, publisher queue.Publisher) (*Scheduler, error) {
	interval, err := IntervalFromCron(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("failed to build scheduler for %s: %w", jobType, err)
	}

	return &Scheduler{
		jobType:       jobType,
		interval:      interval,
		checkInterval: checkInterval,
		lock:          lock,
		redis:         redisClient,
		preparer:      preparer,
		publisher:     publisher,
		log: logrus.WithFields(logrus.Fields{
			"component": "scheduler",
			"job_type":  jobType,
			"interval":  interval.String(),
		}),
	}, nil
}

// Run executes the scheduling loop until the context is cancelled. The held
// lock is not released explicitly; it lapses via its TTL.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.log.Info("Scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scheduler stopping")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one scheduling evaluation. Failures are logged and leave the
// last-fired timestamp untouched so the next tick retries.
func (s *Scheduler) Tick(ctx context.Context) {
	acquired, err := s.lock.Acquire(ctx, fmt.Sprintf(lockKeyFormat, s.jobType))
	if err != nil {
		s.log.WithError(err).Error("Failed to acquire scheduler lock")
		return
	}
	if !acquired {
		// Another instance leads this job type.
		return
	}

	due, err := s.isDue(ctx)
	if err != nil {
		s.log.WithError(err).Error("Failed to evaluate schedule")
		return
	}
	if !due {
		return
	}

	messages, err := s.preparer.PrepareMessages(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.log.WithError(err).Error("Failed to prepare job messages")
		return
	}
	if len(messages) == 0 {
		s.log.Debug("Nothing to schedule")
		if err := s.markFired(ctx); err != nil {
			s.log.WithError(err).Error("Failed to record schedule run")
		}
		return
	}

	for _, msg := range messages {
		if err := s.publisher.Publish(ctx, msg.Topic, msg.Key, msg.Value); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.log.WithError(err).Error("Failed to enqueue job message")
			return
		}
	}

	if err := s.markFired(ctx); err != nil {
		s.log.WithError(err).Error("Failed to record schedule run")
		return
	}

	s.log.WithField("messages", len(messages)).Info("Enqueued job batch")
}

// isDue reports whether the schedule's interval has elapsed since the last
// recorded firing. A schedule that never fired is due immediately.
func (s *Scheduler) isDue(ctx context.Context) (bool, error) {
	raw, err := s.redis.HGet(ctx, fmt.Sprintf(schedulesHashKeyFormat, s.jobType), lastFiredField).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return true, nil
		}
		return false, fmt.Errorf("failed to read last-fired timestamp: %w", err)
	}

	lastFired, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("malformed last-fired timestamp %q: %w", raw, err)
	}

	return time.Since(time.Unix(lastFired, 0)) >= s.interval, nil
}

// markFired records now as the schedule's last firing.
func (s *Scheduler) markFired(ctx context.Context) error {
	key := fmt.Sprintf(schedulesHashKeyFormat, s.jobType)
	if err := s.redis.HSet(ctx, key, lastFiredField, time.Now().Unix()).Err(); err != nil {
		return fmt.Errorf("failed to store last-fired timestamp: %w", err)
	}
	return nil
}
