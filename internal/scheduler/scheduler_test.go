package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinfolio/coinfolio-go/internal/queue"
)

type stubPreparer struct {
	messages []queue.Outbound
	err      error
	calls    int
}

func (p *stubPreparer) PrepareMessages(ctx context.Context) ([]queue.Outbound, error) {
	p.calls++
	return p.messages, p.err
}

type capturingPublisher struct {
	mu        sync.Mutex
	published []queue.Outbound
	err       error
}

func (p *capturingPublisher) Publish(ctx context.Context, topic, key string, value interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, queue.Outbound{Topic: topic, Key: key, Value: value})
	return nil
}

func (p *capturingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func newTestScheduler(t *testing.T, client *redis.Client, owner string, preparer MessagePreparer, publisher queue.Publisher) *Scheduler {
	t.Helper()

	lock := NewDistributedLock(client, owner, 30*time.Second)
	sched, err := New("asset_data", "* * * * *", time.Second, lock, client, preparer, publisher)
	require.NoError(t, err)
	return sched
}

func TestTickPublishesDueBatchOnce(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	preparer := &stubPreparer{messages: []queue.Outbound{
		{Topic: queue.TopicAssetData, Key: "trace-1", Value: "batch-1"},
		{Topic: queue.TopicAssetData, Key: "trace-2", Value: "batch-2"},
	}}
	publisher := &capturingPublisher{}

	sched := newTestScheduler(t, client, "instance-a", preparer, publisher)

	sched.Tick(ctx)
	assert.Equal(t, 2, publisher.count())
	assert.Equal(t, 1, preparer.calls)

	// The schedule just fired; another tick within the interval is a no-op.
	sched.Tick(ctx)
	assert.Equal(t, 2, publisher.count())
	assert.Equal(t, 1, preparer.calls)
}

func TestTickOnlyLockHolderPublishes(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	publisher := &capturingPublisher{}
	messages := []queue.Outbound{{Topic: queue.TopicAssetData, Key: "trace-1", Value: "batch"}}

	preparers := []*stubPreparer{
		{messages: messages},
		{messages: messages},
		{messages: messages},
	}
	for i, owner := range []string{"instance-a", "instance-b", "instance-c"} {
		newTestScheduler(t, client, owner, preparers[i], publisher).Tick(ctx)
	}

	assert.Equal(t, 1, publisher.count())

	prepared := 0
	for _, p := range preparers {
		prepared += p.calls
	}
	assert.Equal(t, 1, prepared)
}

func TestTickRetriesAfterPublishFailure(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	preparer := &stubPreparer{messages: []queue.Outbound{
		{Topic: queue.TopicAssetData, Key: "trace-1", Value: "batch"},
	}}
	publisher := &capturingPublisher{err: errors.New("broker unavailable")}

	sched := newTestScheduler(t, client, "instance-a", preparer, publisher)

	// Publish fails, so the last-fired timestamp stays unset and the next
	// tick prepares again.
	sched.Tick(ctx)
	assert.Equal(t, 0, publisher.count())

	publisher.err = nil
	sched.Tick(ctx)
	assert.Equal(t, 1, publisher.count())
	assert.Equal(t, 2, preparer.calls)
}

func TestTickEmptyBatchStillMarksFired(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	preparer := &stubPreparer{}
	publisher := &capturingPublisher{}

	sched := newTestScheduler(t, client, "instance-a", preparer, publisher)

	sched.Tick(ctx)
	sched.Tick(ctx)

	// Nothing to enqueue counts as a completed run; the schedule is not
	// re-evaluated until the interval elapses.
	assert.Equal(t, 1, preparer.calls)
	assert.Equal(t, 0, publisher.count())
}
