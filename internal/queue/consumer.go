package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// HandlerFunc processes one message payload. A returned error means this
// message failed; the message is still committed (the next scheduled run
// retries naturally), except when the error is the consumer context being
// cancelled, in which case the offset is left uncommitted.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Consumer runs one reader loop per registered topic and dispatches payloads
// through an explicit topic -> handler table. Handler errors never stop a
// loop.
type Consumer struct {
	brokers  []string
	groupID  string
	handlers map[string]HandlerFunc
	wg       sync.WaitGroup
	log      *logrus.Entry
}

// NewConsumer creates a consumer bound to a consumer group.
func NewConsumer(brokers []string, groupID string) *Consumer {
	return &Consumer{
		brokers:  brokers,
		groupID:  groupID,
		handlers: make(map[string]HandlerFunc),
		log:      logrus.WithField("component", "queue_consumer"),
	}
}

// Register binds a handler to a topic. Must be called before Start.
func (c *Consumer) Register(topic string, handler HandlerFunc) {
	c.handlers[topic] = handler
}

// Start launches one consumer goroutine per registered topic. The loops stop
// when ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	for topic, handler := range c.handlers {
		c.wg.Add(1)
		go c.consume(ctx, topic, handler)
	}
	c.log.WithField("topics", len(c.handlers)).Info("Queue consumer started")
}

// Wait blocks until all consumer loops have stopped.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) consume(ctx context.Context, topic string, handler HandlerFunc) {
	defer c.wg.Done()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: c.brokers,
		GroupID: c.groupID,
		Topic:   topic,
	})
	defer func() {
		if err := reader.Close(); err != nil {
			c.log.WithField("topic", topic).WithError(err).Error("Failed to close reader")
		}
	}()

	log := c.log.WithField("topic", topic)
	log.Info("Consumer loop started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				log.Info("Consumer loop stopping")
				return
			}
			log.WithError(err).Error("Failed to fetch message")
			continue
		}

		if err := handler(ctx, msg.Value); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				// Cancelled mid-handling: leave the offset uncommitted so the
				// message is redelivered after restart.
				log.Info("Consumer loop stopping during handling")
				return
			}
			// Failed messages are still committed; the scheduler's next due
			// cycle produces a fresh request.
			log.WithError(err).Error("Message handling failed")
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			log.WithError(err).Error("Failed to commit message offset")
		}
	}
}
