package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Publisher is the outbound side of the queue, implemented by Producer.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Producer handles producing messages to Kafka topics. Writers are created
// lazily per topic and write synchronously, so a returned nil error means
// the message has been accepted by the broker.
type Producer struct {
	mu       sync.Mutex
	writers  map[string]*kafka.Writer
	brokers  []string
	clientID string
	log      *logrus.Entry
}

// NewProducer creates a new Kafka producer.
func NewProducer(brokers []string, clientID string) *Producer {
	return &Producer{
		writers:  make(map[string]*kafka.Writer),
		brokers:  brokers,
		clientID: clientID,
		log:      logrus.WithField("component", "queue_producer"),
	}
}

// getWriter returns a Kafka writer for the specified topic.
func (p *Producer) getWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, exists := p.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		Transport: &kafka.Transport{
			ClientID: p.clientID,
		},
	}

	p.writers[topic] = writer
	return writer
}

// Publish sends a message to a Kafka topic.
func (p *Producer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	writer := p.getWriter(topic)

	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message for topic %s: %w", topic, err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
		Time:  time.Now(),
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}

	p.log.WithFields(logrus.Fields{
		"topic": topic,
		"key":   key,
	}).Debug("Message published")

	return nil
}

// Close closes all Kafka writers.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil {
			p.log.WithField("topic", topic).WithError(err).Error("Failed to close Kafka writer")
		}
	}
	return nil
}
