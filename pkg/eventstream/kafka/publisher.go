// Package kafka publishes memory events to a Kafka topic.
//
// Events are JSON encoded and keyed by owner scope, so a consumer sees one
// owner's changes in order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/recall/pkg/eventstream"
)

const (
	// DefaultTopic is used when no topic is configured.
	DefaultTopic = "recall.memories"

	defaultBatchTimeout = 50 * time.Millisecond
)

// Config holds configuration for the Kafka publisher.
type Config struct {
	// Brokers are the bootstrap broker addresses. Required.
	Brokers []string

	// Topic is the destination topic. Defaults to DefaultTopic.
	Topic string

	// BatchTimeout bounds how long the writer waits to fill a batch.
	BatchTimeout time.Duration
}

// messageWriter is the subset of *kafkago.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher implements eventstream.Publisher on a kafka-go Writer.
type Publisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewPublisher creates a Kafka publisher. No connection is made until the
// first publish.
func NewPublisher(cfg Config, logger *slog.Logger) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           batchTimeout,
		AllowAutoTopicCreation: true,
	}

	logger.Info("kafka event publisher initialized",
		"brokers", cfg.Brokers,
		"topic", topic,
	)

	return newPublisher(w, topic, logger), nil
}

func newPublisher(w messageWriter, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, topic: topic, logger: logger}
}

// PublishMemory writes one event to the topic.
func (p *Publisher) PublishMemory(ctx context.Context, event *eventstream.MemoryEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event %s: %w", event.EventID, err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(strconv.Itoa(event.SchemaVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing event %s to %s: %w", event.EventID, p.topic, err)
	}

	p.logger.Debug("published memory event",
		"event_type", event.EventType,
		"event_id", event.EventID,
		"memory_id", event.MemoryID,
	)
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ eventstream.Publisher = (*Publisher)(nil)
