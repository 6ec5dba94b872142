// Package kafka publishes relay events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/campusai/campus/pkg/eventstream"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "campus.relay"

// MessageWriter is the part of *kafkago.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Config configures a Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string
	Logger  *slog.Logger

	// Writer overrides the writer built from Brokers. Used by tests.
	Writer MessageWriter
}

// Publisher writes relay events as JSON messages keyed by subject, so one
// student's events land on one partition in order.
type Publisher struct {
	writer MessageWriter
	topic  string
	logger *slog.Logger
}

// NewPublisher creates a Kafka publisher.
func NewPublisher(c Config) (*Publisher, error) {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	w := c.Writer
	if w == nil {
		if len(c.Brokers) == 0 {
			return nil, errors.New("kafka publisher needs at least one broker")
		}
		w = &kafkago.Writer{
			Addr:                   kafkago.TCP(c.Brokers...),
			Topic:                  c.Topic,
			Balancer:               &kafkago.Hash{},
			RequiredAcks:           kafkago.RequireOne,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
			ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...any) {
				c.Logger.Error(fmt.Sprintf(msg, args...), "topic", c.Topic)
			}),
		}
	}

	return &Publisher{
		writer: w,
		topic:  c.Topic,
		logger: c.Logger,
	}, nil
}

// PublishRelay writes event to the topic.
func (p *Publisher) PublishRelay(ctx context.Context, event *eventstream.RelayCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilRelayEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal relay event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.Source.Subject),
		Value: payload,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: fmt.Appendf(nil, "%d", event.SchemaVersion)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish relay event to %s: %w", p.topic, err)
	}

	p.logger.Debug("published relay event", "topic", p.topic, "event_id", event.EventID)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
