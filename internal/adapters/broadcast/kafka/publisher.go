// Package kafka streams every domain event to a Kafka topic for downstream
// consumers (analytics, archiving). Publishing is asynchronous.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/vncsmyrnk/livepoll/internal/config"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
}

var _ ports.EventPublisher = (*Publisher)(nil)

func NewPublisher(cfg config.KafkaConfig) *Publisher {
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafkago.RequireOne,
		Async:        true,
		Completion: func(messages []kafkago.Message, err error) {
			if err != nil {
				slog.Warn("failed to deliver events to kafka", "count", len(messages), "error", err)
			}
		},
	}
	slog.Info("kafka publisher configured", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return &Publisher{writer: writer}
}

// Publish enqueues event keyed by Event.Key, so events of one poll land on
// one partition in order.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write event to kafka: %w", err)
	}
	return nil
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func newMessage(event domain.Event) (kafkago.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("failed to encode event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Key()),
		Value: value,
		Time:  event.OccurredAt,
		Headers: []kafkago.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}
