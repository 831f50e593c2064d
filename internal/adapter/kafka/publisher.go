package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"affiliate-ledger/internal/core/domain"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements ports.EventPublisher on a kafka topic. Events are
// keyed by tracker id so one tracker's events stay ordered.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish writes one JSON-encoded event.
func (p *Publisher) Publish(ctx context.Context, event domain.AccrualEvent) error {
	v, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: v,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending writes and releases the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
