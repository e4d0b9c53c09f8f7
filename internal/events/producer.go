// Package events publishes booking lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Event types
const (
	TypeBookingPaid = "booking.paid"
	TypeOrderFailed = "order.failed"
)

// BookingEvent is the message published for a reconciled or failed order
type BookingEvent struct {
	Type        string     `json:"type"`
	Reference   string     `json:"reference"`
	OrderID     uuid.UUID  `json:"order_id"`
	BookingID   *uuid.UUID `json:"booking_id,omitempty"`
	UserID      uuid.UUID  `json:"user_id"`
	BusID       *uuid.UUID `json:"bus_id,omitempty"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	Source      string     `json:"source"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// Publisher sends booking events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event *BookingEvent) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes events to a single topic keyed by payment reference,
// so all events of one order land on the same partition.
type Producer struct {
	writer messageWriter
	topic  string
	logger *logrus.Logger
}

// NewProducer creates a Kafka producer for topic
func NewProducer(brokers []string, topic string, logger *logrus.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: writer, topic: topic, logger: logger}
}

func (p *Producer) Publish(ctx context.Context, event *BookingEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Reference),
		Value: data,
		Time:  event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     p.topic,
		"type":      event.Type,
		"reference": event.Reference,
	}).Debug("Event published")
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *BookingEvent) error { return nil }
func (NopPublisher) Close() error                                 { return nil }

// NewPublisher returns a Kafka producer, or a NopPublisher when brokers is empty
func NewPublisher(brokers []string, topic string, logger *logrus.Logger) Publisher {
	if len(brokers) == 0 {
		logger.Info("Kafka brokers not configured, booking events disabled")
		return NopPublisher{}
	}
	return NewProducer(brokers, topic, logger)
}
