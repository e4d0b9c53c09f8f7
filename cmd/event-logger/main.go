package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/config"
	"github.com/smarttransit/bus-booking-backend/internal/events"
)

// Tails the booking event topic and writes each event as a structured log line.
func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if len(cfg.Kafka.Brokers) == 0 {
		logger.Fatal("KAFKA_BROKERS is not set")
	}

	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.Kafka.BookingTopic, logger)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithField("topic", cfg.Kafka.BookingTopic).Info("Consuming booking events")
	err = consumer.Consume(ctx, func(_ context.Context, event *events.BookingEvent) error {
		entry := logger.WithFields(logrus.Fields{
			"type":         event.Type,
			"reference":    event.Reference,
			"order_id":     event.OrderID,
			"user_id":      event.UserID,
			"amount_cents": event.AmountCents,
			"currency":     event.Currency,
			"source":       event.Source,
		})
		if event.BookingID != nil {
			entry = entry.WithField("booking_id", *event.BookingID)
		}
		entry.Info("Booking event")
		return nil
	})
	if err != nil {
		logger.Fatalf("Consumer stopped: %v", err)
	}
	logger.Info("Consumer stopped")
}
