package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/config"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/events"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

// Runs one pending order sweep and prints the report. Useful after an outage
// when the scheduled sweep is disabled.
func main() {
	var minAge, maxAge time.Duration
	var batch int
	flag.DurationVar(&minAge, "min-age", 0, "override SWEEP_MIN_AGE")
	flag.DurationVar(&maxAge, "max-age", 0, "override SWEEP_MAX_AGE")
	flag.IntVar(&batch, "batch", 0, "override SWEEP_BATCH_SIZE")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if minAge > 0 {
		cfg.Sweep.MinAge = minAge
	}
	if maxAge > 0 {
		cfg.Sweep.MaxAge = maxAge
	}
	if batch > 0 {
		cfg.Sweep.BatchSize = batch
	}

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.BookingTopic, logger)
	defer publisher.Close()

	orders := database.NewOrderRepository(db.DB, logger)
	audit := services.NewAuditLogger(database.NewAuditLogRepository(db.DB), logger)
	provider := services.NewPaystackClient(cfg.Payment, logger)
	reconciler := services.NewReconcilerService(orders, publisher, nil, logger)
	sweeper := services.NewSweepService(orders, provider, reconciler, publisher, audit, cfg.Sweep, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := sweeper.Run(ctx)
	if report != nil {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
	}
	if err != nil {
		log.Fatalf("sweep failed: %v", err)
	}
}
