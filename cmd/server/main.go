package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/cache"
	"github.com/smarttransit/bus-booking-backend/internal/config"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/events"
	"github.com/smarttransit/bus-booking-backend/internal/handlers"
	"github.com/smarttransit/bus-booking-backend/internal/services"
	"github.com/smarttransit/bus-booking-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

// paymentTrail joins the audit and booking reads behind the admin audit endpoint
type paymentTrail struct {
	*database.AuditLogRepository
	*database.BookingRepository
}

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting SmartTransit bus booking backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Redis backs optional caches; the service runs without it
	var redisClient redis.UniversalClient
	var priceCache services.PriceCache
	var lookupCache services.LookupCache
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(context.Background(), cfg.Redis)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, caches disabled")
		} else {
			defer client.Close()
			redisClient = client
			priceCache = cache.NewPriceCache(client, cfg.Redis.PriceCacheTTL)
			lookupCache = cache.NewLookupCache(client, cfg.Redis.LookupTTL)
			logger.WithField("addr", cfg.Redis.Addr).Info("Redis connected")
		}
	}

	publisher := events.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.BookingTopic, logger)
	defer publisher.Close()

	// Repositories
	routeRepository := database.NewRouteRepository(db.DB)
	busRepository := database.NewBusRepository(db.DB)
	tripRepository := database.NewTripRepository(db.DB)
	announcementRepository := database.NewAnnouncementRepository(db.DB)
	orderRepository := database.NewOrderRepository(db.DB, logger)
	bookingRepository := database.NewBookingRepository(db.DB)
	auditRepository := database.NewAuditLogRepository(db.DB)

	// Services
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)
	provider := services.NewPaystackClient(cfg.Payment, logger)
	auditLogger := services.NewAuditLogger(auditRepository, logger)
	pricingService := services.NewPricingService(routeRepository, priceCache, logger)
	reconciler := services.NewReconcilerService(orderRepository, publisher, lookupCache, logger)
	paymentService := services.NewPaymentService(pricingService, provider, orderRepository, busRepository, auditLogger, cfg.Payment.DefaultCurrency, logger)
	verificationService := services.NewVerificationService(provider, orderRepository, busRepository, reconciler, auditLogger, logger)
	webhookService := services.NewWebhookService(cfg.Payment.WebhookSecret, cfg.Payment.WebhookTolerance, orderRepository, reconciler, auditLogger, logger)
	ticketService := services.NewTicketService(bookingRepository, orderRepository, lookupCache, logger)
	fleetService := services.NewFleetService(routeRepository, busRepository, tripRepository, announcementRepository, bookingRepository, pricingService, logger)
	sweepService := services.NewSweepService(orderRepository, provider, reconciler, publisher, auditLogger, cfg.Sweep, logger)

	var cronService *services.CronService
	var jobs handlers.JobLister
	if cfg.Sweep.Enabled {
		cronService = services.NewCronService(sweepService, cfg.Sweep.Schedule, logger)
		if err := cronService.Start(); err != nil {
			logger.Fatalf("Failed to start cron service: %v", err)
		}
		jobs = cronService
	}
	logger.Info("Services initialized")

	router := handlers.NewRouter(handlers.RouterDeps{
		Payments:  handlers.NewPaymentHandler(paymentService, verificationService, ticketService, logger),
		Webhooks:  handlers.NewWebhookHandler(webhookService, logger),
		Tickets:   handlers.NewTicketHandler(ticketService, logger),
		Fleet:     handlers.NewFleetHandler(fleetService, logger),
		System:    handlers.NewSystemHandler(db, redisClient, sweepService, jobs, paymentTrail{auditRepository, bookingRepository}, logger),
		Validator: jwtService,
		CORS:      cfg.CORS,
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if cronService != nil {
		cronService.Stop(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}
