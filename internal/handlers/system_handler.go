package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/cache"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/middleware"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

// Sweeper runs one pending order sweep
type Sweeper interface {
	Run(ctx context.Context) (*services.SweepReport, error)
}

// JobLister reports scheduled background jobs
type JobLister interface {
	Entries() []map[string]interface{}
}

// PaymentTrail reads what happened to a provider reference
type PaymentTrail interface {
	ListByReference(ctx context.Context, reference string) ([]models.AuditLog, error)
	CountByReference(ctx context.Context, reference string) (int, error)
}

// SystemHandler serves health and admin endpoints
type SystemHandler struct {
	db      database.DB
	redis   redis.UniversalClient
	sweeper Sweeper
	jobs    JobLister
	trail   PaymentTrail
	logger  *logrus.Logger
}

// NewSystemHandler creates a new system handler. redis and jobs may be nil.
func NewSystemHandler(db database.DB, redisClient redis.UniversalClient, sweeper Sweeper, jobs JobLister, trail PaymentTrail, logger *logrus.Logger) *SystemHandler {
	return &SystemHandler{db: db, redis: redisClient, sweeper: sweeper, jobs: jobs, trail: trail, logger: logger}
}

// Health handles GET /health and GET /api/v1/health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.WithError(err).Error("Database health check failed")
		checks["database"] = "unhealthy"
		healthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.redis != nil {
		if err := cache.HealthCheck(ctx, h.redis); err != nil {
			// the caches are optional; report but stay up
			h.logger.WithError(err).Warn("Redis health check failed")
			checks["redis"] = "degraded"
		} else {
			checks["redis"] = "healthy"
		}
	}

	status := http.StatusOK
	overall := "healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "unhealthy"
	}
	c.JSON(status, gin.H{
		"status": overall,
		"checks": checks,
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListJobs handles GET /api/v1/admin/jobs
func (h *SystemHandler) ListJobs(c *gin.Context) {
	jobs := []map[string]interface{}{}
	if h.jobs != nil {
		jobs = h.jobs.Entries()
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// RunSweep handles POST /api/v1/admin/jobs/sweep
func (h *SystemHandler) RunSweep(c *gin.Context) {
	report, err := h.sweeper.Run(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Manual sweep failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep_failed", "message": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

// PaymentAudit handles GET /api/v1/admin/payments/:reference/audit. It shows
// the audit trail of a reference next to the number of bookings it produced.
func (h *SystemHandler) PaymentAudit(c *gin.Context) {
	reference := c.Param("reference")
	ctx := c.Request.Context()

	entries, err := h.trail.ListByReference(ctx, reference)
	if err != nil {
		h.logger.WithError(err).WithField("reference", reference).Error("Failed to read audit trail")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Failed to read audit trail", RequestID: middleware.GetRequestID(c)})
		return
	}
	bookings, err := h.trail.CountByReference(ctx, reference)
	if err != nil {
		h.logger.WithError(err).WithField("reference", reference).Error("Failed to count bookings")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "Failed to count bookings", RequestID: middleware.GetRequestID(c)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"reference": reference,
		"bookings":  bookings,
		"entries":   entries,
	})
}
