package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/utils"
)

// AuditLogger appends audit entries. Write failures are logged and never
// propagate into the payment flow.
type AuditLogger struct {
	store  AuditStore
	logger *logrus.Logger
}

// NewAuditLogger creates an AuditLogger
func NewAuditLogger(store AuditStore, logger *logrus.Logger) *AuditLogger {
	return &AuditLogger{store: store, logger: logger}
}

// Record attaches request metadata to entry and stores it
func (a *AuditLogger) Record(ctx context.Context, entry *models.AuditLog, meta RequestMeta) {
	if meta.IP != "" {
		entry.With("ip", meta.IP)
	}
	if meta.RequestID != "" {
		entry.With("request_id", meta.RequestID)
	}
	if meta.UserAgent != "" {
		entry.With("device", utils.ParseUserAgent(meta.UserAgent))
	}

	if err := a.store.Insert(ctx, entry); err != nil {
		fields := logrus.Fields{
			"event":  entry.Event,
			"status": entry.Status,
			"step":   entry.Step(),
		}
		if entry.Reference != nil {
			fields["reference"] = *entry.Reference
		}
		a.logger.WithError(err).WithFields(fields).Error("Failed to write audit log")
	}
}
