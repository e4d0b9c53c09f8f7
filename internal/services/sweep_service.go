package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/config"
	"github.com/smarttransit/bus-booking-backend/internal/events"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// SweepReport summarises one sweeper run
type SweepReport struct {
	Expired      int64 `json:"expired"`
	Checked      int   `json:"checked"`
	Reconciled   int   `json:"reconciled"`
	Failed       int   `json:"failed"`
	StillPending int   `json:"still_pending"`
	Errors       int   `json:"errors"`
}

// SweepService re-verifies pending orders whose client never came back, so
// payments completed at the provider still produce bookings
type SweepService struct {
	orders     OrderStore
	provider   PaymentProvider
	reconciler *ReconcilerService
	publisher  EventPublisher
	audit      *AuditLogger
	cfg        config.SweepConfig
	logger     *logrus.Logger
}

// NewSweepService creates a SweepService
func NewSweepService(orders OrderStore, provider PaymentProvider, reconciler *ReconcilerService, publisher EventPublisher, audit *AuditLogger, cfg config.SweepConfig, logger *logrus.Logger) *SweepService {
	return &SweepService{
		orders:     orders,
		provider:   provider,
		reconciler: reconciler,
		publisher:  publisher,
		audit:      audit,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run performs one sweep: expire orders past the max age, then re-verify a
// batch of stale pending orders
func (s *SweepService) Run(ctx context.Context) (*SweepReport, error) {
	report := &SweepReport{}

	expired, err := s.orders.ExpirePending(ctx, s.cfg.MaxAge)
	if err != nil {
		return report, fmt.Errorf("failed to expire pending orders: %w", err)
	}
	report.Expired = expired

	stale, err := s.orders.ListStalePending(ctx, s.cfg.MinAge, s.cfg.MaxAge, s.cfg.BatchSize)
	if err != nil {
		return report, fmt.Errorf("failed to list pending orders: %w", err)
	}

	for i := range stale {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		report.Checked++
		s.sweepOne(ctx, &stale[i], report)
	}

	s.logger.WithFields(logrus.Fields{
		"expired":       report.Expired,
		"checked":       report.Checked,
		"reconciled":    report.Reconciled,
		"failed":        report.Failed,
		"still_pending": report.StillPending,
		"errors":        report.Errors,
	}).Info("Pending order sweep finished")

	return report, nil
}

func (s *SweepService) sweepOne(ctx context.Context, order *models.Order, report *SweepReport) {
	log := s.logger.WithField("reference", order.PaymentReference)

	tx, err := s.provider.VerifyTransaction(ctx, order.PaymentReference)
	if err != nil {
		report.Errors++
		log.WithError(err).Warn("Sweep verification failed")
		return
	}

	switch {
	case tx.Succeeded():
		_, err := s.reconciler.Reconcile(ctx, &models.ReconcileParams{
			UserID:           order.UserID,
			BusID:            order.BusID,
			RouteID:          order.RouteID,
			PaymentReference: order.PaymentReference,
			AmountCents:      tx.AmountCents,
			Currency:         tx.Currency,
		}, SourceSweep)
		if err != nil {
			report.Errors++
			s.record(ctx, order, models.AuditStatusFail, stepOf(err), err)
			return
		}
		report.Reconciled++
		s.record(ctx, order, models.AuditStatusSuccess, "", nil)

	case tx.Final():
		changed, err := s.orders.MarkFailed(ctx, order.PaymentReference)
		if err != nil {
			report.Errors++
			log.WithError(err).Warn("Failed to mark order failed")
			return
		}
		if !changed {
			return
		}
		report.Failed++
		s.record(ctx, order, models.AuditStatusFail, models.AuditStepProviderResult, fmt.Errorf("provider status %s", tx.Status))
		event := &events.BookingEvent{
			Type:        events.TypeOrderFailed,
			Reference:   order.PaymentReference,
			OrderID:     order.ID,
			UserID:      order.UserID,
			BusID:       order.BusID,
			AmountCents: order.AmountCents,
			Currency:    order.Currency,
			Source:      SourceSweep,
			OccurredAt:  time.Now().UTC(),
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			log.WithError(err).Warn("Failed to publish order failed event")
		}

	default:
		report.StillPending++
	}
}

func (s *SweepService) record(ctx context.Context, order *models.Order, status models.AuditStatus, step string, err error) {
	entry := models.NewAuditLog(models.AuditEventSweep, status).
		SetReference(order.PaymentReference).
		SetUser(order.UserID).
		SetOrder(order.ID).
		SetError(err)
	if step != "" {
		entry.SetStep(step)
	}
	s.audit.Record(ctx, entry, RequestMeta{})
}
