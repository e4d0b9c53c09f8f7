package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/apperrors"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/events"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// Sources of a reconciliation, carried on published events
const (
	SourceVerify  = "verify"
	SourceWebhook = "webhook"
	SourceSweep   = "sweep"
)

// ReconcilerService turns a confirmed payment into a paid booking and order.
// Verify, webhook and sweeper all go through it.
type ReconcilerService struct {
	orders    OrderStore
	publisher EventPublisher
	lookups   LookupCache
	logger    *logrus.Logger
}

// NewReconcilerService creates a ReconcilerService. lookups may be nil.
func NewReconcilerService(orders OrderStore, publisher EventPublisher, lookups LookupCache, logger *logrus.Logger) *ReconcilerService {
	return &ReconcilerService{orders: orders, publisher: publisher, lookups: lookups, logger: logger}
}

// Reconcile runs the reconciliation transaction for params.Reference. Replays
// return the existing pair with Created=false.
func (s *ReconcilerService) Reconcile(ctx context.Context, params *models.ReconcileParams, source string) (*models.ReconcileResult, error) {
	log := s.logger.WithFields(logrus.Fields{
		"reference": params.PaymentReference,
		"user_id":   params.UserID,
		"source":    source,
	})

	result, err := s.orders.ReconcilePaid(ctx, params)
	if err != nil {
		if errors.Is(err, database.ErrOwnerMismatch) {
			log.Warn("Reconciliation refused: reference belongs to another user")
			return nil, apperrors.NotFound(apperrors.CodeNotFound, "order not found")
		}

		code := apperrors.CodeOrderUpsertFailed
		message := "failed to update order"
		var stepErr *database.StepError
		if errors.As(err, &stepErr) && stepErr.Step == models.AuditStepCreateBooking {
			code = apperrors.CodeBookingCreateFailed
			message = "failed to create booking"
		}
		log.WithError(err).Error("Reconciliation failed")
		return nil, apperrors.Persistence(code, message, err)
	}

	if !result.Created {
		log.Info("Reference already reconciled")
		return result, nil
	}

	if s.lookups != nil {
		if err := s.lookups.Invalidate(ctx, params.UserID, params.PaymentReference); err != nil {
			log.WithError(err).Warn("Lookup cache invalidation failed")
		}
	}

	event := &events.BookingEvent{
		Type:        events.TypeBookingPaid,
		Reference:   params.PaymentReference,
		OrderID:     result.Order.ID,
		BookingID:   result.Order.BookingID,
		UserID:      result.Order.UserID,
		BusID:       result.Order.BusID,
		AmountCents: result.Order.AmountCents,
		Currency:    result.Order.Currency,
		Source:      source,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("Failed to publish booking event")
	}

	return result, nil
}

// stepOf returns the failed step recorded on a reconciliation error
func stepOf(err error) string {
	var stepErr *database.StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	if apperrors.HasCode(err, apperrors.CodeNotFound) {
		return models.AuditStepIdentity
	}
	return models.AuditStepUpsertOrder
}
