package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/apperrors"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// VerificationService re-verifies a reference with the provider before any
// booking is created. Client claims of success are never trusted.
type VerificationService struct {
	provider   PaymentProvider
	orders     OrderStore
	buses      BusLookup
	reconciler *ReconcilerService
	audit      *AuditLogger
	logger     *logrus.Logger
}

// NewVerificationService creates a VerificationService
func NewVerificationService(provider PaymentProvider, orders OrderStore, buses BusLookup, reconciler *ReconcilerService, audit *AuditLogger, logger *logrus.Logger) *VerificationService {
	return &VerificationService{
		provider:   provider,
		orders:     orders,
		buses:      buses,
		reconciler: reconciler,
		audit:      audit,
		logger:     logger,
	}
}

// Verify confirms req.Reference with the provider and reconciles it for the
// caller. Calling it again for a reconciled reference returns the same booking.
func (s *VerificationService) Verify(ctx context.Context, caller Caller, req *models.VerifyPaymentRequest, meta RequestMeta) (*models.VerifyPaymentResponse, error) {
	if err := caller.requireIdentity(); err != nil {
		return nil, err
	}

	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, apperrors.Validation(apperrors.CodeMissingParameters, "reference is required")
	}

	fail := func(step string, err error, extra map[string]interface{}) {
		entry := models.NewAuditLog(models.AuditEventPaymentVerify, models.AuditStatusFail).
			SetReference(reference).
			SetUser(caller.UserID).
			SetStep(step).
			SetError(err)
		for k, v := range extra {
			entry.With(k, v)
		}
		s.audit.Record(ctx, entry, meta)
	}

	if req.UserID != nil && *req.UserID != caller.UserID {
		fail(models.AuditStepIdentity, nil, map[string]interface{}{"claimed_user_id": req.UserID.String()})
		return nil, apperrors.Forbidden("request identity does not match credential")
	}

	log := s.logger.WithFields(logrus.Fields{
		"reference": reference,
		"user_id":   caller.UserID,
	})

	start := models.NewAuditLog(models.AuditEventPaymentVerify, models.AuditStatusStart).
		SetReference(reference).
		SetUser(caller.UserID)
	if req.BusID != nil {
		start.With("bus_id", req.BusID.String())
	}
	s.audit.Record(ctx, start, meta)

	if err := checkBookableBus(ctx, s.buses, req.BusID); err != nil {
		fail(models.AuditStepBus, err, nil)
		return nil, err
	}

	tx, err := s.provider.VerifyTransaction(ctx, reference)
	if err != nil {
		step := models.AuditStepProviderNetwork
		if apperrors.HasCode(err, apperrors.CodeMissingProviderKey) {
			step = models.AuditStepMissingProviderKey
		}
		fail(step, err, nil)
		log.WithError(err).Error("Provider verification call failed")
		return nil, err
	}

	if !tx.Succeeded() {
		fail(models.AuditStepProviderResult, nil, map[string]interface{}{"provider_status": tx.Status})
		if tx.Status == ProviderStatusFailed || tx.Status == ProviderStatusAbandoned {
			if _, err := s.orders.MarkFailed(ctx, reference); err != nil {
				log.WithError(err).Warn("Failed to mark order failed")
			}
		}
		log.WithField("provider_status", tx.Status).Info("Payment not successful")
		return nil, apperrors.VerificationFailed("payment was not successful: " + tx.Status)
	}

	claimedCurrency, _ := NormalizeCurrency(req.Currency)
	mismatch := (req.Amount != 0 && req.Amount != tx.AmountCents) ||
		(claimedCurrency != "" && claimedCurrency != tx.Currency)

	result, err := s.reconciler.Reconcile(ctx, &models.ReconcileParams{
		UserID:           caller.UserID,
		BusID:            req.BusID,
		RouteID:          req.RouteID,
		PaymentReference: reference,
		AmountCents:      tx.AmountCents,
		Currency:         tx.Currency,
	}, SourceVerify)
	if err != nil {
		fail(stepOf(err), err, nil)
		return nil, err
	}

	success := models.NewAuditLog(models.AuditEventPaymentVerify, models.AuditStatusSuccess).
		SetReference(reference).
		SetUser(caller.UserID).
		SetOrder(result.Order.ID).
		With("created", result.Created).
		With("amount_cents", tx.AmountCents).
		With("currency", tx.Currency)
	if result.Booking != nil {
		success.SetBooking(result.Booking.ID)
	}
	if mismatch {
		success.With("amount_mismatch", true).
			With("claimed_amount", req.Amount).
			With("claimed_currency", claimedCurrency)
		log.Warn("Claimed amount differs from provider-verified amount")
	}
	s.audit.Record(ctx, success, meta)

	return &models.VerifyPaymentResponse{
		Success: true,
		Booking: result.Booking,
		Order:   result.Order,
	}, nil
}
