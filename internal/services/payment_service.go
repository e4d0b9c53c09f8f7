package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/apperrors"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// PaymentService starts provider checkouts and records pending orders
type PaymentService struct {
	pricing         *PricingService
	provider        PaymentProvider
	orders          OrderStore
	buses           BusLookup
	audit           *AuditLogger
	defaultCurrency string
	logger          *logrus.Logger
}

// NewPaymentService creates a PaymentService
func NewPaymentService(pricing *PricingService, provider PaymentProvider, orders OrderStore, buses BusLookup, audit *AuditLogger, defaultCurrency string, logger *logrus.Logger) *PaymentService {
	return &PaymentService{
		pricing:         pricing,
		provider:        provider,
		orders:          orders,
		buses:           buses,
		audit:           audit,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// Quote resolves a price without side effects
func (s *PaymentService) Quote(ctx context.Context, req *models.QuoteRequest) (*models.QuoteResponse, error) {
	amount, err := s.pricing.Resolve(ctx, req.RouteID, req.Amount)
	if err != nil {
		return nil, err
	}
	return &models.QuoteResponse{AmountCents: amount, Currency: s.defaultCurrency}, nil
}

// NormalizeCurrency upper-cases code and checks it is a 3-letter code
func NormalizeCurrency(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", false
		}
	}
	return code, true
}

// checkBookableBus rejects an unknown or suspended bus. A nil id passes: the
// order is then paid without a booking.
func checkBookableBus(ctx context.Context, buses BusLookup, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	bus, err := buses.GetByID(ctx, *id)
	if err != nil {
		return mapStoreErr(err, apperrors.CodeBusNotFound, "bus not found", "failed to load bus")
	}
	if bus.IsSuspended {
		return apperrors.Validation(apperrors.CodeBusSuspended, "bus is suspended")
	}
	return nil
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// Initiate resolves the price, creates a provider checkout and upserts the
// pending order for the returned reference.
func (s *PaymentService) Initiate(ctx context.Context, caller Caller, req *models.InitiatePaymentRequest, meta RequestMeta) (*models.InitiatePaymentResponse, error) {
	if err := caller.requireIdentity(); err != nil {
		return nil, err
	}
	if caller.Email == "" {
		return nil, apperrors.Unauthenticated("credential carries no email")
	}

	rawCurrency := req.Currency
	if strings.TrimSpace(rawCurrency) == "" {
		rawCurrency = s.defaultCurrency
	}
	currency, ok := NormalizeCurrency(rawCurrency)
	if !ok {
		return nil, apperrors.Validation(apperrors.CodeMissingParameters, "currency must be a 3-letter code")
	}
	if req.RouteID == nil && req.Amount == nil {
		return nil, apperrors.Validation(apperrors.CodeMissingParameters, "either route_id or amount is required")
	}

	amount, err := s.pricing.Resolve(ctx, req.RouteID, req.Amount)
	if err != nil {
		return nil, err
	}
	if err := checkBookableBus(ctx, s.buses, req.BusID); err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"user_id":  caller.UserID,
		"amount":   amount,
		"currency": currency,
	})

	customerID, err := s.provider.FindOrCreateCustomer(ctx, caller.Email)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeMissingProviderKey) {
			s.recordFailure(ctx, caller, "", models.AuditStepMissingProviderKey, err, meta)
			return nil, err
		}
		log.WithError(err).Warn("Customer lookup failed, continuing without customer")
		customerID = ""
	}

	session, err := s.provider.InitializeTransaction(ctx, &CheckoutRequest{
		Email:       caller.Email,
		AmountCents: amount,
		Currency:    currency,
		CustomerID:  customerID,
		Metadata: map[string]string{
			"user_id":    caller.UserID.String(),
			"bus_id":     idString(req.BusID),
			"route_id":   idString(req.RouteID),
			"booking_id": idString(req.BookingID),
		},
	})
	if err != nil {
		step := models.AuditStepProviderNetwork
		if apperrors.HasCode(err, apperrors.CodeMissingProviderKey) {
			step = models.AuditStepMissingProviderKey
		}
		s.recordFailure(ctx, caller, "", step, err, meta)
		return nil, err
	}

	order, err := s.orders.UpsertPending(ctx, &models.PendingOrder{
		UserID:           caller.UserID,
		BusID:            req.BusID,
		RouteID:          req.RouteID,
		BookingID:        req.BookingID,
		PaymentReference: session.Reference,
		AmountCents:      amount,
		Currency:         currency,
	})
	if err != nil {
		s.recordFailure(ctx, caller, session.Reference, models.AuditStepUpsertOrder, err, meta)
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to record pending order", err)
	}
	if order.UserID != caller.UserID {
		// the provider handed out a reference already bound to another user
		s.recordFailure(ctx, caller, session.Reference, models.AuditStepIdentity, nil, meta)
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "payment reference already in use", nil)
	}

	entry := models.NewAuditLog(models.AuditEventPaymentInitiate, models.AuditStatusSuccess).
		SetReference(session.Reference).
		SetUser(caller.UserID).
		SetOrder(order.ID).
		With("amount_cents", amount).
		With("currency", currency)
	s.audit.Record(ctx, entry, meta)

	log.WithField("reference", session.Reference).Info("Payment initiated")

	return &models.InitiatePaymentResponse{
		URL:         session.AuthorizationURL,
		Reference:   session.Reference,
		AmountCents: amount,
		Currency:    currency,
	}, nil
}

func (s *PaymentService) recordFailure(ctx context.Context, caller Caller, reference, step string, err error, meta RequestMeta) {
	entry := models.NewAuditLog(models.AuditEventPaymentInitiate, models.AuditStatusFail).
		SetReference(reference).
		SetUser(caller.UserID).
		SetStep(step).
		SetError(err)
	s.audit.Record(ctx, entry, meta)
}
