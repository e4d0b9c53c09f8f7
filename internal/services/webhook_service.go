package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/apperrors"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// SignatureHeader carries "t=<unix>,v1=<hex hmac>"
const SignatureHeader = "X-Webhook-Signature"

// Event types that complete a payment
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventChargeSuccess     = "charge.success"
)

var errBadSignature = errors.New("signature mismatch")

// WebhookEvent is the provider notification body
type WebhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		ID        string `json:"id"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Status    string `json:"status"`
	} `json:"data"`
}

// Reference returns the payment reference, falling back to the session id
func (e *WebhookEvent) Reference() string {
	if e.Data.Reference != "" {
		return e.Data.Reference
	}
	return e.Data.ID
}

// WebhookResult describes what a delivery did
type WebhookResult struct {
	Handled   bool   `json:"handled"`
	Reference string `json:"reference,omitempty"`
	Reason    string `json:"reason,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
}

// WebhookService authenticates provider notifications and reconciles
// completed payments through the shared Reconciler
type WebhookService struct {
	secret     []byte
	tolerance  time.Duration
	orders     OrderStore
	reconciler *ReconcilerService
	audit      *AuditLogger
	logger     *logrus.Logger
	now        func() time.Time
}

// NewWebhookService creates a WebhookService
func NewWebhookService(secret string, tolerance time.Duration, orders OrderStore, reconciler *ReconcilerService, audit *AuditLogger, logger *logrus.Logger) *WebhookService {
	return &WebhookService{
		secret:     []byte(secret),
		tolerance:  tolerance,
		orders:     orders,
		reconciler: reconciler,
		audit:      audit,
		logger:     logger,
		now:        time.Now,
	}
}

// Sign computes the signature header value for body at ts
func Sign(secret []byte, ts time.Time, body []byte) string {
	t := strconv.FormatInt(ts.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", t, computeSignature(secret, t, body))
}

func computeSignature(secret []byte, t string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(t))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against body. Any v1 entry may match.
func (s *WebhookService) VerifySignature(header string, body []byte) error {
	if len(s.secret) == 0 {
		return fmt.Errorf("webhook secret not configured")
	}

	var timestamp string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			candidates = append(candidates, value)
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return fmt.Errorf("malformed signature header")
	}

	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("malformed signature timestamp")
	}
	if s.tolerance > 0 {
		age := s.now().Sub(time.Unix(unix, 0))
		if age > s.tolerance || age < -s.tolerance {
			return fmt.Errorf("signature timestamp outside tolerance")
		}
	}

	expected := []byte(computeSignature(s.secret, timestamp, body))
	for _, candidate := range candidates {
		if hmac.Equal(expected, []byte(strings.ToLower(candidate))) {
			return nil
		}
	}
	return errBadSignature
}

// Handle authenticates and processes one delivery. Unknown orders and other
// event types are acknowledged without effect.
func (s *WebhookService) Handle(ctx context.Context, body []byte, signature string, meta RequestMeta) (*WebhookResult, error) {
	if err := s.VerifySignature(signature, body); err != nil {
		entry := models.NewAuditLog(models.AuditEventWebhook, models.AuditStatusFail).
			SetStep(models.AuditStepSignature).
			SetError(err)
		s.audit.Record(ctx, entry, meta)
		s.logger.WithError(err).WithField("ip", meta.IP).Warn("Webhook signature rejected")
		return nil, apperrors.Validation(apperrors.CodeInvalidSignature, "invalid webhook signature")
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidRequest, "malformed webhook payload")
	}

	reference := event.Reference()
	log := s.logger.WithFields(logrus.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"reference":  reference,
	})

	if event.Type != EventCheckoutCompleted && event.Type != EventChargeSuccess {
		log.Debug("Ignoring webhook event type")
		return &WebhookResult{Reference: reference, Reason: "ignored event type"}, nil
	}
	if reference == "" {
		log.Warn("Completion event without reference")
		return &WebhookResult{Reason: "missing reference"}, nil
	}

	order, err := s.orders.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Warn("Webhook for unknown order")
			return &WebhookResult{Reference: reference, Reason: "unknown order"}, nil
		}
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to load order", err)
	}

	start := models.NewAuditLog(models.AuditEventWebhook, models.AuditStatusStart).
		SetReference(reference).
		SetUser(order.UserID).
		SetOrder(order.ID).
		With("event_id", event.ID).
		With("event_type", event.Type)
	s.audit.Record(ctx, start, meta)

	amount := order.AmountCents
	if event.Data.Amount > 0 {
		amount = event.Data.Amount
	}
	currency := order.Currency
	if c, ok := NormalizeCurrency(event.Data.Currency); ok {
		currency = c
	}

	result, err := s.reconciler.Reconcile(ctx, &models.ReconcileParams{
		UserID:           order.UserID,
		BusID:            order.BusID,
		RouteID:          order.RouteID,
		PaymentReference: reference,
		AmountCents:      amount,
		Currency:         currency,
	}, SourceWebhook)
	if err != nil {
		entry := models.NewAuditLog(models.AuditEventWebhook, models.AuditStatusFail).
			SetReference(reference).
			SetUser(order.UserID).
			SetOrder(order.ID).
			SetStep(stepOf(err)).
			SetError(err)
		s.audit.Record(ctx, entry, meta)
		return nil, err
	}

	success := models.NewAuditLog(models.AuditEventWebhook, models.AuditStatusSuccess).
		SetReference(reference).
		SetUser(order.UserID).
		SetOrder(result.Order.ID).
		With("created", result.Created).
		With("event_id", event.ID)
	out := &WebhookResult{Handled: true, Reference: reference}
	if result.Booking != nil {
		success.SetBooking(result.Booking.ID)
		out.BookingID = result.Booking.ID.String()
	}
	s.audit.Record(ctx, success, meta)

	log.WithField("created", result.Created).Info("Webhook reconciled")
	return out, nil
}
