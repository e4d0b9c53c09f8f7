package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditStatus is the outcome recorded by an audit entry
type AuditStatus string

const (
	AuditStatusStart   AuditStatus = "start"
	AuditStatusFail    AuditStatus = "fail"
	AuditStatusSuccess AuditStatus = "success"
)

// Audit event names
const (
	AuditEventPaymentInitiate = "payment_initiate"
	AuditEventPaymentVerify   = "payment_verify"
	AuditEventWebhook         = "webhook"
	AuditEventSweep           = "pending_sweep"
)

// Steps recorded in the payload of fail entries
const (
	AuditStepMissingProviderKey = "missing-provider-key"
	AuditStepProviderNetwork    = "provider-network"
	AuditStepProviderResult     = "provider-result"
	AuditStepCreateBooking      = "create-booking"
	AuditStepUpsertOrder        = "upsert-order"
	AuditStepSignature          = "signature"
	AuditStepIdentity           = "identity"
	AuditStepBus                = "bus"
)

// AuditLog is an immutable record of one reconciliation attempt step
type AuditLog struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	Event      string      `json:"event" db:"event"`
	Status     AuditStatus `json:"status" db:"status"`
	Payload    JSONB       `json:"payload" db:"payload"`
	Reference  *string     `json:"reference,omitempty" db:"reference"`
	BookingID  *uuid.UUID  `json:"booking_id,omitempty" db:"booking_id"`
	OrderID    *uuid.UUID  `json:"order_id,omitempty" db:"order_id"`
	UserID     *uuid.UUID  `json:"user_id,omitempty" db:"user_id"`
	InsertedAt time.Time   `json:"inserted_at" db:"inserted_at"`
}

// NewAuditLog creates an audit entry with an empty payload
func NewAuditLog(event string, status AuditStatus) *AuditLog {
	return &AuditLog{
		ID:         uuid.New(),
		Event:      event,
		Status:     status,
		Payload:    JSONB{},
		InsertedAt: time.Now(),
	}
}

// SetReference links the entry to a provider reference
func (a *AuditLog) SetReference(ref string) *AuditLog {
	if ref != "" {
		a.Reference = &ref
	}
	return a
}

// SetUser links the entry to the acting user
func (a *AuditLog) SetUser(userID uuid.UUID) *AuditLog {
	if userID != uuid.Nil {
		a.UserID = &userID
	}
	return a
}

// SetBooking links the entry to a booking
func (a *AuditLog) SetBooking(bookingID uuid.UUID) *AuditLog {
	a.BookingID = &bookingID
	return a
}

// SetOrder links the entry to an order
func (a *AuditLog) SetOrder(orderID uuid.UUID) *AuditLog {
	a.OrderID = &orderID
	return a
}

// SetStep records which step of the flow produced the entry
func (a *AuditLog) SetStep(step string) *AuditLog {
	return a.With("step", step)
}

// SetError records an error message
func (a *AuditLog) SetError(err error) *AuditLog {
	if err != nil {
		a.With("error", err.Error())
	}
	return a
}

// With adds a payload field
func (a *AuditLog) With(key string, value interface{}) *AuditLog {
	if a.Payload == nil {
		a.Payload = JSONB{}
	}
	a.Payload[key] = value
	return a
}

// Step returns the recorded step, if any
func (a *AuditLog) Step() string {
	step, _ := a.Payload["step"].(string)
	return step
}
