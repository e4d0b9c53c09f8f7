package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the payment state of an order
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
	OrderStatusFailed  OrderStatus = "failed"
)

// Order records a payment attempt, keyed uniquely by the provider reference
type Order struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	UserID           uuid.UUID   `json:"user_id" db:"user_id"`
	BusID            *uuid.UUID  `json:"bus_id,omitempty" db:"bus_id"`
	RouteID          *uuid.UUID  `json:"route_id,omitempty" db:"route_id"`
	BookingID        *uuid.UUID  `json:"booking_id,omitempty" db:"booking_id"`
	PaymentReference string      `json:"payment_reference" db:"payment_reference"`
	AmountCents      int64       `json:"amount_cents" db:"amount_cents"`
	Currency         string      `json:"currency" db:"currency"`
	Status           OrderStatus `json:"status" db:"status"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

// IsReconciled reports whether the order is paid and linked to a booking
func (o *Order) IsReconciled() bool {
	return o.Status == OrderStatusPaid && o.BookingID != nil
}

// PendingOrder holds the fields written when a checkout is started
type PendingOrder struct {
	UserID           uuid.UUID
	BusID            *uuid.UUID
	RouteID          *uuid.UUID
	BookingID        *uuid.UUID
	PaymentReference string
	AmountCents      int64
	Currency         string
}

// ReconcileParams is the input of a booking/order reconciliation
type ReconcileParams struct {
	UserID           uuid.UUID
	BusID            *uuid.UUID
	RouteID          *uuid.UUID
	PaymentReference string
	AmountCents      int64
	Currency         string
}

// ReconcileResult is the booking/order pair produced for a reference.
// Created is false when the reference had already been reconciled.
type ReconcileResult struct {
	Booking *Booking `json:"booking,omitempty"`
	Order   *Order   `json:"order"`
	Created bool     `json:"created"`
}
