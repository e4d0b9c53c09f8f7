package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the state of a seat booking
type BookingStatus string

const (
	BookingStatusReserved BookingStatus = "reserved"
	BookingStatusPaid     BookingStatus = "paid"
)

// Booking is a passenger's claim on a bus seat, created once per confirmed payment
type Booking struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	BusID     uuid.UUID     `json:"bus_id" db:"bus_id"`
	UserID    uuid.UUID     `json:"user_id" db:"user_id"`
	Status    BookingStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// BusBooking is a booking as its bus operator sees it
type BusBooking struct {
	ID               uuid.UUID     `json:"id" db:"id"`
	UserID           uuid.UUID     `json:"user_id" db:"user_id"`
	Status           BookingStatus `json:"status" db:"status"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	AmountCents      *int64        `json:"amount_cents,omitempty" db:"amount_cents"`
	Currency         *string       `json:"currency,omitempty" db:"currency"`
	PaymentReference *string       `json:"payment_reference,omitempty" db:"payment_reference"`
}
