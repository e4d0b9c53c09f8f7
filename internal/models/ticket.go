package models

import (
	"time"

	"github.com/google/uuid"
)

// TicketRow is the flat result of the booking ⨝ bus ⨝ order query
type TicketRow struct {
	BookingID        uuid.UUID     `db:"booking_id"`
	BookingCreatedAt time.Time     `db:"booking_created_at"`
	BookingStatus    BookingStatus `db:"booking_status"`
	BusID            uuid.UUID     `db:"bus_id"`
	BusName          string        `db:"bus_name"`
	PlateNumber      string        `db:"plate_number"`
	AmountCents      *int64        `db:"amount_cents"`
	Currency         *string       `db:"currency"`
	OrderStatus      *OrderStatus  `db:"order_status"`
	PaymentReference *string       `db:"payment_reference"`
}

// Ticket is the passenger-facing view of a booking
type Ticket struct {
	Booking TicketBooking `json:"booking"`
	Bus     TicketBus     `json:"bus"`
	Order   *TicketOrder  `json:"order,omitempty"`
}

type TicketBooking struct {
	ID        uuid.UUID     `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Status    BookingStatus `json:"status"`
}

type TicketBus struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	PlateNumber string    `json:"plate_number"`
}

type TicketOrder struct {
	AmountCents      int64       `json:"amount_cents"`
	Currency         string      `json:"currency"`
	Status           OrderStatus `json:"status"`
	PaymentReference string      `json:"payment_reference"`
}

// ToTicket shapes the joined row into the nested view
func (r *TicketRow) ToTicket() *Ticket {
	t := &Ticket{
		Booking: TicketBooking{ID: r.BookingID, CreatedAt: r.BookingCreatedAt, Status: r.BookingStatus},
		Bus:     TicketBus{ID: r.BusID, Name: r.BusName, PlateNumber: r.PlateNumber},
	}
	if r.PaymentReference != nil {
		order := &TicketOrder{PaymentReference: *r.PaymentReference}
		if r.AmountCents != nil {
			order.AmountCents = *r.AmountCents
		}
		if r.Currency != nil {
			order.Currency = *r.Currency
		}
		if r.OrderStatus != nil {
			order.Status = *r.OrderStatus
		}
		t.Order = order
	}
	return t
}
