package models

import "github.com/google/uuid"

// QuoteRequest asks for the price of a route or echoes a raw amount
type QuoteRequest struct {
	RouteID *uuid.UUID `json:"route_id,omitempty"`
	Amount  *int64     `json:"amount,omitempty"`
}

// QuoteResponse is the resolved price in minor units
type QuoteResponse struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// InitiatePaymentRequest starts a provider checkout
type InitiatePaymentRequest struct {
	Amount    *int64     `json:"amount,omitempty"`
	Currency  string     `json:"currency"`
	BusID     *uuid.UUID `json:"bus_id,omitempty"`
	RouteID   *uuid.UUID `json:"route_id,omitempty"`
	BookingID *uuid.UUID `json:"booking_id,omitempty"`
}

// InitiatePaymentResponse carries the redirect target for the client
type InitiatePaymentResponse struct {
	URL         string `json:"url"`
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

// VerifyPaymentRequest asks the server to re-verify a provider reference.
// UserID is accepted only to reject bodies that claim another identity.
type VerifyPaymentRequest struct {
	Reference string     `json:"reference"`
	BusID     *uuid.UUID `json:"bus_id"`
	RouteID   *uuid.UUID `json:"route_id,omitempty"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
}

// VerifyPaymentResponse is returned after a successful verification
type VerifyPaymentResponse struct {
	Success bool     `json:"success"`
	Booking *Booking `json:"booking"`
	Order   *Order   `json:"order"`
}

// BookingLookupResponse is the polling target after a provider redirect
type BookingLookupResponse struct {
	BookingID uuid.UUID   `json:"booking_id"`
	Status    OrderStatus `json:"status"`
}
