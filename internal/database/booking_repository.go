package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// BookingRepository handles booking reads
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// GetTicket returns the booking joined with its bus and order, restricted to
// bookings owned by userID. Missing and foreign bookings both yield ErrNotFound.
func (r *BookingRepository) GetTicket(ctx context.Context, bookingID, userID uuid.UUID) (*models.TicketRow, error) {
	var row models.TicketRow
	query := `
		SELECT bk.id AS booking_id, bk.created_at AS booking_created_at, bk.status AS booking_status,
			b.id AS bus_id, b.name AS bus_name, b.plate_number,
			o.amount_cents, o.currency, o.status AS order_status, o.payment_reference
		FROM bookings bk
		JOIN buses b ON b.id = bk.bus_id
		LEFT JOIN orders o ON o.booking_id = bk.id
		WHERE bk.id = $1 AND bk.user_id = $2
		LIMIT 1`
	if err := r.db.GetContext(ctx, &row, query, bookingID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return &row, nil
}

// ListTicketsForUser returns the paid tickets of userID, newest booking first
func (r *BookingRepository) ListTicketsForUser(ctx context.Context, userID uuid.UUID) ([]models.TicketRow, error) {
	rows := []models.TicketRow{}
	query := `
		SELECT bk.id AS booking_id, bk.created_at AS booking_created_at, bk.status AS booking_status,
			b.id AS bus_id, b.name AS bus_name, b.plate_number,
			o.amount_cents, o.currency, o.status AS order_status, o.payment_reference
		FROM orders o
		JOIN bookings bk ON bk.id = o.booking_id
		JOIN buses b ON b.id = bk.bus_id
		WHERE o.user_id = $1 AND bk.user_id = $1 AND o.status = 'paid'
		ORDER BY bk.created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return rows, nil
}

// ListForBus returns the bookings made on a bus with their order, newest first
func (r *BookingRepository) ListForBus(ctx context.Context, busID uuid.UUID) ([]models.BusBooking, error) {
	bookings := []models.BusBooking{}
	query := `
		SELECT bk.id, bk.user_id, bk.status, bk.created_at,
			o.amount_cents, o.currency, o.payment_reference
		FROM bookings bk
		LEFT JOIN orders o ON o.booking_id = bk.id
		WHERE bk.bus_id = $1
		ORDER BY bk.created_at DESC`
	if err := r.db.SelectContext(ctx, &bookings, query, busID); err != nil {
		return nil, fmt.Errorf("failed to list bus bookings: %w", err)
	}
	return bookings, nil
}

// CountByReference returns how many bookings are linked to a reference's order
func (r *BookingRepository) CountByReference(ctx context.Context, reference string) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM bookings bk
		JOIN orders o ON o.booking_id = bk.id
		WHERE o.payment_reference = $1`
	if err := r.db.GetContext(ctx, &count, query, reference); err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}
