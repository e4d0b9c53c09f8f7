package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

const orderColumns = `id, user_id, bus_id, route_id, booking_id, payment_reference, amount_cents, currency, status, created_at, updated_at`

const bookingColumns = `id, bus_id, user_id, status, created_at`

// StepError tags a reconciliation failure with the step that failed
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// OrderRepository handles orders and the booking/order reconciliation
type OrderRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewOrderRepository creates a new OrderRepository
func NewOrderRepository(db *sqlx.DB, logger *logrus.Logger) *OrderRepository {
	return &OrderRepository{db: db, logger: logger}
}

// UpsertPending records a started checkout. A retried initiation for the same
// reference refreshes the pending row; a paid order is never downgraded.
func (r *OrderRepository) UpsertPending(ctx context.Context, p *models.PendingOrder) (*models.Order, error) {
	var order models.Order
	query := `
		INSERT INTO orders (id, user_id, bus_id, route_id, booking_id, payment_reference, amount_cents, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending', NOW(), NOW())
		ON CONFLICT (payment_reference) DO UPDATE
		SET bus_id = EXCLUDED.bus_id,
			route_id = EXCLUDED.route_id,
			booking_id = COALESCE(orders.booking_id, EXCLUDED.booking_id),
			amount_cents = EXCLUDED.amount_cents,
			currency = EXCLUDED.currency,
			updated_at = NOW()
		WHERE orders.status = 'pending' AND orders.user_id = EXCLUDED.user_id
		RETURNING ` + orderColumns

	err := r.db.GetContext(ctx, &order, query,
		uuid.New(), p.UserID, p.BusID, p.RouteID, p.BookingID, p.PaymentReference, p.AmountCents, p.Currency)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// conflict row exists but is paid or foreign: report it unchanged
			return r.GetByReference(ctx, p.PaymentReference)
		}
		return nil, fmt.Errorf("failed to upsert pending order: %w", err)
	}
	return &order, nil
}

// GetByReference returns the order for a provider reference or ErrNotFound
func (r *OrderRepository) GetByReference(ctx context.Context, reference string) (*models.Order, error) {
	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_reference = $1`
	if err := r.db.GetContext(ctx, &order, query, reference); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// FindForUser returns the caller's order for a reference or ErrNotFound
func (r *OrderRepository) FindForUser(ctx context.Context, reference string, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE payment_reference = $1 AND user_id = $2`
	if err := r.db.GetContext(ctx, &order, query, reference, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// ListStalePending returns pending orders last touched between maxAge and minAge ago
func (r *OrderRepository) ListStalePending(ctx context.Context, minAge, maxAge time.Duration, limit int) ([]models.Order, error) {
	orders := []models.Order{}
	now := time.Now()
	query := `
		SELECT ` + orderColumns + ` FROM orders
		WHERE status = 'pending' AND updated_at <= $1 AND updated_at > $2
		ORDER BY updated_at ASC
		LIMIT $3`
	if err := r.db.SelectContext(ctx, &orders, query, now.Add(-minAge), now.Add(-maxAge), limit); err != nil {
		return nil, fmt.Errorf("failed to list stale pending orders: %w", err)
	}
	return orders, nil
}

// MarkFailed moves a pending order to failed. Paid orders are left untouched.
func (r *OrderRepository) MarkFailed(ctx context.Context, reference string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = 'failed', updated_at = NOW() WHERE payment_reference = $1 AND status = 'pending'`,
		reference)
	if err != nil {
		return false, fmt.Errorf("failed to mark order failed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows > 0, nil
}

// ExpirePending fails every pending order last touched before maxAge ago
func (r *OrderRepository) ExpirePending(ctx context.Context, maxAge time.Duration) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = 'failed', updated_at = NOW() WHERE status = 'pending' AND updated_at <= $1`,
		time.Now().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("failed to expire pending orders: %w", err)
	}
	return result.RowsAffected()
}

// ReconcilePaid converts a confirmed payment into a paid booking + order pair.
//
// The order row for the reference is created if missing and locked FOR UPDATE,
// so concurrent calls for one reference serialize here. A reference already
// reconciled returns its existing booking with Created=false. When neither the
// params nor the stored order carry a bus, the order is only marked paid.
func (r *OrderRepository) ReconcilePaid(ctx context.Context, p *models.ReconcileParams) (*models.ReconcileResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &StepError{Step: models.AuditStepUpsertOrder, Err: err}
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, bus_id, route_id, payment_reference, amount_cents, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending', NOW(), NOW())
		ON CONFLICT (payment_reference) DO NOTHING`,
		uuid.New(), p.UserID, p.BusID, p.RouteID, p.PaymentReference, p.AmountCents, p.Currency)
	if err != nil {
		return nil, &StepError{Step: models.AuditStepUpsertOrder, Err: err}
	}

	var order models.Order
	err = tx.GetContext(ctx, &order,
		`SELECT `+orderColumns+` FROM orders WHERE payment_reference = $1 FOR UPDATE`, p.PaymentReference)
	if err != nil {
		return nil, &StepError{Step: models.AuditStepUpsertOrder, Err: err}
	}

	if order.UserID != p.UserID {
		return nil, ErrOwnerMismatch
	}

	busID := p.BusID
	if busID == nil {
		busID = order.BusID
	}

	if order.Status == models.OrderStatusPaid && (order.BookingID != nil || busID == nil) {
		result := &models.ReconcileResult{Order: &order}
		if order.BookingID != nil {
			var booking models.Booking
			err = tx.GetContext(ctx, &booking, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, *order.BookingID)
			if err != nil {
				return nil, &StepError{Step: models.AuditStepCreateBooking, Err: err}
			}
			result.Booking = &booking
		}
		if err := tx.Commit(); err != nil {
			return nil, &StepError{Step: models.AuditStepUpsertOrder, Err: err}
		}
		return result, nil
	}

	result := &models.ReconcileResult{Created: true}
	var bookingID *uuid.UUID
	if busID != nil {
		var booking models.Booking
		err = tx.GetContext(ctx, &booking, `
			INSERT INTO bookings (id, bus_id, user_id, status, created_at)
			VALUES ($1, $2, $3, 'paid', NOW())
			RETURNING `+bookingColumns,
			uuid.New(), *busID, p.UserID)
		if err != nil {
			return nil, &StepError{Step: models.AuditStepCreateBooking, Err: err}
		}
		result.Booking = &booking
		bookingID = &booking.ID
	}

	routeID := p.RouteID
	if routeID == nil {
		routeID = order.RouteID
	}

	var paid models.Order
	err = tx.GetContext(ctx, &paid, `
		UPDATE orders
		SET status = 'paid', booking_id = $2, bus_id = $3, route_id = $4,
			amount_cents = $5, currency = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+orderColumns,
		order.ID, bookingID, busID, routeID, p.AmountCents, p.Currency)
	if err != nil {
		return nil, &StepError{Step: models.AuditStepUpsertOrder, Err: err}
	}
	result.Order = &paid

	if err := tx.Commit(); err != nil {
		return nil, &StepError{Step: models.AuditStepUpsertOrder, Err: err}
	}

	r.logger.WithFields(logrus.Fields{
		"reference":  p.PaymentReference,
		"order_id":   paid.ID,
		"booking_id": bookingID,
	}).Info("Payment reconciled")

	return result, nil
}
