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

const tripColumns = `t.id, t.bus_id, t.route_id, t.current_stage, t.is_active, t.status, t.driver_name, t.delay_reason, t.started_at, t.completed_at, t.created_at`

// TripRepository handles trip persistence. Writes are scoped to the
// operator owning the trip's bus.
type TripRepository struct {
	db *sqlx.DB
}

// NewTripRepository creates a new TripRepository
func NewTripRepository(db *sqlx.DB) *TripRepository {
	return &TripRepository{db: db}
}

// Start deactivates any active trip of the bus and inserts a new ongoing one
func (r *TripRepository) Start(ctx context.Context, busID, routeID uuid.UUID, firstStage string, driverName *string) (*models.Trip, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE trips SET is_active = FALSE, status = 'cancelled', completed_at = NOW()
		WHERE bus_id = $1 AND is_active = TRUE`, busID)
	if err != nil {
		return nil, fmt.Errorf("failed to close previous trips: %w", err)
	}

	var trip models.Trip
	err = tx.GetContext(ctx, &trip, `
		INSERT INTO trips AS t (id, bus_id, route_id, current_stage, is_active, status, driver_name, started_at, created_at)
		VALUES ($1, $2, $3, $4, TRUE, 'ongoing', $5, NOW(), NOW())
		RETURNING `+tripColumns,
		uuid.New(), busID, routeID, firstStage, driverName)
	if err != nil {
		return nil, fmt.Errorf("failed to insert trip: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit trip: %w", err)
	}
	return &trip, nil
}

// GetByID returns a trip or ErrNotFound
func (r *TripRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	if err := r.db.GetContext(ctx, &trip, `SELECT `+tripColumns+` FROM trips t WHERE t.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

// GetCurrentForBus returns the most recently created active trip of a bus
func (r *TripRepository) GetCurrentForBus(ctx context.Context, busID uuid.UUID) (*models.Trip, error) {
	var trip models.Trip
	query := `SELECT ` + tripColumns + ` FROM trips t
		WHERE t.bus_id = $1 AND t.is_active = TRUE
		ORDER BY t.created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &trip, query, busID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get current trip: %w", err)
	}
	return &trip, nil
}

// ListByBus returns the trip history of a bus, most recently started first
func (r *TripRepository) ListByBus(ctx context.Context, busID uuid.UUID) ([]models.Trip, error) {
	trips := []models.Trip{}
	query := `SELECT ` + tripColumns + ` FROM trips t WHERE t.bus_id = $1 ORDER BY t.started_at DESC`
	if err := r.db.SelectContext(ctx, &trips, query, busID); err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	return trips, nil
}

// UpdateStage moves an active trip to a new stage
func (r *TripRepository) UpdateStage(ctx context.Context, id, operatorID uuid.UUID, stage string) (*models.Trip, error) {
	return r.updateOwned(ctx, `current_stage = $3, delay_reason = NULL`, id, operatorID, stage)
}

// SetDelay records a delay reason on an active trip; an empty reason clears it
func (r *TripRepository) SetDelay(ctx context.Context, id, operatorID uuid.UUID, reason string) (*models.Trip, error) {
	var value *string
	if reason != "" {
		value = &reason
	}
	return r.updateOwned(ctx, `delay_reason = $3`, id, operatorID, value)
}

// Complete ends an active trip
func (r *TripRepository) Complete(ctx context.Context, id, operatorID uuid.UUID) (*models.Trip, error) {
	return r.updateOwned(ctx, `is_active = FALSE, status = 'completed', completed_at = NOW()`, id, operatorID)
}

func (r *TripRepository) updateOwned(ctx context.Context, set string, id, operatorID uuid.UUID, args ...interface{}) (*models.Trip, error) {
	var trip models.Trip
	query := `
		UPDATE trips t SET ` + set + `
		FROM buses b
		WHERE t.id = $1 AND t.bus_id = b.id AND b.operator_id = $2 AND t.is_active = TRUE
		RETURNING ` + tripColumns
	params := append([]interface{}{id, operatorID}, args...)
	if err := r.db.GetContext(ctx, &trip, query, params...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}
	return &trip, nil
}
