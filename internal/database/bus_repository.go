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

const busColumns = `id, operator_id, name, plate_number, total_seats, location_lat, location_lng, is_suspended, created_at, updated_at`

// BusRepository handles bus persistence
type BusRepository struct {
	db *sqlx.DB
}

// NewBusRepository creates a new BusRepository
func NewBusRepository(db *sqlx.DB) *BusRepository {
	return &BusRepository{db: db}
}

// GetByID returns a bus or ErrNotFound
func (r *BusRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Bus, error) {
	var bus models.Bus
	if err := r.db.GetContext(ctx, &bus, `SELECT `+busColumns+` FROM buses WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get bus: %w", err)
	}
	return &bus, nil
}

// ListActive returns buses that are not suspended
func (r *BusRepository) ListActive(ctx context.Context) ([]models.Bus, error) {
	buses := []models.Bus{}
	query := `SELECT ` + busColumns + ` FROM buses WHERE is_suspended = FALSE ORDER BY name ASC`
	if err := r.db.SelectContext(ctx, &buses, query); err != nil {
		return nil, fmt.Errorf("failed to list buses: %w", err)
	}
	return buses, nil
}

// ListByOperator returns every bus owned by operatorID, suspended ones included, newest first
func (r *BusRepository) ListByOperator(ctx context.Context, operatorID uuid.UUID) ([]models.Bus, error) {
	buses := []models.Bus{}
	query := `SELECT ` + busColumns + ` FROM buses WHERE operator_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &buses, query, operatorID); err != nil {
		return nil, fmt.Errorf("failed to list operator buses: %w", err)
	}
	return buses, nil
}

// Create inserts a bus owned by operatorID
func (r *BusRepository) Create(ctx context.Context, operatorID uuid.UUID, in *models.BusInput) (*models.Bus, error) {
	var bus models.Bus
	query := `
		INSERT INTO buses (id, operator_id, name, plate_number, total_seats, is_suspended, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, FALSE, NOW(), NOW())
		RETURNING ` + busColumns
	if err := r.db.GetContext(ctx, &bus, query, uuid.New(), operatorID, in.Name, in.PlateNumber, in.TotalSeats); err != nil {
		return nil, fmt.Errorf("failed to create bus: %w", err)
	}
	return &bus, nil
}

// Update changes the descriptive fields of a bus owned by operatorID
func (r *BusRepository) Update(ctx context.Context, id, operatorID uuid.UUID, in *models.BusInput) (*models.Bus, error) {
	var bus models.Bus
	query := `
		UPDATE buses SET name = $3, plate_number = $4, total_seats = $5, updated_at = NOW()
		WHERE id = $1 AND operator_id = $2
		RETURNING ` + busColumns
	if err := r.db.GetContext(ctx, &bus, query, id, operatorID, in.Name, in.PlateNumber, in.TotalSeats); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update bus: %w", err)
	}
	return &bus, nil
}

// UpdateLocation stores the last known position of a bus owned by operatorID
func (r *BusRepository) UpdateLocation(ctx context.Context, id, operatorID uuid.UUID, loc models.Coordinate) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE buses SET location_lat = $3, location_lng = $4, updated_at = NOW() WHERE id = $1 AND operator_id = $2`,
		id, operatorID, loc.Lat, loc.Lng)
	if err != nil {
		return fmt.Errorf("failed to update bus location: %w", err)
	}
	return expectAffected(result)
}

// SetSuspended flips the admin suspension flag
func (r *BusRepository) SetSuspended(ctx context.Context, id uuid.UUID, suspended bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE buses SET is_suspended = $2, updated_at = NOW() WHERE id = $1`, id, suspended)
	if err != nil {
		return fmt.Errorf("failed to update bus suspension: %w", err)
	}
	return expectAffected(result)
}
