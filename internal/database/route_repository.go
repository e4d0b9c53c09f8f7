package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

const routeColumns = `id, operator_id, name, stages, stage_coords, price_cents, created_at, updated_at`

// RouteRepository handles route persistence
type RouteRepository struct {
	db *sqlx.DB
}

// NewRouteRepository creates a new RouteRepository
func NewRouteRepository(db *sqlx.DB) *RouteRepository {
	return &RouteRepository{db: db}
}

// GetByID returns a route or ErrNotFound
func (r *RouteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	var route models.Route
	query := `SELECT ` + routeColumns + ` FROM routes WHERE id = $1`
	if err := r.db.GetContext(ctx, &route, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return &route, nil
}

// GetPrice returns the fare of a route in minor units
func (r *RouteRepository) GetPrice(ctx context.Context, id uuid.UUID) (int64, error) {
	var price int64
	err := r.db.GetContext(ctx, &price, `SELECT price_cents FROM routes WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to get route price: %w", err)
	}
	return price, nil
}

// List returns all routes ordered by name
func (r *RouteRepository) List(ctx context.Context) ([]models.Route, error) {
	routes := []models.Route{}
	query := `SELECT ` + routeColumns + ` FROM routes ORDER BY name ASC`
	if err := r.db.SelectContext(ctx, &routes, query); err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return routes, nil
}

// ListByOperator returns the routes owned by operatorID ordered by name
func (r *RouteRepository) ListByOperator(ctx context.Context, operatorID uuid.UUID) ([]models.Route, error) {
	routes := []models.Route{}
	query := `SELECT ` + routeColumns + ` FROM routes WHERE operator_id = $1 ORDER BY name ASC`
	if err := r.db.SelectContext(ctx, &routes, query, operatorID); err != nil {
		return nil, fmt.Errorf("failed to list operator routes: %w", err)
	}
	return routes, nil
}

// Create inserts a route owned by operatorID
func (r *RouteRepository) Create(ctx context.Context, operatorID uuid.UUID, in *models.RouteInput) (*models.Route, error) {
	var route models.Route
	query := `
		INSERT INTO routes (id, operator_id, name, stages, stage_coords, price_cents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING ` + routeColumns
	err := r.db.GetContext(ctx, &route, query,
		uuid.New(), operatorID, in.Name, pq.StringArray(in.Stages), models.StageCoords(in.StageCoords), in.PriceCents)
	if err != nil {
		return nil, fmt.Errorf("failed to create route: %w", err)
	}
	return &route, nil
}

// Update replaces a route owned by operatorID
func (r *RouteRepository) Update(ctx context.Context, id, operatorID uuid.UUID, in *models.RouteInput) (*models.Route, error) {
	var route models.Route
	query := `
		UPDATE routes
		SET name = $3, stages = $4, stage_coords = $5, price_cents = $6, updated_at = NOW()
		WHERE id = $1 AND operator_id = $2
		RETURNING ` + routeColumns
	err := r.db.GetContext(ctx, &route, query,
		id, operatorID, in.Name, pq.StringArray(in.Stages), models.StageCoords(in.StageCoords), in.PriceCents)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update route: %w", err)
	}
	return &route, nil
}

// Delete removes a route owned by operatorID
func (r *RouteRepository) Delete(ctx context.Context, id, operatorID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM routes WHERE id = $1 AND operator_id = $2`, id, operatorID)
	if err != nil {
		return fmt.Errorf("failed to delete route: %w", err)
	}
	return expectAffected(result)
}

func expectAffected(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
