package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// AnnouncementRepository handles trip announcements
type AnnouncementRepository struct {
	db *sqlx.DB
}

// NewAnnouncementRepository creates a new AnnouncementRepository
func NewAnnouncementRepository(db *sqlx.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// Create posts an announcement on a trip whose bus belongs to operatorID.
// Returns ErrNotFound when the trip is not the operator's.
func (r *AnnouncementRepository) Create(ctx context.Context, tripID, operatorID uuid.UUID, message string) (*models.Announcement, error) {
	var a models.Announcement
	query := `
		INSERT INTO announcements (id, trip_id, operator_id, message, created_at)
		SELECT $1, t.id, b.operator_id, $4, NOW()
		FROM trips t JOIN buses b ON b.id = t.bus_id
		WHERE t.id = $2 AND b.operator_id = $3
		RETURNING id, trip_id, operator_id, message, created_at`
	rows, err := r.db.QueryxContext(ctx, query, uuid.New(), tripID, operatorID, message)
	if err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to create announcement: %w", err)
		}
		return nil, ErrNotFound
	}
	if err := rows.StructScan(&a); err != nil {
		return nil, fmt.Errorf("failed to scan announcement: %w", err)
	}
	return &a, nil
}

// ListByTrip returns a trip's announcements, newest first
func (r *AnnouncementRepository) ListByTrip(ctx context.Context, tripID uuid.UUID) ([]models.Announcement, error) {
	announcements := []models.Announcement{}
	query := `
		SELECT id, trip_id, operator_id, message, created_at
		FROM announcements WHERE trip_id = $1
		ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &announcements, query, tripID); err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	return announcements, nil
}
