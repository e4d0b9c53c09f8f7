package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// AuditLogRepository appends and reads audit entries. Entries are never updated.
type AuditLogRepository struct {
	db *sqlx.DB
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *sqlx.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Insert appends an audit entry
func (r *AuditLogRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	if entry == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.InsertedAt.IsZero() {
		entry.InsertedAt = time.Now()
	}
	if entry.Payload == nil {
		entry.Payload = models.JSONB{}
	}

	query := `
		INSERT INTO audit_logs (id, event, status, payload, reference, booking_id, order_id, user_id, inserted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Event, entry.Status, entry.Payload,
		entry.Reference, entry.BookingID, entry.OrderID, entry.UserID,
		entry.InsertedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

// ListByReference returns the audit trail of a provider reference, oldest first
func (r *AuditLogRepository) ListByReference(ctx context.Context, reference string) ([]models.AuditLog, error) {
	entries := []models.AuditLog{}
	query := `
		SELECT id, event, status, payload, reference, booking_id, order_id, user_id, inserted_at
		FROM audit_logs WHERE reference = $1
		ORDER BY inserted_at ASC`
	if err := r.db.SelectContext(ctx, &entries, query, reference); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return entries, nil
}
