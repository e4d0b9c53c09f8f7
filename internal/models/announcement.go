package models

import (
	"time"

	"github.com/google/uuid"
)

// Announcement is an informational message broadcast to a trip's passengers
type Announcement struct {
	ID         uuid.UUID `json:"id" db:"id"`
	TripID     uuid.UUID `json:"trip_id" db:"trip_id"`
	OperatorID uuid.UUID `json:"operator_id" db:"operator_id"`
	Message    string    `json:"message" db:"message"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// AnnouncementInput is the request body for posting an announcement
type AnnouncementInput struct {
	Message string `json:"message" binding:"required,max=500"`
}
