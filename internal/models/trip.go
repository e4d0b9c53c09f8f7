package models

import (
	"time"

	"github.com/google/uuid"
)

// TripStatus represents the lifecycle state of a trip
type TripStatus string

const (
	TripStatusOngoing   TripStatus = "ongoing"
	TripStatusCompleted TripStatus = "completed"
	TripStatusCancelled TripStatus = "cancelled"
)

// Trip is one run of a bus along a route
type Trip struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	BusID        uuid.UUID  `json:"bus_id" db:"bus_id"`
	RouteID      uuid.UUID  `json:"route_id" db:"route_id"`
	CurrentStage string     `json:"current_stage" db:"current_stage"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	Status       TripStatus `json:"status" db:"status"`
	DriverName   *string    `json:"driver_name,omitempty" db:"driver_name"`
	DelayReason  *string    `json:"delay_reason,omitempty" db:"delay_reason"`
	StartedAt    time.Time  `json:"started_at" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// StartTripRequest starts a trip for an operator's bus
type StartTripRequest struct {
	BusID      uuid.UUID `json:"bus_id" binding:"required"`
	RouteID    uuid.UUID `json:"route_id" binding:"required"`
	DriverName *string   `json:"driver_name,omitempty"`
}

// StageUpdate moves a trip to another stage of its route
type StageUpdate struct {
	Stage string `json:"stage" binding:"required"`
}

// DelayUpdate records (or clears, when empty) a delay reason
type DelayUpdate struct {
	Reason string `json:"reason"`
}
