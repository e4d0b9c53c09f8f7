package models

import (
	"time"

	"github.com/google/uuid"
)

// Bus represents a bus owned by an operator
type Bus struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OperatorID  uuid.UUID `json:"operator_id" db:"operator_id"`
	Name        string    `json:"name" db:"name"`
	PlateNumber string    `json:"plate_number" db:"plate_number"`
	TotalSeats  *int      `json:"total_seats,omitempty" db:"total_seats"`
	LocationLat *float64  `json:"location_lat,omitempty" db:"location_lat"`
	LocationLng *float64  `json:"location_lng,omitempty" db:"location_lng"`
	IsSuspended bool      `json:"is_suspended" db:"is_suspended"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Location returns the last known position, if any
func (b *Bus) Location() (Coordinate, bool) {
	if b.LocationLat == nil || b.LocationLng == nil {
		return Coordinate{}, false
	}
	return Coordinate{Lat: *b.LocationLat, Lng: *b.LocationLng}, true
}

// BusInput is the request body for creating or updating a bus
type BusInput struct {
	Name        string `json:"name" binding:"required"`
	PlateNumber string `json:"plate_number" binding:"required"`
	TotalSeats  *int   `json:"total_seats,omitempty" binding:"omitempty,gt=0"`
}

// LocationUpdate is the request body for reporting a bus position. The
// fields are pointers so 0 (equator, prime meridian) is a valid value.
type LocationUpdate struct {
	Lat *float64 `json:"lat" binding:"required,gte=-90,lte=90"`
	Lng *float64 `json:"lng" binding:"required,gte=-180,lte=180"`
}

// Coordinate returns the bound position; call it only after binding succeeded
func (u *LocationUpdate) Coordinate() Coordinate {
	return Coordinate{Lat: *u.Lat, Lng: *u.Lng}
}

// SuspensionUpdate is the admin request body for (un)suspending a bus
type SuspensionUpdate struct {
	Suspended bool `json:"suspended"`
}

// NearbyResponse is returned by the proximity check
type NearbyResponse struct {
	Nearby         bool    `json:"nearby"`
	DistanceMeters float64 `json:"distance_meters"`
	ThresholdM     float64 `json:"threshold_meters"`
}
