package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Coordinate is a WGS-84 point
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// StageCoords is the ordered list of stage coordinates stored as a JSONB array
type StageCoords []Coordinate

// Value implements the driver.Valuer interface
func (s StageCoords) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

// Scan implements the sql.Scanner interface
func (s *StageCoords) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StageCoords", value)
	}
}

// Route is an operator-owned ordered list of stages with a single fare
type Route struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	OperatorID  uuid.UUID      `json:"operator_id" db:"operator_id"`
	Name        string         `json:"name" db:"name"`
	Stages      pq.StringArray `json:"stages" db:"stages"`
	StageCoords StageCoords    `json:"stage_coords" db:"stage_coords"`
	PriceCents  int64          `json:"price_cents" db:"price_cents"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}

// RouteInput is the request body for creating or replacing a route
type RouteInput struct {
	Name        string       `json:"name" binding:"required"`
	Stages      []string     `json:"stages" binding:"required"`
	StageCoords []Coordinate `json:"stage_coords" binding:"required"`
	PriceCents  int64        `json:"price_cents" binding:"required"`
}

// Validate enforces the stage invariants: at least two named stages with one
// coordinate each, and a positive price.
func (r *RouteInput) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(r.Stages) < 2 {
		return fmt.Errorf("a route needs at least 2 stages")
	}
	if len(r.Stages) != len(r.StageCoords) {
		return fmt.Errorf("stages and stage_coords must have the same length (%d != %d)", len(r.Stages), len(r.StageCoords))
	}
	for i, stage := range r.Stages {
		if strings.TrimSpace(stage) == "" {
			return fmt.Errorf("stage %d has no name", i)
		}
	}
	if r.PriceCents < 1 {
		return fmt.Errorf("price_cents must be at least 1")
	}
	return nil
}

// HasStage reports whether name is one of the route's stages
func (r *Route) HasStage(name string) bool {
	for _, s := range r.Stages {
		if s == name {
			return true
		}
	}
	return false
}
