package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/bus-booking-backend/internal/events"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// RouteStore is the route persistence used by pricing and fleet management
type RouteStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Route, error)
	GetPrice(ctx context.Context, id uuid.UUID) (int64, error)
	List(ctx context.Context) ([]models.Route, error)
	ListByOperator(ctx context.Context, operatorID uuid.UUID) ([]models.Route, error)
	Create(ctx context.Context, operatorID uuid.UUID, in *models.RouteInput) (*models.Route, error)
	Update(ctx context.Context, id, operatorID uuid.UUID, in *models.RouteInput) (*models.Route, error)
	Delete(ctx context.Context, id, operatorID uuid.UUID) error
}

// OrderStore is the order persistence, including the reconciliation transaction
type OrderStore interface {
	UpsertPending(ctx context.Context, p *models.PendingOrder) (*models.Order, error)
	GetByReference(ctx context.Context, reference string) (*models.Order, error)
	FindForUser(ctx context.Context, reference string, userID uuid.UUID) (*models.Order, error)
	ListStalePending(ctx context.Context, minAge, maxAge time.Duration, limit int) ([]models.Order, error)
	MarkFailed(ctx context.Context, reference string) (bool, error)
	ExpirePending(ctx context.Context, maxAge time.Duration) (int64, error)
	ReconcilePaid(ctx context.Context, p *models.ReconcileParams) (*models.ReconcileResult, error)
}

// AuditStore appends audit entries
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
}

// TicketStore reads the owner-scoped ticket view
type TicketStore interface {
	GetTicket(ctx context.Context, bookingID, userID uuid.UUID) (*models.TicketRow, error)
	ListTicketsForUser(ctx context.Context, userID uuid.UUID) ([]models.TicketRow, error)
}

// BusBookingStore reads the bookings made on a bus
type BusBookingStore interface {
	ListForBus(ctx context.Context, busID uuid.UUID) ([]models.BusBooking, error)
}

// BusLookup reads a single bus
type BusLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Bus, error)
}

// BusStore is the bus persistence used by fleet management
type BusStore interface {
	BusLookup
	ListActive(ctx context.Context) ([]models.Bus, error)
	ListByOperator(ctx context.Context, operatorID uuid.UUID) ([]models.Bus, error)
	Create(ctx context.Context, operatorID uuid.UUID, in *models.BusInput) (*models.Bus, error)
	Update(ctx context.Context, id, operatorID uuid.UUID, in *models.BusInput) (*models.Bus, error)
	UpdateLocation(ctx context.Context, id, operatorID uuid.UUID, loc models.Coordinate) error
	SetSuspended(ctx context.Context, id uuid.UUID, suspended bool) error
}

// TripStore is the trip persistence used by fleet management
type TripStore interface {
	Start(ctx context.Context, busID, routeID uuid.UUID, firstStage string, driverName *string) (*models.Trip, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	GetCurrentForBus(ctx context.Context, busID uuid.UUID) (*models.Trip, error)
	ListByBus(ctx context.Context, busID uuid.UUID) ([]models.Trip, error)
	UpdateStage(ctx context.Context, id, operatorID uuid.UUID, stage string) (*models.Trip, error)
	SetDelay(ctx context.Context, id, operatorID uuid.UUID, reason string) (*models.Trip, error)
	Complete(ctx context.Context, id, operatorID uuid.UUID) (*models.Trip, error)
}

// AnnouncementStore is the announcement persistence
type AnnouncementStore interface {
	Create(ctx context.Context, tripID, operatorID uuid.UUID, message string) (*models.Announcement, error)
	ListByTrip(ctx context.Context, tripID uuid.UUID) ([]models.Announcement, error)
}

// PriceCache is an optional read-through cache of route prices
type PriceCache interface {
	Get(ctx context.Context, routeID uuid.UUID) (int64, bool, error)
	Set(ctx context.Context, routeID uuid.UUID, priceCents int64) error
	Invalidate(ctx context.Context, routeID uuid.UUID) error
}

// LookupCache is an optional cache of found booking lookups
type LookupCache interface {
	Get(ctx context.Context, userID uuid.UUID, reference string) (*models.BookingLookupResponse, error)
	Set(ctx context.Context, userID uuid.UUID, reference string, resp *models.BookingLookupResponse) error
	Invalidate(ctx context.Context, userID uuid.UUID, reference string) error
}

// EventPublisher publishes booking lifecycle events
type EventPublisher interface {
	Publish(ctx context.Context, event *events.BookingEvent) error
}
