package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/apperrors"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/pkg/geo"
)

// FleetService covers operator management of routes, buses, trips and
// announcements, plus the public reads over them
type FleetService struct {
	routes        RouteStore
	buses         BusStore
	trips         TripStore
	announcements AnnouncementStore
	bookings      BusBookingStore
	pricing       *PricingService
	logger        *logrus.Logger
}

// NewFleetService creates a FleetService
func NewFleetService(routes RouteStore, buses BusStore, trips TripStore, announcements AnnouncementStore, bookings BusBookingStore, pricing *PricingService, logger *logrus.Logger) *FleetService {
	return &FleetService{
		routes:        routes,
		buses:         buses,
		trips:         trips,
		announcements: announcements,
		bookings:      bookings,
		pricing:       pricing,
		logger:        logger,
	}
}

// mapStoreErr turns a repository error into an application error
func mapStoreErr(err error, code, notFound, failure string) error {
	if errors.Is(err, database.ErrNotFound) {
		return apperrors.NotFound(code, notFound)
	}
	return apperrors.Persistence(apperrors.CodePersistenceFailure, failure, err)
}

// ---- routes ----

func (s *FleetService) ListRoutes(ctx context.Context) ([]models.Route, error) {
	routes, err := s.routes.List(ctx)
	if err != nil {
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to list routes", err)
	}
	return routes, nil
}

// ListOperatorRoutes returns the caller's own routes
func (s *FleetService) ListOperatorRoutes(ctx context.Context, caller Caller) ([]models.Route, error) {
	routes, err := s.routes.ListByOperator(ctx, caller.UserID)
	if err != nil {
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to list routes", err)
	}
	return routes, nil
}

func (s *FleetService) GetRoute(ctx context.Context, id uuid.UUID) (*models.Route, error) {
	route, err := s.routes.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeRouteNotFound, "route not found", "failed to load route")
	}
	return route, nil
}

func (s *FleetService) CreateRoute(ctx context.Context, caller Caller, in *models.RouteInput) (*models.Route, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidRouteStages, err.Error())
	}
	route, err := s.routes.Create(ctx, caller.UserID, in)
	if err != nil {
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to create route", err)
	}
	s.logger.WithFields(logrus.Fields{"route_id": route.ID, "operator_id": caller.UserID}).Info("Route created")
	return route, nil
}

func (s *FleetService) UpdateRoute(ctx context.Context, caller Caller, id uuid.UUID, in *models.RouteInput) (*models.Route, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.Validation(apperrors.CodeInvalidRouteStages, err.Error())
	}
	route, err := s.routes.Update(ctx, id, caller.UserID, in)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeRouteNotFound, "route not found", "failed to update route")
	}
	s.pricing.Invalidate(ctx, id)
	return route, nil
}

func (s *FleetService) DeleteRoute(ctx context.Context, caller Caller, id uuid.UUID) error {
	if err := s.routes.Delete(ctx, id, caller.UserID); err != nil {
		return mapStoreErr(err, apperrors.CodeRouteNotFound, "route not found", "failed to delete route")
	}
	s.pricing.Invalidate(ctx, id)
	return nil
}

// ---- buses ----

func (s *FleetService) ListBuses(ctx context.Context) ([]models.Bus, error) {
	buses, err := s.buses.ListActive(ctx)
	if err != nil {
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to list buses", err)
	}
	return buses, nil
}

// ListOperatorBuses returns the caller's own buses, suspended ones included
func (s *FleetService) ListOperatorBuses(ctx context.Context, caller Caller) ([]models.Bus, error) {
	buses, err := s.buses.ListByOperator(ctx, caller.UserID)
	if err != nil {
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to list buses", err)
	}
	return buses, nil
}

// ownedBus loads a bus the caller may manage; any other bus is NotFound
func (s *FleetService) ownedBus(ctx context.Context, caller Caller, id uuid.UUID) (*models.Bus, error) {
	bus, err := s.buses.GetByID(ctx, id)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeNotFound, "bus not found", "failed to load bus")
	}
	if !caller.owns(bus.OperatorID) {
		return nil, apperrors.NotFound(apperrors.CodeNotFound, "bus not found")
	}
	return bus, nil
}

// ListBusBookings returns the bookings made on one of the caller's buses
func (s *FleetService) ListBusBookings(ctx context.Context, caller Caller, busID uuid.UUID) ([]models.BusBooking, error) {
	if _, err := s.ownedBus(ctx, caller, busID); err != nil {
		return nil, err
	}
	bookings, err := s.bookings.ListForBus(ctx, busID)
	if err != nil {
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to list bookings", err)
	}
	return bookings, nil
}

func (s *FleetService) CreateBus(ctx context.Context, caller Caller, in *models.BusInput) (*models.Bus, error) {
	bus, err := s.buses.Create(ctx, caller.UserID, in)
	if err != nil {
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to create bus", err)
	}
	return bus, nil
}

func (s *FleetService) UpdateBus(ctx context.Context, caller Caller, id uuid.UUID, in *models.BusInput) (*models.Bus, error) {
	bus, err := s.buses.Update(ctx, id, caller.UserID, in)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeNotFound, "bus not found", "failed to update bus")
	}
	return bus, nil
}

func (s *FleetService) UpdateBusLocation(ctx context.Context, caller Caller, id uuid.UUID, loc models.Coordinate) error {
	if err := s.buses.UpdateLocation(ctx, id, caller.UserID, loc); err != nil {
		return mapStoreErr(err, apperrors.CodeNotFound, "bus not found", "failed to update bus location")
	}
	return nil
}

// SetSuspended is admin-only; the role is enforced by the router
func (s *FleetService) SetSuspended(ctx context.Context, caller Caller, id uuid.UUID, suspended bool) error {
	if err := s.buses.SetSuspended(ctx, id, suspended); err != nil {
		return mapStoreErr(err, apperrors.CodeNotFound, "bus not found", "failed to update suspension")
	}
	s.logger.WithFields(logrus.Fields{
		"bus_id":    id,
		"admin_id":  caller.UserID,
		"suspended": suspended,
	}).Info("Bus suspension changed")
	return nil
}

// CheckNearby reports whether point lies within NearbyThresholdM of the bus
func (s *FleetService) CheckNearby(ctx context.Context, busID uuid.UUID, point models.Coordinate) (*models.NearbyResponse, error) {
	bus, err := s.buses.GetByID(ctx, busID)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeNotFound, "bus not found", "failed to load bus")
	}
	loc, ok := bus.Location()
	if !ok {
		return nil, apperrors.NotFound(apperrors.CodeNotFound, "bus location unknown")
	}

	near, distance := geo.Within(
		geo.Point{Lat: loc.Lat, Lng: loc.Lng},
		geo.Point{Lat: point.Lat, Lng: point.Lng},
		geo.NearbyThresholdM,
	)
	return &models.NearbyResponse{Nearby: near, DistanceMeters: distance, ThresholdM: geo.NearbyThresholdM}, nil
}

// ---- trips ----

func (s *FleetService) CurrentTrip(ctx context.Context, busID uuid.UUID) (*models.Trip, error) {
	trip, err := s.trips.GetCurrentForBus(ctx, busID)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeNotFound, "no active trip", "failed to load trip")
	}
	return trip, nil
}

// ListBusTrips returns the trip history of one of the caller's buses
func (s *FleetService) ListBusTrips(ctx context.Context, caller Caller, busID uuid.UUID) ([]models.Trip, error) {
	if _, err := s.ownedBus(ctx, caller, busID); err != nil {
		return nil, err
	}
	trips, err := s.trips.ListByBus(ctx, busID)
	if err != nil {
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to list trips", err)
	}
	return trips, nil
}

// StartTrip starts a trip at the route's first stage. The bus and the route
// must belong to the caller (admins may use any) and the bus must not be
// suspended.
func (s *FleetService) StartTrip(ctx context.Context, caller Caller, req *models.StartTripRequest) (*models.Trip, error) {
	bus, err := s.ownedBus(ctx, caller, req.BusID)
	if err != nil {
		return nil, err
	}
	if bus.IsSuspended {
		return nil, apperrors.Forbidden("bus is suspended")
	}

	route, err := s.routes.GetByID(ctx, req.RouteID)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeRouteNotFound, "route not found", "failed to load route")
	}
	if !caller.owns(route.OperatorID) {
		return nil, apperrors.NotFound(apperrors.CodeRouteNotFound, "route not found")
	}
	if len(route.Stages) == 0 {
		return nil, apperrors.Validation(apperrors.CodeInvalidRouteStages, "route has no stages")
	}

	trip, err := s.trips.Start(ctx, bus.ID, route.ID, route.Stages[0], req.DriverName)
	if err != nil {
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to start trip", err)
	}
	s.logger.WithFields(logrus.Fields{"trip_id": trip.ID, "bus_id": bus.ID, "route_id": route.ID}).Info("Trip started")
	return trip, nil
}

// AdvanceStage moves a trip to a stage of its route
func (s *FleetService) AdvanceStage(ctx context.Context, caller Caller, tripID uuid.UUID, stage string) (*models.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeNotFound, "trip not found", "failed to load trip")
	}
	route, err := s.routes.GetByID(ctx, trip.RouteID)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeRouteNotFound, "route not found", "failed to load route")
	}
	if !route.HasStage(stage) {
		return nil, apperrors.Validation(apperrors.CodeInvalidRouteStages, "stage is not on the trip's route")
	}

	updated, err := s.trips.UpdateStage(ctx, tripID, caller.UserID, stage)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeNotFound, "trip not found", "failed to update trip")
	}
	return updated, nil
}

func (s *FleetService) ReportDelay(ctx context.Context, caller Caller, tripID uuid.UUID, reason string) (*models.Trip, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation(apperrors.CodeInvalidRequest, "reason is required")
	}
	trip, err := s.trips.SetDelay(ctx, tripID, caller.UserID, reason)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeNotFound, "trip not found", "failed to update trip")
	}
	return trip, nil
}

func (s *FleetService) CompleteTrip(ctx context.Context, caller Caller, tripID uuid.UUID) (*models.Trip, error) {
	trip, err := s.trips.Complete(ctx, tripID, caller.UserID)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeNotFound, "trip not found", "failed to complete trip")
	}
	return trip, nil
}

// ---- announcements ----

func (s *FleetService) PostAnnouncement(ctx context.Context, caller Caller, tripID uuid.UUID, message string) (*models.Announcement, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.Validation(apperrors.CodeInvalidRequest, "message is required")
	}
	a, err := s.announcements.Create(ctx, tripID, caller.UserID, message)
	if err != nil {
		return nil, mapStoreErr(err, apperrors.CodeNotFound, "trip not found", "failed to post announcement")
	}
	return a, nil
}

func (s *FleetService) ListAnnouncements(ctx context.Context, tripID uuid.UUID) ([]models.Announcement, error) {
	list, err := s.announcements.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to list announcements", err)
	}
	return list, nil
}
