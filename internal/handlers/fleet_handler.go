package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

// FleetManager covers routes, buses, trips and announcements
type FleetManager interface {
	ListRoutes(ctx context.Context) ([]models.Route, error)
	GetRoute(ctx context.Context, id uuid.UUID) (*models.Route, error)
	CreateRoute(ctx context.Context, caller services.Caller, in *models.RouteInput) (*models.Route, error)
	UpdateRoute(ctx context.Context, caller services.Caller, id uuid.UUID, in *models.RouteInput) (*models.Route, error)
	DeleteRoute(ctx context.Context, caller services.Caller, id uuid.UUID) error
	ListOperatorRoutes(ctx context.Context, caller services.Caller) ([]models.Route, error)

	ListBuses(ctx context.Context) ([]models.Bus, error)
	CreateBus(ctx context.Context, caller services.Caller, in *models.BusInput) (*models.Bus, error)
	UpdateBus(ctx context.Context, caller services.Caller, id uuid.UUID, in *models.BusInput) (*models.Bus, error)
	UpdateBusLocation(ctx context.Context, caller services.Caller, id uuid.UUID, loc models.Coordinate) error
	SetSuspended(ctx context.Context, caller services.Caller, id uuid.UUID, suspended bool) error
	CheckNearby(ctx context.Context, busID uuid.UUID, point models.Coordinate) (*models.NearbyResponse, error)
	ListOperatorBuses(ctx context.Context, caller services.Caller) ([]models.Bus, error)
	ListBusBookings(ctx context.Context, caller services.Caller, busID uuid.UUID) ([]models.BusBooking, error)

	CurrentTrip(ctx context.Context, busID uuid.UUID) (*models.Trip, error)
	StartTrip(ctx context.Context, caller services.Caller, req *models.StartTripRequest) (*models.Trip, error)
	AdvanceStage(ctx context.Context, caller services.Caller, tripID uuid.UUID, stage string) (*models.Trip, error)
	ReportDelay(ctx context.Context, caller services.Caller, tripID uuid.UUID, reason string) (*models.Trip, error)
	CompleteTrip(ctx context.Context, caller services.Caller, tripID uuid.UUID) (*models.Trip, error)
	ListBusTrips(ctx context.Context, caller services.Caller, busID uuid.UUID) ([]models.Trip, error)

	PostAnnouncement(ctx context.Context, caller services.Caller, tripID uuid.UUID, message string) (*models.Announcement, error)
	ListAnnouncements(ctx context.Context, tripID uuid.UUID) ([]models.Announcement, error)
}

// FleetHandler handles route, bus and trip requests
type FleetHandler struct {
	fleet  FleetManager
	logger *logrus.Logger
}

// NewFleetHandler creates a new fleet handler
func NewFleetHandler(fleet FleetManager, logger *logrus.Logger) *FleetHandler {
	return &FleetHandler{fleet: fleet, logger: logger}
}

// ListRoutes handles GET /api/v1/routes
func (h *FleetHandler) ListRoutes(c *gin.Context) {
	routes, err := h.fleet.ListRoutes(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes, "count": len(routes)})
}

// GetRoute handles GET /api/v1/routes/:id
func (h *FleetHandler) GetRoute(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	route, err := h.fleet.GetRoute(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// ListOperatorRoutes handles GET /api/v1/operator/routes
func (h *FleetHandler) ListOperatorRoutes(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	routes, err := h.fleet.ListOperatorRoutes(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"routes": routes, "count": len(routes)})
}

// ListOperatorBuses handles GET /api/v1/operator/buses
func (h *FleetHandler) ListOperatorBuses(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	buses, err := h.fleet.ListOperatorBuses(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buses": buses, "count": len(buses)})
}

// ListBusTrips handles GET /api/v1/operator/buses/:id/trips
func (h *FleetHandler) ListBusTrips(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	busID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	trips, err := h.fleet.ListBusTrips(c.Request.Context(), caller, busID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"trips": trips, "count": len(trips)})
}

// ListBusBookings handles GET /api/v1/operator/buses/:id/bookings
func (h *FleetHandler) ListBusBookings(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	busID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	bookings, err := h.fleet.ListBusBookings(c.Request.Context(), caller, busID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings, "count": len(bookings)})
}

// CreateRoute handles POST /api/v1/operator/routes
func (h *FleetHandler) CreateRoute(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var in models.RouteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	route, err := h.fleet.CreateRoute(c.Request.Context(), caller, &in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, route)
}

// UpdateRoute handles PUT /api/v1/operator/routes/:id
func (h *FleetHandler) UpdateRoute(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in models.RouteInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	route, err := h.fleet.UpdateRoute(c.Request.Context(), caller, id, &in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// DeleteRoute handles DELETE /api/v1/operator/routes/:id
func (h *FleetHandler) DeleteRoute(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.fleet.DeleteRoute(c.Request.Context(), caller, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListBuses handles GET /api/v1/buses
func (h *FleetHandler) ListBuses(c *gin.Context) {
	buses, err := h.fleet.ListBuses(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buses": buses, "count": len(buses)})
}

// CreateBus handles POST /api/v1/operator/buses
func (h *FleetHandler) CreateBus(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var in models.BusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	bus, err := h.fleet.CreateBus(c.Request.Context(), caller, &in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, bus)
}

// UpdateBus handles PUT /api/v1/operator/buses/:id
func (h *FleetHandler) UpdateBus(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in models.BusInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	bus, err := h.fleet.UpdateBus(c.Request.Context(), caller, id, &in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, bus)
}

// UpdateBusLocation handles PUT /api/v1/operator/buses/:id/location
func (h *FleetHandler) UpdateBusLocation(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in models.LocationUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid location: "+err.Error())
		return
	}

	if err := h.fleet.UpdateBusLocation(c.Request.Context(), caller, id, in.Coordinate()); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Location updated"})
}

// SetSuspension handles PUT /api/v1/admin/buses/:id/suspension
func (h *FleetHandler) SetSuspension(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in models.SuspensionUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	if err := h.fleet.SetSuspended(c.Request.Context(), caller, id, in.Suspended); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bus_id": id, "suspended": in.Suspended})
}

// CheckNearby handles POST /api/v1/buses/:id/nearby
func (h *FleetHandler) CheckNearby(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in models.LocationUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid location: "+err.Error())
		return
	}

	resp, err := h.fleet.CheckNearby(c.Request.Context(), id, in.Coordinate())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CurrentTrip handles GET /api/v1/buses/:id/trip
func (h *FleetHandler) CurrentTrip(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	trip, err := h.fleet.CurrentTrip(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// StartTrip handles POST /api/v1/operator/trips
func (h *FleetHandler) StartTrip(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var req models.StartTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	trip, err := h.fleet.StartTrip(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, trip)
}

// AdvanceStage handles PUT /api/v1/operator/trips/:id/stage
func (h *FleetHandler) AdvanceStage(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in models.StageUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	trip, err := h.fleet.AdvanceStage(c.Request.Context(), caller, id, in.Stage)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// ReportDelay handles PUT /api/v1/operator/trips/:id/delay
func (h *FleetHandler) ReportDelay(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in models.DelayUpdate
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	trip, err := h.fleet.ReportDelay(c.Request.Context(), caller, id, in.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// CompleteTrip handles POST /api/v1/operator/trips/:id/complete
func (h *FleetHandler) CompleteTrip(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	trip, err := h.fleet.CompleteTrip(c.Request.Context(), caller, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, trip)
}

// PostAnnouncement handles POST /api/v1/operator/trips/:id/announcements
func (h *FleetHandler) PostAnnouncement(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in models.AnnouncementInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	a, err := h.fleet.PostAnnouncement(c.Request.Context(), caller, id, in.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// ListAnnouncements handles GET /api/v1/trips/:id/announcements
func (h *FleetHandler) ListAnnouncements(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	list, err := h.fleet.ListAnnouncements(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": list, "count": len(list)})
}
