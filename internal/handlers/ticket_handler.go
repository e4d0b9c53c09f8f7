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

// TicketResolver returns a caller's own tickets
type TicketResolver interface {
	List(ctx context.Context, caller services.Caller) ([]*models.Ticket, error)
	Get(ctx context.Context, caller services.Caller, bookingID uuid.UUID) (*models.Ticket, error)
	RenderPDF(ctx context.Context, caller services.Caller, bookingID uuid.UUID) ([]byte, string, error)
}

// TicketHandler serves tickets
type TicketHandler struct {
	tickets TicketResolver
	logger  *logrus.Logger
}

// NewTicketHandler creates a new ticket handler
func NewTicketHandler(tickets TicketResolver, logger *logrus.Logger) *TicketHandler {
	return &TicketHandler{tickets: tickets, logger: logger}
}

// List handles GET /api/v1/tickets
func (h *TicketHandler) List(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	tickets, err := h.tickets.List(c.Request.Context(), caller)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "count": len(tickets)})
}

// Get handles GET /api/v1/tickets/:id
func (h *TicketHandler) Get(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	ticket, err := h.tickets.Get(c.Request.Context(), caller, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// PDF handles GET /api/v1/tickets/:id/pdf
func (h *TicketHandler) PDF(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	bookingID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	data, filename, err := h.tickets.RenderPDF(c.Request.Context(), caller, bookingID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}
