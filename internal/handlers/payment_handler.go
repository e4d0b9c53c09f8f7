package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

// PaymentInitiator quotes prices and starts checkouts
type PaymentInitiator interface {
	Quote(ctx context.Context, req *models.QuoteRequest) (*models.QuoteResponse, error)
	Initiate(ctx context.Context, caller services.Caller, req *models.InitiatePaymentRequest, meta services.RequestMeta) (*models.InitiatePaymentResponse, error)
}

// PaymentVerifier re-verifies a reference and reconciles it
type PaymentVerifier interface {
	Verify(ctx context.Context, caller services.Caller, req *models.VerifyPaymentRequest, meta services.RequestMeta) (*models.VerifyPaymentResponse, error)
}

// BookingFinder resolves the booking reconciled for a reference
type BookingFinder interface {
	FindByReference(ctx context.Context, caller services.Caller, reference string) (*models.BookingLookupResponse, error)
}

// PaymentHandler handles payment-related HTTP requests
type PaymentHandler struct {
	payments PaymentInitiator
	verifier PaymentVerifier
	bookings BookingFinder
	logger   *logrus.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments PaymentInitiator, verifier PaymentVerifier, bookings BookingFinder, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, verifier: verifier, bookings: bookings, logger: logger}
}

// Quote handles POST /api/v1/payments/quote
func (h *PaymentHandler) Quote(c *gin.Context) {
	var req models.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	resp, err := h.payments.Quote(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RoutePrice handles GET /api/v1/routes/:id/price
func (h *PaymentHandler) RoutePrice(c *gin.Context) {
	routeID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.payments.Quote(c.Request.Context(), &models.QuoteRequest{RouteID: &routeID})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Initiate handles POST /api/v1/payments/initiate
func (h *PaymentHandler) Initiate(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}

	var req models.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	resp, err := h.payments.Initiate(c.Request.Context(), caller, &req, requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Verify handles POST /api/v1/payments/verify
func (h *PaymentHandler) Verify(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}

	var req models.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	resp, err := h.verifier.Verify(c.Request.Context(), caller, &req, requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// LookupBooking handles GET /api/v1/payments/:reference/booking. Clients
// poll it after the provider redirect until the booking exists.
func (h *PaymentHandler) LookupBooking(c *gin.Context) {
	caller, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}

	resp, err := h.bookings.FindByReference(c.Request.Context(), caller, c.Param("reference"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
