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
)

// TicketService resolves tickets and booking lookups for their owner only
type TicketService struct {
	tickets TicketStore
	orders  OrderStore
	lookups LookupCache
	logger  *logrus.Logger
}

// NewTicketService creates a TicketService. lookups may be nil.
func NewTicketService(tickets TicketStore, orders OrderStore, lookups LookupCache, logger *logrus.Logger) *TicketService {
	return &TicketService{tickets: tickets, orders: orders, lookups: lookups, logger: logger}
}

// Get returns the caller's ticket. Missing and foreign bookings are both NotFound.
func (s *TicketService) Get(ctx context.Context, caller Caller, bookingID uuid.UUID) (*models.Ticket, error) {
	if err := caller.requireIdentity(); err != nil {
		return nil, err
	}

	row, err := s.tickets.GetTicket(ctx, bookingID, caller.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NotFound(apperrors.CodeTicketNotFound, "Ticket not found")
		}
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to load ticket", err)
	}
	return row.ToTicket(), nil
}

// List returns the caller's paid tickets, newest first
func (s *TicketService) List(ctx context.Context, caller Caller) ([]*models.Ticket, error) {
	if err := caller.requireIdentity(); err != nil {
		return nil, err
	}
	rows, err := s.tickets.ListTicketsForUser(ctx, caller.UserID)
	if err != nil {
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to list tickets", err)
	}
	tickets := make([]*models.Ticket, 0, len(rows))
	for i := range rows {
		tickets = append(tickets, rows[i].ToTicket())
	}
	return tickets, nil
}

// RenderPDF returns the caller's ticket as a PDF document
func (s *TicketService) RenderPDF(ctx context.Context, caller Caller, bookingID uuid.UUID) ([]byte, string, error) {
	ticket, err := s.Get(ctx, caller, bookingID)
	if err != nil {
		return nil, "", err
	}
	data, err := renderTicketPDF(ticket)
	if err != nil {
		return nil, "", apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to render ticket", err)
	}
	return data, "ticket-" + strings.ToUpper(bookingID.String()[:8]) + ".pdf", nil
}

// FindByReference returns the booking reconciled for the caller's reference,
// or NotFound while none exists yet
func (s *TicketService) FindByReference(ctx context.Context, caller Caller, reference string) (*models.BookingLookupResponse, error) {
	if err := caller.requireIdentity(); err != nil {
		return nil, err
	}
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, apperrors.Validation(apperrors.CodeMissingParameters, "reference is required")
	}

	log := s.logger.WithFields(logrus.Fields{"reference": reference, "user_id": caller.UserID})

	if s.lookups != nil {
		cached, err := s.lookups.Get(ctx, caller.UserID, reference)
		if err != nil {
			log.WithError(err).Warn("Lookup cache read failed")
		} else if cached != nil {
			return cached, nil
		}
	}

	order, err := s.orders.FindForUser(ctx, reference, caller.UserID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperrors.NotFound(apperrors.CodeNotFound, "booking not found")
		}
		return nil, apperrors.Persistence(apperrors.CodePersistenceFailure, "failed to load order", err)
	}
	if order.BookingID == nil {
		return nil, apperrors.NotFound(apperrors.CodeNotFound, "booking not ready")
	}

	resp := &models.BookingLookupResponse{BookingID: *order.BookingID, Status: order.Status}
	if s.lookups != nil {
		if err := s.lookups.Set(ctx, caller.UserID, reference, resp); err != nil {
			log.WithError(err).Warn("Lookup cache write failed")
		}
	}
	return resp, nil
}
