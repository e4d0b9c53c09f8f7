package services

import (
	"bytes"
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smarttransit/bus-booking-backend/internal/apperrors"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTicketStore mirrors the owner-scoped query: foreign rows are invisible
type fakeTicketStore struct {
	rows   map[uuid.UUID]*models.TicketRow
	owners map[uuid.UUID]uuid.UUID
}

func (f *fakeTicketStore) GetTicket(_ context.Context, bookingID, userID uuid.UUID) (*models.TicketRow, error) {
	row, ok := f.rows[bookingID]
	if !ok || f.owners[bookingID] != userID {
		return nil, database.ErrNotFound
	}
	return row, nil
}

func (f *fakeTicketStore) ListTicketsForUser(_ context.Context, userID uuid.UUID) ([]models.TicketRow, error) {
	out := []models.TicketRow{}
	for id, row := range f.rows {
		if f.owners[id] != userID || row.OrderStatus == nil || *row.OrderStatus != models.OrderStatusPaid {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingCreatedAt.After(out[j].BookingCreatedAt) })
	return out, nil
}

func newTicketFixture(owner uuid.UUID) (*fakeTicketStore, uuid.UUID) {
	bookingID := uuid.New()
	ref := "REF-T"
	amount := int64(1500)
	currency := "NGN"
	status := models.OrderStatusPaid
	store := &fakeTicketStore{
		rows: map[uuid.UUID]*models.TicketRow{
			bookingID: {
				BookingID:        bookingID,
				BookingCreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
				BookingStatus:    models.BookingStatusPaid,
				BusID:            uuid.New(),
				BusName:          "Danfo 12",
				PlateNumber:      "LND-123-XY",
				AmountCents:      &amount,
				Currency:         &currency,
				OrderStatus:      &status,
				PaymentReference: &ref,
			},
		},
		owners: map[uuid.UUID]uuid.UUID{bookingID: owner},
	}
	return store, bookingID
}

func TestTicketService_Get(t *testing.T) {
	h := newHarness()
	owner := newCaller()
	store, bookingID := newTicketFixture(owner.UserID)
	svc := h.ticketService(store)
	ctx := context.Background()

	ticket, err := svc.Get(ctx, owner, bookingID)
	require.NoError(t, err)
	assert.Equal(t, bookingID, ticket.Booking.ID)
	assert.Equal(t, "LND-123-XY", ticket.Bus.PlateNumber)
	require.NotNil(t, ticket.Order)
	assert.Equal(t, int64(1500), ticket.Order.AmountCents)

	_, err = svc.Get(ctx, newCaller(), bookingID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTicketNotFound))

	_, err = svc.Get(ctx, owner, uuid.New())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTicketNotFound))

	_, err = svc.Get(ctx, Caller{}, bookingID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
}

func TestTicketService_List(t *testing.T) {
	h := newHarness()
	owner := newCaller()
	store, older := newTicketFixture(owner.UserID)

	newer := uuid.New()
	ref := "REF-T2"
	paid := models.OrderStatusPaid
	store.rows[newer] = &models.TicketRow{
		BookingID:        newer,
		BookingCreatedAt: time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC),
		BookingStatus:    models.BookingStatusPaid,
		BusID:            uuid.New(),
		BusName:          "Danfo 3",
		OrderStatus:      &paid,
		PaymentReference: &ref,
	}
	store.owners[newer] = owner.UserID
	foreign := uuid.New()
	store.rows[foreign] = &models.TicketRow{BookingID: foreign, OrderStatus: &paid}
	store.owners[foreign] = uuid.New()

	svc := h.ticketService(store)
	ctx := context.Background()

	tickets, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, newer, tickets[0].Booking.ID)
	assert.Equal(t, older, tickets[1].Booking.ID)

	empty, err := svc.List(ctx, newCaller())
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = svc.List(ctx, Caller{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthenticated))
}

func TestTicketService_RenderPDF(t *testing.T) {
	h := newHarness()
	owner := newCaller()
	store, bookingID := newTicketFixture(owner.UserID)

	data, filename, err := h.ticketService(store).RenderPDF(context.Background(), owner, bookingID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Contains(t, filename, ".pdf")
}

func TestTicketService_FindByReference(t *testing.T) {
	h := newHarness()
	caller := newCaller()
	busID := uuid.New()
	svc := h.ticketService(&fakeTicketStore{})
	ctx := context.Background()

	_, err := h.orders.UpsertPending(ctx, &models.PendingOrder{
		UserID: caller.UserID, BusID: &busID, PaymentReference: "REF-L", AmountCents: 500, Currency: "NGN",
	})
	require.NoError(t, err)

	_, err = svc.FindByReference(ctx, caller, "REF-L")
	assert.True(t, apperrors.IsNotFound(err), "pending order has no booking yet")

	result, err := h.reconciler.Reconcile(ctx, &models.ReconcileParams{
		UserID: caller.UserID, BusID: &busID, PaymentReference: "REF-L", AmountCents: 500, Currency: "NGN",
	}, SourceVerify)
	require.NoError(t, err)

	found, err := svc.FindByReference(ctx, caller, "REF-L")
	require.NoError(t, err)
	assert.Equal(t, result.Booking.ID, found.BookingID)
	assert.Equal(t, models.OrderStatusPaid, found.Status)

	cached, err := h.lookups.Get(ctx, caller.UserID, "REF-L")
	require.NoError(t, err)
	assert.Equal(t, found, cached)

	_, err = svc.FindByReference(ctx, newCaller(), "REF-L")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.FindByReference(ctx, caller, "")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeMissingParameters))
}
