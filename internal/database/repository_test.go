package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteRepository_GetPrice(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRouteRepository(db)
	routeID := uuid.New()

	mock.ExpectQuery("SELECT price_cents FROM routes WHERE id").
		WithArgs(routeID).
		WillReturnRows(sqlmock.NewRows([]string{"price_cents"}).AddRow(int64(250)))

	price, err := repo.GetPrice(context.Background(), routeID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), price)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRouteRepository_GetPriceNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRouteRepository(db)

	mock.ExpectQuery("SELECT price_cents FROM routes").
		WillReturnRows(sqlmock.NewRows([]string{"price_cents"}))

	_, err := repo.GetPrice(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRouteRepository_GetByIDScansArrays(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRouteRepository(db)
	routeID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("FROM routes WHERE id").
		WithArgs(routeID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "operator_id", "name", "stages", "stage_coords", "price_cents", "created_at", "updated_at"}).
			AddRow(routeID.String(), uuid.New().String(), "Ikeja - CMS", []byte("{Ikeja,CMS}"),
				[]byte(`[{"lat":6.6,"lng":3.35},{"lat":6.45,"lng":3.39}]`), int64(500), now, now))

	route, err := repo.GetByID(context.Background(), routeID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ikeja", "CMS"}, []string(route.Stages))
	require.Len(t, route.StageCoords, 2)
	assert.Equal(t, 6.45, route.StageCoords[1].Lat)
	assert.True(t, route.HasStage("CMS"))
}

func TestRouteRepository_DeleteNotOwned(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewRouteRepository(db)

	mock.ExpectExec("DELETE FROM routes").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingRepository_GetTicketScopedToUser(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewBookingRepository(db)
	bookingID, userID, busID := uuid.New(), uuid.New(), uuid.New()

	mock.ExpectQuery("FROM bookings bk (.+) WHERE bk.id = (.+) AND bk.user_id =").
		WithArgs(bookingID, userID).
		WillReturnRows(sqlmock.NewRows([]string{
			"booking_id", "booking_created_at", "booking_status", "bus_id", "bus_name", "plate_number",
			"amount_cents", "currency", "order_status", "payment_reference",
		}).AddRow(bookingID.String(), time.Now(), "paid", busID.String(), "Danfo 12", "LAG-123",
			int64(500), "NGN", "paid", "REF-1"))

	row, err := repo.GetTicket(context.Background(), bookingID, userID)
	require.NoError(t, err)
	ticket := row.ToTicket()
	assert.Equal(t, bookingID, ticket.Booking.ID)
	require.NotNil(t, ticket.Order)
	assert.Equal(t, "REF-1", ticket.Order.PaymentReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_GetTicketNotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewBookingRepository(db)

	mock.ExpectQuery("FROM bookings bk").WillReturnRows(sqlmock.NewRows([]string{"booking_id"}))

	_, err := repo.GetTicket(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuditLogRepository_Insert(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewAuditLogRepository(db)

	entry := models.NewAuditLog(models.AuditEventPaymentVerify, models.AuditStatusStart).SetReference("REF-1")

	mock.ExpectExec("INSERT INTO audit_logs").
		WithArgs(entry.ID, models.AuditEventPaymentVerify, models.AuditStatusStart, sqlmock.AnyArg(),
			"REF-1", nil, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBusRepository_SetSuspendedMissing(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewBusRepository(db)

	mock.ExpectExec("UPDATE buses SET is_suspended").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetSuspended(context.Background(), uuid.New(), true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTripRepository_StartClosesPreviousTrips(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewTripRepository(db)
	busID, routeID, tripID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE trips SET is_active = FALSE").
		WithArgs(busID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO trips").
		WillReturnRows(sqlmock.NewRows([]string{"id", "bus_id", "route_id", "current_stage", "is_active", "status",
			"driver_name", "delay_reason", "started_at", "completed_at", "created_at"}).
			AddRow(tripID.String(), busID.String(), routeID.String(), "Ikeja", true, "ongoing", nil, nil, now, nil, now))
	mock.ExpectCommit()

	trip, err := repo.Start(context.Background(), busID, routeID, "Ikeja", nil)
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusOngoing, trip.Status)
	assert.Equal(t, "Ikeja", trip.CurrentStage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
