package database

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderCols = []string{"id", "user_id", "bus_id", "route_id", "booking_id", "payment_reference", "amount_cents", "currency", "status", "created_at", "updated_at"}

var bookingCols = []string{"id", "bus_id", "user_id", "status", "created_at"}

func setupTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func nullableID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func orderRow(rows *sqlmock.Rows, o models.Order) *sqlmock.Rows {
	return rows.AddRow(o.ID.String(), o.UserID.String(), nullableID(o.BusID), nullableID(o.RouteID), nullableID(o.BookingID),
		o.PaymentReference, o.AmountCents, o.Currency, string(o.Status), o.CreatedAt, o.UpdatedAt)
}

type reconcileFixture struct {
	userID    uuid.UUID
	busID     uuid.UUID
	orderID   uuid.UUID
	bookingID uuid.UUID
	now       time.Time
}

func newReconcileFixture() reconcileFixture {
	return reconcileFixture{
		userID:    uuid.New(),
		busID:     uuid.New(),
		orderID:   uuid.New(),
		bookingID: uuid.New(),
		now:       time.Now(),
	}
}

func (f reconcileFixture) params() *models.ReconcileParams {
	busID := f.busID
	return &models.ReconcileParams{
		UserID:           f.userID,
		BusID:            &busID,
		PaymentReference: "REF-1",
		AmountCents:      500,
		Currency:         "NGN",
	}
}

func (f reconcileFixture) order(status models.OrderStatus, bookingID *uuid.UUID) models.Order {
	busID := f.busID
	return models.Order{
		ID: f.orderID, UserID: f.userID, BusID: &busID, BookingID: bookingID,
		PaymentReference: "REF-1", AmountCents: 500, Currency: "NGN", Status: status,
		CreatedAt: f.now, UpdatedAt: f.now,
	}
}

func TestReconcilePaid_CreatesBookingAndPaysOrder(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db, quietLogger())
	f := newReconcileFixture()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), f.userID, sqlmock.AnyArg(), sqlmock.AnyArg(), "REF-1", int64(500), "NGN").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM orders WHERE payment_reference = (.+) FOR UPDATE").
		WithArgs("REF-1").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), f.order(models.OrderStatusPending, nil)))
	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(sqlmock.AnyArg(), f.busID, f.userID).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(f.bookingID.String(), f.busID.String(), f.userID.String(), "paid", f.now))
	mock.ExpectQuery("UPDATE orders").
		WithArgs(f.orderID, f.bookingID, f.busID, sqlmock.AnyArg(), int64(500), "NGN").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), f.order(models.OrderStatusPaid, &f.bookingID)))
	mock.ExpectCommit()

	result, err := repo.ReconcilePaid(context.Background(), f.params())
	require.NoError(t, err)

	assert.True(t, result.Created)
	require.NotNil(t, result.Booking)
	assert.Equal(t, f.bookingID, result.Booking.ID)
	assert.Equal(t, models.BookingStatusPaid, result.Booking.Status)
	assert.Equal(t, models.OrderStatusPaid, result.Order.Status)
	require.NotNil(t, result.Order.BookingID)
	assert.Equal(t, result.Booking.ID, *result.Order.BookingID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilePaid_ReplayReturnsExistingBooking(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db, quietLogger())
	f := newReconcileFixture()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FOR UPDATE").
		WithArgs("REF-1").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), f.order(models.OrderStatusPaid, &f.bookingID)))
	mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id").
		WithArgs(f.bookingID).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(f.bookingID.String(), f.busID.String(), f.userID.String(), "paid", f.now))
	mock.ExpectCommit()

	result, err := repo.ReconcilePaid(context.Background(), f.params())
	require.NoError(t, err)

	assert.False(t, result.Created)
	assert.Equal(t, f.bookingID, result.Booking.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilePaid_RejectsForeignOrder(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db, quietLogger())
	f := newReconcileFixture()

	foreign := f.order(models.OrderStatusPending, nil)
	foreign.UserID = uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(orderRow(sqlmock.NewRows(orderCols), foreign))
	mock.ExpectRollback()

	_, err := repo.ReconcilePaid(context.Background(), f.params())
	assert.ErrorIs(t, err, ErrOwnerMismatch)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilePaid_BookingInsertFailureRollsBack(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db, quietLogger())
	f := newReconcileFixture()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(orderRow(sqlmock.NewRows(orderCols), f.order(models.OrderStatusPending, nil)))
	mock.ExpectQuery("INSERT INTO bookings").WillReturnError(errors.New("foreign key violation"))
	mock.ExpectRollback()

	_, err := repo.ReconcilePaid(context.Background(), f.params())
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, models.AuditStepCreateBooking, stepErr.Step)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReconcilePaid_WithoutBusOnlyMarksPaid(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db, quietLogger())
	f := newReconcileFixture()

	pending := f.order(models.OrderStatusPending, nil)
	pending.BusID = nil
	paid := pending
	paid.Status = models.OrderStatusPaid

	params := f.params()
	params.BusID = nil

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FOR UPDATE").WillReturnRows(orderRow(sqlmock.NewRows(orderCols), pending))
	mock.ExpectQuery("UPDATE orders").WillReturnRows(orderRow(sqlmock.NewRows(orderCols), paid))
	mock.ExpectCommit()

	result, err := repo.ReconcilePaid(context.Background(), params)
	require.NoError(t, err)
	assert.Nil(t, result.Booking)
	assert.Equal(t, models.OrderStatusPaid, result.Order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPending(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db, quietLogger())
	f := newReconcileFixture()

	busID := f.busID
	pending := &models.PendingOrder{
		UserID: f.userID, BusID: &busID, PaymentReference: "REF-1", AmountCents: 500, Currency: "NGN",
	}

	mock.ExpectQuery("ON CONFLICT \\(payment_reference\\) DO UPDATE").
		WithArgs(sqlmock.AnyArg(), f.userID, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "REF-1", int64(500), "NGN").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), f.order(models.OrderStatusPending, nil)))

	order, err := repo.UpsertPending(context.Background(), pending)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, int64(500), order.AmountCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertPending_PaidOrderIsReturnedUnchanged(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db, quietLogger())
	f := newReconcileFixture()

	mock.ExpectQuery("ON CONFLICT").WillReturnRows(sqlmock.NewRows(orderCols))
	mock.ExpectQuery("FROM orders WHERE payment_reference").
		WithArgs("REF-1").
		WillReturnRows(orderRow(sqlmock.NewRows(orderCols), f.order(models.OrderStatusPaid, &f.bookingID)))

	order, err := repo.UpsertPending(context.Background(), &models.PendingOrder{
		UserID: f.userID, PaymentReference: "REF-1", AmountCents: 500, Currency: "NGN",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaid, order.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByReference_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db, quietLogger())

	mock.ExpectQuery("FROM orders WHERE payment_reference").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(orderCols))

	_, err := repo.GetByReference(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkFailed_OnlyPending(t *testing.T) {
	db, mock := setupTestDB(t)
	repo := NewOrderRepository(db, quietLogger())

	mock.ExpectExec("UPDATE orders SET status = 'failed'").
		WithArgs("REF-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	changed, err := repo.MarkFailed(context.Background(), "REF-2")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
