package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const checkViolation = pq.ErrorCode("23514")

// setupSchemaDB applies migrations/001_init.sql to a fresh schema on the
// database named by TEST_DATABASE_URL. The schema is dropped afterwards.
func setupSchemaDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping schema tests")
	}

	db, err := sqlx.Connect("postgres", url)
	require.NoError(t, err)
	// one connection so search_path sticks for every statement
	db.SetMaxOpenConns(1)

	schema := "schema_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = db.Exec(`CREATE SCHEMA ` + schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Exec(`DROP SCHEMA ` + schema + ` CASCADE`)
		db.Close()
	})

	_, err = db.Exec(`SET search_path TO ` + schema + `, public`)
	require.NoError(t, err)

	ddl, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	_, err = db.Exec(string(ddl))
	require.NoError(t, err)
	return db
}

func requireCheckViolation(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var pqErr *pq.Error
	require.True(t, errors.As(err, &pqErr), "expected a postgres error, got %v", err)
	assert.Equal(t, checkViolation, pqErr.Code)
}

func TestSchema_PaymentWithoutBusIsMarkedPaid(t *testing.T) {
	db := setupSchemaDB(t)
	ctx := context.Background()
	orders := NewOrderRepository(db, quietLogger())
	userID := uuid.New()

	_, err := orders.UpsertPending(ctx, &models.PendingOrder{
		UserID: userID, PaymentReference: "REF-NOBUS", AmountCents: 500, Currency: "NGN",
	})
	require.NoError(t, err)

	params := &models.ReconcileParams{UserID: userID, PaymentReference: "REF-NOBUS", AmountCents: 500, Currency: "NGN"}
	result, err := orders.ReconcilePaid(ctx, params)
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Nil(t, result.Booking)
	assert.Equal(t, models.OrderStatusPaid, result.Order.Status)

	// webhook replay for the same reference
	again, err := orders.ReconcilePaid(ctx, params)
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, result.Order.ID, again.Order.ID)
}

func TestSchema_PaymentWithBusKeepsItsBooking(t *testing.T) {
	db := setupSchemaDB(t)
	ctx := context.Background()
	bus, err := NewBusRepository(db).Create(ctx, uuid.New(), &models.BusInput{Name: "Danfo 7", PlateNumber: "LAG-777"})
	require.NoError(t, err)

	orders := NewOrderRepository(db, quietLogger())
	userID := uuid.New()
	result, err := orders.ReconcilePaid(ctx, &models.ReconcileParams{
		UserID: userID, BusID: &bus.ID, PaymentReference: "REF-BUS", AmountCents: 500, Currency: "NGN",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Booking)
	assert.Equal(t, bus.ID, result.Booking.BusID)

	var count int
	require.NoError(t, db.Get(&count, `SELECT COUNT(*) FROM bookings WHERE user_id = $1`, userID))
	assert.Equal(t, 1, count)

	// a paid order with a bus can never lose its booking
	_, err = db.Exec(`UPDATE orders SET booking_id = NULL WHERE payment_reference = 'REF-BUS'`)
	requireCheckViolation(t, err)
}

func TestSchema_RouteStageCoordsMustMatchStages(t *testing.T) {
	db := setupSchemaDB(t)
	ctx := context.Background()
	routes := NewRouteRepository(db)
	operatorID := uuid.New()

	_, err := routes.Create(ctx, operatorID, &models.RouteInput{
		Name:        "Ikeja - CMS",
		Stages:      []string{"Ikeja", "Yaba", "CMS"},
		StageCoords: []models.Coordinate{{Lat: 6.6, Lng: 3.35}, {Lat: 6.5, Lng: 3.37}},
		PriceCents:  300,
	})
	requireCheckViolation(t, err)

	_, err = db.Exec(`INSERT INTO routes (operator_id, name, stages, price_cents) VALUES ($1, 'No coords', ARRAY['A','B'], 100)`, operatorID)
	requireCheckViolation(t, err)

	route, err := routes.Create(ctx, operatorID, &models.RouteInput{
		Name:        "Ikeja - Yaba",
		Stages:      []string{"Ikeja", "Yaba"},
		StageCoords: []models.Coordinate{{Lat: 0, Lng: 3.35}, {Lat: 6.5, Lng: 0}},
		PriceCents:  200,
	})
	require.NoError(t, err)
	assert.Len(t, route.StageCoords, 2)
}

func TestMigration_DeclaresConstraints(t *testing.T) {
	ddl, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	sql := strings.Join(strings.Fields(string(ddl)), " ")

	assert.Contains(t, sql, "payment_reference VARCHAR(128) NOT NULL UNIQUE")
	assert.Contains(t, sql, "status <> 'paid' OR booking_id IS NOT NULL OR bus_id IS NULL")
	assert.Contains(t, sql, "WHEN jsonb_typeof(stage_coords) = 'array' THEN jsonb_array_length(stage_coords) = array_length(stages, 1)")
	assert.Contains(t, sql, "stage_coords JSONB NOT NULL DEFAULT '[]'::jsonb")
}
