package services

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/events"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/stretchr/testify/mock"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// mockProvider is a testify mock of PaymentProvider
type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) FindOrCreateCustomer(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockProvider) InitializeTransaction(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	args := m.Called(ctx, req)
	if s, ok := args.Get(0).(*CheckoutSession); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockProvider) VerifyTransaction(ctx context.Context, reference string) (*VerifiedTransaction, error) {
	args := m.Called(ctx, reference)
	if tx, ok := args.Get(0).(*VerifiedTransaction); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeOrderStore is an in-memory OrderStore with the same reconciliation
// semantics as the Postgres repository
type fakeOrderStore struct {
	mu         sync.Mutex
	orders     map[string]*models.Order
	bookings   map[uuid.UUID]*models.Booking
	bookingErr error
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders:   map[string]*models.Order{},
		bookings: map[uuid.UUID]*models.Booking{},
	}
}

func (f *fakeOrderStore) UpsertPending(_ context.Context, p *models.PendingOrder) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.orders[p.PaymentReference]; ok {
		if existing.Status == models.OrderStatusPending && existing.UserID == p.UserID {
			existing.BusID, existing.RouteID = p.BusID, p.RouteID
			existing.AmountCents, existing.Currency = p.AmountCents, p.Currency
			existing.UpdatedAt = time.Now()
		}
		copied := *existing
		return &copied, nil
	}

	now := time.Now()
	o := &models.Order{
		ID: uuid.New(), UserID: p.UserID, BusID: p.BusID, RouteID: p.RouteID, BookingID: p.BookingID,
		PaymentReference: p.PaymentReference, AmountCents: p.AmountCents, Currency: p.Currency,
		Status: models.OrderStatusPending, CreatedAt: now, UpdatedAt: now,
	}
	f.orders[p.PaymentReference] = o
	copied := *o
	return &copied, nil
}

func (f *fakeOrderStore) GetByReference(_ context.Context, reference string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[reference]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrderStore) FindForUser(ctx context.Context, reference string, userID uuid.UUID) (*models.Order, error) {
	o, err := f.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, database.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderStore) ListStalePending(_ context.Context, minAge, maxAge time.Duration, limit int) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	out := []models.Order{}
	for _, o := range f.orders {
		age := now.Sub(o.UpdatedAt)
		if o.Status == models.OrderStatusPending && age >= minAge && age < maxAge && len(out) < limit {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) MarkFailed(_ context.Context, reference string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[reference]
	if !ok || o.Status != models.OrderStatusPending {
		return false, nil
	}
	o.Status = models.OrderStatusFailed
	return true, nil
}

func (f *fakeOrderStore) ExpirePending(_ context.Context, maxAge time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, o := range f.orders {
		if o.Status == models.OrderStatusPending && time.Since(o.UpdatedAt) >= maxAge {
			o.Status = models.OrderStatusFailed
			n++
		}
	}
	return n, nil
}

func (f *fakeOrderStore) ReconcilePaid(_ context.Context, p *models.ReconcileParams) (*models.ReconcileResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[p.PaymentReference]
	if !ok {
		now := time.Now()
		order = &models.Order{
			ID: uuid.New(), UserID: p.UserID, BusID: p.BusID, RouteID: p.RouteID,
			PaymentReference: p.PaymentReference, AmountCents: p.AmountCents, Currency: p.Currency,
			Status: models.OrderStatusPending, CreatedAt: now, UpdatedAt: now,
		}
		f.orders[p.PaymentReference] = order
	}
	if order.UserID != p.UserID {
		return nil, database.ErrOwnerMismatch
	}

	busID := p.BusID
	if busID == nil {
		busID = order.BusID
	}

	if order.Status == models.OrderStatusPaid && (order.BookingID != nil || busID == nil) {
		result := &models.ReconcileResult{Order: copyOrder(order)}
		if order.BookingID != nil {
			b := *f.bookings[*order.BookingID]
			result.Booking = &b
		}
		return result, nil
	}

	result := &models.ReconcileResult{Created: true}
	if busID != nil {
		if f.bookingErr != nil {
			return nil, &database.StepError{Step: models.AuditStepCreateBooking, Err: f.bookingErr}
		}
		b := &models.Booking{ID: uuid.New(), BusID: *busID, UserID: p.UserID, Status: models.BookingStatusPaid, CreatedAt: time.Now()}
		f.bookings[b.ID] = b
		copied := *b
		result.Booking = &copied
		order.BookingID = &b.ID
	}
	if p.RouteID != nil {
		order.RouteID = p.RouteID
	}
	order.BusID = busID
	order.Status = models.OrderStatusPaid
	order.AmountCents, order.Currency = p.AmountCents, p.Currency
	result.Order = copyOrder(order)
	return result, nil
}

func copyOrder(o *models.Order) *models.Order {
	c := *o
	return &c
}

func (f *fakeOrderStore) bookingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

func (f *fakeOrderStore) order(reference string) *models.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[reference]; ok {
		return copyOrder(o)
	}
	return nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	err     error
}

func (f *fakeAuditStore) Insert(_ context.Context, entry *models.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditStore) find(event string, status models.AuditStatus) []*models.AuditLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AuditLog
	for _, e := range f.entries {
		if e.Event == event && e.Status == status {
			out = append(out, e)
		}
	}
	return out
}

type fakeRouteStore struct {
	routes map[uuid.UUID]*models.Route
	calls  int
}

func newFakeRouteStore(routes ...*models.Route) *fakeRouteStore {
	f := &fakeRouteStore{routes: map[uuid.UUID]*models.Route{}}
	for _, r := range routes {
		f.routes[r.ID] = r
	}
	return f
}

func (f *fakeRouteStore) GetByID(_ context.Context, id uuid.UUID) (*models.Route, error) {
	r, ok := f.routes[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return r, nil
}

func (f *fakeRouteStore) GetPrice(_ context.Context, id uuid.UUID) (int64, error) {
	f.calls++
	r, ok := f.routes[id]
	if !ok {
		return 0, database.ErrNotFound
	}
	return r.PriceCents, nil
}

func (f *fakeRouteStore) List(context.Context) ([]models.Route, error) {
	out := []models.Route{}
	for _, r := range f.routes {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeRouteStore) ListByOperator(_ context.Context, operatorID uuid.UUID) ([]models.Route, error) {
	out := []models.Route{}
	for _, r := range f.routes {
		if r.OperatorID == operatorID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRouteStore) Create(_ context.Context, operatorID uuid.UUID, in *models.RouteInput) (*models.Route, error) {
	r := &models.Route{ID: uuid.New(), OperatorID: operatorID, Name: in.Name, Stages: in.Stages, StageCoords: in.StageCoords, PriceCents: in.PriceCents}
	f.routes[r.ID] = r
	return r, nil
}

func (f *fakeRouteStore) Update(_ context.Context, id, operatorID uuid.UUID, in *models.RouteInput) (*models.Route, error) {
	r, ok := f.routes[id]
	if !ok || r.OperatorID != operatorID {
		return nil, database.ErrNotFound
	}
	r.Name, r.Stages, r.StageCoords, r.PriceCents = in.Name, in.Stages, in.StageCoords, in.PriceCents
	return r, nil
}

func (f *fakeRouteStore) Delete(_ context.Context, id, operatorID uuid.UUID) error {
	r, ok := f.routes[id]
	if !ok || r.OperatorID != operatorID {
		return database.ErrNotFound
	}
	delete(f.routes, id)
	return nil
}

type fakePriceCache struct {
	prices      map[uuid.UUID]int64
	invalidated []uuid.UUID
}

func (f *fakePriceCache) Get(_ context.Context, id uuid.UUID) (int64, bool, error) {
	p, ok := f.prices[id]
	return p, ok, nil
}

func (f *fakePriceCache) Set(_ context.Context, id uuid.UUID, price int64) error {
	f.prices[id] = price
	return nil
}

func (f *fakePriceCache) Invalidate(_ context.Context, id uuid.UUID) error {
	delete(f.prices, id)
	f.invalidated = append(f.invalidated, id)
	return nil
}

type fakeLookupCache struct {
	mu      sync.Mutex
	entries map[string]*models.BookingLookupResponse
}

func newFakeLookupCache() *fakeLookupCache {
	return &fakeLookupCache{entries: map[string]*models.BookingLookupResponse{}}
}

func (f *fakeLookupCache) key(userID uuid.UUID, reference string) string {
	return userID.String() + "/" + reference
}

func (f *fakeLookupCache) Get(_ context.Context, userID uuid.UUID, reference string) (*models.BookingLookupResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[f.key(userID, reference)], nil
}

func (f *fakeLookupCache) Set(_ context.Context, userID uuid.UUID, reference string, resp *models.BookingLookupResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[f.key(userID, reference)] = resp
	return nil
}

func (f *fakeLookupCache) Invalidate(_ context.Context, userID uuid.UUID, reference string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, f.key(userID, reference))
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*events.BookingEvent
}

func (f *fakePublisher) Publish(_ context.Context, e *events.BookingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) count(eventType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// harness wires the payment services over the fakes
type harness struct {
	orders     *fakeOrderStore
	audit      *fakeAuditStore
	routes     *fakeRouteStore
	buses      *fakeBusStore
	lookups    *fakeLookupCache
	publisher  *fakePublisher
	provider   *mockProvider
	auditor    *AuditLogger
	pricing    *PricingService
	reconciler *ReconcilerService
}

func newHarness(routes ...*models.Route) *harness {
	logger := quietLogger()
	h := &harness{
		orders:    newFakeOrderStore(),
		audit:     &fakeAuditStore{},
		routes:    newFakeRouteStore(routes...),
		buses:     &fakeBusStore{buses: map[uuid.UUID]*models.Bus{}},
		lookups:   newFakeLookupCache(),
		publisher: &fakePublisher{},
		provider:  &mockProvider{},
	}
	h.auditor = NewAuditLogger(h.audit, logger)
	h.pricing = NewPricingService(h.routes, nil, logger)
	h.reconciler = NewReconcilerService(h.orders, h.publisher, h.lookups, logger)
	return h
}

// addBus registers an active bus and returns its id
func (h *harness) addBus() uuid.UUID {
	bus := &models.Bus{ID: uuid.New(), OperatorID: uuid.New(), Name: "Danfo 7", PlateNumber: "LAG-" + uuid.NewString()[:4]}
	h.buses.buses[bus.ID] = bus
	return bus.ID
}

func (h *harness) paymentService() *PaymentService {
	return NewPaymentService(h.pricing, h.provider, h.orders, h.buses, h.auditor, "NGN", quietLogger())
}

func (h *harness) verificationService() *VerificationService {
	return NewVerificationService(h.provider, h.orders, h.buses, h.reconciler, h.auditor, quietLogger())
}

func (h *harness) ticketService(tickets TicketStore) *TicketService {
	return NewTicketService(tickets, h.orders, h.lookups, quietLogger())
}

func newCaller() Caller {
	return Caller{UserID: uuid.New(), Email: "rider@example.com", Roles: []string{"passenger"}}
}
