package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mmeshcher/foodie-express/internal/cart"
	"github.com/mmeshcher/foodie-express/internal/catalog"
	"github.com/mmeshcher/foodie-express/internal/events"
	"github.com/mmeshcher/foodie-express/internal/model"
	"github.com/mmeshcher/foodie-express/internal/order"
	"github.com/mmeshcher/foodie-express/internal/repository"
	"github.com/mmeshcher/foodie-express/internal/tracking"
	"github.com/mmeshcher/foodie-express/internal/validation"
)

type nopPublisher struct{}

func (nopPublisher) Broadcast(events.Message) {}

type stubSink struct {
	mu     sync.Mutex
	orders []model.Order
}

func (s *stubSink) WriteOrder(_ context.Context, _ string, o model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return nil
}

type inlineQueue struct{}

func (inlineQueue) Enqueue(_ string, task func(ctx context.Context) error) bool {
	_ = task(context.Background())
	return true
}

type failingOrders struct {
	*order.Ledger
}

func (failingOrders) Place(context.Context, string, model.CartState, model.CustomerInfo, model.PaymentMethod) (model.Order, error) {
	return model.Order{}, errors.New("storage unavailable")
}

type stubTracker struct {
	status string
	eta    *time.Time
	err    error
	calls  int
}

func (t *stubTracker) Delivery(_ context.Context, number string) (tracking.Delivery, error) {
	t.calls++
	if t.err != nil {
		return tracking.Delivery{}, t.err
	}
	return tracking.Delivery{Order: number, Status: t.status, ETA: t.eta}, nil
}

type fixture struct {
	svc *Service
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := repository.NewMemoryRepository()

	cat := catalog.NewRepository(store, nopPublisher{}, logger, catalog.Baseline())
	cat.Reload(context.Background())
	carts := cart.NewService(store, nil, nil, logger)
	ledger := order.NewLedger(store, logger)

	return fixture{svc: NewService(store, cat, carts, ledger, logger, opts...)}
}

var (
	validInfo = model.CustomerInfo{Name: "Asha", Phone: "9876543210", Address: "12 MG Road"}
	userOwner = cart.Owner{UserID: "u1", GuestID: "s1"}
)

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u, err := f.svc.RegisterUser(ctx, " Asha@Example.com ", "secret1", "Asha")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.NotEqual(t, []byte("secret1"), u.PasswordHash)

	_, err = f.svc.RegisterUser(ctx, "asha@example.com", "another", "Asha 2")
	assert.ErrorIs(t, err, ErrUserExists)

	got, err := f.svc.AuthenticateUser(ctx, "ASHA@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.svc.AuthenticateUser(ctx, "asha@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.AuthenticateUser(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	byID, err := f.svc.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Asha", byID.DisplayName)

	_, err = f.svc.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestRegisterUser_InputErrors(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name, email, password, display string
	}{
		{name: "missing name", email: "a@b.c", password: "secret1"},
		{name: "bad email", email: "not-an-email", password: "secret1", display: "A"},
		{name: "short password", email: "a@b.c", password: "123", display: "A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RegisterUser(context.Background(), tt.email, tt.password, tt.display)
			var inputErr *InputError
			assert.ErrorAs(t, err, &inputErr)
		})
	}
}

func TestIsAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithAdmins([]string{"Admin@FoodieExpress.com"}))

	admin, err := f.svc.RegisterUser(ctx, "admin@foodieexpress.com", "secret1", "Admin")
	require.NoError(t, err)
	user, err := f.svc.RegisterUser(ctx, "user@foodieexpress.com", "secret1", "User")
	require.NoError(t, err)

	assert.True(t, f.svc.IsAdmin(ctx, admin.ID))
	assert.False(t, f.svc.IsAdmin(ctx, user.ID))
	assert.False(t, f.svc.IsAdmin(ctx, "missing"))
}

func TestAddToCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	guest := cart.Owner{GuestID: "s1"}

	state, err := f.svc.AddToCart(ctx, guest, "1")
	require.NoError(t, err)
	state, err = f.svc.AddToCart(ctx, guest, "1")
	require.NoError(t, err)
	require.Len(t, state.Items, 1)
	assert.True(t, state.Total.Equal(decimal.NewFromInt(598)))

	_, err = f.svc.AddToCart(ctx, guest, "404")
	assert.ErrorIs(t, err, ErrItemNotFound)

	state = f.svc.UpdateCartItem(ctx, guest, "1", 0)
	assert.Empty(t, state.Items)
}

func TestPlaceOrder_Success(t *testing.T) {
	ctx := context.Background()
	sink := &stubSink{}
	f := newFixture(t, WithRemote(sink, inlineQueue{}))

	_, err := f.svc.AddToCart(ctx, userOwner, "1")
	require.NoError(t, err)
	_, err = f.svc.AddToCart(ctx, userOwner, "6")
	require.NoError(t, err)

	before := time.Now()
	o, err := f.svc.PlaceOrder(ctx, userOwner, validInfo, model.PaymentCard)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, o.Status)
	assert.True(t, o.Total.Equal(decimal.NewFromInt(548)))
	assert.WithinDuration(t, before.Add(45*time.Minute), o.EstimatedDelivery, 5*time.Second)

	assert.Empty(t, f.svc.Cart(ctx, userOwner).Items)

	orders, err := f.svc.Orders(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	info, found, err := f.svc.CustomerInfo(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, validInfo, info)

	require.Len(t, sink.orders, 1)
	assert.Equal(t, o.ID, sink.orders[0].ID)
}

func TestPlaceOrder_InvalidPhoneKeepsCart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.AddToCart(ctx, userOwner, "1")
	require.NoError(t, err)

	info := validInfo
	info.Phone = "98765"
	_, err = f.svc.PlaceOrder(ctx, userOwner, info, model.PaymentCash)

	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Len(t, f.svc.Cart(ctx, userOwner).Items, 1)

	orders, err := f.svc.Orders(ctx, "u1", "")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestPlaceOrder_LedgerFailureKeepsCart(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	store := repository.NewMemoryRepository()
	cat := catalog.NewRepository(store, nopPublisher{}, logger, catalog.Baseline())
	carts := cart.NewService(store, nil, nil, logger)
	svc := NewService(store, cat, carts, failingOrders{order.NewLedger(store, logger)}, logger)

	_, err := svc.AddToCart(ctx, userOwner, "2")
	require.NoError(t, err)

	_, err = svc.PlaceOrder(ctx, userOwner, validInfo, model.PaymentCash)
	require.Error(t, err)
	assert.Len(t, svc.Cart(ctx, userOwner).Items, 1)
}

func TestPlaceOrder_GuestRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PlaceOrder(context.Background(), cart.Owner{GuestID: "s1"}, validInfo, model.PaymentCash)
	assert.ErrorIs(t, err, order.ErrNoIdentity)
}

func TestLocations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	assert.Len(t, f.svc.Locations(), 10)
	assert.Equal(t, "surat", f.svc.CurrentLocation(ctx, "guest:s1").ID)

	l, err := f.svc.SetLocation(ctx, "guest:s1", "pune")
	require.NoError(t, err)
	assert.Equal(t, "Maharashtra", l.State)
	assert.Equal(t, "pune", f.svc.CurrentLocation(ctx, "guest:s1").ID)
	assert.Equal(t, "surat", f.svc.CurrentLocation(ctx, "u1").ID)

	_, err = f.svc.SetLocation(ctx, "guest:s1", "atlantis")
	assert.ErrorIs(t, err, ErrUnknownLocation)
}

func TestMenuItemMutations(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	added, err := f.svc.AddMenuItem(ctx, model.MenuItem{Name: "Dosa", Price: decimal.NewFromInt(120), Category: "Indian"})
	require.NoError(t, err)

	name := "Masala Dosa"
	require.NoError(t, f.svc.UpdateMenuItem(ctx, added.ID, model.MenuItemPatch{Name: &name}))
	got, ok := f.svc.MenuItem(added.ID)
	require.True(t, ok)
	assert.Equal(t, name, got.Name)

	require.NoError(t, f.svc.RemoveMenuItem(ctx, added.ID))
	assert.ErrorIs(t, f.svc.RemoveMenuItem(ctx, added.ID), ErrItemNotFound)
	assert.ErrorIs(t, f.svc.UpdateMenuItem(ctx, "404", model.MenuItemPatch{Name: &name}), ErrItemNotFound)

	assert.Len(t, f.svc.Menu(catalog.Filter{Category: "Indian"}), 3)
}

func TestProcessStatusBatch(t *testing.T) {
	ctx := context.Background()
	tracker := &stubTracker{status: "OUT_FOR_DELIVERY"}
	f := newFixture(t, WithTracker(tracker))

	_, err := f.svc.AddToCart(ctx, userOwner, "1")
	require.NoError(t, err)
	o, err := f.svc.PlaceOrder(ctx, userOwner, validInfo, model.PaymentCash)
	require.NoError(t, err)

	f.svc.processStatusBatch(ctx)

	got, err := f.svc.Order(ctx, "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusOutForDelivery, got.Status)

	// Назад по жизненному циклу статус не возвращается.
	tracker.status = "CONFIRMED"
	f.svc.processStatusBatch(ctx)
	got, err = f.svc.Order(ctx, "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusOutForDelivery, got.Status)

	// Завершённые заказы не опрашиваются.
	tracker.status = "DELIVERED"
	f.svc.processStatusBatch(ctx)
	calls := tracker.calls
	f.svc.processStatusBatch(ctx)
	assert.Equal(t, calls, tracker.calls)
}

func TestProcessStatusBatch_TooManyRequests(t *testing.T) {
	ctx := context.Background()
	tracker := &stubTracker{err: &tracking.RateLimitError{}}
	f := newFixture(t, WithTracker(tracker))

	_, err := f.svc.AddToCart(ctx, userOwner, "1")
	require.NoError(t, err)
	o, err := f.svc.PlaceOrder(ctx, userOwner, validInfo, model.PaymentCash)
	require.NoError(t, err)

	f.svc.processStatusBatch(ctx)

	got, err := f.svc.Order(ctx, "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Equal(t, 1, tracker.calls)
}

func TestProcessStatusBatch_AppliesEstimate(t *testing.T) {
	ctx := context.Background()
	eta := time.Date(2026, 10, 16, 19, 30, 0, 0, time.UTC)
	tracker := &stubTracker{status: "PREPARING", eta: &eta}
	f := newFixture(t, WithTracker(tracker))

	_, err := f.svc.AddToCart(ctx, userOwner, "1")
	require.NoError(t, err)
	o, err := f.svc.PlaceOrder(ctx, userOwner, validInfo, model.PaymentCash)
	require.NoError(t, err)

	f.svc.processStatusBatch(ctx)

	got, err := f.svc.Order(ctx, "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPreparing, got.Status)
	assert.True(t, got.EstimatedDelivery.Equal(eta))

	// Доставленный заказ сохраняет последнюю оценку.
	later := eta.Add(time.Hour)
	tracker.status = "DELIVERED"
	tracker.eta = &later
	f.svc.processStatusBatch(ctx)

	got, err = f.svc.Order(ctx, "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, got.Status)
	assert.True(t, got.EstimatedDelivery.Equal(eta))
}

func TestProcessStatusBatch_UnknownOrderKeepsStatus(t *testing.T) {
	ctx := context.Background()
	tracker := &stubTracker{err: fmt.Errorf("%w: ORD-1", tracking.ErrUnknownOrder)}
	f := newFixture(t, WithTracker(tracker))

	_, err := f.svc.AddToCart(ctx, userOwner, "1")
	require.NoError(t, err)
	o, err := f.svc.PlaceOrder(ctx, userOwner, validInfo, model.PaymentCash)
	require.NoError(t, err)

	f.svc.processStatusBatch(ctx)

	got, err := f.svc.Order(ctx, "u1", o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusPending, got.Status)
	assert.Equal(t, 1, tracker.calls)
}

func TestProcessStatusBatch_SkipsCompletedOrdersBeforeLimit(t *testing.T) {
	ctx := context.Background()
	tracker := &stubTracker{status: "CONFIRMED"}
	f := newFixture(t, WithTracker(tracker))

	_, err := f.svc.AddToCart(ctx, userOwner, "1")
	require.NoError(t, err)
	oldest, err := f.svc.PlaceOrder(ctx, userOwner, validInfo, model.PaymentCash)
	require.NoError(t, err)

	// Более новые заказы занимают начало индекса, но уже завершены.
	for i := 0; i < trackingBatchSize+5; i++ {
		_, err := f.svc.AddToCart(ctx, userOwner, "1")
		require.NoError(t, err)
		o, err := f.svc.PlaceOrder(ctx, userOwner, validInfo, model.PaymentCash)
		require.NoError(t, err)
		_, err = f.svc.UpdateOrderStatus(ctx, "u1", o.ID, model.OrderStatusDelivered)
		require.NoError(t, err)
	}

	f.svc.processStatusBatch(ctx)

	assert.Equal(t, 1, tracker.calls)
	got, err := f.svc.Order(ctx, "u1", oldest.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusConfirmed, got.Status)
}

func TestRegisterUser_CorruptRegistryStartsEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	require.NoError(t, f.svc.store.Put(ctx, repository.GlobalKey(repository.NamespaceUsers), []byte("{not json")))

	_, err := f.svc.AuthenticateUser(ctx, "asha@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	u, err := f.svc.RegisterUser(ctx, "asha@example.com", "secret1", "Asha")
	require.NoError(t, err)

	got, err := f.svc.AuthenticateUser(ctx, "asha@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestStartStatusUpdates_NoTracker(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})

	go func() {
		f.svc.StartStatusUpdates(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("StartStatusUpdates did not return without tracker")
	}
}
