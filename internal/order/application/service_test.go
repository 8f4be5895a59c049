package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/dmehra2102/Pickle-Storefront/internal/cart/application"
	cartdomain "github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
	"github.com/dmehra2102/Pickle-Storefront/internal/cart/infrastructure/memory"
	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
)

type fakeStore struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	createErr error
	updateErr error
	block     chan struct{}
	entered   chan struct{}
	seq       int
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: map[string]domain.Order{}}
}

func (f *fakeStore) Create(_ context.Context, o domain.Order) (string, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.createErr != nil {
		return "", f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	o.ID = "ord-" + string(rune('0'+f.seq))
	f.orders[o.ID] = o
	return o.ID, nil
}

func (f *fakeStore) ListByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Order
	for _, o := range f.orders {
		if o.Customer.ExternalID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (f *fakeStore) Get(_ context.Context, id string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, from, to domain.Status, at time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return domain.ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = at
	f.orders[id] = o
	return nil
}

type fakeNotifier struct {
	err  error
	sent []domain.NotificationRequest
}

func (f *fakeNotifier) Notify(_ context.Context, req domain.NotificationRequest) error {
	f.sent = append(f.sent, req)
	return f.err
}

type fakeCarts struct {
	mu       sync.Mutex
	items    map[string][]cartdomain.LineItem
	clearErr error
}

func (f *fakeCarts) Snapshot(_ context.Context, sessionID string) ([]cartdomain.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[sessionID], nil
}

func (f *fakeCarts) Discard(_ context.Context, sessionID string) error {
	if f.clearErr != nil {
		return f.clearErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, sessionID)
	return nil
}

func (f *fakeCarts) count(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items[sessionID])
}

var (
	testNow  = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	customer = domain.Customer{ExternalID: "u1", Email: "asha@example.com", DisplayName: "Asha"}
	delivery = domain.DeliveryDetails{Address: "12 MG Road", Phone: "9876543210"}
)

type fixture struct {
	svc      *Service
	store    *fakeStore
	notifier *fakeNotifier
	carts    *fakeCarts
}

func newFixture() *fixture {
	f := &fixture{
		store:    newFakeStore(),
		notifier: &fakeNotifier{},
		carts: &fakeCarts{items: map[string][]cartdomain.LineItem{
			"s1": {{ID: "mango", Name: "Mango", UnitPrice: decimal.NewFromInt(100), Quantity: 2}},
		}},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(log, f.store, f.notifier, f.carts, NewLocalGuard(), cartdomain.DefaultPolicy(), time.Second)
	f.svc.now = func() time.Time { return testNow }
	return f
}

func TestPlaceOrder_Success(t *testing.T) {
	f := newFixture()

	r, err := f.svc.PlaceOrder(context.Background(), "s1", customer, delivery)
	require.NoError(t, err)
	assert.Equal(t, StateNotified, r.State)
	assert.True(t, r.Notified())
	assert.NotEmpty(t, r.OrderID)
	assert.Equal(t, r.OrderID, r.Order.ID)
	assert.True(t, r.Order.TotalAmount.Equal(decimal.NewFromInt(250)))

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, r.OrderID, f.notifier.sent[0].OrderID)
	assert.Zero(t, f.carts.count("s1"))
}

func TestPlaceOrder_ValidationLeavesCart(t *testing.T) {
	f := newFixture()

	r, err := f.svc.PlaceOrder(context.Background(), "s1", customer, domain.DeliveryDetails{Phone: "1"})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "deliveryAddress", verr.Field)
	assert.Equal(t, StateFailed, r.State)
	assert.Equal(t, 1, f.carts.count("s1"))
	assert.Empty(t, f.store.orders)
	assert.Empty(t, f.notifier.sent)
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	f := newFixture()

	_, err := f.svc.PlaceOrder(context.Background(), "other", customer, delivery)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "items", verr.Field)
}

func TestPlaceOrder_StoreFailureIsFatal(t *testing.T) {
	f := newFixture()
	f.store.createErr = errors.New("connection refused")

	r, err := f.svc.PlaceOrder(context.Background(), "s1", customer, delivery)
	var serr *StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, StateFailed, r.State)
	assert.Empty(t, r.OrderID)
	assert.Equal(t, 1, f.carts.count("s1"))
	assert.Empty(t, f.notifier.sent)
}

func TestPlaceOrder_NotifyFailureIsNotFatal(t *testing.T) {
	f := newFixture()
	f.notifier.err = errors.New("gateway down")

	r, err := f.svc.PlaceOrder(context.Background(), "s1", customer, delivery)
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, r.State)
	assert.NotEmpty(t, r.OrderID)

	var nerr *NotifyError
	require.ErrorAs(t, r.NotifyErr, &nerr)
	assert.Equal(t, r.OrderID, nerr.OrderID)
	assert.Zero(t, f.carts.count("s1"))
}

func TestPlaceOrder_ClearFailureStillSucceeds(t *testing.T) {
	f := newFixture()
	f.carts.clearErr = errors.New("redis down")

	r, err := f.svc.PlaceOrder(context.Background(), "s1", customer, delivery)
	require.NoError(t, err)
	assert.Equal(t, StateNotified, r.State)
}

func TestPlaceOrder_CancelledBeforeSubmit(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := f.svc.PlaceOrder(ctx, "s1", customer, delivery)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, r.State)
	assert.Empty(t, f.store.orders)
	assert.Equal(t, 1, f.carts.count("s1"))
}

func TestPlaceOrder_AtMostOneInFlight(t *testing.T) {
	f := newFixture()
	f.store.block = make(chan struct{})
	f.store.entered = make(chan struct{}, 1)

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.PlaceOrder(context.Background(), "s1", customer, delivery)
		done <- err
	}()
	<-f.store.entered

	_, err := f.svc.PlaceOrder(context.Background(), "s1", customer, delivery)
	require.ErrorIs(t, err, ErrSubmissionInFlight)

	close(f.store.block)
	require.NoError(t, <-done)
	assert.Len(t, f.store.orders, 1)
}

func TestPlaceOrder_CartEditsWaitForCheckout(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := NewLocalGuard()
	carts := cartapp.NewService(log, memory.NewStore(), cartdomain.DefaultPolicy(), guard)
	store := newFakeStore()
	store.block = make(chan struct{})
	store.entered = make(chan struct{}, 1)
	svc := NewService(log, store, &fakeNotifier{}, carts, guard, cartdomain.DefaultPolicy(), time.Second)
	ctx := context.Background()

	_, err := carts.AddItem(ctx, "s1", cartdomain.LineItem{ID: "a", Name: "Mango", UnitPrice: decimal.NewFromInt(100)}, 1)
	require.NoError(t, err)

	done := make(chan Receipt, 1)
	go func() {
		r, err := svc.PlaceOrder(ctx, "s1", customer, delivery)
		assert.NoError(t, err)
		done <- r
	}()
	<-store.entered

	_, err = carts.AddItem(ctx, "s1", cartdomain.LineItem{ID: "b", Name: "Lime", UnitPrice: decimal.NewFromInt(80)}, 1)
	require.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.ErrorIs(t, carts.Clear(ctx, "s1"), ErrSubmissionInFlight)

	close(store.block)
	r := <-done
	require.Len(t, r.Order.Items, 1)
	assert.Equal(t, "a", r.Order.Items[0].ID)

	items, err := carts.Snapshot(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, items)

	// the session is editable again once the checkout resolved
	_, err = carts.AddItem(ctx, "s1", cartdomain.LineItem{ID: "b", Name: "Lime", UnitPrice: decimal.NewFromInt(80)}, 1)
	require.NoError(t, err)
}

func TestListCustomerOrders(t *testing.T) {
	f := newFixture()
	_, err := f.svc.PlaceOrder(context.Background(), "s1", customer, delivery)
	require.NoError(t, err)

	orders, err := f.svc.ListCustomerOrders(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	orders, err = f.svc.ListCustomerOrders(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestGetCustomerOrder_Ownership(t *testing.T) {
	f := newFixture()
	r, err := f.svc.PlaceOrder(context.Background(), "s1", customer, delivery)
	require.NoError(t, err)

	o, err := f.svc.GetCustomerOrder(context.Background(), "u1", r.OrderID)
	require.NoError(t, err)
	assert.Equal(t, r.OrderID, o.ID)

	_, err = f.svc.GetCustomerOrder(context.Background(), "u2", r.OrderID)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = f.svc.GetCustomerOrder(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture()
	r, err := f.svc.PlaceOrder(context.Background(), "s1", customer, delivery)
	require.NoError(t, err)
	ctx := context.Background()

	o, err := f.svc.UpdateStatus(ctx, r.OrderID, "confirmed")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, o.Status)

	_, err = f.svc.UpdateStatus(ctx, r.OrderID, "delivered")
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = f.svc.UpdateStatus(ctx, r.OrderID, "teleported")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	_, err = f.svc.UpdateStatus(ctx, "missing", "confirmed")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	f.store.updateErr = domain.ErrStatusConflict
	_, err = f.svc.UpdateStatus(ctx, r.OrderID, "shipped")
	assert.ErrorIs(t, err, ErrIllegalTransition)
}
