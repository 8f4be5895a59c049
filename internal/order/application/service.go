package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	cartdomain "github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
)

const DefaultNotifyTimeout = 5 * time.Second

type State string

const (
	StateBuilding  State = "building"
	StateSubmitted State = "submitted"
	StateNotified  State = "notified"
	StateFailed    State = "failed"
)

// Receipt is the outcome of one checkout attempt. A persisted order whose
// notification failed ends in StateSubmitted with NotifyErr set.
type Receipt struct {
	OrderID   string
	Order     domain.Order
	State     State
	NotifyErr error
}

func (r Receipt) Notified() bool {
	return r.State == StateNotified
}

type Service struct {
	log           *slog.Logger
	store         OrderStore
	notifier      Notifier
	carts         CartSource
	guard         SubmissionGuard
	policy        cartdomain.Policy
	notifyTimeout time.Duration
	tracer        trace.Tracer
	now           func() time.Time
}

func NewService(log *slog.Logger, store OrderStore, notifier Notifier, carts CartSource, guard SubmissionGuard, policy cartdomain.Policy, notifyTimeout time.Duration) *Service {
	if guard == nil {
		guard = NewLocalGuard()
	}
	if notifyTimeout <= 0 {
		notifyTimeout = DefaultNotifyTimeout
	}
	return &Service{
		log:           log,
		store:         store,
		notifier:      notifier,
		carts:         carts,
		guard:         guard,
		policy:        policy,
		notifyTimeout: notifyTimeout,
		tracer:        otel.Tracer("order-service"),
		now:           time.Now,
	}
}

// PlaceOrder turns the session cart into a persisted order, alerts staff and
// clears the cart. Only a persistence failure, a validation failure or a
// concurrent checkout for the same session fail the call.
func (s *Service) PlaceOrder(ctx context.Context, sessionID string, customer domain.Customer, details domain.DeliveryDetails) (Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "PlaceOrder", trace.WithAttributes(attribute.String("session_id", sessionID)))
	defer span.End()

	failed := func(err error) (Receipt, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Receipt{State: StateFailed}, err
	}

	release, err := s.guard.Acquire(ctx, sessionID)
	if err != nil {
		return failed(err)
	}
	defer release()

	// Building
	items, err := s.carts.Snapshot(ctx, sessionID)
	if err != nil {
		return failed(fmt.Errorf("load cart: %w", err))
	}
	order, err := domain.Assemble(items, customer, details, s.policy, s.now())
	if err != nil {
		s.log.Info("checkout rejected", "session_id", sessionID, "err", err)
		return failed(err)
	}
	if err := ctx.Err(); err != nil {
		return failed(err)
	}

	// Submitted. From here on the caller cannot cancel.
	submitCtx := context.WithoutCancel(ctx)
	id, err := s.store.Create(submitCtx, order)
	if err != nil {
		s.log.Error("order persist failed", "session_id", sessionID, "customer_id", order.Customer.ExternalID, "err", err)
		return failed(&StoreError{Err: err})
	}
	order.ID = id
	receipt := Receipt{OrderID: id, Order: order, State: StateSubmitted}
	span.SetAttributes(attribute.String("order_id", id))
	s.log.Info("order placed", "order_id", id, "session_id", sessionID, "total", order.TotalAmount.String())

	// Notified
	if err := s.notify(submitCtx, order); err != nil {
		receipt.NotifyErr = err
		span.AddEvent("notify failed", trace.WithAttributes(attribute.String("err", err.Error())))
		s.log.Warn("order notification failed", "order_id", id, "err", err)
	} else {
		receipt.State = StateNotified
	}

	if err := s.carts.Discard(submitCtx, sessionID); err != nil {
		s.log.Error("cart clear after checkout failed", "order_id", id, "session_id", sessionID, "err", err)
	}
	return receipt, nil
}

func (s *Service) notify(ctx context.Context, order domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, domain.NewNotificationRequest(order)); err != nil {
		return &NotifyError{OrderID: order.ID, Err: err}
	}
	return nil
}

func (s *Service) ListCustomerOrders(ctx context.Context, customerID string) ([]domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "ListCustomerOrders")
	defer span.End()

	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return []domain.Order{}, nil
	}
	orders, err := s.store.ListByCustomer(ctx, customerID)
	if err != nil {
		span.RecordError(err)
		return nil, &StoreError{Err: err}
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// GetCustomerOrder hides orders owned by other customers behind ErrOrderNotFound.
func (s *Service) GetCustomerOrder(ctx context.Context, customerID, orderID string) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "GetCustomerOrder", trace.WithAttributes(attribute.String("order_id", orderID)))
	defer span.End()

	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Customer.ExternalID != customerID {
		return domain.Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (s *Service) UpdateStatus(ctx context.Context, orderID string, status string) (domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateOrderStatus", trace.WithAttributes(attribute.String("order_id", orderID)))
	defer span.End()

	next, ok := domain.ParseStatus(status)
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !o.Status.CanTransitionTo(next) {
		return domain.Order{}, fmt.Errorf("%w: %s to %s", ErrIllegalTransition, o.Status, next)
	}

	at := s.now().UTC()
	if err := s.store.UpdateStatus(ctx, orderID, o.Status, next, at); err != nil {
		switch {
		case errors.Is(err, domain.ErrStatusConflict):
			return domain.Order{}, fmt.Errorf("%w: %v", ErrIllegalTransition, err)
		case errors.Is(err, domain.ErrOrderNotFound):
			return domain.Order{}, ErrOrderNotFound
		}
		span.RecordError(err)
		return domain.Order{}, &StoreError{Err: err}
	}
	s.log.Info("order status changed", "order_id", orderID, "from", o.Status, "to", next)

	o.Status = next
	o.UpdatedAt = at
	return o, nil
}

func (s *Service) getOrder(ctx context.Context, orderID string) (domain.Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return domain.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, &StoreError{Err: err}
	}
	return o, nil
}
