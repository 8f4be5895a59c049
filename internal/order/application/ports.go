package application

import (
	"context"
	"time"

	cartdomain "github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
)

type OrderStore interface {
	// Create persists o and returns the id the store assigned to it.
	Create(ctx context.Context, o domain.Order) (string, error)
	// ListByCustomer returns the customer's orders newest first.
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	// UpdateStatus moves id from one status to another, failing with
	// domain.ErrStatusConflict when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) error
}

type Notifier interface {
	Notify(ctx context.Context, req domain.NotificationRequest) error
}

// CartSource is read and emptied by a checkout that holds the session's
// SubmissionGuard, so Discard must not take that guard again.
type CartSource interface {
	Snapshot(ctx context.Context, sessionID string) ([]cartdomain.LineItem, error)
	Discard(ctx context.Context, sessionID string) error
}

// SubmissionGuard admits at most one checkout per key at a time. Acquire
// fails with ErrSubmissionInFlight while the key is held.
type SubmissionGuard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
