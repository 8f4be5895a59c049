package application

import (
	"context"

	"github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
)

// SessionStore persists one cart per shopper session. Load on an unknown
// session returns an empty cart.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, sessionID string, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// EditLock serializes cart edits with checkout for one session. Acquire
// fails with ErrCheckoutInFlight while a checkout holds the session.
type EditLock interface {
	Acquire(ctx context.Context, sessionID string) (release func(), err error)
}
