package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
)

var (
	ErrInvalidItem      = errors.New("invalid cart item")
	ErrCheckoutInFlight = errors.New("a checkout is already in progress for this session")
)

type View struct {
	Items                []domain.LineItem `json:"items"`
	Count                int               `json:"count"`
	Totals               domain.Totals     `json:"totals"`
	AmountToFreeShipping decimal.Decimal   `json:"amountToFreeShipping"`
}

type Service struct {
	log    *slog.Logger
	store  SessionStore
	policy domain.Policy
	lock   EditLock
}

// NewService builds the cart service. Pass the checkout guard as lock so
// edits wait for an in-flight checkout to resolve; nil disables locking.
func NewService(log *slog.Logger, store SessionStore, policy domain.Policy, lock EditLock) *Service {
	if lock == nil {
		lock = noLock{}
	}
	return &Service{log: log, store: store, policy: policy, lock: lock}
}

type noLock struct{}

func (noLock) Acquire(context.Context, string) (func(), error) { return func() {}, nil }

func (s *Service) Policy() domain.Policy {
	return s.policy
}

func (s *Service) Get(ctx context.Context, sessionID string) (View, error) {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return s.view(c), nil
}

func (s *Service) AddItem(ctx context.Context, sessionID string, item domain.LineItem, quantity int) (View, error) {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return View{}, fmt.Errorf("%w: id is required", ErrInvalidItem)
	}
	if item.UnitPrice.IsNegative() {
		return View{}, fmt.Errorf("%w: price must not be negative", ErrInvalidItem)
	}
	if item.OriginalUnitPrice != nil && item.OriginalUnitPrice.IsNegative() {
		return View{}, fmt.Errorf("%w: original price must not be negative", ErrInvalidItem)
	}
	return s.mutate(ctx, sessionID, func(c *domain.Cart) { c.Add(item, quantity) })
}

func (s *Service) UpdateQuantity(ctx context.Context, sessionID, itemID string, quantity int) (View, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) { c.UpdateQuantity(itemID, quantity) })
}

func (s *Service) RemoveItem(ctx context.Context, sessionID, itemID string) (View, error) {
	return s.mutate(ctx, sessionID, func(c *domain.Cart) { c.Remove(itemID) })
}

func (s *Service) Clear(ctx context.Context, sessionID string) error {
	release, err := s.lock.Acquire(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()
	return s.Discard(ctx, sessionID)
}

// Discard empties the cart without taking the edit lock. Only the checkout
// that already holds the session calls it.
func (s *Service) Discard(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.log.Info("cart cleared", "session_id", sessionID)
	return nil
}

// Snapshot returns a copy of the session's line items.
func (s *Service) Snapshot(ctx context.Context, sessionID string) ([]domain.LineItem, error) {
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return c.Items(), nil
}

func (s *Service) mutate(ctx context.Context, sessionID string, fn func(*domain.Cart)) (View, error) {
	release, err := s.lock.Acquire(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrCheckoutInFlight) {
			s.log.Info("cart edit refused during checkout", "session_id", sessionID)
		}
		return View{}, err
	}
	defer release()

	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	fn(c)
	if err := s.store.Save(ctx, sessionID, c); err != nil {
		s.log.Error("cart save failed", "session_id", sessionID, "err", err)
		return View{}, err
	}
	return s.view(c), nil
}

func (s *Service) view(c *domain.Cart) View {
	totals := c.Totals(s.policy)
	return View{
		Items:                c.Items(),
		Count:                c.Count(),
		Totals:               totals,
		AmountToFreeShipping: s.policy.AmountToFreeShipping(totals.Subtotal),
	}
}
