package memory

import (
	"context"
	"sync"

	"github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
)

// Store keeps session carts in process memory. Used for local runs when no
// Redis address is configured.
type Store struct {
	mu    sync.RWMutex
	carts map[string][]domain.LineItem
}

func NewStore() *Store {
	return &Store{carts: make(map[string][]domain.LineItem)}
}

func (s *Store) Load(_ context.Context, sessionID string) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Restore(s.carts[sessionID]), nil
}

func (s *Store) Save(_ context.Context, sessionID string, cart *domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cart.Len() == 0 {
		delete(s.carts, sessionID)
		return nil
	}
	s.carts[sessionID] = cart.Items()
	return nil
}

func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
	return nil
}
