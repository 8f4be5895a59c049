package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/dmehra2102/Pickle-Storefront/internal/cart/domain"
)

const (
	DefaultTTL  = 7 * 24 * time.Hour
	loadTimeout = 3 * time.Second
)

// cartDocument is the stored shape of a session cart.
type cartDocument struct {
	SessionID string            `json:"sessionId"`
	Items     []domain.LineItem `json:"items"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type Store struct {
	log    *slog.Logger
	client *redis.Client
	ttl    time.Duration
	sfg    singleflight.Group
}

func NewStore(log *slog.Logger, client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{log: log, client: client, ttl: ttl}
}

func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		// Coalesced callers share this read, so it is detached from whichever
		// caller happened to start it.
		getCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		data, err := s.client.Get(getCtx, cacheKey(sessionID)).Bytes()
		if errors.Is(err, redis.Nil) {
			return []domain.LineItem(nil), nil
		}
		if err != nil {
			return nil, fmt.Errorf("redis get failed: %w", err)
		}

		var doc cartDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			s.log.Warn("discarding unreadable cart", "session_id", sessionID, "err", err)
			return []domain.LineItem(nil), nil
		}
		return doc.Items, nil
	})
	if err != nil {
		return nil, err
	}
	// Each caller gets its own cart; the shared slice is only read here.
	return domain.Restore(v.([]domain.LineItem)), nil
}

func (s *Store) Save(ctx context.Context, sessionID string, cart *domain.Cart) error {
	if cart.Len() == 0 {
		return s.Delete(ctx, sessionID)
	}
	doc := cartDocument{
		SessionID: sessionID,
		Items:     cart.Items(),
		UpdatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	err = s.client.Set(ctx, cacheKey(sessionID), data, s.ttl).Err()
	// Loads from here on must not join a read that began before this write.
	s.sfg.Forget(sessionID)
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, sessionID string) error {
	err := s.client.Del(ctx, cacheKey(sessionID)).Err()
	s.sfg.Forget(sessionID)
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(sessionID string) string {
	return fmt.Sprintf("cart:%s", sessionID)
}
