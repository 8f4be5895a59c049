package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// LocalGuard tracks in-flight checkouts inside this process.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: map[string]struct{}{}}
}

func (g *LocalGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return nil, ErrSubmissionInFlight
	}
	g.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, key)
			g.mu.Unlock()
		})
	}, nil
}

// Locker is a distributed lease lock keyed by string.
type Locker interface {
	Acquire(ctx context.Context, key string) (token string, ok bool, err error)
	Extend(ctx context.Context, key, token string) (ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

const DefaultLockRefresh = 10 * time.Second

// LockGuard extends the at-most-one guarantee across replicas. The lease is
// refreshed every refresh interval until release, so a slow persist cannot
// outlive it.
type LockGuard struct {
	log     *slog.Logger
	locker  Locker
	refresh time.Duration
}

func NewLockGuard(log *slog.Logger, locker Locker, refresh time.Duration) *LockGuard {
	if refresh <= 0 {
		refresh = DefaultLockRefresh
	}
	return &LockGuard{log: log, locker: locker, refresh: refresh}
}

func (g *LockGuard) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := "checkout:" + key
	token, ok, err := g.locker.Acquire(ctx, lockKey)
	if err != nil {
		return nil, fmt.Errorf("acquire checkout lock: %w", err)
	}
	if !ok {
		return nil, ErrSubmissionInFlight
	}

	bg := context.WithoutCancel(ctx)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.keepAlive(bg, key, lockKey, token, stop)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			relCtx, cancel := context.WithTimeout(bg, 2*time.Second)
			defer cancel()
			if err := g.locker.Release(relCtx, lockKey, token); err != nil {
				g.log.Warn("release checkout lock failed", "session_id", key, "err", err)
			}
		})
	}, nil
}

func (g *LockGuard) keepAlive(ctx context.Context, key, lockKey, token string, stop <-chan struct{}) {
	t := time.NewTicker(g.refresh)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			extCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			ok, err := g.locker.Extend(extCtx, lockKey, token)
			cancel()
			switch {
			case err != nil:
				g.log.Warn("extend checkout lock failed", "session_id", key, "err", err)
			case !ok:
				g.log.Error("checkout lock lost", "session_id", key)
				return
			}
		}
	}
}

type chainGuard []SubmissionGuard

// ChainGuards acquires every guard in order and releases in reverse.
func ChainGuards(guards ...SubmissionGuard) SubmissionGuard {
	return chainGuard(guards)
}

func (c chainGuard) Acquire(ctx context.Context, key string) (func(), error) {
	releases := make([]func(), 0, len(c))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, g := range c {
		release, err := g.Acquire(ctx, key)
		if err != nil {
			releaseAll()
			return nil, err
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
