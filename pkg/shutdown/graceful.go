package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

func WithSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

type step struct {
	name string
	fn   func(context.Context) error
}

// Group closes resources in reverse registration order, like defer.
type Group struct {
	log   *slog.Logger
	steps []step
}

func NewGroup(log *slog.Logger) *Group {
	return &Group{log: log}
}

func (g *Group) Add(name string, fn func(context.Context) error) {
	g.steps = append(g.steps, step{name: name, fn: fn})
}

// AddCloser registers a close func that takes no context.
func (g *Group) AddCloser(name string, fn func() error) {
	g.Add(name, func(context.Context) error { return fn() })
}

// Drain runs every step under one shared deadline. A failing step does not
// stop the ones after it.
func (g *Group) Drain(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for i := len(g.steps) - 1; i >= 0; i-- {
		s := g.steps[i]
		if err := s.fn(ctx); err != nil {
			g.log.Warn("shutdown step failed", "step", s.name, "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
			continue
		}
		g.log.Debug("shutdown step done", "step", s.name)
	}
	g.steps = nil
	return errors.Join(errs...)
}
