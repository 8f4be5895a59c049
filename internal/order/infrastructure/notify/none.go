package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
)

var ErrNotifierNotConfigured = errors.New("staff notifications not configured")

// Disabled is used when no messaging channel is configured. Every call fails
// so checkouts record the missed notification.
type Disabled struct {
	log *slog.Logger
}

func NewDisabled(log *slog.Logger) *Disabled {
	return &Disabled{log: log}
}

func (d *Disabled) Notify(_ context.Context, req domain.NotificationRequest) error {
	d.log.Debug("notification skipped", "order_id", req.OrderID)
	return ErrNotifierNotConfigured
}
