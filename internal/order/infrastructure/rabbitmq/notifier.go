package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
)

const DefaultQueue = "staff.order-notifications"

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// notification is the queue contract read by the staff console.
type notification struct {
	EventType string                     `json:"eventType"`
	Order     domain.NotificationRequest `json:"order"`
	Message   string                     `json:"message"`
	Timestamp time.Time                  `json:"timestamp"`
}

// Notifier publishes the staff summary to a durable queue.
type Notifier struct {
	log   *slog.Logger
	mu    sync.Mutex
	ch    publisher
	close func() error
	queue string
}

func NewNotifier(log *slog.Logger, conn *amqp.Connection, queue string) (*Notifier, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", queue, err)
	}
	n := newNotifier(log, ch, queue)
	n.close = ch.Close
	return n, nil
}

func newNotifier(log *slog.Logger, ch publisher, queue string) *Notifier {
	return &Notifier{log: log, ch: ch, queue: queue, close: func() error { return nil }}
}

func (n *Notifier) Close() error {
	return n.close()
}

func (n *Notifier) Notify(ctx context.Context, req domain.NotificationRequest) error {
	body, err := json.Marshal(notification{
		EventType: "OrderNotification",
		Order:     req,
		Message:   req.Message(),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    req.OrderID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", n.queue, err)
	}
	n.log.Info("staff notification queued", "order_id", req.OrderID, "queue", n.queue)
	return nil
}
