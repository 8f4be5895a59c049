//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
	orderrabbit "github.com/dmehra2102/Pickle-Storefront/internal/order/infrastructure/rabbitmq"
)

func TestRabbitMQNotifierPublishes(t *testing.T) {
	url := StartRabbitMQ(t)

	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	require.NoError(t, err)
	defer conn.Close()

	const queue = "staff.order-notifications.it"
	n, err := orderrabbit.NewNotifier(discardLogger(), conn, queue)
	require.NoError(t, err)
	defer n.Close()

	o := sampleOrder(t, "u-9")
	o.ID = "ord-it-1"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, n.Notify(ctx, domain.NewNotificationRequest(o)))

	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	var msg amqp.Delivery
	require.Eventually(t, func() bool {
		d, ok, err := ch.Get(queue, true)
		if err != nil || !ok {
			return false
		}
		msg = d
		return true
	}, 10*time.Second, 100*time.Millisecond)

	assert.Equal(t, "ord-it-1", msg.MessageId)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var body struct {
		EventType string                     `json:"eventType"`
		Order     domain.NotificationRequest `json:"order"`
		Message   string                     `json:"message"`
	}
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "ord-it-1", body.Order.OrderID)
	assert.Contains(t, body.Message, "Mango Pickle (500g) - 2 × ₹280.5")
}
