//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
	orderkafka "github.com/dmehra2102/Pickle-Storefront/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/Pickle-Storefront/internal/order/infrastructure/postgres"
	"github.com/dmehra2102/Pickle-Storefront/pkg/outbox"
	"github.com/dmehra2102/Pickle-Storefront/pkg/tracing"
)

func TestPostgresOrdersRelayToKafka(t *testing.T) {
	pgURL := StartPostgres(t)
	brokers := StartKafka(t)
	log := discardLogger()

	require.NoError(t, orderpg.RunMigrations(pgURL))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	tp, err := tracing.Init(ctx, "storefront-it", "", log)
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, pgURL)
	require.NoError(t, err)
	defer pool.Close()

	repo := orderpg.NewRepository(log, pool)
	want := sampleOrder(t, "u-42")

	id, err := repo.Create(ctx, want)
	require.NoError(t, err)
	want.ID = id

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Customer, got.Customer)
	assert.True(t, want.TotalAmount.Equal(got.TotalAmount))
	assert.Equal(t, domain.PaymentUPI, got.PaymentMethod)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "500g", got.Items[0].WeightLabel)

	listed, err := repo.ListByCustomer(ctx, "u-42")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, repo.UpdateStatus(ctx, id, domain.StatusPending, domain.StatusConfirmed, time.Now()))
	err = repo.UpdateStatus(ctx, id, domain.StatusPending, domain.StatusConfirmed, time.Now())
	assert.ErrorIs(t, err, domain.ErrStatusConflict)

	_, err = repo.Get(ctx, "6a1f9c1e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	// Relay the two outbox rows
	const topic = "storefront.order-events.it"
	writer := orderkafka.NewWriter(log, brokers)
	defer writer.Close()
	relay := outbox.NewRelay(log, orderpg.NewOutboxStore(log, pool), outbox.NewDispatcher(log, writer, topic), "it-relay")

	sent := 0
	require.Eventually(t, func() bool {
		n, err := relay.Tick(ctx)
		if err != nil {
			return false
		}
		sent += n
		return sent == 2
	}, 90*time.Second, time.Second)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer reader.Close()
	require.NoError(t, reader.SetOffset(kafka.FirstOffset))

	var types []string
	for i := 0; i < 2; i++ {
		msg, err := reader.ReadMessage(ctx)
		require.NoError(t, err)
		assert.Equal(t, id, string(msg.Key))
		types = append(types, headerValue(msg.Headers, "event_type"))

		if i == 0 {
			var placed domain.OrderPlaced
			require.NoError(t, json.Unmarshal(msg.Value, &placed))
			assert.Equal(t, id, placed.OrderID)
			assert.Equal(t, 3, placed.ItemCount)
		}

		sc := trace.SpanContextFromContext(tracing.ExtractKafkaHeaders(context.Background(), msg.Headers))
		assert.True(t, sc.IsValid())
	}
	assert.Equal(t, []string{domain.EventOrderPlaced, domain.EventOrderStatusChanged}, types)

	// Nothing left to relay
	n, err := relay.Tick(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func headerValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
