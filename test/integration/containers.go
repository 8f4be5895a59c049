//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const startupTimeout = 3 * time.Minute

func startupContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	t.Cleanup(cancel)
	return ctx
}

func terminate(t *testing.T, c testcontainers.Container) {
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := c.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})
}

// StartPostgres returns a connection URL for a fresh database.
func StartPostgres(t *testing.T) string {
	t.Helper()
	ctx := startupContext(t)

	pgC, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	terminate(t, pgC)

	url, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

func StartKafka(t *testing.T) []string {
	t.Helper()
	ctx := startupContext(t)

	kafkaC, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("storefront-test"),
	)
	require.NoError(t, err)
	terminate(t, kafkaC)

	brokers, err := kafkaC.Brokers(ctx)
	require.NoError(t, err)
	return brokers
}

func StartMongo(t *testing.T) string {
	t.Helper()
	ctx := startupContext(t)

	mongoC, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	terminate(t, mongoC)

	uri, err := mongoC.ConnectionString(ctx)
	require.NoError(t, err)
	return uri
}

// StartRabbitMQ returns an AMQP URL using the image's default guest account.
func StartRabbitMQ(t *testing.T) string {
	t.Helper()
	ctx := startupContext(t)

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	terminate(t, c)

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5672")
	require.NoError(t, err)
	return "amqp://guest:guest@" + host + ":" + port.Port() + "/"
}
