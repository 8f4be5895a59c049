package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/Pickle-Storefront/pkg/outbox"
)

var outboxCols = []string{"id", "aggregate_type", "aggregate_id", "type", "payload", "headers", "traceparent", "retry_count", "created_at"}

func TestLockBatch_LeasesRows(t *testing.T) {
	mock := newMock(t)
	store := NewOutboxStore(discard(), mock)
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
		WithArgs(100).
		WillReturnRows(pgxmock.NewRows(outboxCols).
			AddRow(int64(1), "order", orderID, "OrderPlaced", []byte(`{"orderId":"x"}`), []byte(`{"customer_id":"u1"}`), "", 0, created).
			AddRow(int64(2), "order", orderID, "OrderStatusChanged", []byte(`{}`), []byte(`{}`), "", 3, created))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'in_progress'")).
		WithArgs("relay-1", "5s", []int64{1, 2}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectCommit()

	events, err := store.LockBatch(context.Background(), "relay-1", 100, 5*time.Second)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "u1", events[0].Headers["customer_id"])
	assert.Equal(t, outbox.StatusInProgress, events[0].Status)
	assert.Equal(t, "relay-1", events[1].RelayID)
	assert.Equal(t, 3, events[1].RetryCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLockBatch_Empty(t *testing.T) {
	mock := newMock(t)
	store := NewOutboxStore(discard(), mock)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM outbox")).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(outboxCols))
	mock.ExpectCommit()

	events, err := store.LockBatch(context.Background(), "relay-1", 10, time.Second)
	require.NoError(t, err)
	assert.Empty(t, events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSent(t *testing.T) {
	mock := newMock(t)
	store := NewOutboxStore(discard(), mock)

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'sent'")).
		WithArgs([]int64{1, 2}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'sent'")).
		WithArgs([]int64{9}).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, store.MarkSent(context.Background(), []int64{1, 2}))
	assert.Error(t, store.MarkSent(context.Background(), []int64{9}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailed(t *testing.T) {
	mock := newMock(t)
	store := NewOutboxStore(discard(), mock)

	mock.ExpectExec(regexp.QuoteMeta("retry_count = retry_count + 1")).
		WithArgs(int64(2), "broker unavailable", false, DefaultMaxRetries).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.MarkFailed(context.Background(), 2, "broker unavailable", false))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExtendLease(t *testing.T) {
	mock := newMock(t)
	store := NewOutboxStore(discard(), mock)

	mock.ExpectExec(regexp.QuoteMeta("SET lease_until")).
		WithArgs("5s", []int64{3}, "relay-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.ExtendLease(context.Background(), "relay-1", []int64{3}, 5*time.Second))
	require.NoError(t, mock.ExpectationsWereMet())
}
