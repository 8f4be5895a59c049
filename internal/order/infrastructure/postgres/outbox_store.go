package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dmehra2102/Pickle-Storefront/pkg/outbox"
)

const DefaultMaxRetries = 10

const (
	lockOutboxSQL = `
		SELECT id, aggregate_type, aggregate_id, type, payload, headers, traceparent, retry_count, created_at
		FROM outbox
		WHERE status = 'pending' OR (status = 'in_progress' AND lease_until < now())
		ORDER BY id
		FOR UPDATE SKIP LOCKED
		LIMIT $1`

	leaseOutboxSQL = `UPDATE outbox SET status = 'in_progress', relay_id = $1, lease_until = now() + $2::interval WHERE id = ANY($3)`

	markSentSQL = `UPDATE outbox SET status = 'sent', lease_until = NULL WHERE id = ANY($1)`

	markFailedSQL = `UPDATE outbox
		SET status = CASE WHEN $3 OR retry_count + 1 >= $4 THEN 'failed' ELSE 'pending' END,
			last_error = $2, retry_count = retry_count + 1, relay_id = NULL, lease_until = NULL
		WHERE id = $1`

	extendLeaseSQL = `UPDATE outbox SET lease_until = now() + $1::interval WHERE id = ANY($2) AND relay_id = $3`
)

type OutboxStore struct {
	log        *slog.Logger
	pool       DBPool
	maxRetries int
}

func NewOutboxStore(log *slog.Logger, pool DBPool) *OutboxStore {
	return &OutboxStore{log: log, pool: pool, maxRetries: DefaultMaxRetries}
}

func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	rows, err := tx.Query(ctx, lockOutboxSQL, batchSize)
	if err != nil {
		return nil, err
	}

	var events []outbox.Event
	for rows.Next() {
		var event outbox.Event
		var headers []byte
		if err := rows.Scan(&event.ID, &event.AggregateType, &event.AggregateID, &event.Type, &event.Payload, &headers, &event.Traceparent, &event.RetryCount, &event.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		if len(headers) > 0 {
			if err := json.Unmarshal(headers, &event.Headers); err != nil {
				s.log.Warn("outbox headers unreadable", "event_id", event.ID, "err", err)
			}
		}
		event.Status = outbox.StatusInProgress
		event.RelayID = relayID
		events = append(events, event)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
	}

	if _, err = tx.Exec(ctx, leaseOutboxSQL, relayID, lease.String(), ids); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	ct, err := s.pool.Exec(ctx, markSentSQL, ids)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errors.New("no rows updated")
	}
	return nil
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string, permanent bool) error {
	_, err := s.pool.Exec(ctx, markFailedSQL, id, errMsg, permanent, s.maxRetries)
	return err
}

func (s *OutboxStore) ExtendLease(ctx context.Context, relayID string, ids []int64, lease time.Duration) error {
	_, err := s.pool.Exec(ctx, extendLeaseSQL, lease.String(), ids, relayID)
	return err
}
