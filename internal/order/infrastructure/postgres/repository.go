package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmehra2102/Pickle-Storefront/internal/order/domain"
	"github.com/dmehra2102/Pickle-Storefront/pkg/outbox"
	"github.com/dmehra2102/Pickle-Storefront/pkg/tracing"
)

// DBPool is the subset of *pgxpool.Pool the stores use.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	aggregateOrder = "order"

	insertOrderSQL = `INSERT INTO orders (id, customer_id, status, total_amount, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7)`

	insertOutboxSQL = `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')`

	selectOrderColumns = `SELECT id::text, status, document, created_at, updated_at FROM orders`

	updateStatusSQL = `UPDATE orders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`
)

type Repository struct {
	log  *slog.Logger
	pool DBPool
}

func NewRepository(log *slog.Logger, pool DBPool) *Repository {
	return &Repository{log: log, pool: pool}
}

// Create stores the order together with its OrderPlaced outbox event.
func (r *Repository) Create(ctx context.Context, o domain.Order) (string, error) {
	o.ID = uuid.NewString()

	doc, err := encodeDocument(o)
	if err != nil {
		return "", fmt.Errorf("encode order: %w", err)
	}
	payload, err := json.Marshal(domain.NewOrderPlaced(o))
	if err != nil {
		return "", fmt.Errorf("encode event: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.Customer.ExternalID, string(o.Status), o.TotalAmount.StringFixed(2), doc, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	if err := r.appendOutbox(ctx, tx, outbox.NewEvent{
		AggregateType: aggregateOrder,
		AggregateID:   o.ID,
		Type:          domain.EventOrderPlaced,
		Payload:       payload,
		Headers:       map[string]string{"customer_id": o.Customer.ExternalID},
		Traceparent:   tracing.Traceparent(ctx),
	}); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	r.log.Debug("order stored", "order_id", o.ID)
	return o.ID, nil
}

func (r *Repository) Get(ctx context.Context, id string) (domain.Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	var row orderRow
	err := r.pool.QueryRow(ctx, selectOrderColumns+` WHERE id = $1`, id).
		Scan(&row.ID, &row.Status, &row.Document, &row.CreatedAt, &row.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}
	return row.toDomain()
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, selectOrderColumns+` WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var row orderRow
		if err := rows.Scan(&row.ID, &row.Status, &row.Document, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		o, err := row.toDomain()
		if err != nil {
			r.log.Warn("skipping unreadable order document", "order_id", row.ID, "err", err)
			continue
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatus changes the status column and records OrderStatusChanged in
// the same transaction.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) error {
	payload, err := json.Marshal(domain.OrderStatusChanged{OrderID: id, From: from, To: to, ChangedAt: at})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, updateStatusSQL, id, string(from), string(to), at)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrStatusConflict
	}

	if err := r.appendOutbox(ctx, tx, outbox.NewEvent{
		AggregateType: aggregateOrder,
		AggregateID:   id,
		Type:          domain.EventOrderStatusChanged,
		Payload:       payload,
		Headers:       map[string]string{"status": string(to)},
		Traceparent:   tracing.Traceparent(ctx),
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) appendOutbox(ctx context.Context, tx pgx.Tx, ev outbox.NewEvent) error {
	headers, err := json.Marshal(ev.Headers)
	if err != nil {
		return fmt.Errorf("encode outbox headers: %w", err)
	}
	_, err = tx.Exec(ctx, insertOutboxSQL,
		ev.AggregateType, ev.AggregateID, ev.Type, ev.Payload, headers, ev.Traceparent)
	if err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}
