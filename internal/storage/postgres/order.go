package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/storefront-relay/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create inserts a new order and returns the stored row. Line items are
// serialized to JSON for the JSONB column. A unique violation on
// payment_reference maps to order.ErrDuplicateReference.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) (*order.Order, error) {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return nil, errors.Wrap(err, "marshal order items")
	}

	const q = `
		INSERT INTO orders (id, items, total, payment_reference, status, seen)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, items, total, payment_reference, status, seen, created_at`

	row := r.pool.QueryRow(ctx, q,
		o.ID, itemsJSON, o.Total, o.PaymentReference, o.Status, o.Seen)

	var (
		stored     order.Order
		storedJSON []byte
	)
	err = row.Scan(
		&stored.ID,
		&storedJSON,
		&stored.Total,
		&stored.PaymentReference,
		&stored.Status,
		&stored.Seen,
		&stored.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23505 = unique_violation: another settlement won the race for this
		// payment reference.
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, order.ErrDuplicateReference
		}
		return nil, errors.Wrapf(err, "insert order %q", o.ID)
	}

	if err := json.Unmarshal(storedJSON, &stored.Items); err != nil {
		return nil, errors.Wrap(err, "unmarshal stored items")
	}

	return &stored, nil
}
