package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ReservationRecord is one row of the reservations book, as imported from the
// legacy system export.
type ReservationRecord struct {
	ID     string
	Name   string
	Phone  string
	Status string
}

// ReservationRepository provides bulk-load access to the reservations table.
// Status updates themselves come from the storefront backoffice, not this
// service; the relay only imports and listens.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

// NewReservationRepository returns a ReservationRepository on the given pool.
func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

// BulkImport copies the records into the reservations table in one COPY
// operation and reports how many rows were written.
func (r *ReservationRepository) BulkImport(ctx context.Context, records []ReservationRecord) (int64, error) {
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = []any{rec.ID, rec.Name, rec.Phone, rec.Status}
	}

	n, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"reservations"},
		[]string{"id", "name", "phone", "status"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, errors.Wrap(err, "copy reservations")
	}

	return n, nil
}
