// Package sqlite persists orders in SQLite. WAL mode is enabled on Open so
// concurrent creation requests and read-side lookups do not block each other.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ecomsvc/order-events/internal/order"
	"github.com/ecomsvc/order-events/internal/order/domain"

	// Pure-Go SQLite driver (no CGO), same choice as the event journal.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
    id           TEXT PRIMARY KEY,
    customer_id  INTEGER NOT NULL,
    name         TEXT    NOT NULL,
    quantity     INTEGER NOT NULL,
    unit_price   REAL    NOT NULL,
    total        REAL    NOT NULL,
    status       TEXT    NOT NULL,

    -- RFC3339 TEXT; SQLite has no native datetime type.
    created_at   TEXT    NOT NULL,
    updated_at   TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id);
`

// Repository is the SQLite implementation of order.Repository.
type Repository struct {
	db *sql.DB
}

var _ order.Repository = (*Repository)(nil)

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("orders: open %q: %w", path, err)
	}

	// Single writer connection; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("orders: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// DB exposes the underlying handle so the event journal can share it.
func (r *Repository) DB() *sql.DB {
	return r.db
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Save(ctx context.Context, o *domain.Order) error {
	const q = `
		INSERT INTO orders
			(id, customer_id, name, quantity, unit_price, total, status, created_at, updated_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		o.ID,
		o.CustomerID,
		o.Name,
		o.Quantity,
		o.UnitPrice,
		o.Total,
		string(o.Status),
		o.CreatedAt.UTC().Format(time.RFC3339Nano),
		o.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("orders: save %q: %w", o.ID, err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	const q = `
		SELECT id, customer_id, name, quantity, unit_price, total, status, created_at, updated_at
		FROM   orders
		WHERE  id = ?`

	row := r.db.QueryRowContext(ctx, q, id)

	var o domain.Order
	var createdAt, updatedAt string
	err := row.Scan(&o.ID, &o.CustomerID, &o.Name, &o.Quantity, &o.UnitPrice, &o.Total, &o.Status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("orders: get %q: %w", id, err)
	}

	if o.CreatedAt, err = parseRFC3339(createdAt); err != nil {
		return nil, err
	}
	if o.UpdatedAt, err = parseRFC3339(updatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		return 0, fmt.Errorf("orders: count: %w", err)
	}
	return count, nil
}

func parseRFC3339(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("orders: parse time %q: %w", s, err)
	}
	return t, nil
}
