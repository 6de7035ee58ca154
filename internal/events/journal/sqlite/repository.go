// Package sqlite provides the SQLite-backed implementation of
// journal.Repository. WAL mode is enabled on Open so the order-creation
// goroutines writing entries never block a reader inspecting the journal.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ecomsvc/order-events/internal/events/journal"

	// Pure-Go SQLite driver; no CGO, so Alpine images build cleanly.
	_ "modernc.org/sqlite"
)

// The table is append-only: one immutable row per emission attempt.
const schema = `
CREATE TABLE IF NOT EXISTS event_journal (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    event_type      TEXT NOT NULL,
    order_id        TEXT NOT NULL,
    correlation_id  TEXT NOT NULL,
    status          TEXT NOT NULL,
    error           TEXT NOT NULL DEFAULT '',
    trace_id        TEXT NOT NULL DEFAULT '',
    span_id         TEXT NOT NULL DEFAULT '',
    emitted_at      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_event_journal_order_id ON event_journal(order_id, emitted_at);

-- The replay query: everything that never reached the broker.
CREATE INDEX IF NOT EXISTS idx_event_journal_status ON event_journal(status);
`

type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at path and applies the
// schema. The caller owns closing it.
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// NewWithDB wraps an already-open database (shared with the order store)
// and applies the journal schema.
func NewWithDB(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Save appends one journal entry. Safe for concurrent use.
func (r *Repository) Save(ctx context.Context, entry *journal.Entry) error {
	const q = `
		INSERT INTO event_journal
			(event_type, order_id, correlation_id, status, error, trace_id, span_id, emitted_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.EventType,
		entry.OrderID,
		entry.CorrelationID,
		string(entry.Status),
		entry.Error,
		entry.TraceID,
		entry.SpanID,
		entry.EmittedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal: save entry for order %q: %w", entry.OrderID, err)
	}
	return nil
}

// ListFailed returns the entries whose publish never succeeded, oldest
// first — the operator-side replay source.
func (r *Repository) ListFailed(ctx context.Context, limit int) ([]*journal.Entry, error) {
	const q = `
		SELECT event_type, order_id, correlation_id, status, error, trace_id, span_id, emitted_at
		FROM   event_journal
		WHERE  status = ?
		ORDER  BY emitted_at ASC, id ASC
		LIMIT  ?`

	rows, err := r.db.QueryContext(ctx, q, string(journal.StatusFailed), limit)
	if err != nil {
		return nil, fmt.Errorf("journal: list failed entries: %w", err)
	}
	defer rows.Close()

	var entries []*journal.Entry
	for rows.Next() {
		var entry journal.Entry
		var emittedAt string
		if err := rows.Scan(
			&entry.EventType,
			&entry.OrderID,
			&entry.CorrelationID,
			&entry.Status,
			&entry.Error,
			&entry.TraceID,
			&entry.SpanID,
			&emittedAt,
		); err != nil {
			return nil, fmt.Errorf("journal: scan entry: %w", err)
		}
		entry.EmittedAt, err = time.Parse(time.RFC3339Nano, emittedAt)
		if err != nil {
			return nil, fmt.Errorf("journal: parse time %q: %w", emittedAt, err)
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}
