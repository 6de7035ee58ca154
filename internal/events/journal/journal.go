// Package journal records every event emission attempt in a durable,
// append-only log.
//
// The log serves two purposes:
//
//  1. Observability: each row carries the trace_id of the request that
//     emitted the event, so a failed publish can be correlated with its
//     distributed trace.
//
//  2. Replay: publish failures never fail order creation, so the journal is
//     where an operator finds the events that still need to be re-emitted.
package journal

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Status records whether the broker accepted the event.
type Status string

const (
	StatusPublished Status = "PUBLISHED"
	StatusFailed    Status = "FAILED"
)

// Entry is one row in the event_journal table: a point-in-time record of a
// single emission attempt.
type Entry struct {
	// EventType is the routing key the event was (or would have been)
	// published with, e.g. "order.created".
	EventType string

	// OrderID joins the entry with business data.
	OrderID string

	// CorrelationID is the id attached to the message envelope. Replaying
	// reuses it so downstream dedup (if ever added) keys on the same value.
	CorrelationID string

	// Status is PUBLISHED or FAILED.
	Status Status

	// Error holds the publish failure, empty on success.
	Error string

	// TraceID and SpanID come from the OTel span active at emission time.
	// Empty when no span was recording (e.g. unit tests).
	TraceID string
	SpanID  string

	// EmittedAt is the wall-clock time of the attempt.
	EmittedAt time.Time
}

// Repository is the port for persisting journal entries. The orchestrator
// depends on this abstraction so tests can swap in an in-memory recorder.
type Repository interface {
	// Save appends one entry; the journal is never updated in place.
	Save(ctx context.Context, entry *Entry) error
}

// NewEntry builds an Entry with trace identifiers extracted from ctx.
// publishErr may be nil, which records a successful emission.
func NewEntry(ctx context.Context, eventType, orderID, correlationID string, publishErr error) *Entry {
	entry := &Entry{
		EventType:     eventType,
		OrderID:       orderID,
		CorrelationID: correlationID,
		Status:        StatusPublished,
		EmittedAt:     time.Now().UTC(),
	}
	if publishErr != nil {
		entry.Status = StatusFailed
		entry.Error = publishErr.Error()
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		entry.TraceID = sc.TraceID().String()
		entry.SpanID = sc.SpanID().String()
	}
	return entry
}
