// Package projector consumes order.created events from the durable queue
// and maintains a derived per-customer counter.
//
// Delivery is at-least-once and the producer may duplicate events on retry;
// this projector does not deduplicate by correlation id, so a duplicate
// delivery increments the counter again. That is the accepted contract —
// callers needing exactly-once counting must add a dedup ledger keyed on
// the correlation id.
package projector

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
)

// Decision is the terminal outcome for one delivery. There is no
// retry-requeue signal: Reject drops the message for good, Ack confirms
// durable removal. Poison messages therefore never loop; replay is manual.
type Decision int

const (
	Ack Decision = iota
	Reject
)

func (d Decision) String() string {
	if d == Ack {
		return "ack"
	}
	return "reject"
}

// ErrCustomerNotFound is returned by a CustomerCounters implementation when
// the target customer does not exist in the projection store.
var ErrCustomerNotFound = errors.New("projector: customer not found")

// CustomerCounters is the port for the projection state. Implementations
// must apply the increment atomically; concurrent workers may hit the same
// customer.
type CustomerCounters interface {
	IncrementOrdersApplied(ctx context.Context, customerID int) error
}

// Handler applies one raw message to the projection.
type Handler struct {
	counters CustomerCounters
}

func NewHandler(counters CustomerCounters) *Handler {
	return &Handler{counters: counters}
}

// Handle parses the message, extracts the customer reference and applies
// the counter increment. Every outcome maps to Ack or Reject; it never
// panics and never returns an error.
func (h *Handler) Handle(ctx context.Context, body []byte) Decision {
	var msg map[string]any
	if err := json.Unmarshal(body, &msg); err != nil {
		slog.ErrorContext(ctx, "event payload is not valid JSON", "error", err, "body", truncate(body))
		return Reject
	}

	customerID, ok := extractEntityID(msg)
	if !ok {
		slog.ErrorContext(ctx, "event payload has no entity_id", "body", truncate(body))
		return Reject
	}

	err := h.counters.IncrementOrdersApplied(ctx, customerID)
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		// The target vanished. Acknowledge anyway: redelivering an event
		// for a customer that no longer exists would loop forever.
		slog.WarnContext(ctx, "event references an unknown customer, acknowledging", "customer_id", customerID)
		return Ack
	case err != nil:
		slog.ErrorContext(ctx, "projection update failed",
			"customer_id", customerID,
			"error", err,
			"body", truncate(body),
		)
		return Reject
	}

	slog.InfoContext(ctx, "projection updated", "customer_id", customerID)
	return Ack
}

// extractEntityID reads the customer reference from either the nested
// data.entity_id or the top-level entity_id field. The producer's schema
// may evolve, so both shapes and both number/numeric-string encodings are
// accepted.
func extractEntityID(msg map[string]any) (int, bool) {
	if data, ok := msg["data"].(map[string]any); ok {
		if id, ok := asID(data["entity_id"]); ok {
			return id, true
		}
	}
	return asID(msg["entity_id"])
}

func asID(v any) (int, bool) {
	switch value := v.(type) {
	case float64:
		id := int(value)
		if float64(id) == value && id > 0 {
			return id, true
		}
	case string:
		if id, err := strconv.Atoi(value); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

// truncate bounds the payload echoed into logs.
func truncate(body []byte) string {
	const limit = 512
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
