package journal

import (
	"context"
	"errors"
	"testing"
)

func TestNewEntrySuccess(t *testing.T) {
	entry := NewEntry(context.Background(), "order.created", "order-1", "corr-1", nil)

	if entry.Status != StatusPublished {
		t.Errorf("status = %s, want %s", entry.Status, StatusPublished)
	}
	if entry.Error != "" {
		t.Errorf("error = %q, want empty", entry.Error)
	}
	if entry.EmittedAt.IsZero() {
		t.Error("expected an emission timestamp")
	}
	// No span is recording in tests; trace fields stay empty.
	if entry.TraceID != "" || entry.SpanID != "" {
		t.Errorf("expected empty trace info, got %q/%q", entry.TraceID, entry.SpanID)
	}
}

func TestNewEntryFailure(t *testing.T) {
	entry := NewEntry(context.Background(), "order.created", "order-1", "corr-1", errors.New("broker down"))

	if entry.Status != StatusFailed {
		t.Errorf("status = %s, want %s", entry.Status, StatusFailed)
	}
	if entry.Error != "broker down" {
		t.Errorf("error = %q", entry.Error)
	}
}
