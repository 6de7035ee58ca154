package projector

import (
	"context"
	"errors"
	"testing"
)

type fakeCounters struct {
	counts map[int]int
	err    error
}

func newFakeCounters(existing ...int) *fakeCounters {
	f := &fakeCounters{counts: map[int]int{}}
	for _, id := range existing {
		f.counts[id] = 0
	}
	return f
}

func (f *fakeCounters) IncrementOrdersApplied(ctx context.Context, customerID int) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.counts[customerID]; !ok {
		return ErrCustomerNotFound
	}
	f.counts[customerID]++
	return nil
}

func TestHandleNestedEntityID(t *testing.T) {
	counters := newFakeCounters(123)
	h := NewHandler(counters)

	decision := h.Handle(context.Background(), []byte(`{"data":{"entity_id":123}}`))

	if decision != Ack {
		t.Fatalf("decision = %s, want ack", decision)
	}
	if counters.counts[123] != 1 {
		t.Errorf("counter = %d, want 1", counters.counts[123])
	}
}

func TestHandleTopLevelEntityID(t *testing.T) {
	counters := newFakeCounters(7)
	h := NewHandler(counters)

	if decision := h.Handle(context.Background(), []byte(`{"entity_id":"7"}`)); decision != Ack {
		t.Fatalf("decision = %s, want ack", decision)
	}
	if counters.counts[7] != 1 {
		t.Errorf("counter = %d, want 1", counters.counts[7])
	}
}

func TestHandleUnknownCustomerAcks(t *testing.T) {
	counters := newFakeCounters(123)
	h := NewHandler(counters)

	decision := h.Handle(context.Background(), []byte(`{"data":{"entity_id":999}}`))

	if decision != Ack {
		t.Fatalf("decision = %s, want ack for orphaned reference", decision)
	}
	if counters.counts[123] != 0 {
		t.Errorf("counter for other customer changed: %d", counters.counts[123])
	}
}

func TestHandleMalformedJSONRejects(t *testing.T) {
	h := NewHandler(newFakeCounters())

	if decision := h.Handle(context.Background(), []byte(`{not json`)); decision != Reject {
		t.Fatalf("decision = %s, want reject", decision)
	}
}

func TestHandleMissingEntityIDRejects(t *testing.T) {
	h := NewHandler(newFakeCounters(123))

	for _, body := range []string{
		`{}`,
		`{"data":{}}`,
		`{"data":{"entity_id":"abc"}}`,
		`{"entity_id":-4}`,
	} {
		if decision := h.Handle(context.Background(), []byte(body)); decision != Reject {
			t.Errorf("body %s: decision = %s, want reject", body, decision)
		}
	}
}

func TestHandleStoreErrorRejects(t *testing.T) {
	counters := newFakeCounters(123)
	counters.err = errors.New("store down")
	h := NewHandler(counters)

	if decision := h.Handle(context.Background(), []byte(`{"data":{"entity_id":123}}`)); decision != Reject {
		t.Fatalf("decision = %s, want reject", decision)
	}
}

// Duplicate deliveries double-increment. This pins the accepted gap: no
// dedup by correlation id exists, so at-least-once delivery means
// at-least-once counting.
func TestHandleDuplicateDeliveryIncrementsTwice(t *testing.T) {
	counters := newFakeCounters(123)
	h := NewHandler(counters)
	body := []byte(`{"data":{"entity_id":123}}`)

	if h.Handle(context.Background(), body) != Ack || h.Handle(context.Background(), body) != Ack {
		t.Fatal("expected both deliveries acked")
	}
	if counters.counts[123] != 2 {
		t.Errorf("counter = %d, want 2", counters.counts[123])
	}
}
