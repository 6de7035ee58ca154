package order

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/ecomsvc/order-events/internal/customer"
	"github.com/ecomsvc/order-events/internal/events"
	"github.com/ecomsvc/order-events/internal/events/journal"
	"github.com/ecomsvc/order-events/internal/order/domain"
)

type fakeValidator struct {
	result customer.ValidationResult
	calls  int
}

func (f *fakeValidator) Validate(ctx context.Context, customerID int) customer.ValidationResult {
	f.calls++
	return f.result
}

type publishedEvent struct {
	eventType string
	payload   map[string]any
}

type fakePublisher struct {
	err       error
	published []publishedEvent
}

func (f *fakePublisher) Publish(ctx context.Context, eventType string, payload map[string]any, opts ...events.PublishOption) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, publishedEvent{eventType: eventType, payload: payload})
	return nil
}

type memRepo struct {
	orders  map[string]*domain.Order
	saveErr error
}

func newMemRepo() *memRepo {
	return &memRepo{orders: map[string]*domain.Order{}}
}

func (m *memRepo) Save(ctx context.Context, o *domain.Order) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.orders[o.ID] = o
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *memRepo) CountAll(ctx context.Context) (int, error) {
	return len(m.orders), nil
}

type memJournal struct {
	entries []*journal.Entry
}

func (m *memJournal) Save(ctx context.Context, entry *journal.Entry) error {
	m.entries = append(m.entries, entry)
	return nil
}

func validInput() CreateOrderInput {
	return CreateOrderInput{CustomerID: 123, Name: "Widget", Quantity: 2, UnitPrice: 29.99}
}

func TestCreateOrderBlankCustomerShortCircuits(t *testing.T) {
	for _, id := range []int{0, -1} {
		validator := &fakeValidator{result: customer.Found{}}
		svc := NewService(validator, newMemRepo(), &fakePublisher{}, nil)

		input := validInput()
		input.CustomerID = id
		result := svc.CreateOrder(context.Background(), input)

		if result.Success() {
			t.Fatalf("customer id %d: expected failure", id)
		}
		if result.Kind != FailureEntityNotFound {
			t.Errorf("customer id %d: kind = %s, want %s", id, result.Kind, FailureEntityNotFound)
		}
		if validator.calls != 0 {
			t.Errorf("customer id %d: validator called %d times, want 0", id, validator.calls)
		}
	}
}

func TestCreateOrderSuccess(t *testing.T) {
	repo := newMemRepo()
	publisher := &fakePublisher{}
	jr := &memJournal{}
	svc := NewService(&fakeValidator{result: customer.Found{}}, repo, publisher, jr)

	result := svc.CreateOrder(context.Background(), validInput())

	if !result.Success() {
		t.Fatalf("expected success, got %s: %s", result.Kind, result.Message())
	}
	if math.Abs(result.Order.Total-59.98) > 1e-9 {
		t.Errorf("total = %v, want 59.98", result.Order.Total)
	}
	if result.Order.Status != domain.StatusPending {
		t.Errorf("status = %s, want %s", result.Order.Status, domain.StatusPending)
	}
	if count, _ := repo.CountAll(context.Background()); count != 1 {
		t.Errorf("persisted orders = %d, want 1", count)
	}

	if len(publisher.published) != 1 {
		t.Fatalf("published events = %d, want 1", len(publisher.published))
	}
	event := publisher.published[0]
	if event.eventType != events.OrderCreated {
		t.Errorf("routing key = %q, want %q", event.eventType, events.OrderCreated)
	}
	data, ok := event.payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("payload missing data object: %v", event.payload)
	}
	if data["entity_id"] != 123 {
		t.Errorf("entity_id = %v, want 123", data["entity_id"])
	}
	if total, _ := data["total"].(float64); math.Abs(total-59.98) > 1e-9 {
		t.Errorf("event total = %v, want 59.98", data["total"])
	}

	if len(jr.entries) != 1 || jr.entries[0].Status != journal.StatusPublished {
		t.Errorf("journal entries = %+v, want one PUBLISHED", jr.entries)
	}
}

func TestCreateOrderCustomerNotFound(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(&fakeValidator{result: customer.NotFound{Message: "customer not found"}}, repo, &fakePublisher{}, nil)

	result := svc.CreateOrder(context.Background(), validInput())

	if result.Kind != FailureEntityNotFound {
		t.Errorf("kind = %s, want %s", result.Kind, FailureEntityNotFound)
	}
	if count, _ := repo.CountAll(context.Background()); count != 0 {
		t.Errorf("persisted orders = %d, want 0", count)
	}
}

func TestCreateOrderServiceUnavailable(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(&fakeValidator{result: customer.ServiceUnavailable{Err: errors.New("connection refused")}}, repo, &fakePublisher{}, nil)

	result := svc.CreateOrder(context.Background(), validInput())

	if result.Kind != FailureServiceUnavailable {
		t.Errorf("kind = %s, want %s", result.Kind, FailureServiceUnavailable)
	}
	if count, _ := repo.CountAll(context.Background()); count != 0 {
		t.Errorf("persisted orders = %d, want 0", count)
	}
}

func TestCreateOrderInvalidFields(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(&fakeValidator{result: customer.Found{}}, repo, &fakePublisher{}, nil)

	result := svc.CreateOrder(context.Background(), CreateOrderInput{
		CustomerID: 123,
		Name:       "",
		Quantity:   0,
		UnitPrice:  -1,
	})

	if result.Kind != FailureValidationError {
		t.Fatalf("kind = %s, want %s", result.Kind, FailureValidationError)
	}
	if len(result.Messages) != 3 {
		t.Errorf("expected 3 violations, got %v", result.Messages)
	}
	if count, _ := repo.CountAll(context.Background()); count != 0 {
		t.Errorf("persisted orders = %d, want 0", count)
	}
}

func TestCreateOrderSaveFailure(t *testing.T) {
	repo := newMemRepo()
	repo.saveErr = errors.New("disk full")
	svc := NewService(&fakeValidator{result: customer.Found{}}, repo, &fakePublisher{}, nil)

	result := svc.CreateOrder(context.Background(), validInput())

	if result.Kind != FailureValidationError {
		t.Errorf("kind = %s, want %s", result.Kind, FailureValidationError)
	}
}

func TestCreateOrderPublishFailureIsNonBlocking(t *testing.T) {
	repo := newMemRepo()
	publisher := &fakePublisher{err: errors.New("connection refused")}
	jr := &memJournal{}
	svc := NewService(&fakeValidator{result: customer.Found{}}, repo, publisher, jr)

	result := svc.CreateOrder(context.Background(), validInput())

	if !result.Success() {
		t.Fatalf("expected success despite publish failure, got %s", result.Kind)
	}
	if count, _ := repo.CountAll(context.Background()); count != 1 {
		t.Errorf("persisted orders = %d, want 1", count)
	}
	if len(jr.entries) != 1 || jr.entries[0].Status != journal.StatusFailed {
		t.Fatalf("journal entries = %+v, want one FAILED", jr.entries)
	}
	if jr.entries[0].CorrelationID == "" {
		t.Error("expected the failed entry to keep its correlation id for replay")
	}
}
