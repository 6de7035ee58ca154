// Package order implements the order-creation saga: validate the customer
// reference over HTTP, persist the order, then emit an order.created event.
// Persistence is the durable source of truth; event delivery is eventually
// consistent and replayable, so a publish failure never rolls anything back.
package order

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ecomsvc/order-events/internal/customer"
	"github.com/ecomsvc/order-events/internal/events"
	"github.com/ecomsvc/order-events/internal/events/journal"
	"github.com/ecomsvc/order-events/internal/order/domain"
)

// CustomerValidator is the port for the synchronous customer existence
// check. The production implementation is customer.Client.
type CustomerValidator interface {
	Validate(ctx context.Context, customerID int) customer.ValidationResult
}

// EventPublisher is the port for emitting events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]any, opts ...events.PublishOption) error
}

// Service sequences the creation stages in strict order with no
// backtracking. All collaborators are constructor-injected.
type Service struct {
	validator CustomerValidator
	repo      Repository
	publisher EventPublisher
	journal   journal.Repository // nil-safe: emission is not journalled if nil
}

func NewService(validator CustomerValidator, repo Repository, publisher EventPublisher, jr journal.Repository) *Service {
	return &Service{
		validator: validator,
		repo:      repo,
		publisher: publisher,
		journal:   jr,
	}
}

// CreateOrderInput carries the caller-supplied fields for one order.
type CreateOrderInput struct {
	CustomerID int
	Name       string
	Quantity   int
	UnitPrice  float64
}

// CreateOrder runs the saga for one request. It never returns an error;
// every failure mode is folded into the CreationResult.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) CreationResult {
	ctx, span := otel.Tracer("order").Start(ctx, "order.create")
	defer span.End()

	// Stage 1: validate. A blank reference short-circuits before any
	// network call.
	if input.CustomerID <= 0 {
		return failure(FailureEntityNotFound, "customer reference is required")
	}

	switch res := s.validator.Validate(ctx, input.CustomerID).(type) {
	case customer.NotFound:
		msg := res.Message
		if msg == "" {
			msg = fmt.Sprintf("customer %d not found", input.CustomerID)
		}
		return failure(FailureEntityNotFound, msg)
	case customer.ServiceUnavailable:
		slog.WarnContext(ctx, "customer service unavailable", "customer_id", input.CustomerID, "error", res.Err)
		return failure(FailureServiceUnavailable, "customer service is unavailable, try again later")
	case customer.Found:
		// proceed
	}

	// Stage 2: persist.
	now := time.Now().UTC()
	o := &domain.Order{
		ID:         uuid.NewString(),
		CustomerID: input.CustomerID,
		Name:       input.Name,
		Quantity:   input.Quantity,
		UnitPrice:  input.UnitPrice,
		Status:     domain.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	o.Total = o.ComputeTotal()

	if violations := o.Validate(); len(violations) > 0 {
		return failure(FailureValidationError, violations...)
	}
	if err := s.repo.Save(ctx, o); err != nil {
		slog.ErrorContext(ctx, "order save failed", "order_id", o.ID, "error", err)
		return failure(FailureValidationError, fmt.Sprintf("order could not be saved: %v", err))
	}
	span.SetAttributes(attribute.String("order.id", o.ID))

	// Stage 3: publish, best-effort. The order is already committed; a
	// publish failure is logged and journalled for replay, nothing more.
	s.emitCreated(ctx, o)

	return success(o)
}

// GetOrder fetches a persisted order by id.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) emitCreated(ctx context.Context, o *domain.Order) {
	correlationID := uuid.NewString()
	payload := map[string]any{
		"event":      events.OrderCreated,
		"emitted_at": time.Now().UTC().Format(time.RFC3339Nano),
		"data": map[string]any{
			"order_id":  o.ID,
			"entity_id": o.CustomerID,
			"name":      o.Name,
			"quantity":  o.Quantity,
			"total":     o.Total,
		},
	}

	err := s.publisher.Publish(ctx, events.OrderCreated, payload, events.WithCorrelationID(correlationID))
	if err != nil {
		slog.WarnContext(ctx, "order.created publish failed, order remains committed",
			"order_id", o.ID,
			"correlation_id", correlationID,
			"error", err,
		)
	}

	if s.journal != nil {
		entry := journal.NewEntry(ctx, events.OrderCreated, o.ID, correlationID, err)
		if jerr := s.journal.Save(ctx, entry); jerr != nil {
			slog.ErrorContext(ctx, "event journal write failed", "order_id", o.ID, "error", jerr)
		}
	}
}
