package order

import (
	"strings"

	"github.com/ecomsvc/order-events/internal/order/domain"
)

// FailureKind is the closed set of reasons order creation can fail. These
// are the only categories a caller ever sees; internal error types never
// cross the service boundary.
type FailureKind string

const (
	FailureEntityNotFound     FailureKind = "entity-not-found"
	FailureServiceUnavailable FailureKind = "service-unavailable"
	FailureValidationError    FailureKind = "validation-error"
)

// CreationResult is the single channel by which the orchestrator reports
// its outcome. Either Order is set (success) or Kind/Messages are.
type CreationResult struct {
	Order    *domain.Order
	Kind     FailureKind
	Messages []string
}

func (r CreationResult) Success() bool {
	return r.Order != nil
}

// Message joins the failure messages for human consumption.
func (r CreationResult) Message() string {
	return strings.Join(r.Messages, ", ")
}

func success(o *domain.Order) CreationResult {
	return CreationResult{Order: o}
}

func failure(kind FailureKind, messages ...string) CreationResult {
	return CreationResult{Kind: kind, Messages: messages}
}
