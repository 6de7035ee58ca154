package domain

import (
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

const maxNameLength = 255

// Order is the durable record created by the saga. An order only ever
// reaches storage after its customer reference was confirmed to exist;
// no referential check happens afterwards.
type Order struct {
	ID         string
	CustomerID int
	Name       string
	Quantity   int
	UnitPrice  float64
	Total      float64
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Total derives from quantity and unit price; it is computed once at
// construction, never stored independently of its inputs.
func (o *Order) ComputeTotal() float64 {
	return float64(o.Quantity) * o.UnitPrice
}

// Validate returns every field-level violation, empty when the order is
// well-formed. Violations are collected, not short-circuited, so the caller
// can report them all at once.
func (o *Order) Validate() []string {
	var violations []string
	if strings.TrimSpace(o.Name) == "" {
		violations = append(violations, "name must not be blank")
	}
	if len(o.Name) > maxNameLength {
		violations = append(violations, fmt.Sprintf("name must be at most %d characters", maxNameLength))
	}
	if o.Quantity < 1 {
		violations = append(violations, "quantity must be at least 1")
	}
	if o.UnitPrice < 0 {
		violations = append(violations, "unit price must not be negative")
	}
	if o.CustomerID <= 0 {
		violations = append(violations, "customer id must be positive")
	}
	return violations
}
