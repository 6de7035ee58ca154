package order

import (
	"context"
	"errors"

	"github.com/ecomsvc/order-events/internal/order/domain"
)

// ErrNotFound is returned by GetByID when no order exists with that id.
var ErrNotFound = errors.New("order: not found")

// Repository is the persistence port for orders.
type Repository interface {
	Save(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	CountAll(ctx context.Context) (int, error)
}
