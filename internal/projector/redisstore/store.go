// Package redisstore keeps the projection state in Redis. Each customer is
// a hash at projector:customer:{id}; the orders_applied field is the
// derived counter.
package redisstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ecomsvc/order-events/internal/projector"
)

const ordersAppliedField = "orders_applied"

// Existence check and increment must be one atomic step: concurrent
// workers may target the same customer, and an increment must never create
// a hash for a customer that was deleted.
var incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
end
return -1
`)

type Store struct {
	client *redis.Client
}

var _ projector.CustomerCounters = (*Store)(nil)

func New(addr string) *Store {
	return &Store{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// IncrementOrdersApplied atomically bumps the customer's counter by one.
// Returns projector.ErrCustomerNotFound when no such customer hash exists.
func (s *Store) IncrementOrdersApplied(ctx context.Context, customerID int) error {
	key := customerKey(customerID)

	n, err := incrementScript.Run(ctx, s.client, []string{key}, ordersAppliedField).Int64()
	if err != nil {
		return fmt.Errorf("redisstore: increment %s: %w", key, err)
	}
	if n < 0 {
		return projector.ErrCustomerNotFound
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func customerKey(customerID int) string {
	return fmt.Sprintf("projector:customer:%d", customerID)
}
