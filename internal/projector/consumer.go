package projector

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ecomsvc/order-events/internal/events"
	"github.com/ecomsvc/order-events/internal/pkg/config"
)

// Consumer owns the broker side of the projector: a durable queue bound to
// the topic exchange on order.created, manual acknowledgement, bounded
// prefetch, and a fixed pool of workers each finishing one message before
// acknowledging it.
type Consumer struct {
	cfg     config.Projector
	handler *Handler
}

func NewConsumer(cfg config.Projector, handler *Handler) *Consumer {
	return &Consumer{cfg: cfg, handler: handler}
}

// Run connects, declares the topology and processes deliveries until ctx is
// cancelled. It returns when all in-flight messages are settled.
func (c *Consumer) Run(ctx context.Context) error {
	conn, err := amqp.DialConfig(c.cfg.Broker.URL, amqp.Config{
		Heartbeat: c.cfg.Broker.Heartbeat,
		Dial:      amqp.DefaultDial(c.cfg.Broker.ConnectTimeout),
	})
	if err != nil {
		return fmt.Errorf("projector: dial broker: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("projector: open channel: %w", err)
	}

	deliveries, err := c.setup(ch)
	if err != nil {
		return err
	}

	// Registered before consuming starts so a dropped connection (missed
	// heartbeat, broker restart) is never missed.
	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))

	slog.Info("projector consuming",
		"queue", c.cfg.Queue,
		"routing_key", events.OrderCreated,
		"workers", c.cfg.Workers,
		"prefetch", c.cfg.Prefetch,
	)

	var wg sync.WaitGroup
	for i := 0; i < c.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.work(ctx, deliveries)
		}()
	}

	workersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(workersDone)
	}()

	err = waitForShutdown(ctx, connClosed, workersDone)

	// Closing the connection closes the deliveries channel, which drains
	// the workers.
	_ = conn.Close()
	<-workersDone
	return err
}

// waitForShutdown blocks until the context is cancelled (clean shutdown,
// nil) or the broker stops feeding us. Losing the connection or the
// delivery stream returns an error so the supervisor sees a non-zero exit
// instead of a process that idles forever consuming nothing.
func waitForShutdown(ctx context.Context, connClosed <-chan *amqp.Error, workersDone <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return nil
	case amqpErr := <-connClosed:
		if amqpErr != nil {
			return fmt.Errorf("projector: broker connection lost: %w", amqpErr)
		}
		return fmt.Errorf("projector: broker connection closed unexpectedly")
	case <-workersDone:
		return fmt.Errorf("projector: delivery stream closed unexpectedly")
	}
}

// setup declares the exchange/queue pair and starts the manual-ack consume
// stream with the configured prefetch window.
func (c *Consumer) setup(ch *amqp.Channel) (<-chan amqp.Delivery, error) {
	if err := ch.ExchangeDeclare(c.cfg.Broker.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("projector: declare exchange %s: %w", c.cfg.Broker.Exchange, err)
	}

	queue, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("projector: declare queue %s: %w", c.cfg.Queue, err)
	}

	if err := ch.QueueBind(queue.Name, events.OrderCreated, c.cfg.Broker.Exchange, false, nil); err != nil {
		return nil, fmt.Errorf("projector: bind queue %s: %w", queue.Name, err)
	}

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("projector: set prefetch: %w", err)
	}

	deliveries, err := ch.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("projector: consume %s: %w", queue.Name, err)
	}
	return deliveries, nil
}

// work processes deliveries to completion, one at a time, until the stream
// closes. Each message is settled exactly once: Ack on success paths, a
// terminal Nack without requeue otherwise.
func (c *Consumer) work(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		// Bound each message independently of any upstream timeout so a
		// stalled store call cannot hold the delivery un-acked forever.
		msgCtx, cancel := context.WithTimeout(ctx, c.cfg.MessageTimeout)
		msgCtx, span := otel.Tracer("projector").Start(msgCtx, "projector.handle")
		span.SetAttributes(
			attribute.String("messaging.routing_key", d.RoutingKey),
			attribute.String("messaging.correlation_id", d.CorrelationId),
		)

		decision := c.handler.Handle(msgCtx, d.Body)

		var err error
		if decision == Ack {
			err = d.Ack(false)
		} else {
			err = d.Nack(false, false)
		}
		if err != nil {
			slog.ErrorContext(msgCtx, "failed to settle delivery", "decision", decision.String(), "error", err)
		}
		span.End()
		cancel()
	}
}
