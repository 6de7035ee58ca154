package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ecomsvc/order-events/internal/pkg/config"
)

var (
	// ErrConnectionFailure covers dial, auth, channel and exchange-declare
	// failures: the broker could not be reached or refused us.
	ErrConnectionFailure = errors.New("events: broker connection failure")

	// ErrPublishFailure covers protocol-level rejection of an otherwise
	// established publish.
	ErrPublishFailure = errors.New("events: publish failed")
)

const maxPriority = 9

// Publisher writes JSON messages to a durable topic exchange. The
// connection/channel/exchange triple is established lazily on first use and
// reused; if the connection drops, the next Publish reconnects.
//
// A Publisher does not deduplicate: a retried publish after an ambiguous
// failure may produce a duplicate event. Consumers own duplicate tolerance.
type Publisher struct {
	cfg config.Broker

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(cfg config.Broker) *Publisher {
	return &Publisher{cfg: cfg}
}

// PublishOption customises a single message envelope.
type PublishOption func(*envelopeOptions)

type envelopeOptions struct {
	correlationID string
	priority      uint8
}

// WithCorrelationID attaches a caller-supplied correlation id. When absent,
// Publish generates a fresh one.
func WithCorrelationID(id string) PublishOption {
	return func(o *envelopeOptions) { o.correlationID = id }
}

// WithPriority sets the message priority, clamped to the AMQP 0-9 range.
func WithPriority(p uint8) PublishOption {
	return func(o *envelopeOptions) { o.priority = p }
}

// Publish sends one event to the exchange with the event type as routing
// key. Ownership of the payload transfers to the broker; the publisher
// keeps no reference afterwards.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload map[string]any, opts ...PublishOption) error {
	msg, err := buildEnvelope(eventType, payload, opts...)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureOpen(); err != nil {
		return err
	}
	if err := p.ch.PublishWithContext(ctx, p.cfg.Exchange, eventType, false, false, msg); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPublishFailure, eventType, err)
	}
	return nil
}

// Connected reports whether the broker connection is currently open.
func (p *Publisher) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn != nil && !p.conn.IsClosed()
}

// Close releases the channel and connection. Safe to call repeatedly and
// when never connected.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.ch != nil && !p.ch.IsClosed() {
		firstErr = p.ch.Close()
	}
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Close(); firstErr == nil {
			firstErr = err
		}
	}
	p.ch = nil
	p.conn = nil
	return firstErr
}

// ensureOpen establishes the connection/channel/exchange triple if it is
// not currently usable. Callers must hold p.mu.
func (p *Publisher) ensureOpen() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}

	// Drop whatever half-open state is left before reconnecting.
	if p.conn != nil && !p.conn.IsClosed() {
		_ = p.conn.Close()
	}
	p.conn = nil
	p.ch = nil

	conn, err := amqp.DialConfig(p.cfg.URL, amqp.Config{
		Heartbeat: p.cfg.Heartbeat,
		Dial:      amqp.DefaultDial(p.cfg.ConnectTimeout),
	})
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrConnectionFailure, p.cfg.URL, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: open channel: %v", ErrConnectionFailure, err)
	}

	if err := ch.ExchangeDeclare(p.cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return fmt.Errorf("%w: declare exchange %s: %v", ErrConnectionFailure, p.cfg.Exchange, err)
	}

	p.conn = conn
	p.ch = ch
	return nil
}

// buildEnvelope assembles the wire message: JSON body, persistent delivery,
// content metadata, correlation id and priority.
func buildEnvelope(eventType string, payload map[string]any, opts ...PublishOption) (amqp.Publishing, error) {
	options := envelopeOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.correlationID == "" {
		options.correlationID = uuid.NewString()
	}
	if options.priority > maxPriority {
		options.priority = maxPriority
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("%w: marshal %s payload: %v", ErrPublishFailure, eventType, err)
	}

	return amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		CorrelationId: options.correlationID,
		Priority:      options.priority,
		AppId:         AppID,
		Timestamp:     time.Now().UTC(),
		Type:          eventType,
		Body:          body,
	}, nil
}
