// Package events publishes order lifecycle events to a durable topic
// exchange. Routing keys are the dotted event names, so consumers subscribe
// by pattern ("order.*", "order.created", ...).
package events

// Event names double as AMQP routing keys.
const (
	OrderCreated   = "order.created"
	OrderUpdated   = "order.updated"
	OrderCancelled = "order.cancelled"
	OrderCompleted = "order.completed"
)

// AppID identifies this producer in message metadata.
const AppID = "order-service"
