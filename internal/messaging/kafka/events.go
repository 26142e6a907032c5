package kafka

import "time"

// EventType — тип доменного события.
type EventType string

const (
	// События заказа
	EventTypeOrderCreated       EventType = "order.created"
	EventTypeOrderAccepted      EventType = "order.accepted"
	EventTypeOrderDispatched    EventType = "order.dispatched"
	EventTypeOrderDelivered     EventType = "order.delivered"
	EventTypeOrderCanceled      EventType = "order.canceled"
	EventTypeOrderStatusChanged EventType = "order.status_changed"
)

// Топики
const (
	TopicOrderEvents     = "shop.order.events"
	TopicDeadLetterQueue = "shop.dlq" // Dead Letter Queue для failed messages
)

// Kafka headers сообщений
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOriginalTopic = "x-original-topic"
	HeaderFailedAt      = "x-failed-at"
)

// OrderEvent — полезная нагрузка доменного события заказа.
type OrderEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	Number    string                 `json:"number"`
	UserID    string                 `json:"user_id"`
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewOrderEvent собирает payload события по текущему состоянию заказа.
func NewOrderEvent(eventType EventType, orderID, number, userID, status string, metadata map[string]interface{}) *OrderEvent {
	return &OrderEvent{
		EventType: eventType,
		OrderID:   orderID,
		Number:    number,
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
