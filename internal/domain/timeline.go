package domain

import "time"

// TimelineEventType различает записи в истории заказа.
type TimelineEventType string

const (
	// TimelinePlaced — заказ оформлен на чекауте.
	TimelinePlaced TimelineEventType = "placed"
	// TimelineStatusChanged — заказ переведён в новый статус.
	TimelineStatusChanged TimelineEventType = "status_changed"
)

// TimelineEvent — запись в истории жизненного цикла заказа.
type TimelineEvent struct {
	OrderID string
	Type    TimelineEventType
	// Status — статус заказа на момент записи: pending для placed,
	// целевой статус для status_changed.
	Status OrderStatus
	// Reason хранит причину отмены, если она была передана.
	Reason   string
	Occurred time.Time
}

// PlacedEvent — запись об оформлении заказа.
func PlacedEvent(orderID string, at time.Time) TimelineEvent {
	return TimelineEvent{
		OrderID:  orderID,
		Type:     TimelinePlaced,
		Status:   OrderStatusPending,
		Occurred: at,
	}
}

// StatusEvent — запись о переходе заказа в статус to.
func StatusEvent(orderID string, to OrderStatus, reason string, at time.Time) TimelineEvent {
	return TimelineEvent{
		OrderID:  orderID,
		Type:     TimelineStatusChanged,
		Status:   to,
		Reason:   reason,
		Occurred: at,
	}
}
