package domain

import "time"

// OutboxMessage — событие, ожидающее публикации в брокер.
// ID присваивается хранилищем при записи.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats — срез состояния очереди необработанных событий.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxPublisher доставляет события заказов во внешний брокер.
// Повторная публикация одного события допустима: консьюмеры
// дедуплицируют по ID.
type OutboxPublisher interface {
	Publish(event OutboxMessage) error
}

// OutboxRepository — очередь событий поверх хранилища заказов.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит хронологию статусов заказа.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(orderID string) ([]TimelineEvent, error)
}

// IdempotencyRepository отслеживает обработку повторных HTTP-запросов
// по заголовку Idempotency-Key.
type IdempotencyRepository interface {
	CreateProcessing(key, requestHash string, ttlAt time.Time) (IdempotencyRecord, error)
	Get(key string) (IdempotencyRecord, error)
	MarkDone(key string, responseBody []byte, httpStatus int) error
	MarkFailed(key string, responseBody []byte, httpStatus int) error
	DeleteExpired(before time.Time, limit int) (int, error)
}
