package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// eventEnvelope — формат сообщения в топике событий заказов. Payload несёт
// доменное событие как есть, обёртка добавляет метаданные outbox-записи.
type eventEnvelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// OutboxTopicPublisher заворачивает outbox-события в envelope и шлёт их
// в закреплённый за ним топик.
// Ключом партиционирования служит aggregate_id, поэтому события одного
// заказа попадают в одну партицию и сохраняют порядок.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
	headers  func(domain.OutboxMessage) map[string]string
}

// NewOutboxPublisher собирает паблишер доменных событий в основной топик.
func NewOutboxPublisher(producer *Producer, topic string) domain.OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    topic,
		headers: func(event domain.OutboxMessage) map[string]string {
			return map[string]string{
				HeaderEventType:     event.EventType,
				HeaderAggregateType: event.AggregateType,
			}
		},
	}
}

// NewDLQPublisher создаёт паблишер dead letter queue. Заголовки сохраняют
// исходный топик и момент отказа для разбора инцидента.
func NewDLQPublisher(producer *Producer, originalTopic string) domain.OutboxPublisher {
	return &OutboxTopicPublisher{
		producer: producer,
		topic:    TopicDeadLetterQueue,
		headers: func(event domain.OutboxMessage) map[string]string {
			return map[string]string{
				HeaderEventType:     event.EventType,
				HeaderOriginalTopic: originalTopic,
				HeaderFailedAt:      time.Now().UTC().Format(time.RFC3339),
			}
		},
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	value, err := json.Marshal(eventEnvelope{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal outbox envelope: %w", err)
	}

	return p.producer.Send(Message{
		Topic:   p.topic,
		Key:     key,
		Value:   value,
		Headers: p.headers(event),
	})
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
