package app

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

// messaging связывает Kafka producer с паблишерами outbox-воркера.
// Нулевое значение означает, что брокеры не сконфигурированы: события
// остаются в outbox до появления Kafka.
type messaging struct {
	producer *kafka.Producer
	events   domain.OutboxPublisher
	dlq      domain.OutboxPublisher
}

func (m messaging) enabled() bool {
	return m.producer != nil
}

// initMessaging поднимает producer и паблишеры для топика событий и DLQ.
// Пустой список брокеров возвращает выключенный messaging без ошибки.
func initMessaging(brokers string, logger *log.Entry) (messaging, error) {
	if brokers == "" {
		return messaging{}, nil
	}

	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return messaging{}, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return messaging{
		producer: producer,
		events:   kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents),
		dlq:      kafka.NewDLQPublisher(producer, kafka.TopicOrderEvents),
	}, nil
}

// close закрывает producer, если он был создан.
func (m messaging) close(logger *log.Entry) {
	if m.producer == nil {
		return
	}

	if err := m.producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}
