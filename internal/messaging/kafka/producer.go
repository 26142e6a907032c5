package kafka

import (
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const producerClientID = "storefront-api"

// Message — сообщение для отправки в Kafka.
type Message struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

// Producer оборачивает sarama.SyncProducer для публикации событий.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
}

// NewProducer подключает синхронный идемпотентный producer к брокерам.
func NewProducer(brokers []string) (*Producer, error) {
	config := sarama.NewConfig()
	config.ClientID = producerClientID
	config.Producer.RequiredAcks = sarama.WaitForAll // Wait for all in-sync replicas
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	// Идемпотентная запись требует не более одного in-flight запроса.
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	syncProducer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &Producer{
		sync:   syncProducer,
		logger: log.WithField("component", "kafka-producer"),
	}, nil
}

// Send публикует сообщение в Kafka и дожидается подтверждения брокера.
func (p *Producer) Send(msg Message) error {
	record := &sarama.ProducerMessage{
		Topic:     msg.Topic,
		Key:       sarama.StringEncoder(msg.Key),
		Value:     sarama.ByteEncoder(msg.Value),
		Timestamp: time.Now(),
	}
	for name, value := range msg.Headers {
		record.Headers = append(record.Headers, sarama.RecordHeader{
			Key:   []byte(name),
			Value: []byte(value),
		})
	}

	partition, offset, err := p.sync.SendMessage(record)
	if err != nil {
		p.logger.WithError(err).WithFields(log.Fields{
			"topic": msg.Topic,
			"key":   msg.Key,
		}).Error("failed to send message to kafka")
		return fmt.Errorf("failed to send message: %w", err)
	}

	p.logger.WithFields(log.Fields{
		"topic":     msg.Topic,
		"key":       msg.Key,
		"partition": partition,
		"offset":    offset,
	}).Debug("message sent to kafka")

	return nil
}

// HealthCheck сообщает, инициализирован ли producer.
func (p *Producer) HealthCheck() error {
	if p == nil || p.sync == nil {
		return fmt.Errorf("kafka producer is not initialized")
	}
	return nil
}

// Close останавливает producer.
func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	return nil
}
