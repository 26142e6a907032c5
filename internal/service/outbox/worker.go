package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	defaultPollInterval   = 1 * time.Second
	defaultBatchSize      = 100
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 50 * time.Millisecond

	// maxBackoff ограничивает экспоненциальный backoff между попытками,
	// чтобы один застрявший батч не блокировал воркер надолго.
	maxBackoff = 30 * time.Second
)

var (
	outboxPublishAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_outbox_publish_attempts_total",
		Help: "Total number of outbox publish attempts grouped by result.",
	}, []string{"result"})
	outboxPendingRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_outbox_pending_records",
		Help: "Current number of pending records in transactional outbox.",
	})
	outboxOldestPendingAge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_outbox_oldest_pending_age_seconds",
		Help: "Age in seconds of the oldest pending outbox record.",
	})
)

// Worker доставляет накопленные outbox-события в брокер.
//
// Каждое сообщение получает до maxAttempts попыток публикации с
// экспоненциальным backoff; после исчерпания попыток запись помечается
// failed и уходит в DLQ, если DLQ-паблишер задан.
type Worker struct {
	repo           domain.OutboxRepository
	publisher      domain.OutboxPublisher
	dlqPublisher   domain.OutboxPublisher
	logger         *log.Entry
	pollInterval   time.Duration
	batchSize      int
	maxAttempts    int
	retryBaseDelay time.Duration
}

// Option переопределяет настройки воркера по умолчанию.
type Option func(*Worker)

// WithLogger подменяет logger воркера.
func WithLogger(logger *log.Entry) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDLQPublisher включает отправку в DLQ после исчерпания попыток.
func WithDLQPublisher(publisher domain.OutboxPublisher) Option {
	return func(w *Worker) {
		w.dlqPublisher = publisher
	}
}

// WithPollInterval меняет частоту опроса outbox.
func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) {
		if interval > 0 {
			w.pollInterval = interval
		}
	}
}

// WithBatchSize меняет размер выборки из outbox за цикл.
func WithBatchSize(batchSize int) Option {
	return func(w *Worker) {
		if batchSize > 0 {
			w.batchSize = batchSize
		}
	}
}

// WithMaxAttempts меняет число попыток публикации до failed/DLQ.
func WithMaxAttempts(maxAttempts int) Option {
	return func(w *Worker) {
		if maxAttempts > 0 {
			w.maxAttempts = maxAttempts
		}
	}
}

// WithRetryBaseDelay меняет базовую задержку экспоненциального backoff.
func WithRetryBaseDelay(delay time.Duration) Option {
	return func(w *Worker) {
		if delay >= 0 {
			w.retryBaseDelay = delay
		}
	}
}

// NewWorker собирает воркер с настройками по умолчанию и применяет опции.
func NewWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, options ...Option) *Worker {
	w := &Worker{
		repo:           repo,
		publisher:      publisher,
		logger:         log.WithField("component", "outbox-worker"),
		pollInterval:   defaultPollInterval,
		batchSize:      defaultBatchSize,
		maxAttempts:    defaultMaxAttempts,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, option := range options {
		option(w)
	}
	return w
}

// Run крутит polling-цикл до отмены ctx; первый проход выполняется сразу.
func (w *Worker) Run(ctx context.Context) {
	if w.repo == nil || w.publisher == nil {
		w.logger.Warn("outbox worker is disabled: repo or publisher is nil")
		return
	}

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.ProcessOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.ProcessOnce(ctx)
		}
	}
}

// ProcessOnce выполняет один polling-цикл: забирает батч pending-сообщений
// и доставляет каждое, помечая результат в outbox.
func (w *Worker) ProcessOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	w.observeBacklog()

	batch, err := w.repo.PullPending(w.batchSize)
	if err != nil {
		w.logger.WithError(err).Warn("failed to pull pending outbox messages")
		return
	}
	if len(batch) == 0 {
		return
	}

	for _, event := range batch {
		if ctx.Err() != nil {
			return
		}
		w.handle(ctx, event)
	}

	w.observeBacklog()
}

// handle доставляет одно сообщение и фиксирует итог в outbox.
func (w *Worker) handle(ctx context.Context, event domain.OutboxMessage) {
	if err := w.deliver(ctx, event); err != nil {
		w.logger.WithError(err).WithFields(log.Fields{
			"outbox_id":  event.ID,
			"event_type": event.EventType,
		}).Error("outbox publish failed after retries")
		outboxPublishAttempts.WithLabelValues("failed").Inc()

		w.escalate(event, err)
		if markErr := w.repo.MarkFailed(event.ID); markErr != nil {
			w.logger.WithError(markErr).WithField("outbox_id", event.ID).Warn("failed to mark outbox as failed")
		}
		return
	}

	if err := w.repo.MarkSent(event.ID); err != nil {
		w.logger.WithError(err).WithField("outbox_id", event.ID).Warn("failed to mark outbox as sent")
	}
}

// deliver публикует сообщение с повторами и backoff между попытками.
func (w *Worker) deliver(ctx context.Context, event domain.OutboxMessage) error {
	var lastErr error

	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if lastErr = w.publisher.Publish(event); lastErr == nil {
			outboxPublishAttempts.WithLabelValues("sent").Inc()
			return nil
		}
		outboxPublishAttempts.WithLabelValues("retry_error").Inc()

		if attempt == w.maxAttempts {
			break
		}
		if delay := w.backoff(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("publish failed after %d attempts: %w", w.maxAttempts, lastErr)
}

// backoff возвращает задержку перед попыткой attempt+1:
// base, 2*base, 4*base, ... с верхней границей maxBackoff.
func (w *Worker) backoff(attempt int) time.Duration {
	if w.retryBaseDelay <= 0 {
		return 0
	}
	delay := w.retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// dlqEnvelope — тело сообщения в dead letter queue.
type dlqEnvelope struct {
	OutboxID      string          `json:"outbox_id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishError  string          `json:"publish_error"`
	Attempts      int             `json:"attempts"`
	FailedAt      time.Time       `json:"failed_at"`
}

// escalate отправляет недоставленное сообщение в DLQ вместе с причиной отказа.
func (w *Worker) escalate(event domain.OutboxMessage, publishErr error) {
	if w.dlqPublisher == nil {
		return
	}

	payload, err := json.Marshal(dlqEnvelope{
		OutboxID:      event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishError:  publishErr.Error(),
		Attempts:      w.maxAttempts,
		FailedAt:      time.Now().UTC(),
	})
	if err != nil {
		w.logger.WithError(err).WithField("outbox_id", event.ID).Warn("failed to marshal DLQ envelope")
		outboxPublishAttempts.WithLabelValues("dlq_failed").Inc()
		return
	}

	dlqEvent := event
	dlqEvent.Payload = payload
	if err := w.dlqPublisher.Publish(dlqEvent); err != nil {
		w.logger.WithError(err).WithField("outbox_id", event.ID).Warn("failed to publish to DLQ")
		outboxPublishAttempts.WithLabelValues("dlq_failed").Inc()
	}
}

// observeBacklog обновляет gauge-метрики по состоянию очереди.
func (w *Worker) observeBacklog() {
	stats, err := w.repo.Stats()
	if err != nil {
		w.logger.WithError(err).Warn("failed to collect outbox backlog stats")
		return
	}

	outboxPendingRecords.Set(float64(stats.PendingCount))
	if stats.PendingCount == 0 || stats.OldestPendingAt.IsZero() {
		outboxOldestPendingAge.Set(0)
		return
	}

	age := time.Since(stats.OldestPendingAt).Seconds()
	if age < 0 {
		age = 0
	}
	outboxOldestPendingAge.Set(age)
}
