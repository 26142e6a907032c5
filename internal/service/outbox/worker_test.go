package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

func pendingEvent(id, eventType, payload string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: "order",
		AggregateID:   "order-for-" + id,
		EventType:     eventType,
		Payload:       []byte(payload),
	}
}

// fastWorker собирает воркер без задержек между попытками.
func fastWorker(repo domain.OutboxRepository, publisher domain.OutboxPublisher, attempts int, extra ...Option) *Worker {
	options := append([]Option{WithRetryBaseDelay(0), WithMaxAttempts(attempts)}, extra...)
	return NewWorker(repo, publisher, options...)
}

func TestWorker_ProcessOnce_DeliversAndMarksSent(t *testing.T) {
	t.Parallel()

	repo := &fakeOutbox{pending: []domain.OutboxMessage{
		pendingEvent("evt-1", "order.created", `{"status":"pending"}`),
	}}
	publisher := &fakePublisher{}

	fastWorker(repo, publisher, 3).ProcessOnce(context.Background())

	require.Equal(t, []string{"evt-1"}, repo.sentIDs)
	require.Empty(t, repo.failedIDs)
	require.Equal(t, 1, publisher.calls())
}

func TestWorker_ProcessOnce_ExhaustedRetriesGoToDLQ(t *testing.T) {
	t.Parallel()

	repo := &fakeOutbox{pending: []domain.OutboxMessage{
		pendingEvent("evt-2", "order.status_changed", `{"status":"canceled"}`),
	}}
	publisher := &fakePublisher{err: errors.New("publish failed")}
	dlq := &fakePublisher{}

	fastWorker(repo, publisher, 3, WithDLQPublisher(dlq)).ProcessOnce(context.Background())

	require.Equal(t, 3, publisher.calls(), "every attempt should hit the broker")
	require.Empty(t, repo.sentIDs)
	require.Equal(t, []string{"evt-2"}, repo.failedIDs)
	require.Equal(t, 1, dlq.calls())
}

func TestWorker_ProcessOnce_DLQMessageCarriesFailure(t *testing.T) {
	t.Parallel()

	repo := &fakeOutbox{pending: []domain.OutboxMessage{
		pendingEvent("evt-5", "order.created", `{"status":"pending"}`),
	}}
	publisher := &fakePublisher{err: errors.New("broker unavailable")}
	dlq := &fakePublisher{}

	fastWorker(repo, publisher, 2, WithDLQPublisher(dlq)).ProcessOnce(context.Background())

	dlqMsg := dlq.lastMessage()
	require.Equal(t, "evt-5", dlqMsg.ID)
	require.Equal(t, "order.created", dlqMsg.EventType, "original event type must survive")

	var envelope struct {
		OutboxID     string          `json:"outbox_id"`
		Payload      json.RawMessage `json:"payload"`
		PublishError string          `json:"publish_error"`
		Attempts     int             `json:"attempts"`
	}
	require.NoError(t, json.Unmarshal(dlqMsg.Payload, &envelope))
	require.Equal(t, "evt-5", envelope.OutboxID)
	require.Contains(t, envelope.PublishError, "broker unavailable")
	require.Equal(t, 2, envelope.Attempts)
	require.JSONEq(t, `{"status":"pending"}`, string(envelope.Payload))
}

func TestWorker_ProcessOnce_RecoversOnRetry(t *testing.T) {
	t.Parallel()

	repo := &fakeOutbox{pending: []domain.OutboxMessage{
		pendingEvent("evt-3", "order.status_changed", `{"status":"dispatched"}`),
	}}
	publisher := &fakePublisher{
		sequenceErrors: []error{errors.New("attempt 1"), errors.New("attempt 2"), nil},
	}

	fastWorker(repo, publisher, 3).ProcessOnce(context.Background())

	require.Equal(t, 3, publisher.calls())
	require.Equal(t, []string{"evt-3"}, repo.sentIDs)
	require.Empty(t, repo.failedIDs)
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := fastWorker(&fakeOutbox{}, &fakePublisher{}, 1, WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

type fakeOutbox struct {
	pending   []domain.OutboxMessage
	sentIDs   []string
	failedIDs []string
}

var _ domain.OutboxRepository = (*fakeOutbox)(nil)

func (f *fakeOutbox) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	return msg, nil
}

func (f *fakeOutbox) PullPending(limit int) ([]domain.OutboxMessage, error) {
	batch := f.pending
	if limit > 0 && limit < len(batch) {
		batch = batch[:limit]
	}
	return append([]domain.OutboxMessage(nil), batch...), nil
}

func (f *fakeOutbox) Stats() (domain.OutboxStats, error) {
	stats := domain.OutboxStats{PendingCount: len(f.pending)}
	if len(f.pending) > 0 {
		stats.OldestPendingAt = time.Now().UTC().Add(-time.Second)
	}
	return stats, nil
}

func (f *fakeOutbox) MarkSent(id string) error {
	f.sentIDs = append(f.sentIDs, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(id string) error {
	f.failedIDs = append(f.failedIDs, id)
	return nil
}

type fakePublisher struct {
	mu             sync.Mutex
	err            error
	sequenceErrors []error
	callCount      int
	last           domain.OutboxMessage
}

var _ domain.OutboxPublisher = (*fakePublisher)(nil)

func (f *fakePublisher) Publish(msg domain.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.callCount++
	f.last = msg
	if len(f.sequenceErrors) > 0 {
		err := f.sequenceErrors[0]
		f.sequenceErrors = f.sequenceErrors[1:]
		return err
	}
	return f.err
}

func (f *fakePublisher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.callCount
}

func (f *fakePublisher) lastMessage() domain.OutboxMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}
