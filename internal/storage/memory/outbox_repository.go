package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type outboxStatus string

const (
	outboxPending outboxStatus = "pending"
	outboxSent    outboxStatus = "sent"
	outboxFailed  outboxStatus = "failed"
)

const defaultPullLimit = 100

// outboxEntry — сообщение и его служебное состояние.
type outboxEntry struct {
	msg       domain.OutboxMessage
	status    outboxStatus
	attempts  int
	createdAt time.Time
	updatedAt time.Time
}

// OutboxRepository — in-memory очередь событий. Слайс сохраняет порядок
// постановки, индекс нужен для MarkSent/MarkFailed по ID.
type OutboxRepository struct {
	mu      sync.RWMutex
	entries []*outboxEntry
	byID    map[string]*outboxEntry
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{byID: make(map[string]*outboxEntry)}
}

var _ domain.OutboxRepository = (*OutboxRepository)(nil)

// Enqueue ставит событие в очередь в статусе pending.
func (r *OutboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	entry := &outboxEntry{msg: msg, status: outboxPending, createdAt: now, updatedAt: now}
	r.entries = append(r.entries, entry)
	r.byID[msg.ID] = entry
	return msg, nil
}

// PullPending возвращает до limit необработанных событий в порядке постановки.
func (r *OutboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 {
		limit = defaultPullLimit
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	batch := make([]domain.OutboxMessage, 0, limit)
	for _, entry := range r.entries {
		if entry.status != outboxPending {
			continue
		}
		batch = append(batch, entry.msg)
		if len(batch) == limit {
			break
		}
	}
	return batch, nil
}

// Stats считает размер очереди и возраст самого старого pending-события.
func (r *OutboxRepository) Stats() (domain.OutboxStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats domain.OutboxStats
	for _, entry := range r.entries {
		if entry.status != outboxPending {
			continue
		}
		stats.PendingCount++
		if stats.OldestPendingAt.IsZero() || entry.createdAt.Before(stats.OldestPendingAt) {
			stats.OldestPendingAt = entry.createdAt
		}
	}
	return stats, nil
}

func (r *OutboxRepository) MarkSent(id string) error {
	return r.setStatus(id, outboxSent)
}

func (r *OutboxRepository) MarkFailed(id string) error {
	return r.setStatus(id, outboxFailed)
}

func (r *OutboxRepository) setStatus(id string, status outboxStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.byID[id]
	if !ok {
		return domain.ErrOutboxPublish
	}
	entry.status = status
	entry.attempts++
	entry.updatedAt = time.Now().UTC()
	return nil
}

// AllPending — снимок всех pending-событий для проверок в тестах.
func (r *OutboxRepository) AllPending() []domain.OutboxMessage {
	r.mu.RLock()
	total := len(r.entries)
	r.mu.RUnlock()

	pending, _ := r.PullPending(total)
	return pending
}
