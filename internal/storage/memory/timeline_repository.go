package memory

import (
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// timelineRow связывает событие с порядковым номером вставки, чтобы записи
// с одинаковым Occurred сохраняли порядок добавления.
type timelineRow struct {
	seq   int
	event domain.TimelineEvent
}

// timelineRepositoryInMemory хранит историю заказов в памяти (для разработки/тестов).
type timelineRepositoryInMemory struct {
	mu   sync.RWMutex
	rows map[string][]timelineRow
	seq  int
}

// NewTimelineRepository возвращает in-memory хронологию заказов.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{rows: make(map[string][]timelineRow)}
}

// Append добавляет событие в историю заказа.
func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.rows[event.OrderID] = append(r.rows[event.OrderID], timelineRow{seq: r.seq, event: event})
	return nil
}

// List отдаёт события заказа от старых к новым.
func (r *timelineRepositoryInMemory) List(orderID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := append([]timelineRow(nil), r.rows[orderID]...)
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].event.Occurred.Equal(rows[j].event.Occurred) {
			return rows[i].event.Occurred.Before(rows[j].event.Occurred)
		}
		return rows[i].seq < rows[j].seq
	})

	events := make([]domain.TimelineEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.event)
	}
	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
