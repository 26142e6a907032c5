package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// orderRepositoryInMemory — стор заказов для dev-режима и тестов.
// Номер заказа индексируется отдельной мапой, как unique-индекс в Postgres.
type orderRepositoryInMemory struct {
	mu       sync.RWMutex
	items    map[string]domain.Order
	byNumber map[string]string
	outbox   domain.OutboxRepository
}

// NewOrderRepository возвращает репозиторий без прикреплённого outbox.
func NewOrderRepository() domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:    make(map[string]domain.Order),
		byNumber: make(map[string]string),
	}
}

// NewOrderRepositoryWithOutbox возвращает репозиторий, который дублирует
// семантику transactional outbox: события попадают в outbox только вместе
// с успешной записью заказа.
func NewOrderRepositoryWithOutbox(outbox domain.OutboxRepository) domain.OrderRepository {
	return &orderRepositoryInMemory{
		items:    make(map[string]domain.Order),
		byNumber: make(map[string]string),
		outbox:   outbox,
	}
}

// Create сохраняет новый заказ, если ID и номер ещё не заняты.
func (r *orderRepositoryInMemory) Create(order domain.Order, events ...domain.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[order.ID]; exists {
		return domain.ErrDuplicateOrderNumber
	}
	if _, exists := r.byNumber[order.Number]; exists {
		return domain.ErrDuplicateOrderNumber
	}
	// Внутри живут только копии: вызывающий не может мутировать стор.
	r.items[order.ID] = cloneOrder(order)
	r.byNumber[order.Number] = order.ID
	return r.enqueueEvents(events)
}

// GetByID возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) GetByID(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

// GetByNumber возвращает заказ по человекочитаемому номеру.
func (r *orderRepositoryInMemory) GetByNumber(number string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byNumber[number]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return cloneOrder(r.items[id]), nil
}

// List возвращает заказы по фильтру, новые первыми.
func (r *orderRepositoryInMemory) List(filter domain.ListFilter) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Order, 0, len(r.items))
	for _, order := range r.items {
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		result = append(result, cloneOrder(order))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

// TransitionStatus атомарно переводит заказ из from в to под общим локом,
// эквивалент conditional UPDATE ... WHERE status = from.
func (r *orderRepositoryInMemory) TransitionStatus(id string, from, to domain.OrderStatus, update domain.StatusUpdate, events ...domain.OutboxMessage) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if order.Status != from {
		return domain.Order{}, domain.ErrStatusConflict
	}

	order.Status = to
	if update.TrackingID != "" {
		order.TrackingID = update.TrackingID
	}
	if update.TrackingURL != "" {
		order.TrackingURL = update.TrackingURL
	}
	if update.CancelReason != "" {
		order.CancelReason = update.CancelReason
	}
	order.UpdatedAt = time.Now().UTC()

	r.items[id] = cloneOrder(order)
	if err := r.enqueueEvents(events); err != nil {
		return domain.Order{}, err
	}
	return cloneOrder(order), nil
}

// enqueueEvents пишет события в прикреплённый outbox. Вызывается только
// после успешного изменения заказа.
func (r *orderRepositoryInMemory) enqueueEvents(events []domain.OutboxMessage) error {
	if r.outbox == nil {
		return nil
	}
	for _, event := range events {
		if _, err := r.outbox.Enqueue(event); err != nil {
			return err
		}
	}
	return nil
}

func cloneOrder(src domain.Order) domain.Order {
	dst := src
	dst.Items = append([]domain.OrderItem(nil), src.Items...)
	return dst
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
