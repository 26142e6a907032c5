package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
)

// maxNumberAttempts ограничивает число перегенераций номера заказа
// при коллизии уникального индекса.
const maxNumberAttempts = 3

// CreateItemInput описывает одну позицию создаваемого заказа.
// Сумма налога приходит от вышестоящего pricing-слоя и проверяется
// только арифметически.
type CreateItemInput struct {
	ProductID      string
	Qty            int32
	TaxAmountMinor int64
}

// CreateInput описывает запрос на создание заказа.
type CreateInput struct {
	UserID          string
	Items           []CreateItemInput
	ShippingMinor   int64
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
}

// Service реализует операции жизненного цикла заказа.
//
// Доменные события не публикуются сервисом напрямую: они передаются
// репозиторию заказов и записываются в transactional outbox вместе с
// бизнес-записью.
type Service struct {
	orders   domain.OrderRepository
	catalog  domain.ProductCatalog
	timeline domain.TimelineRepository
	metrics  *metrics.OrderMetrics
	logger   *log.Entry
}

// NewService создаёт сервис заказов.
func NewService(
	orders domain.OrderRepository,
	catalog domain.ProductCatalog,
	timeline domain.TimelineRepository,
	orderMetrics *metrics.OrderMetrics,
) *Service {
	return &Service{
		orders:   orders,
		catalog:  catalog,
		timeline: timeline,
		metrics:  orderMetrics,
		logger:   log.WithField("component", "order-service"),
	}
}

// Create создаёт заказ: снапшоты позиций из каталога, вычисленные суммы,
// уникальный номер с ограниченным retry при коллизии.
func (s *Service) Create(ctx context.Context, input CreateInput) (domain.Order, error) {
	started := time.Now()

	if input.UserID == "" {
		return domain.Order{}, domain.ErrUserRequired
	}
	if len(input.Items) == 0 {
		return domain.Order{}, domain.ErrItemsRequired
	}
	if input.ShippingMinor < 0 {
		return domain.Order{}, domain.ErrShippingNegative
	}

	now := time.Now().UTC()
	items := make([]domain.OrderItem, 0, len(input.Items))
	var itemsTotal int64

	for _, in := range input.Items {
		if in.ProductID == "" {
			return domain.Order{}, domain.ErrItemProductRequired
		}
		if in.Qty <= 0 {
			return domain.Order{}, domain.ErrItemQtyInvalid
		}
		if in.TaxAmountMinor < 0 {
			return domain.Order{}, domain.ErrItemTaxInvalid
		}

		snapshot, err := s.catalog.Lookup(ctx, in.ProductID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("resolve product %s: %w", in.ProductID, err)
		}

		total := int64(in.Qty)*snapshot.UnitPriceMinor + in.TaxAmountMinor
		items = append(items, domain.OrderItem{
			ID:             uuid.NewString(),
			ProductID:      snapshot.ID,
			Name:           snapshot.Name,
			UnitPriceMinor: snapshot.UnitPriceMinor,
			TaxRateBps:     snapshot.TaxRateBps,
			TaxType:        snapshot.TaxType,
			Image:          snapshot.Image,
			TaxAmountMinor: in.TaxAmountMinor,
			Qty:            in.Qty,
			TotalMinor:     total,
			CreatedAt:      now,
		})
		itemsTotal += total
	}

	paymentMethod := input.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = domain.DefaultPaymentMethod
	}

	order := domain.Order{
		ID:              uuid.NewString(),
		UserID:          input.UserID,
		Status:          domain.OrderStatusPending,
		Items:           items,
		GrandTotalMinor: itemsTotal + input.ShippingMinor,
		ShippingMinor:   input.ShippingMinor,
		ShippingAddress: input.ShippingAddress,
		PaymentMethod:   paymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var lastErr error
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		order.Number = domain.NewOrderNumber()

		if errs := order.ValidateInvariants(); len(errs) > 0 {
			return domain.Order{}, errs[0]
		}

		// Событие собирается до записи: оно попадёт в outbox той же
		// транзакцией, что и заказ.
		event, err := orderEvent(order, kafka.EventTypeOrderCreated, nil)
		if err != nil {
			return domain.Order{}, err
		}

		err = s.orders.Create(order, event)
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if !domain.IsDuplicateNumber(err) {
			return domain.Order{}, fmt.Errorf("persist order: %w", err)
		}

		if s.metrics != nil {
			s.metrics.RecordNumberRetry()
		}
		s.logger.WithFields(log.Fields{
			"attempt": attempt,
			"number":  order.Number,
		}).Warn("order number collision, regenerating")
	}
	if lastErr != nil {
		return domain.Order{}, fmt.Errorf("allocate order number after %d attempts: %w", maxNumberAttempts, lastErr)
	}

	s.appendTimeline(domain.PlacedEvent(order.ID, now))

	if s.metrics != nil {
		s.metrics.RecordOrderCreated()
		s.metrics.RecordCreateDuration(time.Since(started))
		s.metrics.RecordOutboxEvent()
	}

	s.logger.WithFields(log.Fields{
		"order_id": order.ID,
		"number":   order.Number,
		"user_id":  order.UserID,
		"total":    order.GrandTotalMinor,
	}).Info("order created")

	return order, nil
}

// Get возвращает заказ по id. Непустой ownerID ограничивает выдачу
// заказами этого пользователя; чужой заказ выглядит как отсутствующий.
func (s *Service) Get(id, ownerID string) (domain.Order, error) {
	order, err := s.orders.GetByID(id)
	if err != nil {
		return domain.Order{}, err
	}
	if ownerID != "" && order.UserID != ownerID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// GetByNumber возвращает заказ по номеру с той же owner-семантикой, что и Get.
func (s *Service) GetByNumber(number, ownerID string) (domain.Order, error) {
	order, err := s.orders.GetByNumber(number)
	if err != nil {
		return domain.Order{}, err
	}
	if ownerID != "" && order.UserID != ownerID {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// List возвращает заказы по фильтру. Операция административная,
// owner-scoping задаётся самим фильтром.
func (s *Service) List(filter domain.ListFilter) ([]domain.Order, error) {
	return s.orders.List(filter)
}

// Timeline возвращает события жизненного цикла заказа.
func (s *Service) Timeline(id, ownerID string) ([]domain.TimelineEvent, error) {
	order, err := s.Get(id, ownerID)
	if err != nil {
		return nil, err
	}
	if s.timeline == nil {
		return []domain.TimelineEvent{}, nil
	}
	return s.timeline.List(order.ID)
}

// Transition переводит заказ в целевой статус по таблице переходов.
// Переход применяется атомарно относительно текущего статуса: если
// статус успел измениться, возвращается ErrStatusConflict.
func (s *Service) Transition(id string, to domain.OrderStatus, update domain.StatusUpdate) (domain.Order, error) {
	if !to.Valid() {
		return domain.Order{}, domain.ErrStatusInvalid
	}
	if err := validateStatusUpdate(to, update); err != nil {
		return domain.Order{}, err
	}

	current, err := s.orders.GetByID(id)
	if err != nil {
		return domain.Order{}, err
	}

	if !current.Status.CanTransitionTo(to) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, to)
	}

	// Событие описывает заказ после перехода и уходит в outbox той же
	// транзакцией, что и смена статуса.
	pending := current
	pending.Status = to
	event, err := orderEvent(pending, transitionEventType(to), map[string]interface{}{
		"from": string(current.Status),
	})
	if err != nil {
		return domain.Order{}, err
	}

	updated, err := s.orders.TransitionStatus(current.ID, current.Status, to, update, event)
	if err != nil {
		return domain.Order{}, err
	}

	s.appendTimeline(domain.StatusEvent(updated.ID, to, update.CancelReason, updated.UpdatedAt))

	if s.metrics != nil {
		s.metrics.RecordStatusTransition(string(to))
		s.metrics.RecordOutboxEvent()
		if to == domain.OrderStatusCanceled {
			s.metrics.RecordOrderCanceled()
		}
	}

	s.logger.WithFields(log.Fields{
		"order_id": updated.ID,
		"from":     string(current.Status),
		"to":       string(to),
	}).Info("order status changed")

	return updated, nil
}

// validateStatusUpdate отклоняет вспомогательные поля, не относящиеся к
// целевому статусу: трек-данные принимает только dispatched, причину
// отмены — только canceled.
func validateStatusUpdate(to domain.OrderStatus, update domain.StatusUpdate) error {
	if (update.TrackingID != "" || update.TrackingURL != "") && to != domain.OrderStatusDispatched {
		return fmt.Errorf("%w: tracking fields are only allowed for %s", domain.ErrStatusUpdateMismatch, domain.OrderStatusDispatched)
	}
	if update.CancelReason != "" && to != domain.OrderStatusCanceled {
		return fmt.Errorf("%w: cancel_reason is only allowed for %s", domain.ErrStatusUpdateMismatch, domain.OrderStatusCanceled)
	}
	return nil
}

func transitionEventType(to domain.OrderStatus) kafka.EventType {
	switch to {
	case domain.OrderStatusAccepted:
		return kafka.EventTypeOrderAccepted
	case domain.OrderStatusDispatched:
		return kafka.EventTypeOrderDispatched
	case domain.OrderStatusDelivered:
		return kafka.EventTypeOrderDelivered
	case domain.OrderStatusCanceled:
		return kafka.EventTypeOrderCanceled
	default:
		return kafka.EventTypeOrderStatusChanged
	}
}

func (s *Service) appendTimeline(event domain.TimelineEvent) {
	if s.timeline == nil {
		return
	}
	if err := s.timeline.Append(event); err != nil {
		s.logger.WithError(err).WithField("order_id", event.OrderID).Warn("failed to append timeline event")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordTimelineEvent()
	}
}

// orderEvent собирает outbox-сообщение с доменным событием заказа.
func orderEvent(order domain.Order, eventType kafka.EventType, metadata map[string]interface{}) (domain.OutboxMessage, error) {
	payload, err := json.Marshal(kafka.NewOrderEvent(
		eventType, order.ID, order.Number, order.UserID, string(order.Status), metadata,
	))
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("marshal order event: %w", err)
	}

	return domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     string(eventType),
		Payload:       payload,
	}, nil
}
