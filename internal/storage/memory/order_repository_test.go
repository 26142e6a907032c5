package memory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newOrder(id, number string) domain.Order {
	now := time.Now().UTC()
	return domain.Order{
		ID:     id,
		Number: number,
		UserID: "user-1",
		Status: domain.OrderStatusPending,
		Items: []domain.OrderItem{
			{
				ID:             "item-1",
				ProductID:      "product-1",
				Name:           "Steel Bracket",
				UnitPriceMinor: 100,
				TaxAmountMinor: 18,
				Qty:            2,
				TotalMinor:     218,
				CreatedAt:      now,
			},
		},
		GrandTotalMinor: 238,
		ShippingMinor:   20,
		PaymentMethod:   domain.DefaultPaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func TestOrderRepository_CreateGet(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", "SO-AAA111BBB222")

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	stored, err := repo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if stored.Number != order.Number {
		t.Fatalf("expected number %s, got %s", order.Number, stored.Number)
	}

	byNumber, err := repo.GetByNumber(order.Number)
	if err != nil {
		t.Fatalf("get by number failed: %v", err)
	}
	if byNumber.ID != order.ID {
		t.Fatalf("expected id %s, got %s", order.ID, byNumber.ID)
	}
}

func TestOrderRepository_DuplicateNumber(t *testing.T) {
	repo := memory.NewOrderRepository()
	if err := repo.Create(newOrder("order-1", "SO-SAME00000001")); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err := repo.Create(newOrder("order-2", "SO-SAME00000001"))
	if !errors.Is(err, domain.ErrDuplicateOrderNumber) {
		t.Fatalf("expected duplicate number error, got %v", err)
	}
}

func TestOrderRepository_List(t *testing.T) {
	repo := memory.NewOrderRepository()
	if err := repo.Create(newOrder("order-1", "SO-AAA000000001")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	other := newOrder("order-2", "SO-AAA000000002")
	other.UserID = "user-2"
	if err := repo.Create(other); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	orders, err := repo.List(domain.ListFilter{UserID: "user-1", Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}

	all, err := repo.List(domain.ListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}
}

func TestOrderRepository_TransitionStatus(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", "SO-AAA000000001")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := repo.TransitionStatus(order.ID, domain.OrderStatusPending, domain.OrderStatusAccepted, domain.StatusUpdate{})
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if updated.Status != domain.OrderStatusAccepted {
		t.Fatalf("expected accepted, got %s", updated.Status)
	}
	if !updated.UpdatedAt.After(order.UpdatedAt) && !updated.UpdatedAt.Equal(order.UpdatedAt) {
		t.Fatal("expected updated_at to move forward")
	}
}

func TestOrderRepository_TransitionStatusConflict(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", "SO-AAA000000001")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Статус уже не pending — CAS обязан провалиться.
	_, err := repo.TransitionStatus(order.ID, domain.OrderStatusAccepted, domain.OrderStatusDispatched, domain.StatusUpdate{})
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Fatalf("expected status conflict, got %v", err)
	}

	_, err = repo.TransitionStatus("missing", domain.OrderStatusPending, domain.OrderStatusAccepted, domain.StatusUpdate{})
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOrderRepository_EnqueuesEventsWithWrite(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	repo := memory.NewOrderRepositoryWithOutbox(outbox)
	order := newOrder("order-1", "SO-AAA000000001")

	err := repo.Create(order, domain.OutboxMessage{
		AggregateType: "order",
		AggregateID:   order.ID,
		EventType:     "order.created",
		Payload:       []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	pending, err := outbox.PullPending(10)
	if err != nil {
		t.Fatalf("outbox pull failed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "order.created" {
		t.Fatalf("expected order.created in outbox, got %+v", pending)
	}

	_, err = repo.TransitionStatus(order.ID, domain.OrderStatusPending, domain.OrderStatusAccepted,
		domain.StatusUpdate{}, domain.OutboxMessage{
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     "order.accepted",
			Payload:       []byte(`{}`),
		})
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}

	pending, err = outbox.PullPending(10)
	if err != nil {
		t.Fatalf("outbox pull failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 outbox events, got %d", len(pending))
	}
}

func TestOrderRepository_NoEventsOnFailedWrite(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	repo := memory.NewOrderRepositoryWithOutbox(outbox)
	order := newOrder("order-1", "SO-SAME00000001")

	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Конфликт номера: событие не должно попасть в outbox.
	err := repo.Create(newOrder("order-2", "SO-SAME00000001"), domain.OutboxMessage{
		EventType: "order.created",
		Payload:   []byte(`{}`),
	})
	if !errors.Is(err, domain.ErrDuplicateOrderNumber) {
		t.Fatalf("expected duplicate number error, got %v", err)
	}

	// Проигранный CAS: событие тоже отбрасывается.
	_, err = repo.TransitionStatus(order.ID, domain.OrderStatusAccepted, domain.OrderStatusDispatched,
		domain.StatusUpdate{}, domain.OutboxMessage{
			EventType: "order.dispatched",
			Payload:   []byte(`{}`),
		})
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Fatalf("expected status conflict, got %v", err)
	}

	pending, err := outbox.PullPending(10)
	if err != nil {
		t.Fatalf("outbox pull failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty outbox after failed writes, got %+v", pending)
	}
}

func TestOrderRepository_TransitionStatusAuxFields(t *testing.T) {
	repo := memory.NewOrderRepository()
	order := newOrder("order-1", "SO-AAA000000001")
	order.Status = domain.OrderStatusAccepted
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := repo.TransitionStatus(order.ID, domain.OrderStatusAccepted, domain.OrderStatusDispatched, domain.StatusUpdate{
		TrackingID:  "TRK123",
		TrackingURL: "https://track.example.com/TRK123",
	})
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if updated.TrackingID != "TRK123" || updated.TrackingURL == "" {
		t.Fatalf("expected tracking fields persisted, got %+v", updated)
	}
}
