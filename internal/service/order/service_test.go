package order_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	order "github.com/vladislavdragonenkov/storefront/internal/service/order"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
)

func newTestEnv() (*order.Service, *memory.ProductCatalog, domain.OrderRepository, domain.OutboxRepository, domain.TimelineRepository) {
	catalog := memory.NewProductCatalog()
	timeline := memory.NewTimelineRepository()
	outbox := memory.NewOutboxRepository()
	orders := memory.NewOrderRepositoryWithOutbox(outbox)

	catalog.Put(domain.ProductSnapshot{
		ID:             "product-1",
		Name:           "Steel Bracket",
		UnitPriceMinor: 100,
		TaxRateBps:     1800,
		TaxType:        "vat",
	})

	svc := order.NewService(orders, catalog, timeline, nil)
	return svc, catalog, orders, outbox, timeline
}

func createInput() order.CreateInput {
	return order.CreateInput{
		UserID: "user-1",
		Items: []order.CreateItemInput{
			{ProductID: "product-1", Qty: 2, TaxAmountMinor: 18},
		},
		ShippingMinor: 20,
		ShippingAddress: domain.ShippingAddress{
			RecipientName: "Acme Procurement",
			Address:       "1 Industrial Way",
			City:          "Springfield",
		},
	}
}

func TestService_Create(t *testing.T) {
	svc, _, _, outbox, timeline := newTestEnv()

	created, err := svc.Create(context.Background(), createInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if created.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", created.Status)
	}
	if created.PaymentMethod != domain.DefaultPaymentMethod {
		t.Fatalf("expected default payment method, got %s", created.PaymentMethod)
	}
	if !strings.HasPrefix(created.Number, "SO-") {
		t.Fatalf("unexpected order number: %s", created.Number)
	}

	// 2 * 100 + 18 = 218 за строку, плюс доставка 20 = 238.
	if len(created.Items) != 1 || created.Items[0].TotalMinor != 218 {
		t.Fatalf("unexpected items: %+v", created.Items)
	}
	if created.GrandTotalMinor != 238 {
		t.Fatalf("expected grand total 238, got %d", created.GrandTotalMinor)
	}
	if created.Items[0].Name != "Steel Bracket" || created.Items[0].UnitPriceMinor != 100 {
		t.Fatalf("expected catalog snapshot on item, got %+v", created.Items[0])
	}

	events, err := timeline.List(created.ID)
	if err != nil {
		t.Fatalf("timeline list failed: %v", err)
	}
	if len(events) != 1 || events[0].Type != domain.TimelinePlaced {
		t.Fatalf("expected single placed timeline event, got %+v", events)
	}
	if events[0].Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status on placed event, got %s", events[0].Status)
	}

	pending, err := outbox.PullPending(10)
	if err != nil {
		t.Fatalf("outbox pull failed: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != "order.created" {
		t.Fatalf("expected order.created outbox event, got %+v", pending)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, _, _, _, _ := newTestEnv()

	input := createInput()
	input.UserID = ""
	if _, err := svc.Create(context.Background(), input); !errors.Is(err, domain.ErrUserRequired) {
		t.Fatalf("expected user required, got %v", err)
	}

	input = createInput()
	input.Items = nil
	if _, err := svc.Create(context.Background(), input); !errors.Is(err, domain.ErrItemsRequired) {
		t.Fatalf("expected items required, got %v", err)
	}

	input = createInput()
	input.ShippingMinor = -1
	if _, err := svc.Create(context.Background(), input); !errors.Is(err, domain.ErrShippingNegative) {
		t.Fatalf("expected negative shipping error, got %v", err)
	}

	input = createInput()
	input.Items[0].Qty = 0
	if _, err := svc.Create(context.Background(), input); !errors.Is(err, domain.ErrItemQtyInvalid) {
		t.Fatalf("expected qty error, got %v", err)
	}
}

func TestService_Create_UnknownProduct(t *testing.T) {
	svc, _, _, _, _ := newTestEnv()

	input := createInput()
	input.Items[0].ProductID = "missing"
	if _, err := svc.Create(context.Background(), input); !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected product not found, got %v", err)
	}
}

func TestService_Create_RetriesNumberCollision(t *testing.T) {
	orders := &collidingOrderRepo{inner: memory.NewOrderRepository(), failures: 2}
	catalog := memory.NewProductCatalog()
	catalog.Put(domain.ProductSnapshot{ID: "product-1", Name: "Steel Bracket", UnitPriceMinor: 100})

	svc := order.NewService(orders, catalog, memory.NewTimelineRepository(), nil)

	created, err := svc.Create(context.Background(), createInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if orders.createCalls != 3 {
		t.Fatalf("expected 3 create attempts, got %d", orders.createCalls)
	}
	if created.Number == "" {
		t.Fatal("expected regenerated order number")
	}
}

func TestService_Create_NumberCollisionExhausted(t *testing.T) {
	orders := &collidingOrderRepo{inner: memory.NewOrderRepository(), failures: 10}
	catalog := memory.NewProductCatalog()
	catalog.Put(domain.ProductSnapshot{ID: "product-1", Name: "Steel Bracket", UnitPriceMinor: 100})

	svc := order.NewService(orders, catalog, nil, nil)

	_, err := svc.Create(context.Background(), createInput())
	if !errors.Is(err, domain.ErrDuplicateOrderNumber) {
		t.Fatalf("expected duplicate number error after retries, got %v", err)
	}
	if orders.createCalls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", orders.createCalls)
	}
}

func TestService_Create_NoEventWhenPersistFails(t *testing.T) {
	outbox := memory.NewOutboxRepository()
	orders := &collidingOrderRepo{inner: memory.NewOrderRepositoryWithOutbox(outbox), failures: 10}
	catalog := memory.NewProductCatalog()
	catalog.Put(domain.ProductSnapshot{ID: "product-1", Name: "Steel Bracket", UnitPriceMinor: 100})

	svc := order.NewService(orders, catalog, nil, nil)

	if _, err := svc.Create(context.Background(), createInput()); err == nil {
		t.Fatal("expected create to fail")
	}

	// Запись заказа не прошла — outbox обязан остаться пустым.
	pending, err := outbox.PullPending(10)
	if err != nil {
		t.Fatalf("outbox pull failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected empty outbox after failed persist, got %+v", pending)
	}
}

func TestService_Get_OwnerScope(t *testing.T) {
	svc, _, _, _, _ := newTestEnv()

	created, err := svc.Create(context.Background(), createInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Get(created.ID, "user-1"); err != nil {
		t.Fatalf("owner get failed: %v", err)
	}
	if _, err := svc.Get(created.ID, ""); err != nil {
		t.Fatalf("admin get failed: %v", err)
	}

	// Чужой заказ неотличим от отсутствующего.
	if _, err := svc.Get(created.ID, "user-2"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected not found for foreign owner, got %v", err)
	}
	if _, err := svc.GetByNumber(created.Number, "user-2"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected not found by number for foreign owner, got %v", err)
	}

	byNumber, err := svc.GetByNumber(created.Number, "user-1")
	if err != nil {
		t.Fatalf("get by number failed: %v", err)
	}
	if byNumber.ID != created.ID {
		t.Fatalf("expected id %s, got %s", created.ID, byNumber.ID)
	}
}

func TestService_Transition(t *testing.T) {
	svc, _, _, outbox, _ := newTestEnv()

	created, err := svc.Create(context.Background(), createInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	accepted, err := svc.Transition(created.ID, domain.OrderStatusAccepted, domain.StatusUpdate{})
	if err != nil {
		t.Fatalf("accept transition failed: %v", err)
	}
	if accepted.Status != domain.OrderStatusAccepted {
		t.Fatalf("expected accepted, got %s", accepted.Status)
	}

	dispatched, err := svc.Transition(created.ID, domain.OrderStatusDispatched, domain.StatusUpdate{
		TrackingID:  "TRK123",
		TrackingURL: "https://track.example.com/TRK123",
	})
	if err != nil {
		t.Fatalf("dispatch transition failed: %v", err)
	}
	if dispatched.Status != domain.OrderStatusDispatched || dispatched.TrackingID != "TRK123" {
		t.Fatalf("expected dispatched with tracking, got %+v", dispatched)
	}

	delivered, err := svc.Transition(created.ID, domain.OrderStatusDelivered, domain.StatusUpdate{})
	if err != nil {
		t.Fatalf("deliver transition failed: %v", err)
	}
	if delivered.Status != domain.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", delivered.Status)
	}

	// Терминальный статус не допускает дальнейших переходов.
	if _, err := svc.Transition(created.ID, domain.OrderStatusCanceled, domain.StatusUpdate{}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition from delivered, got %v", err)
	}

	pending, err := outbox.PullPending(10)
	if err != nil {
		t.Fatalf("outbox pull failed: %v", err)
	}
	// created + accepted + dispatched + delivered.
	if len(pending) != 4 {
		t.Fatalf("expected 4 outbox events, got %d", len(pending))
	}
}

func TestService_Transition_PendingToDispatched(t *testing.T) {
	svc, _, _, _, _ := newTestEnv()

	created, err := svc.Create(context.Background(), createInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	dispatched, err := svc.Transition(created.ID, domain.OrderStatusDispatched, domain.StatusUpdate{
		TrackingID: "TRK123",
	})
	if err != nil {
		t.Fatalf("pending -> dispatched failed: %v", err)
	}
	if dispatched.Status != domain.OrderStatusDispatched || dispatched.TrackingID != "TRK123" {
		t.Fatalf("expected dispatched with TRK123, got %+v", dispatched)
	}
}

func TestService_Transition_Cancel(t *testing.T) {
	svc, _, _, _, timeline := newTestEnv()

	created, err := svc.Create(context.Background(), createInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	canceled, err := svc.Transition(created.ID, domain.OrderStatusCanceled, domain.StatusUpdate{
		CancelReason: "customer request",
	})
	if err != nil {
		t.Fatalf("cancel transition failed: %v", err)
	}
	if canceled.Status != domain.OrderStatusCanceled || canceled.CancelReason != "customer request" {
		t.Fatalf("expected canceled with reason, got %+v", canceled)
	}

	events, err := timeline.List(created.ID)
	if err != nil {
		t.Fatalf("timeline list failed: %v", err)
	}
	if len(events) != 2 || events[1].Reason != "customer request" {
		t.Fatalf("expected cancel reason in timeline, got %+v", events)
	}

	if _, err := svc.Transition(created.ID, domain.OrderStatusAccepted, domain.StatusUpdate{}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition from canceled, got %v", err)
	}
}

func TestService_Transition_RejectsMismatchedFields(t *testing.T) {
	svc, _, orders, _, _ := newTestEnv()

	created, err := svc.Create(context.Background(), createInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Причина отмены не относится к accepted.
	if _, err := svc.Transition(created.ID, domain.OrderStatusAccepted, domain.StatusUpdate{
		CancelReason: "changed my mind",
	}); !errors.Is(err, domain.ErrStatusUpdateMismatch) {
		t.Fatalf("expected status update mismatch, got %v", err)
	}

	// Трек-данные принимает только dispatched.
	if _, err := svc.Transition(created.ID, domain.OrderStatusAccepted, domain.StatusUpdate{
		TrackingID: "TRK999",
	}); !errors.Is(err, domain.ErrStatusUpdateMismatch) {
		t.Fatalf("expected status update mismatch for tracking, got %v", err)
	}
	if _, err := svc.Transition(created.ID, domain.OrderStatusCanceled, domain.StatusUpdate{
		TrackingURL: "https://track.example.com/TRK999",
	}); !errors.Is(err, domain.ErrStatusUpdateMismatch) {
		t.Fatalf("expected status update mismatch for tracking url, got %v", err)
	}

	// Отклонённый переход не меняет заказ.
	stored, err := orders.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored.Status != domain.OrderStatusPending || stored.CancelReason != "" || stored.TrackingID != "" {
		t.Fatalf("expected untouched pending order, got %+v", stored)
	}
}

func TestService_Transition_InvalidTarget(t *testing.T) {
	svc, _, _, _, _ := newTestEnv()

	created, err := svc.Create(context.Background(), createInput())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := svc.Transition(created.ID, domain.OrderStatus("shipped"), domain.StatusUpdate{}); !errors.Is(err, domain.ErrStatusInvalid) {
		t.Fatalf("expected invalid status error, got %v", err)
	}

	if _, err := svc.Transition("missing", domain.OrderStatusAccepted, domain.StatusUpdate{}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestService_List(t *testing.T) {
	svc, _, _, _, _ := newTestEnv()

	if _, err := svc.Create(context.Background(), createInput()); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	other := createInput()
	other.UserID = "user-2"
	if _, err := svc.Create(context.Background(), other); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	all, err := svc.List(domain.ListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(all))
	}

	mine, err := svc.List(domain.ListFilter{UserID: "user-2"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 order, got %d", len(mine))
	}
}

// collidingOrderRepo имитирует коллизии уникального индекса номера заказа.
type collidingOrderRepo struct {
	inner       domain.OrderRepository
	failures    int
	createCalls int
}

func (r *collidingOrderRepo) Create(o domain.Order, events ...domain.OutboxMessage) error {
	r.createCalls++
	if r.createCalls <= r.failures {
		return domain.ErrDuplicateOrderNumber
	}
	return r.inner.Create(o, events...)
}

func (r *collidingOrderRepo) GetByID(id string) (domain.Order, error) {
	return r.inner.GetByID(id)
}

func (r *collidingOrderRepo) GetByNumber(number string) (domain.Order, error) {
	return r.inner.GetByNumber(number)
}

func (r *collidingOrderRepo) List(filter domain.ListFilter) ([]domain.Order, error) {
	return r.inner.List(filter)
}

func (r *collidingOrderRepo) TransitionStatus(id string, from, to domain.OrderStatus, update domain.StatusUpdate, events ...domain.OutboxMessage) (domain.Order, error) {
	return r.inner.TransitionStatus(id, from, to, update, events...)
}

var _ domain.OrderRepository = (*collidingOrderRepo)(nil)
