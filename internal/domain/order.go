package domain

import "time"

// OrderStatus описывает жизненный цикл заказа витрины.
type OrderStatus string

const (
	// OrderStatusPending — заказ оформлен на чекауте, но ещё не принят в работу.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusAccepted — заказ подтверждён администратором.
	OrderStatusAccepted OrderStatus = "accepted"
	// OrderStatusDispatched — заказ передан в доставку, заполнены tracking-поля.
	OrderStatusDispatched OrderStatus = "dispatched"
	// OrderStatusDelivered — заказ получен клиентом; терминальный статус.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCanceled — заказ отменён до доставки; терминальный статус.
	OrderStatusCanceled OrderStatus = "canceled"
)

// Valid сообщает, входит ли статус в известный набор.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAccepted, OrderStatusDispatched,
		OrderStatusDelivered, OrderStatusCanceled:
		return true
	default:
		return false
	}
}

// Terminal сообщает, допускает ли статус дальнейшие переходы.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// statusTransitions — явная таблица разрешённых переходов.
// Статус движется только вперёд по цепочке pending → accepted →
// dispatched → delivered; промежуточные шаги можно пропускать.
// Отмена доступна из любого нетерминального статуса.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusAccepted, OrderStatusDispatched, OrderStatusDelivered, OrderStatusCanceled},
	OrderStatusAccepted:   {OrderStatusDispatched, OrderStatusDelivered, OrderStatusCanceled},
	OrderStatusDispatched: {OrderStatusDelivered, OrderStatusCanceled},
	OrderStatusDelivered:  {},
	OrderStatusCanceled:   {},
}

// CanTransitionTo проверяет переход по таблице. Переход в тот же статус
// переходом не считается.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ShippingAddress — вложенная запись адреса доставки. Все поля опциональны
// на уровне схемы: их полноту контролирует чекаут-фронтенд.
type ShippingAddress struct {
	RecipientName string `json:"recipient_name,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Address       string `json:"address,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	PostalCode    string `json:"postal_code,omitempty"`
	Company       string `json:"company,omitempty"`
	TaxID         string `json:"tax_id,omitempty"`
	AltPhone      string `json:"alt_phone,omitempty"`
}

// OrderItem — снапшот одной товарной позиции на момент оформления заказа.
// Последующие изменения товара в каталоге исторические заказы не затрагивают.
type OrderItem struct {
	// ID позиции — для аудита и ссылок из событий.
	ID string
	// ProductID — ссылка на товар каталога.
	ProductID string
	// Name — название товара на момент оформления.
	Name string
	// UnitPriceMinor — цена за единицу в минимальных денежных единицах.
	UnitPriceMinor int64
	// TaxRateBps — ставка налога в базисных пунктах (1800 = 18%).
	TaxRateBps int32
	// TaxType — тип налога, свободная строка из каталога.
	TaxType string
	// Image — ссылка на основное изображение товара.
	Image string
	// TaxAmountMinor — сумма налога по строке от вышестоящего прайсинга.
	TaxAmountMinor int64
	// Qty — число единиц в позиции.
	Qty int32
	// TotalMinor — итог строки: unit_price * qty + tax_amount.
	TotalMinor int64
	// CreatedAt фиксирует момент снапшота.
	CreatedAt time.Time
}

// DefaultPaymentMethod подставляется, когда чекаут не передал способ оплаты.
const DefaultPaymentMethod = "cash_on_delivery"

// Order — заказ с позициями и снапшотом данных доставки.
type Order struct {
	ID              string
	Number          string
	UserID          string
	Status          OrderStatus
	Items           []OrderItem
	GrandTotalMinor int64
	ShippingMinor   int64
	ShippingAddress ShippingAddress
	PaymentMethod   string
	TrackingID      string
	TrackingURL     string
	CancelReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ValidateInvariants проверяет инварианты заказа, включая арифметику сумм,
// и возвращает все найденные нарушения.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.UserID == "" {
		errs = append(errs, ErrUserRequired)
	}
	if o.Number == "" {
		errs = append(errs, ErrNumberRequired)
	}
	if len(o.Items) == 0 {
		errs = append(errs, ErrItemsRequired)
	}
	if o.ShippingMinor < 0 {
		errs = append(errs, ErrShippingNegative)
	}
	if o.GrandTotalMinor < 0 {
		errs = append(errs, ErrGrandTotalNegative)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrStatusInvalid)
	}

	// Сверяем итог заказа с суммой строк и доставкой.
	var calc int64
	for _, item := range o.Items {
		if item.ProductID == "" {
			errs = append(errs, ErrItemProductRequired)
		}
		if item.Qty <= 0 {
			errs = append(errs, ErrItemQtyInvalid)
		}
		if item.UnitPriceMinor < 0 {
			errs = append(errs, ErrItemPriceInvalid)
		}
		if item.TaxAmountMinor < 0 {
			errs = append(errs, ErrItemTaxInvalid)
		}
		if item.TotalMinor != int64(item.Qty)*item.UnitPriceMinor+item.TaxAmountMinor {
			errs = append(errs, ErrItemTotalMismatch)
		}
		calc += item.TotalMinor
	}
	if calc+o.ShippingMinor != o.GrandTotalMinor {
		errs = append(errs, ErrGrandTotalMismatch)
	}

	return errs
}

// StatusUpdate — вспомогательные поля перехода статуса: tracking при
// dispatched, причина при canceled. Пустые значения не затирают сохранённые.
type StatusUpdate struct {
	TrackingID   string
	TrackingURL  string
	CancelReason string
}
