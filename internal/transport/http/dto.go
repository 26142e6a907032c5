package http

import (
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// CreateOrderItemRequest — позиция заказа в запросе на создание.
type CreateOrderItemRequest struct {
	ProductID      string `json:"product_id"`
	Qty            int32  `json:"qty"`
	TaxAmountMinor int64  `json:"tax_amount_minor"`
}

// CreateOrderRequest — тело POST /api/v1/orders. Денежные поля в
// минимальных единицах валюты.
type CreateOrderRequest struct {
	Items           []CreateOrderItemRequest `json:"items"`
	ShippingMinor   int64                    `json:"shipping_minor"`
	ShippingAddress domain.ShippingAddress   `json:"shipping_address"`
	PaymentMethod   string                   `json:"payment_method,omitempty"`
}

// UpdateStatusRequest — тело PATCH /api/v1/orders/{number}/status.
type UpdateStatusRequest struct {
	Status       string `json:"status"`
	TrackingID   string `json:"tracking_id,omitempty"`
	TrackingURL  string `json:"tracking_url,omitempty"`
	CancelReason string `json:"cancel_reason,omitempty"`
}

// OrderItemResponse — позиция заказа в ответе.
type OrderItemResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	TaxRateBps     int32  `json:"tax_rate_bps"`
	TaxType        string `json:"tax_type,omitempty"`
	Image          string `json:"image,omitempty"`
	TaxAmountMinor int64  `json:"tax_amount_minor"`
	Qty            int32  `json:"qty"`
	TotalMinor     int64  `json:"total_minor"`
}

// OrderResponse — представление заказа в API.
type OrderResponse struct {
	ID              string                 `json:"id"`
	Number          string                 `json:"number"`
	UserID          string                 `json:"user_id"`
	Status          string                 `json:"status"`
	Items           []OrderItemResponse    `json:"items"`
	GrandTotalMinor int64                  `json:"grand_total_minor"`
	ShippingMinor   int64                  `json:"shipping_minor"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	TrackingID      string                 `json:"tracking_id,omitempty"`
	TrackingURL     string                 `json:"tracking_url,omitempty"`
	CancelReason    string                 `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// TimelineEventResponse — событие жизненного цикла заказа.
type TimelineEventResponse struct {
	Type     string    `json:"type"`
	Status   string    `json:"status,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

// ErrorResponse — унифицированный формат ошибок API.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func mapOrderToResponse(order domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(order.Items))
	for i, item := range order.Items {
		items[i] = OrderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceMinor: item.UnitPriceMinor,
			TaxRateBps:     item.TaxRateBps,
			TaxType:        item.TaxType,
			Image:          item.Image,
			TaxAmountMinor: item.TaxAmountMinor,
			Qty:            item.Qty,
			TotalMinor:     item.TotalMinor,
		}
	}

	return OrderResponse{
		ID:              order.ID,
		Number:          order.Number,
		UserID:          order.UserID,
		Status:          string(order.Status),
		Items:           items,
		GrandTotalMinor: order.GrandTotalMinor,
		ShippingMinor:   order.ShippingMinor,
		ShippingAddress: order.ShippingAddress,
		PaymentMethod:   order.PaymentMethod,
		TrackingID:      order.TrackingID,
		TrackingURL:     order.TrackingURL,
		CancelReason:    order.CancelReason,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

func mapTimelineToResponse(events []domain.TimelineEvent) []TimelineEventResponse {
	out := make([]TimelineEventResponse, len(events))
	for i, event := range events {
		out[i] = TimelineEventResponse{
			Type:     string(event.Type),
			Status:   string(event.Status),
			Reason:   event.Reason,
			Occurred: event.Occurred,
		}
	}
	return out
}
