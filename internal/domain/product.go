package domain

import "context"

// ProductSnapshot — текущее состояние товара каталога, из которого
// строится снапшот позиции заказа на чекауте.
type ProductSnapshot struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	UnitPriceMinor int64  `json:"unit_price_minor"`
	TaxRateBps     int32  `json:"tax_rate_bps"`
	TaxType        string `json:"tax_type"`
	Image          string `json:"image"`
}

// ProductCatalog отдаёт текущие данные товара. Используется только при
// создании заказа; дальше позиции живут как снапшоты.
type ProductCatalog interface {
	// Lookup возвращает товар по идентификатору или ErrProductNotFound.
	Lookup(ctx context.Context, productID string) (ProductSnapshot, error)
}
