package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ProductCatalog — каталог товаров в памяти для разработки и тестов.
type ProductCatalog struct {
	mu    sync.RWMutex
	items map[string]domain.ProductSnapshot
}

// NewProductCatalog создаёт пустой in-memory каталог.
func NewProductCatalog() *ProductCatalog {
	return &ProductCatalog{items: make(map[string]domain.ProductSnapshot)}
}

// Put добавляет или заменяет товар в каталоге.
func (c *ProductCatalog) Put(snapshot domain.ProductSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[snapshot.ID] = snapshot
}

// Lookup возвращает товар или ErrProductNotFound.
func (c *ProductCatalog) Lookup(_ context.Context, productID string) (domain.ProductSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot, ok := c.items[productID]
	if !ok {
		return domain.ProductSnapshot{}, domain.ErrProductNotFound
	}
	return snapshot, nil
}

var _ domain.ProductCatalog = (*ProductCatalog)(nil)
