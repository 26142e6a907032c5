package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductCatalog.
func NewProductRepository(store *Store) domain.ProductCatalog {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Lookup(ctx context.Context, productID string) (domain.ProductSnapshot, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var snapshot domain.ProductSnapshot
	err := r.db.QueryRowContext(queryCtx, `
		SELECT id, name, unit_price_minor, tax_rate_bps, tax_type, image
		FROM products
		WHERE id = $1
	`, productID).Scan(
		&snapshot.ID,
		&snapshot.Name,
		&snapshot.UnitPriceMinor,
		&snapshot.TaxRateBps,
		&snapshot.TaxType,
		&snapshot.Image,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ProductSnapshot{}, domain.ErrProductNotFound
		}
		return domain.ProductSnapshot{}, fmt.Errorf("select product: %w", err)
	}

	return snapshot, nil
}

var _ domain.ProductCatalog = (*productRepository)(nil)
