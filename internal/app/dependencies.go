package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/storage/memory"
	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

var errPostgresDSNRequired = errors.New("postgres storage driver requires STOREFRONT_POSTGRES_DSN")

// Dependencies содержит хранилища приложения. Store не nil только при
// postgres-драйвере.
type Dependencies struct {
	Orders      domain.OrderRepository
	Outbox      domain.OutboxRepository
	Timeline    domain.TimelineRepository
	Idempotency domain.IdempotencyRepository
	Catalog     domain.ProductCatalog
	Store       *postgres.Store
	Logger      *log.Entry
}

// newDependencies собирает хранилища по выбранному драйверу.
func newDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*Dependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		// Репозиторий заказов делит outbox с воркером, чтобы события
		// записывались вместе с заказом, как в postgres-транзакции.
		outbox := memory.NewOutboxRepository()
		return &Dependencies{
			Orders:      memory.NewOrderRepositoryWithOutbox(outbox),
			Outbox:      outbox,
			Timeline:    memory.NewTimelineRepository(),
			Idempotency: memory.NewIdempotencyRepository(),
			Catalog:     memory.NewProductCatalog(),
			Logger:      logger,
		}, nil
	case StorageDriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errPostgresDSNRequired
		}

		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}

		return &Dependencies{
			Orders:      postgres.NewOrderRepository(store),
			Outbox:      postgres.NewOutboxRepository(store),
			Timeline:    postgres.NewTimelineRepository(store),
			Idempotency: postgres.NewIdempotencyRepository(store),
			Catalog:     postgres.NewProductRepository(store),
			Store:       store,
			Logger:      logger,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.StorageDriver)
	}
}

// Close освобождает ресурсы хранилища.
func (d *Dependencies) Close() {
	if d.Store == nil {
		return
	}
	if err := d.Store.Close(); err != nil {
		d.Logger.WithError(err).Warn("failed to close postgres store")
	}
}
