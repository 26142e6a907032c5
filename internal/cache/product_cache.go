package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const defaultProductTTL = 5 * time.Minute

// ProductCache — read-through кэш снапшотов каталога поверх ProductCatalog.
// Ошибки Redis не фатальны: промах кэша всегда уходит в источник.
type ProductCache struct {
	client *redis.Client
	next   domain.ProductCatalog
	ttl    time.Duration
	logger *log.Entry
}

// NewProductCache создаёт кэширующий декоратор каталога продуктов.
func NewProductCache(client *redis.Client, next domain.ProductCatalog, ttl time.Duration) *ProductCache {
	if ttl <= 0 {
		ttl = defaultProductTTL
	}
	return &ProductCache{
		client: client,
		next:   next,
		ttl:    ttl,
		logger: log.WithField("component", "product-cache"),
	}
}

func (c *ProductCache) Lookup(ctx context.Context, productID string) (domain.ProductSnapshot, error) {
	if c.client == nil {
		return c.next.Lookup(ctx, productID)
	}

	key := c.cacheKey(productID)

	raw, err := c.client.Get(ctx, key).Result()
	if err == nil && raw != "" {
		var snapshot domain.ProductSnapshot
		if unmarshalErr := json.Unmarshal([]byte(raw), &snapshot); unmarshalErr == nil {
			return snapshot, nil
		}
		// Битая запись в кэше — перечитываем из источника.
		c.logger.WithField("key", key).Warn("invalid cached product snapshot, refreshing")
	} else if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.WithError(err).WithField("key", key).Warn("product cache read failed")
	}

	snapshot, err := c.next.Lookup(ctx, productID)
	if err != nil {
		return domain.ProductSnapshot{}, err
	}

	if encoded, marshalErr := json.Marshal(snapshot); marshalErr == nil {
		if setErr := c.client.Set(ctx, key, encoded, c.ttl).Err(); setErr != nil {
			c.logger.WithError(setErr).WithField("key", key).Warn("product cache write failed")
		}
	}

	return snapshot, nil
}

func (c *ProductCache) cacheKey(productID string) string {
	return fmt.Sprintf("storefront:product:%s", productID)
}

var _ domain.ProductCatalog = (*ProductCache)(nil)
