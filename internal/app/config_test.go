package app

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("expected http addr :8080, got %s", cfg.HTTPAddr)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("expected metrics addr :9090, got %s", cfg.MetricsAddr)
	}
	if cfg.StorageDriver != StorageDriverMemory {
		t.Errorf("expected memory driver, got %s", cfg.StorageDriver)
	}
	if !cfg.PostgresAutoMigrate {
		t.Error("expected auto migrate enabled by default")
	}
	if cfg.OutboxBatchSize != 100 || cfg.OutboxMaxAttempts != 5 {
		t.Errorf("unexpected outbox defaults: %+v", cfg)
	}
}

func TestReadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("STOREFRONT_HTTP_ADDR", ":18080")
	t.Setenv("STOREFRONT_STORAGE_DRIVER", StorageDriverPostgres)
	t.Setenv("STOREFRONT_POSTGRES_DSN", "postgres://localhost/storefront")
	t.Setenv("STOREFRONT_POSTGRES_AUTO_MIGRATE", "false")
	t.Setenv("STOREFRONT_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("STOREFRONT_PRODUCT_CACHE_TTL", "30s")
	t.Setenv("STOREFRONT_OUTBOX_BATCH_SIZE", "25")
	t.Setenv("STOREFRONT_JWT_SECRET", "super-secret")

	cfg := ReadConfig()

	if cfg.HTTPAddr != ":18080" {
		t.Errorf("expected overridden http addr, got %s", cfg.HTTPAddr)
	}
	if cfg.StorageDriver != StorageDriverPostgres {
		t.Errorf("expected postgres driver, got %s", cfg.StorageDriver)
	}
	if cfg.PostgresDSN != "postgres://localhost/storefront" {
		t.Errorf("unexpected dsn: %s", cfg.PostgresDSN)
	}
	if cfg.PostgresAutoMigrate {
		t.Error("expected auto migrate disabled")
	}
	if cfg.KafkaBrokers != "kafka-1:9092,kafka-2:9092" {
		t.Errorf("unexpected brokers: %s", cfg.KafkaBrokers)
	}
	if cfg.ProductCacheTTL != 30*time.Second {
		t.Errorf("expected 30s cache ttl, got %s", cfg.ProductCacheTTL)
	}
	if cfg.OutboxBatchSize != 25 {
		t.Errorf("expected batch size 25, got %d", cfg.OutboxBatchSize)
	}
	if cfg.JWTSecret != "super-secret" {
		t.Errorf("unexpected jwt secret: %s", cfg.JWTSecret)
	}
}

func TestReadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("STOREFRONT_OUTBOX_BATCH_SIZE", "not-a-number")
	t.Setenv("STOREFRONT_PRODUCT_CACHE_TTL", "-5s")
	t.Setenv("STOREFRONT_POSTGRES_AUTO_MIGRATE", "maybe")

	cfg := ReadConfig()
	defaults := DefaultConfig()

	if cfg.OutboxBatchSize != defaults.OutboxBatchSize {
		t.Errorf("expected default batch size, got %d", cfg.OutboxBatchSize)
	}
	if cfg.ProductCacheTTL != defaults.ProductCacheTTL {
		t.Errorf("expected default cache ttl, got %s", cfg.ProductCacheTTL)
	}
	if cfg.PostgresAutoMigrate != defaults.PostgresAutoMigrate {
		t.Error("expected default auto migrate flag")
	}
}
