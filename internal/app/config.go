package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Драйверы хранилища заказов.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска приложения. Все поля
// переопределяются переменными окружения с префиксом STOREFRONT_.
type Config struct {
	HTTPAddr    string
	MetricsAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	KafkaBrokers string

	RedisAddr       string
	ProductCacheTTL time.Duration

	JWTSecret string

	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
	OutboxMaxAttempts    int
	OutboxRetryBaseDelay time.Duration

	IdempotencyCleanupInterval time.Duration
	IdempotencyCleanupBatch    int
}

// DefaultConfig возвращает базовые настройки для локального запуска:
// in-memory хранилище, без Kafka и Redis.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:    ":8080",
		MetricsAddr: ":9090",

		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,

		ProductCacheTTL: 5 * time.Minute,

		OutboxPollInterval:   time.Second,
		OutboxBatchSize:      100,
		OutboxMaxAttempts:    5,
		OutboxRetryBaseDelay: 100 * time.Millisecond,

		IdempotencyCleanupInterval: time.Hour,
		IdempotencyCleanupBatch:    500,
	}
}

// ReadConfig читает конфигурацию из переменных окружения поверх значений
// по умолчанию.
func ReadConfig() Config {
	cfg := DefaultConfig()

	cfg.HTTPAddr = envString("STOREFRONT_HTTP_ADDR", cfg.HTTPAddr)
	cfg.MetricsAddr = envString("STOREFRONT_METRICS_ADDR", cfg.MetricsAddr)

	cfg.StorageDriver = envString("STOREFRONT_STORAGE_DRIVER", cfg.StorageDriver)
	cfg.PostgresDSN = envString("STOREFRONT_POSTGRES_DSN", cfg.PostgresDSN)
	cfg.PostgresAutoMigrate = envBool("STOREFRONT_POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate)

	cfg.KafkaBrokers = envString("STOREFRONT_KAFKA_BROKERS", cfg.KafkaBrokers)

	cfg.RedisAddr = envString("STOREFRONT_REDIS_ADDR", cfg.RedisAddr)
	cfg.ProductCacheTTL = envDuration("STOREFRONT_PRODUCT_CACHE_TTL", cfg.ProductCacheTTL)

	cfg.JWTSecret = envString("STOREFRONT_JWT_SECRET", cfg.JWTSecret)

	cfg.OutboxPollInterval = envDuration("STOREFRONT_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval)
	cfg.OutboxBatchSize = envInt("STOREFRONT_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxAttempts = envInt("STOREFRONT_OUTBOX_MAX_ATTEMPTS", cfg.OutboxMaxAttempts)
	cfg.OutboxRetryBaseDelay = envDuration("STOREFRONT_OUTBOX_RETRY_BASE_DELAY", cfg.OutboxRetryBaseDelay)

	cfg.IdempotencyCleanupInterval = envDuration("STOREFRONT_IDEMPOTENCY_CLEANUP_INTERVAL", cfg.IdempotencyCleanupInterval)
	cfg.IdempotencyCleanupBatch = envInt("STOREFRONT_IDEMPOTENCY_CLEANUP_BATCH", cfg.IdempotencyCleanupBatch)

	return cfg
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
