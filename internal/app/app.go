package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/cache"
	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	idemsvc "github.com/vladislavdragonenkov/storefront/internal/service/idempotency"
	"github.com/vladislavdragonenkov/storefront/internal/service/order"
	outboxsvc "github.com/vladislavdragonenkov/storefront/internal/service/outbox"
	transporthttp "github.com/vladislavdragonenkov/storefront/internal/transport/http"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

var errJWTSecretRequired = errors.New("STOREFRONT_JWT_SECRET is required")

// Run собирает зависимости и запускает REST API, сервер метрик и
// фоновые воркеры. Блокируется до отмены контекста или ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	if cfg.JWTSecret == "" {
		return errJWTSecretRequired
	}

	deps, err := newDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	// Kafka опционален: без брокеров события копятся в outbox.
	msging, _ := initMessaging(cfg.KafkaBrokers, logger)
	defer msging.close(logger)

	catalog := deps.Catalog
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		catalog = cache.NewProductCache(redisClient, catalog, cfg.ProductCacheTTL)
		logger.WithField("addr", cfg.RedisAddr).Info("product cache enabled")
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.WithError(err).Warn("failed to close redis client")
			}
		}()
	}

	orderMetrics := metrics.NewOrderMetrics()
	orderService := order.NewService(deps.Orders, catalog, deps.Timeline, orderMetrics)

	if msging.enabled() {
		worker := outboxsvc.NewWorker(deps.Outbox, msging.events,
			outboxsvc.WithLogger(logger.WithField("component", "outbox-worker")),
			outboxsvc.WithDLQPublisher(msging.dlq),
			outboxsvc.WithPollInterval(cfg.OutboxPollInterval),
			outboxsvc.WithBatchSize(cfg.OutboxBatchSize),
			outboxsvc.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outboxsvc.WithRetryBaseDelay(cfg.OutboxRetryBaseDelay),
		)
		go worker.Run(ctx)
	}

	cleanupWorker := idemsvc.NewCleanupWorker(deps.Idempotency,
		idemsvc.WithLogger(logger.WithField("component", "idempotency-cleanup")),
		idemsvc.WithInterval(cfg.IdempotencyCleanupInterval),
		idemsvc.WithBatchSize(cfg.IdempotencyCleanupBatch),
	)
	go cleanupWorker.Run(ctx)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.Store != nil {
		store := deps.Store
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		}))
	}
	if redisClient != nil {
		client := redisClient
		healthHandler.RegisterChecker("redis", healthcheck.NewSimpleChecker("redis", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx).Err()
		}))
	}
	if msging.enabled() {
		producer := msging.producer
		healthHandler.RegisterChecker("kafka", healthcheck.NewSimpleChecker("kafka", func() error {
			return producer.HealthCheck()
		}))
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	handler := transporthttp.NewHandler(orderService, deps.Idempotency)
	router := transporthttp.NewRouter(handler, []byte(cfg.JWTSecret))
	apiSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("REST API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP гасит сервер с таймаутом, давая активным запросам завершиться.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
