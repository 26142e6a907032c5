package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики жизненного цикла заказов.
type OrderMetrics struct {
	// Счётчики операций
	ordersCreated      prometheus.Counter
	ordersCanceled     prometheus.Counter
	orderNumberRetries prometheus.Counter

	// Переходы статуса по целевому статусу
	statusTransitions *prometheus.CounterVec

	// Гистограммы времени выполнения
	createDuration prometheus.Histogram

	// Счётчики событий timeline и outbox
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewOrderMetrics создаёт новый экземпляр метрик заказов.
func NewOrderMetrics() *OrderMetrics {
	return newOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersCanceled: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_orders_canceled_total",
			Help: "Total number of orders canceled",
		}),
		orderNumberRetries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_order_number_retries_total",
			Help: "Total number of retries caused by order number collisions",
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_status_transitions_total",
			Help: "Total number of order status transitions by target status",
		}, []string{"to"}),
		createDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_order_create_duration_seconds",
			Help:    "Duration of order creation in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_outbox_events_total",
			Help: "Total number of outbox events published",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *OrderMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordOrderCanceled увеличивает счётчик отменённых заказов.
func (m *OrderMetrics) RecordOrderCanceled() {
	m.ordersCanceled.Inc()
}

// RecordNumberRetry увеличивает счётчик коллизий номера заказа.
func (m *OrderMetrics) RecordNumberRetry() {
	m.orderNumberRetries.Inc()
}

// RecordStatusTransition увеличивает счётчик переходов в целевой статус.
func (m *OrderMetrics) RecordStatusTransition(to string) {
	m.statusTransitions.WithLabelValues(to).Inc()
}

// RecordCreateDuration записывает время создания заказа.
func (m *OrderMetrics) RecordCreateDuration(duration time.Duration) {
	m.createDuration.Observe(duration.Seconds())
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *OrderMetrics) RecordTimelineEvent() {
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик опубликованных outbox-событий.
func (m *OrderMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
