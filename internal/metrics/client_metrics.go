package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты обращения к шлюзу для метрики storefront_gateway_requests_total.
const (
	GatewayResultCacheHit   = "cache_hit"
	GatewayResultDedup      = "dedup_join"
	GatewayResultSent       = "sent"
	GatewayResultFailed     = "failed"
	GatewayResultAborted    = "aborted"
	GatewayResultSuperseded = "superseded"
)

// GatewayMetrics содержит метрики сетевого шлюза.
type GatewayMetrics struct {
	requests     *prometheus.CounterVec
	cacheEntries prometheus.Gauge
	inflight     prometheus.Gauge
	duration     prometheus.Histogram
}

// NewGatewayMetrics создаёт метрики шлюза в default registry.
func NewGatewayMetrics() *GatewayMetrics {
	return newGatewayMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newGatewayMetricsWithRegisterer(registerer prometheus.Registerer) *GatewayMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &GatewayMetrics{
		requests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_gateway_requests_total",
			Help: "Total number of gateway requests grouped by result",
		}, []string{"result"}),
		cacheEntries: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_gateway_cache_entries",
			Help: "Current number of live TTL cache entries in the gateway",
		}),
		inflight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_gateway_inflight_requests",
			Help: "Number of currently in-flight gateway requests",
		}),
		duration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "storefront_gateway_request_duration_seconds",
			Help:    "Duration of network round-trips issued by the gateway",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordRequest увеличивает счётчик обращений с данным результатом.
func (m *GatewayMetrics) RecordRequest(result string) {
	m.requests.WithLabelValues(result).Inc()
}

// SetCacheEntries выставляет текущий размер TTL-кэша.
func (m *GatewayMetrics) SetCacheEntries(n int) {
	m.cacheEntries.Set(float64(n))
}

// RecordFlightStarted увеличивает количество активных запросов.
func (m *GatewayMetrics) RecordFlightStarted() {
	m.inflight.Inc()
}

// RecordFlightFinished уменьшает количество активных запросов.
func (m *GatewayMetrics) RecordFlightFinished() {
	m.inflight.Dec()
}

// RecordDuration записывает время сетевого round-trip.
func (m *GatewayMetrics) RecordDuration(duration time.Duration) {
	m.duration.Observe(duration.Seconds())
}

// Результаты оптимистичных операций для storefront_optimistic_operations_total.
const (
	OperationCommitted  = "committed"
	OperationRolledBack = "rolled_back"
	OperationRejected   = "rejected"
)

// CoordinatorMetrics содержит метрики оптимистичных операций координаторов.
type CoordinatorMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewCoordinatorMetrics создаёт метрики координаторов в default registry.
func NewCoordinatorMetrics() *CoordinatorMetrics {
	return newCoordinatorMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCoordinatorMetricsWithRegisterer(registerer prometheus.Registerer) *CoordinatorMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CoordinatorMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_optimistic_operations_total",
			Help: "Total number of optimistic operations grouped by operation and outcome",
		}, []string{"operation", "result"}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_optimistic_operation_duration_seconds",
			Help:    "Duration of optimistic operations including the confirming network call",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
	}
}

// RecordOperation фиксирует исход оптимистичной операции.
func (m *CoordinatorMetrics) RecordOperation(operation, result string) {
	m.operations.WithLabelValues(operation, result).Inc()
}

// RecordOperationDuration записывает длительность операции.
func (m *CoordinatorMetrics) RecordOperationDuration(operation string, duration time.Duration) {
	m.duration.WithLabelValues(operation).Observe(duration.Seconds())
}

// Результаты polling-циклов для storefront_sync_runs_total.
const (
	SyncResultOK     = "ok"
	SyncResultFailed = "failed"
)

// SyncMetrics содержит метрики фонового синхронизатора.
type SyncMetrics struct {
	runs     *prometheus.CounterVec
	interval prometheus.Gauge
}

// NewSyncMetrics создаёт метрики синхронизатора в default registry.
func NewSyncMetrics() *SyncMetrics {
	return newSyncMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newSyncMetricsWithRegisterer(registerer prometheus.Registerer) *SyncMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SyncMetrics{
		runs: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_sync_runs_total",
			Help: "Total number of polling synchronizer runs grouped by result",
		}, []string{"result"}),
		interval: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "storefront_sync_interval_seconds",
			Help: "Currently selected polling interval",
		}),
	}
}

// RecordRun фиксирует исход одного polling-цикла.
func (m *SyncMetrics) RecordRun(result string) {
	m.runs.WithLabelValues(result).Inc()
}

// SetInterval выставляет текущий интервал опроса.
func (m *SyncMetrics) SetInterval(interval time.Duration) {
	m.interval.Set(interval.Seconds())
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

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
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

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
