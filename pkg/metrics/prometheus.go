// Package metrics provides Prometheus metrics for the intake service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the intake service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Input recorder
	inputsStored      *prometheus.CounterVec
	inputsRejected    *prometheus.CounterVec
	inputStoreErrors  *prometheus.CounterVec
	inputStoreLatency *prometheus.HistogramVec
	storedInputs      prometheus.Gauge

	// Provider lookup
	providerLookups    *prometheus.CounterVec
	providerMatches    prometheus.Histogram
	catalogReadErrors  *prometheus.CounterVec
	catalogReadLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fixit",
		subsystem:        "intake",
		histogramBuckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	m.inputsStored = m.counterVec("inputs_stored_total",
		"Total number of inputs appended to the input store", "backend")
	m.inputsRejected = m.counterVec("inputs_rejected_total",
		"Total number of store_input requests rejected before storage", "reason")
	m.inputStoreErrors = m.counterVec("input_store_errors_total",
		"Total number of input store failures", "backend", "operation")
	m.inputStoreLatency = m.histogramVec("input_store_latency_milliseconds",
		"Input store operation latency in milliseconds", "backend", "operation")
	m.storedInputs = m.gauge("stored_inputs",
		"Number of records currently held by the input store")

	m.providerLookups = m.counterVec("provider_lookups_total",
		"Total number of provider lookups by outcome", "outcome")
	m.providerMatches = m.histogram("provider_matches",
		"Number of providers returned per lookup", []float64{0, 1, 2, 5, 10, 25, 50, 100, 250})
	m.catalogReadErrors = m.counterVec("catalog_read_errors_total",
		"Total number of provider catalog read failures", "stage")
	m.catalogReadLatency = m.histogram("catalog_read_latency_milliseconds",
		"Provider catalog read latency in milliseconds", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Total number of errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds", []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordInputStored increments the stored inputs counter for backend.
func RecordInputStored(backend string) {
	globalManager.inputsStored.WithLabelValues(backend).Inc()
}

// RecordInputRejected counts a request rejected for reason (empty, invalid, too_large).
func RecordInputRejected(reason string) {
	globalManager.inputsRejected.WithLabelValues(reason).Inc()
}

// RecordInputStoreError counts a failed store operation.
func RecordInputStoreError(backend, operation string) {
	globalManager.inputStoreErrors.WithLabelValues(backend, operation).Inc()
}

// RecordInputStoreLatency records a store operation latency in milliseconds.
func RecordInputStoreLatency(backend, operation string, latencyMs float64) {
	globalManager.inputStoreLatency.WithLabelValues(backend, operation).Observe(latencyMs)
}

// UpdateStoredInputs sets the number of stored records.
func UpdateStoredInputs(count int) {
	globalManager.storedInputs.Set(float64(count))
}

// RecordProviderLookup counts a lookup by outcome (matched, empty, bad_request, error).
func RecordProviderLookup(outcome string) {
	globalManager.providerLookups.WithLabelValues(outcome).Inc()
}

// RecordProviderMatches records how many providers one lookup returned.
func RecordProviderMatches(n int) {
	globalManager.providerMatches.Observe(float64(n))
}

// RecordCatalogReadError counts a catalog failure at stage (read, parse).
func RecordCatalogReadError(stage string) {
	globalManager.catalogReadErrors.WithLabelValues(stage).Inc()
}

// RecordCatalogReadLatency records a catalog read latency in milliseconds.
func RecordCatalogReadLatency(latencyMs float64) {
	globalManager.catalogReadLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
