package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	registry prometheus.Registerer

	// Pipeline
	eventsParsed       *prometheus.CounterVec
	eventsDropped      *prometheus.CounterVec
	billability        *prometheus.CounterVec
	eventsUnattributed prometheus.Counter
	allocations        *prometheus.CounterVec
	extractionAttempts *prometheus.CounterVec
	extractionLatency  prometheus.Histogram
	extractionFallback *prometheus.CounterVec
	invoicesAssembled  *prometheus.CounterVec

	// Collaborators
	renders       *prometheus.CounterVec
	renderLatency prometheus.Histogram
	deliveries    *prometheus.CounterVec
	storeOps      *prometheus.CounterVec

	// Render queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

const (
	namespace = "invoy"
	subsystem = "billing"
)

// Latency buckets in milliseconds.
var latencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // read-only bucket layout

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{registry: prometheus.DefaultRegisterer}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: namespace, Subsystem: subsystem, Name: name, Help: help}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		Buckets: latencyBuckets,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.eventsParsed = auto.NewCounterVec(m.counter("events_parsed_total",
		"Calendar entries seen by the parser by input format and outcome"), []string{"format", "outcome"})
	m.eventsDropped = auto.NewCounterVec(m.counter("events_dropped_total",
		"Calendar entries rejected at ingestion by reason"), []string{"reason"})
	m.billability = auto.NewCounterVec(m.counter("billability_total",
		"Billability decisions; result is 'billable' or the failing rule"), []string{"result"})
	m.eventsUnattributed = auto.NewCounter(m.counter("events_unattributed_total",
		"Billable events without an identifiable client"))
	m.allocations = auto.NewCounterVec(m.counter("allocations_total",
		"Allocations produced by source branch"), []string{"source"})
	m.extractionAttempts = auto.NewCounterVec(m.counter("extraction_attempts_total",
		"Calls to the extraction provider by outcome"), []string{"outcome"})
	m.extractionLatency = auto.NewHistogram(m.histogram("extraction_latency_milliseconds",
		"Extraction provider call latency in milliseconds"))
	m.extractionFallback = auto.NewCounterVec(m.counter("extraction_fallbacks_total",
		"Extractions answered by the heuristic branch by reason"), []string{"reason"})
	m.invoicesAssembled = auto.NewCounterVec(m.counter("invoices_assembled_total",
		"Invoices assembled by kind"), []string{"kind"})

	m.renders = auto.NewCounterVec(m.counter("renders_total",
		"Invoice renders by outcome (full or degraded)"), []string{"outcome"})
	m.renderLatency = auto.NewHistogram(m.histogram("render_latency_milliseconds",
		"Invoice render latency in milliseconds"))
	m.deliveries = auto.NewCounterVec(m.counter("deliveries_total",
		"Invoice deliveries by resulting state"), []string{"state"})
	m.storeOps = auto.NewCounterVec(m.counter("store_operations_total",
		"Artifact store operations by kind and outcome"), []string{"op", "outcome"})

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Render jobs waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Render queue capacity"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueued_total", "Render jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeued_total", "Render jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total", "Render jobs rejected by the queue"))
	m.workerCount = auto.NewGauge(m.gauge("worker_count", "Render workers started"))
	m.workerActiveCount = auto.NewGauge(m.gauge("worker_active_count", "Render workers currently busy"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogram("worker_processing_latency_milliseconds",
		"Render job processing latency in milliseconds"))
	m.workerErrors = auto.NewCounter(m.counter("worker_errors_total", "Render jobs that failed"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})
}

// RecordEventsParsed counts accepted and dropped entries of one parse call.
func RecordEventsParsed(format string, accepted, dropped int) {
	globalManager.eventsParsed.WithLabelValues(format, "accepted").Add(float64(accepted))
	globalManager.eventsParsed.WithLabelValues(format, "dropped").Add(float64(dropped))
}

// RecordEventDropped counts one rejected entry.
func RecordEventDropped(reason string) {
	globalManager.eventsDropped.WithLabelValues(reason).Inc()
}

// RecordBillability adds n decisions with the given result.
func RecordBillability(result string, n int) {
	globalManager.billability.WithLabelValues(result).Add(float64(n))
}

// RecordUnattributed adds n events that had no client.
func RecordUnattributed(n int) {
	globalManager.eventsUnattributed.Add(float64(n))
}

// RecordAllocation counts one allocation by source.
func RecordAllocation(source string) {
	globalManager.allocations.WithLabelValues(source).Inc()
}

// RecordExtractionAttempt counts one provider call and its latency.
func RecordExtractionAttempt(outcome string, latencyMs float64) {
	globalManager.extractionAttempts.WithLabelValues(outcome).Inc()
	globalManager.extractionLatency.Observe(latencyMs)
}

// RecordExtractionFallback counts one heuristic fallback.
func RecordExtractionFallback(reason string) {
	globalManager.extractionFallback.WithLabelValues(reason).Inc()
}

// RecordInvoiceAssembled counts one assembled invoice by kind.
func RecordInvoiceAssembled(kind string) {
	globalManager.invoicesAssembled.WithLabelValues(kind).Inc()
}

// RecordRender counts one render and its latency.
func RecordRender(outcome string, latencyMs float64) {
	globalManager.renders.WithLabelValues(outcome).Inc()
	globalManager.renderLatency.Observe(latencyMs)
}

// RecordDelivery counts one delivery by resulting state.
func RecordDelivery(state string) {
	globalManager.deliveries.WithLabelValues(state).Inc()
}

// RecordStoreOperation counts one artifact store call.
func RecordStoreOperation(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	globalManager.storeOps.WithLabelValues(op, outcome).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records render job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method string, statusCode int, durationMs float64) {
	code := strconv.Itoa(statusCode)
	globalManager.httpRequests.WithLabelValues(endpoint, method, code).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, code).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
