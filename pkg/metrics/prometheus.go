package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// coverageBuckets spans the [0, 1] coverage fraction.
var coverageBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

// Manager owns every Prometheus collector of the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ranking
	rankings       *prometheus.CounterVec
	bundlesScored  prometheus.Counter
	scoringLatency prometheus.Histogram
	coverage       prometheus.Histogram
	feedRows       *prometheus.CounterVec

	// Validation
	validations  *prometheus.CounterVec
	lastSpearman prometheus.Gauge

	// Optimizer
	optimizerRuns        *prometheus.CounterVec
	optimizerIterations  prometheus.Counter
	optimizerAccepted    prometheus.Counter
	optimizerBestFitness prometheus.Gauge
	optimizerRunLatency  prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Worker
	workerCount    prometheus.Gauge
	workerActive   prometheus.Gauge
	workerLatency  prometheus.Histogram
	workerErrors   prometheus.Counter
	repositoryTime *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	duplicateRequests   prometheus.Counter

	errorsByComponent *prometheus.CounterVec

	// Process and service
	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
	systemGCPause    prometheus.Histogram
	storedRuns       prometheus.Gauge
	templates        prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager registered on the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fairway",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)
	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		}, labels)
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		})
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
		})
	}
	histogramVec := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
		}, labels)
	}

	m.rankings = counterVec("rankings_total", "Rankings produced, by template resolution strategy", "strategy")
	m.bundlesScored = counter("bundles_scored_total", "Competitor bundles scored")
	m.scoringLatency = histogram("scoring_latency_milliseconds", "Time to score and rank a full field", m.histogramBuckets)
	m.coverage = histogram("coverage_ratio", "Share of expected metrics present per scored competitor", coverageBuckets)
	m.feedRows = counterVec("feed_rows_total", "Feed rows aggregated, by feed", "feed")

	m.validations = counterVec("validations_total", "Validation reports produced, by verdict", "strength")
	m.lastSpearman = gauge("validation_last_spearman", "Spearman correlation of the latest defined validation")

	m.optimizerRuns = counterVec("optimizer_runs_total", "Optimizer seed runs, by outcome", "outcome")
	m.optimizerIterations = counter("optimizer_iterations_total", "Optimizer iterations evaluated")
	m.optimizerAccepted = counter("optimizer_accepted_total", "Optimizer candidates accepted")
	m.optimizerBestFitness = gauge("optimizer_best_fitness", "Best fitness of the latest optimization")
	m.optimizerRunLatency = histogram("optimizer_run_latency_milliseconds", "Duration of one seeded optimizer run", m.histogramBuckets)

	m.queueSize = gauge("queue_size", "Seed jobs waiting in the queue")
	m.queueCapacity = gauge("queue_capacity", "Capacity of the seed job queue")
	m.queueEnqueued = counter("queue_enqueued_total", "Seed jobs enqueued")
	m.queueDequeued = counter("queue_dequeued_total", "Seed jobs dequeued")
	m.queueEnqueueErrors = counter("queue_enqueue_errors_total", "Seed jobs rejected by the queue")

	m.workerCount = gauge("worker_count", "Workers in the optimizer pool")
	m.workerActive = gauge("worker_active", "Workers currently running a seed")
	m.workerLatency = histogram("worker_processing_latency_milliseconds", "Time a worker spends on one job", m.histogramBuckets)
	m.workerErrors = counter("worker_errors_total", "Jobs that failed in a worker")
	m.repositoryTime = histogramVec("repository_latency_milliseconds", "Repository operation latency", "operation")

	m.httpRequests = counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.duplicateRequests = counter("duplicate_requests_total", "Requests rejected because their request id was already seen")

	m.errorsByComponent = counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemory = gauge("system_memory_bytes", "Heap bytes allocated")
	m.systemGoroutines = gauge("system_goroutines", "Live goroutines")
	m.systemGCPause = histogram("system_gc_pause_milliseconds", "Average GC pause", m.histogramBuckets)
	m.storedRuns = gauge("stored_runs", "Runs held by the repository")
	m.templates = gauge("templates", "Weight templates loaded")
}

// RecordRanking counts a ranking and the bundles it scored.
func RecordRanking(strategy string, bundles int, latencyMs float64) {
	globalManager.rankings.WithLabelValues(strategy).Inc()
	globalManager.bundlesScored.Add(float64(bundles))
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordCoverage observes one competitor's coverage.
func RecordCoverage(coverage float64) {
	globalManager.coverage.Observe(coverage)
}

// RecordFeedRows counts rows read from a feed.
func RecordFeedRows(feed string, rows int) {
	globalManager.feedRows.WithLabelValues(feed).Add(float64(rows))
}

// RecordValidation counts a report by verdict and tracks its Spearman
// correlation when defined.
func RecordValidation(strength string, spearman float64, defined bool) {
	globalManager.validations.WithLabelValues(strength).Inc()
	if defined {
		globalManager.lastSpearman.Set(spearman)
	}
}

// RecordOptimizerRun counts one seeded run.
func RecordOptimizerRun(outcome string, iterations, accepted int, latencyMs float64) {
	globalManager.optimizerRuns.WithLabelValues(outcome).Inc()
	globalManager.optimizerIterations.Add(float64(iterations))
	globalManager.optimizerAccepted.Add(float64(accepted))
	globalManager.optimizerRunLatency.Observe(latencyMs)
}

// UpdateOptimizerBestFitness sets the best fitness of the latest optimization.
func UpdateOptimizerBestFitness(fitness float64) {
	globalManager.optimizerBestFitness.Set(fitness)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of workers in the pool.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// AddWorkerActive moves the active worker gauge by delta.
func AddWorkerActive(delta int) {
	globalManager.workerActive.Add(float64(delta))
}

// RecordWorkerProcessingLatency records how long a worker spent on a job.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordRepositoryLatency records one repository operation.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	globalManager.repositoryTime.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

func RecordDuplicateRequest() {
	globalManager.duplicateRequests.Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemory.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutines.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPause.Observe(pauseMs)
}

func UpdateStoredRuns(count int) {
	globalManager.storedRuns.Set(float64(count))
}

func UpdateTemplates(count int) {
	globalManager.templates.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
