package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/internquest-api/internal/models"
)

const metricsNamespace = "internquest"

// MetricsService owns the Prometheus registry and keeps running totals for the admin summary.
// Every method is safe on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheLookups    *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	driftReasons    *prometheus.CounterVec
	uploads         *prometheus.CounterVec
	jobDuration     *prometheus.HistogramVec

	startedAt            time.Time
	reconcileCount       uint64
	reconcileDriftCount  uint64
	reconcileDegraded    uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestErrors        uint64
	requestDurationTotal uint64
	uploadCount          uint64
	uploadRejected       uint64
	jobsSucceeded        uint64
	jobsFailed           uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry:  prometheus.NewRegistry(),
		startedAt: time.Now().UTC(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests by route template",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route template",
		}, []string{"method", "route", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_read_seconds",
			Help:      "Latency of checklist cache reads",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "cache_write_seconds",
			Help:      "Latency of checklist cache writes",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "cache_lookups_total",
			Help:      "Checklist cache lookups by result",
		}, []string{"result"}),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "checklist_reconciliations_total",
			Help:      "Checklist reconciliation passes by outcome",
		}, []string{"outcome"}),
		driftReasons: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "checklist_drift_repairs_total",
			Help:      "Checklist repairs written back, by drift reason",
		}, []string{"reason"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requirement_uploads_total",
			Help:      "Requirement file uploads by result",
		}, []string{"result"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "job_duration_seconds",
			Help:      "Background job runtime by queue and outcome",
			Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		}, []string{"queue", "type", "outcome"}),
	}

	m.registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheLookups,
		m.reconciliations, m.driftReasons, m.uploads, m.jobDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, code).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, code).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
	if status >= http.StatusInternalServerError {
		atomic.AddUint64(&m.requestErrors, 1)
	}
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordReconciliation counts one checklist reconciliation pass and the drift reasons it repaired.
func (m *MetricsService) RecordReconciliation(outcome string, reasons []string) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(outcome).Inc()
	atomic.AddUint64(&m.reconcileCount, 1)
	if outcome == "degraded" {
		atomic.AddUint64(&m.reconcileDegraded, 1)
	}
	if len(reasons) > 0 {
		atomic.AddUint64(&m.reconcileDriftCount, 1)
	}
	for _, reason := range reasons {
		m.driftReasons.WithLabelValues(reason).Inc()
	}
}

// RecordUpload counts a requirement upload attempt. result is "stored" or a rejection code.
func (m *MetricsService) RecordUpload(result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(result).Inc()
	atomic.AddUint64(&m.uploadCount, 1)
	if result != "stored" {
		atomic.AddUint64(&m.uploadRejected, 1)
	}
}

// ObserveJob matches jobs.Observer and records one handler run.
func (m *MetricsService) ObserveJob(queue, jobType string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
		atomic.AddUint64(&m.jobsFailed, 1)
	} else {
		atomic.AddUint64(&m.jobsSucceeded, 1)
	}
	m.jobDuration.WithLabelValues(queue, jobType, outcome).Observe(duration.Seconds())
}

// Snapshot returns aggregated metrics for the admin metrics summary.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	now := time.Now().UTC()
	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		RequestErrors:            atomic.LoadUint64(&m.requestErrors),
		AverageRequestDurationMs: avgRequestMs,
		Reconciliations:          atomic.LoadUint64(&m.reconcileCount),
		ReconciliationDrifts:     atomic.LoadUint64(&m.reconcileDriftCount),
		ReconciliationDegraded:   atomic.LoadUint64(&m.reconcileDegraded),
		Uploads:                  atomic.LoadUint64(&m.uploadCount),
		UploadsRejected:          atomic.LoadUint64(&m.uploadRejected),
		JobsSucceeded:            atomic.LoadUint64(&m.jobsSucceeded),
		JobsFailed:               atomic.LoadUint64(&m.jobsFailed),
		Goroutines:               runtime.NumGoroutine(),
		UptimeSeconds:            int64(now.Sub(m.startedAt).Seconds()),
		GeneratedAt:              now,
	}
}
