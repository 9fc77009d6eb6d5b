package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	tableLookups    *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge
	snapshotRead    prometheus.Observer
	snapshotWrite   prometheus.Observer
	fetchDuration   *prometheus.HistogramVec
	rowsDropped     *prometheus.CounterVec
	tableRows       prometheus.Gauge
	dbQueryDuration *prometheus.HistogramVec
	exportsTotal    *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	refreshCount         uint64
	refreshFailures      uint64
	cachedRows           int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	tableLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "table_cache_lookups_total",
		Help: "Table cache lookups by the source that served them",
	}, []string{"source"})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "table_cache_hit_ratio",
		Help: "Ratio of lookups served from a fresh cache entry",
	})

	snapshotRead := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapshot_read_seconds",
		Help:    "Latency for Redis snapshot reads",
		Buckets: prometheus.DefBuckets,
	})

	snapshotWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "snapshot_write_seconds",
		Help:    "Latency for Redis snapshot writes",
		Buckets: prometheus.DefBuckets,
	})

	fetchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sheets_fetch_duration_seconds",
		Help:    "Duration of spreadsheet refreshes by outcome",
		Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"outcome"})

	rowsDropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "normalize_rows_dropped_total",
		Help: "Rows discarded during normalisation",
	}, []string{"reason"})

	tableRows := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "table_cache_rows",
		Help: "Rows held by the current cached table",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	exportsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "exports_generated_total",
		Help: "Export files rendered by kind and format",
	}, []string{"kind", "format"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, tableLookups, cacheHitRatio, snapshotRead, snapshotWrite,
		fetchDuration, rowsDropped, tableRows, dbQueryDuration, exportsTotal, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		tableLookups:    tableLookups,
		cacheHitRatio:   cacheHitRatio,
		snapshotRead:    snapshotRead,
		snapshotWrite:   snapshotWrite,
		fetchDuration:   fetchDuration,
		rowsDropped:     rowsDropped,
		tableRows:       tableRows,
		dbQueryDuration: dbQueryDuration,
		exportsTotal:    exportsTotal,
	}
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordTableLookup counts which source served a table cache lookup and updates the hit ratio.
func (m *MetricsService) RecordTableLookup(source models.CacheSource) {
	if m == nil {
		return
	}
	m.tableLookups.WithLabelValues(string(source)).Inc()
	if source.Hit() {
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveRefresh records one remote refresh attempt.
func (m *MetricsService) ObserveRefresh(status models.RefreshStatus, duration time.Duration, report models.NormalizeReport, rows int) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(string(status)).Observe(duration.Seconds())
	atomic.AddUint64(&m.refreshCount, 1)
	if status != models.RefreshStatusSuccess {
		atomic.AddUint64(&m.refreshFailures, 1)
		return
	}
	m.rowsDropped.WithLabelValues("empty").Add(float64(report.RowsDroppedEmpty))
	m.rowsDropped.WithLabelValues("invalid_date").Add(float64(report.RowsDroppedNoDate))
	m.tableRows.Set(float64(rows))
	atomic.StoreInt64(&m.cachedRows, int64(rows))
}

// ObserveSnapshotRead tracks Redis snapshot read latency.
func (m *MetricsService) ObserveSnapshotRead(duration time.Duration) {
	if m == nil {
		return
	}
	m.snapshotRead.Observe(duration.Seconds())
}

// ObserveSnapshotWrite tracks Redis snapshot write latency.
func (m *MetricsService) ObserveSnapshotWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.snapshotWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordExport counts one rendered export file.
func (m *MetricsService) RecordExport(kind, format string) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(kind, format).Inc()
}

// Snapshot returns aggregated metrics for the readiness endpoint.
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

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Refreshes:                atomic.LoadUint64(&m.refreshCount),
		RefreshFailures:          atomic.LoadUint64(&m.refreshFailures),
		CachedRows:               atomic.LoadInt64(&m.cachedRows),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
