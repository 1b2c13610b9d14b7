package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is a lightweight view of the counters for the API.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ReconcileRuns            uint64    `json:"reconcile_runs"`
	LastReconcileAt          time.Time `json:"last_reconcile_at,omitempty"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	storeDuration     *prometheus.HistogramVec
	reconcileDuration prometheus.Histogram
	reconcileRuns     *prometheus.CounterVec
	roomsWritten      prometheus.Counter
	overCapacity      prometheus.Gauge
	malformed         prometheus.Counter
	occupiedBeds      *prometheus.GaugeVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	reconcileCount       uint64
	lastReconcileUnix    int64
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kvstore_operation_duration_seconds",
		Help:    "Duration of key-value store reads and writes",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	reconcileDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reconcile_duration_seconds",
		Help:    "Duration of occupancy reconciliation passes",
		Buckets: prometheus.DefBuckets,
	})

	reconcileRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_runs_total",
		Help: "Reconciliation passes by outcome",
	}, []string{"result"})

	roomsWritten := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_rooms_written_total",
		Help: "Room collection writes performed by the reconciler",
	})

	overCapacity := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rooms_over_capacity",
		Help: "Rooms whose occupancy exceeds capacity after the last pass",
	})

	malformed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_malformed_records_total",
		Help: "Resident records skipped because required fields were missing",
	})

	occupiedBeds := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "building_occupied_beds",
		Help: "Occupied beds per building after the last pass",
	}, []string{"building"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		storeDuration, reconcileDuration, reconcileRuns, roomsWritten, overCapacity, malformed, occupiedBeds, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		storeDuration:     storeDuration,
		reconcileDuration: reconcileDuration,
		reconcileRuns:     reconcileRuns,
		roomsWritten:      roomsWritten,
		overCapacity:      overCapacity,
		malformed:         malformed,
		occupiedBeds:      occupiedBeds,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveStore records key-value store timing for operation ("load", "replace").
func (m *MetricsService) ObserveStore(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveReconcile records one reconciliation pass.
func (m *MetricsService) ObserveReconcile(result *ReconcileResult, wrote bool, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.reconcileDuration.Observe(duration.Seconds())
	atomic.AddUint64(&m.reconcileCount, 1)
	atomic.StoreInt64(&m.lastReconcileUnix, time.Now().UTC().Unix())

	switch {
	case err != nil:
		m.reconcileRuns.WithLabelValues("error").Inc()
		return
	case wrote:
		m.reconcileRuns.WithLabelValues("changed").Inc()
		m.roomsWritten.Inc()
	default:
		m.reconcileRuns.WithLabelValues("unchanged").Inc()
	}
	if result == nil {
		return
	}
	m.overCapacity.Set(float64(len(result.OverCapacity)))
	m.malformed.Add(float64(len(result.Malformed)))

	perBuilding := make(map[string]int)
	for _, room := range result.Rooms {
		perBuilding[room.Building] += room.Occupied
	}
	for building, occupied := range perBuilding {
		m.occupiedBeds.WithLabelValues(building).Set(float64(occupied))
	}
}

// Snapshot returns aggregated metrics suitable for the dashboard.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	snapshot := MetricsSnapshot{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		ReconcileRuns:            atomic.LoadUint64(&m.reconcileCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
	if last := atomic.LoadInt64(&m.lastReconcileUnix); last > 0 {
		snapshot.LastReconcileAt = time.Unix(last, 0).UTC()
	}
	return snapshot
}
