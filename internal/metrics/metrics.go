// Package metrics exposes Prometheus metrics and the /healthz endpoint for
// the market engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	CacheLookups    *prometheus.CounterVec // labels: backend, result=hit|miss
	CacheEntries    prometheus.Gauge       // in-memory backend only
	SeriesGenerated *prometheus.CounterVec // labels: source
	ComputeDur      *prometheus.HistogramVec
	Fallbacks       *prometheus.CounterVec // default bundles served, labels: op

	HTTPRequests *prometheus.CounterVec // labels: route, code
	HTTPDur      *prometheus.HistogramVec
	RateLimited  prometheus.Counter

	ReplayClients prometheus.Gauge
	WarmRuns      *prometheus.CounterVec // labels: result=ok|error

	// Circuit breaker
	RedisCircuitBreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	RedisCircuitBreakerTrips prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_cache_lookups_total",
			Help: "Result cache lookups by backend and outcome",
		}, []string{"backend", "result"}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_cache_entries",
			Help: "Entries held by the in-memory result cache",
		}),
		SeriesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_series_total",
			Help: "Price series produced, by source",
		}, []string{"source"}),
		ComputeDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "engine_compute_duration_seconds",
			Help:    "Engine operation latency (cache misses only)",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"op"}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_default_results_total",
			Help: "Default metric bundles served instead of computed ones",
		}, []string{"op"}),

		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "engine_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		}),

		ReplayClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_replay_clients",
			Help: "Connected WebSocket replay clients",
		}),
		WarmRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "engine_cache_warm_runs_total",
			Help: "Scheduled cache warm-up runs by outcome",
		}, []string{"result"}),

		RedisCircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		RedisCircuitBreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
	}

	reg.MustRegister(
		m.CacheLookups,
		m.CacheEntries,
		m.SeriesGenerated,
		m.ComputeDur,
		m.Fallbacks,
		m.HTTPRequests,
		m.HTTPDur,
		m.RateLimited,
		m.ReplayClients,
		m.WarmRuns,
		m.RedisCircuitBreakerState,
		m.RedisCircuitBreakerTrips,
	)

	return m
}

// CacheLookupHook returns an OnLookup callback for the given backend label.
func (m *Metrics) CacheLookupHook(backend string) func(hit bool) {
	return func(hit bool) {
		result := "miss"
		if hit {
			result = "hit"
		}
		m.CacheLookups.WithLabelValues(backend, result).Inc()
	}
}

// ObserveCompute records the latency of op since start.
func (m *Metrics) ObserveCompute(op string, start time.Time) {
	m.ComputeDur.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
