package gateway

import (
	"math"
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps the most recent request latencies in a circular
// buffer and reports percentiles over them. Thread-safe.
type LatencyTracker struct {
	mu      sync.Mutex
	samples []float64 // milliseconds
	pos     int
	count   int
	total   uint64
}

// LatencySnapshot summarizes the tracked window.
type LatencySnapshot struct {
	Window   int     `json:"window"`
	Requests uint64  `json:"requests"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// NewLatencyTracker creates a tracker that holds the last capacity samples.
func NewLatencyTracker(capacity int) *LatencyTracker {
	if capacity <= 0 {
		capacity = 4096
	}
	return &LatencyTracker{samples: make([]float64, capacity)}
}

// Observe records one request duration.
func (lt *LatencyTracker) Observe(d time.Duration) {
	ms := float64(d.Microseconds()) / 1000.0
	lt.mu.Lock()
	lt.samples[lt.pos] = ms
	lt.pos = (lt.pos + 1) % len(lt.samples)
	if lt.count < len(lt.samples) {
		lt.count++
	}
	lt.total++
	lt.mu.Unlock()
}

// Snapshot returns percentiles over the current window. An empty tracker reports zeros.
func (lt *LatencyTracker) Snapshot() LatencySnapshot {
	lt.mu.Lock()
	window := make([]float64, lt.count)
	copy(window, lt.samples[:lt.count])
	total := lt.total
	lt.mu.Unlock()

	sort.Float64s(window)
	return LatencySnapshot{
		Window:   len(window),
		Requests: total,
		P50Ms:    percentile(window, 0.50),
		P95Ms:    percentile(window, 0.95),
		P99Ms:    percentile(window, 0.99),
	}
}

// percentile linearly interpolates the p-th percentile (0.0–1.0) of a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	switch n {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	rank := p * float64(n-1)
	lower := int(math.Floor(rank))
	if lower+1 >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lower)
	return sorted[lower]*(1-frac) + sorted[lower+1]*frac
}
