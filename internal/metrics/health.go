package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Probe checks one dependency. A nil error means it is reachable.
type Probe func(ctx context.Context) error

type dependency struct {
	probe     Probe
	up        bool
	latency   time.Duration
	lastErr   string
	checkedAt time.Time
}

// HealthStatus tracks the reachability of the engine's optional backends
// (Redis result cache, SQLite bar store) and the outcome of the last cache
// warm-up. Backends that were never registered do not affect the status.
type HealthStatus struct {
	mu      sync.RWMutex
	deps    map[string]*dependency
	warmOK  bool
	warmAt  time.Time
	started time.Time
}

func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		deps:    make(map[string]*dependency),
		warmOK:  true,
		started: time.Now(),
	}
}

// Register adds a dependency. It reports down until its first check.
// A nil probe is never re-checked; its state only changes through Mark.
func (h *HealthStatus) Register(name string, probe Probe) {
	h.mu.Lock()
	h.deps[name] = &dependency{probe: probe}
	h.mu.Unlock()
}

// Mark records a check result for a registered dependency.
func (h *HealthStatus) Mark(name string, err error, latency time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	d, ok := h.deps[name]
	if !ok {
		return
	}
	d.up = err == nil
	d.latency = latency
	d.checkedAt = time.Now()
	d.lastErr = ""
	if err != nil {
		d.lastErr = err.Error()
	}
}

// RecordWarm stores the outcome of a cache warm-up run.
func (h *HealthStatus) RecordWarm(ok bool, at time.Time) {
	h.mu.Lock()
	h.warmOK = ok
	h.warmAt = at
	h.mu.Unlock()
}

// CheckAll runs every registered probe once, each bounded by timeout.
// Probes run without the lock held.
func (h *HealthStatus) CheckAll(ctx context.Context, timeout time.Duration) {
	h.mu.RLock()
	probes := make(map[string]Probe, len(h.deps))
	for name, d := range h.deps {
		if d.probe != nil {
			probes[name] = d.probe
		}
	}
	h.mu.RUnlock()

	for name, probe := range probes {
		probeCtx, cancel := context.WithTimeout(ctx, timeout)
		began := time.Now()
		err := probe(probeCtx)
		cancel()
		h.Mark(name, err, time.Since(began))
	}
}

// StartLivenessChecker checks every dependency now and then every interval
// until ctx is done.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, interval time.Duration) {
	go func() {
		h.CheckAll(ctx, 3*time.Second)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.CheckAll(ctx, 3*time.Second)
			}
		}
	}()
}

// Status returns the overall status and the matching HTTP code. Every
// backend down is "unhealthy"; some backend down or a failed warm-up is
// "degraded".
func (h *HealthStatus) Status() (string, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.statusLocked()
}

func (h *HealthStatus) statusLocked() (string, int) {
	down := 0
	for _, d := range h.deps {
		if !d.up {
			down++
		}
	}
	switch {
	case down > 1 && down == len(h.deps):
		return "unhealthy", http.StatusServiceUnavailable
	case down > 0 || !h.warmOK:
		return "degraded", http.StatusServiceUnavailable
	}
	return "healthy", http.StatusOK
}

type dependencyReport struct {
	Name      string  `json:"name"`
	Up        bool    `json:"up"`
	LatencyMs float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
	CheckedAt string  `json:"checked_at,omitempty"`
}

type healthReport struct {
	Status       string             `json:"status"`
	Uptime       string             `json:"uptime"`
	Dependencies []dependencyReport `json:"dependencies"`
	WarmerOK     bool               `json:"warmer_ok"`
	LastWarmAt   string             `json:"last_warm_at,omitempty"`
}

// report snapshots the status with dependencies sorted by name.
func (h *HealthStatus) report() (healthReport, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status, code := h.statusLocked()
	r := healthReport{
		Status:       status,
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Dependencies: make([]dependencyReport, 0, len(h.deps)),
		WarmerOK:     h.warmOK,
	}
	if !h.warmAt.IsZero() {
		r.LastWarmAt = h.warmAt.UTC().Format(time.RFC3339)
	}
	for name, d := range h.deps {
		dr := dependencyReport{
			Name:      name,
			Up:        d.up,
			LatencyMs: float64(d.latency.Microseconds()) / 1000,
			Error:     d.lastErr,
		}
		if !d.checkedAt.IsZero() {
			dr.CheckedAt = d.checkedAt.UTC().Format(time.RFC3339)
		}
		r.Dependencies = append(r.Dependencies, dr)
	}
	sort.Slice(r.Dependencies, func(i, j int) bool { return r.Dependencies[i].Name < r.Dependencies[j].Name })
	return r, code
}

// ServeHTTP serves /healthz.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	report, code := h.report()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(report)
}
