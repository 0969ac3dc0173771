package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestCacheLookupHook(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	hook := m.CacheLookupHook("memory")
	hook(true)
	hook(false)
	hook(false)

	assert.Equal(t, 1.0, counterValue(t, m.CacheLookups.WithLabelValues("memory", "hit")))
	assert.Equal(t, 2.0, counterValue(t, m.CacheLookups.WithLabelValues("memory", "miss")))
}

func TestHealthStatus(t *testing.T) {
	errDown := errors.New("connection refused")
	tests := []struct {
		name  string
		setup func(h *HealthStatus)
		want  string
		code  int
	}{
		{"nothing configured", func(h *HealthStatus) {}, "healthy", http.StatusOK},
		{"redis up", func(h *HealthStatus) {
			h.Register("redis", nil)
			h.Mark("redis", nil, time.Millisecond)
		}, "healthy", http.StatusOK},
		{"redis never checked", func(h *HealthStatus) { h.Register("redis", nil) }, "degraded", http.StatusServiceUnavailable},
		{"redis down sqlite up", func(h *HealthStatus) {
			h.Register("redis", nil)
			h.Register("sqlite", nil)
			h.Mark("redis", errDown, 0)
			h.Mark("sqlite", nil, 0)
		}, "degraded", http.StatusServiceUnavailable},
		{"both down", func(h *HealthStatus) {
			h.Register("redis", nil)
			h.Register("sqlite", nil)
		}, "unhealthy", http.StatusServiceUnavailable},
		{"warm failed", func(h *HealthStatus) { h.RecordWarm(false, time.Now()) }, "degraded", http.StatusServiceUnavailable},
		{"unregistered mark ignored", func(h *HealthStatus) { h.Mark("redis", errDown, 0) }, "healthy", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthStatus()
			tt.setup(h)

			status, code := h.Status()
			assert.Equal(t, tt.want, status)
			assert.Equal(t, tt.code, code)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.code, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["status"])
		})
	}
}

func TestHealthStatus_CheckAll(t *testing.T) {
	h := NewHealthStatus()
	h.Register("redis", func(ctx context.Context) error { return errors.New("dial tcp: refused") })
	h.Register("sqlite", func(ctx context.Context) error {
		_, ok := ctx.Deadline()
		if !ok {
			return errors.New("probe without deadline")
		}
		return nil
	})

	h.CheckAll(context.Background(), time.Second)

	report, code := h.report()
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", report.Status)
	require.Len(t, report.Dependencies, 2)

	redis, sqlite := report.Dependencies[0], report.Dependencies[1]
	assert.Equal(t, "redis", redis.Name)
	assert.False(t, redis.Up)
	assert.Equal(t, "dial tcp: refused", redis.Error)
	assert.NotEmpty(t, redis.CheckedAt)

	assert.Equal(t, "sqlite", sqlite.Name)
	assert.True(t, sqlite.Up)
	assert.Empty(t, sqlite.Error)
}

func TestServer_ServesHealthAndMetrics(t *testing.T) {
	h := NewHealthStatus()
	srv := NewServer("127.0.0.1:0", h)
	require.NoError(t, srv.Start())
	defer srv.Stop(context.Background())

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_StartReportsBindError(t *testing.T) {
	first := NewServer("127.0.0.1:0", NewHealthStatus())
	require.NoError(t, first.Start())
	defer first.Stop(context.Background())

	second := NewServer(first.Addr(), NewHealthStatus())
	assert.Error(t, second.Start())
}
