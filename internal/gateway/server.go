// Package gateway is the HTTP transport over the engine: JSON routes for
// prices, metrics, event performance, comparisons, quotes and allocation
// simulations, plus a
// WebSocket stream replaying a series bar by bar.
package gateway

import (
	"context"
	"net/http"
	"time"

	"market-engine/internal/engine"
	"market-engine/internal/metrics"
	"market-engine/internal/model"
	"market-engine/internal/replay"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Engine is the subset of engine.Service served over HTTP.
type Engine interface {
	SynthesizePrices(ctx context.Context, tickers []string, period string) (engine.PriceSet, error)
	SeriesFor(ctx context.Context, ticker, period string) (model.PriceSeries, error)
	ComputeMetrics(ctx context.Context, ticker, start, end string, initial float64) model.MetricsResult
	ComputeEventMetrics(ctx context.Context, ticker string, year int) model.MetricsResult
	CompareAssets(ctx context.Context, tickers []string, start, end string) map[string]model.MetricsResult
	Quotes(ctx context.Context, ids []string) []model.Quote
	Simulate(ctx context.Context, weights map[string]float64, initial float64, period string) (model.Simulation, error)
}

// Config configures the HTTP layer.
type Config struct {
	CORSOrigin     string
	RateLimitRPS   float64 // 0 disables rate limiting
	RateLimitBurst int
	ReplayStep     time.Duration // per-day gap at speed 1
}

// Server owns the routes and their middleware.
type Server struct {
	eng      Engine
	metrics  *metrics.Metrics
	cfg      Config
	limiter  *rate.Limiter
	latency  *LatencyTracker
	replayer *replay.Replayer
	upgrader websocket.Upgrader
	started  time.Time
}

// NewServer creates a Server. m may be nil.
func NewServer(eng Engine, m *metrics.Metrics, cfg Config) *Server {
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	s := &Server{
		eng:      eng,
		metrics:  m,
		cfg:      cfg,
		latency:  NewLatencyTracker(4096),
		replayer: replay.New(cfg.ReplayStep),
		upgrader: websocket.Upgrader{
			CheckOrigin:       func(r *http.Request) bool { return true },
			EnableCompression: true,
		},
		started: time.Now(),
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	return s
}

// Handler returns the root handler with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.route(mux, "GET /prices", s.handlePrices)
	s.route(mux, "GET /investment-metrics/{ticker}", s.handleMetrics)
	s.route(mux, "GET /historical-performance/{ticker}/{event_year}", s.handleEventMetrics)
	s.route(mux, "GET /asset-comparison", s.handleComparison)
	s.route(mux, "GET /quotes", s.handleQuotes)
	s.route(mux, "POST /simulate", s.handleSimulate)
	s.route(mux, "GET /events", s.handleEvents)
	s.route(mux, "GET /seed/events", s.handleEvents)
	s.route(mux, "GET /health", s.handleHealth)
	s.route(mux, "GET /ws/replay", s.handleReplay)

	return s.withRequestID(s.withCORS(s.withRateLimit(mux)))
}

// route registers h under pattern with per-route instrumentation.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.instrument(pattern, h))
}
