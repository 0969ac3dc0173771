// Package engine is the façade over synthesis, proxy resolution, analytics and
// caching. Its operations never fail on bad market data: no-data and
// unexpected failures fold into the default metrics bundle.
package engine

import (
	"errors"
	"time"

	"market-engine/internal/cache"
	"market-engine/internal/history"
	"market-engine/internal/metrics"
	"market-engine/internal/model"
	"market-engine/internal/synth"
)

// DefaultInvestment is the initial investment used by event and comparison metrics.
const DefaultInvestment = 100000.0

var (
	// ErrNoTickers is returned when a request names no tickers.
	ErrNoTickers = errors.New("engine: no tickers")
	// ErrBadPeriod is returned for an unparseable period token.
	ErrBadPeriod = errors.New("engine: bad period")
	// ErrWindowTooLong is returned for a date window over MaxWindowDays.
	ErrWindowTooLong = errors.New("engine: window too long")
)

// Option configures a Service.
type Option func(*Service)

// WithClock injects the wall clock used for period windows and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithProxies replaces the built-in proxy table.
func WithProxies(p *history.ProxyTable) Option {
	return func(s *Service) { s.proxies = p }
}

// WithPeriods replaces the built-in event period table.
func WithPeriods(p *history.PeriodTable) Option {
	return func(s *Service) { s.periods = p }
}

// WithConcurrency bounds the number of assets computed in parallel by CompareAssets.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// Service implements the engine operations. It is safe for concurrent use.
type Service struct {
	source      model.PriceSource
	cache       model.Cache
	proxies     *history.ProxyTable
	periods     *history.PeriodTable
	metrics     *metrics.Metrics
	now         func() time.Time
	concurrency int
}

// New creates a Service. A nil source means synthetic series only; a nil
// cache means an in-memory cache with the default TTL.
func New(source model.PriceSource, c model.Cache, opts ...Option) *Service {
	if source == nil {
		source = synth.New()
	}
	if c == nil {
		c = cache.NewMemory(cache.DefaultTTL)
	}
	s := &Service{
		source:      source,
		cache:       c,
		proxies:     history.DefaultProxies(),
		periods:     history.DefaultPeriods(),
		now:         time.Now,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Periods returns the event period table.
func (s *Service) Periods() *history.PeriodTable { return s.periods }

// Proxies returns the proxy table.
func (s *Service) Proxies() *history.ProxyTable { return s.proxies }

// Source returns the series source.
func (s *Service) Source() model.PriceSource { return s.source }

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveCompute(op, start)
	}
}

func (s *Service) countSeries(source string) {
	if s.metrics != nil {
		s.metrics.SeriesGenerated.WithLabelValues(source).Inc()
	}
}

func (s *Service) countFallback(op string) {
	if s.metrics != nil {
		s.metrics.Fallbacks.WithLabelValues(op).Inc()
	}
}
