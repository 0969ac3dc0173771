// cmd/server runs the market engine HTTP API with its metrics server,
// result cache, optional SQLite feed and cache warmer.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"market-engine/config"
	"market-engine/internal/cache"
	"market-engine/internal/engine"
	"market-engine/internal/feed"
	"market-engine/internal/gateway"
	"market-engine/internal/logger"
	"market-engine/internal/metrics"
	"market-engine/internal/model"
	"market-engine/internal/scheduler"
	redisstore "market-engine/internal/store/redis"
	sqlitestore "market-engine/internal/store/sqlite"
	"market-engine/internal/synth"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("[server] config load failed", "error", err)
		os.Exit(1)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Warn("[server] falling back to info logging", "error", err)
	}
	logger.Init("market-engine", level)

	if err := cfg.Validate(); err != nil {
		slog.Error("[server] invalid config", "error", err)
		os.Exit(1)
	}
	slog.Info("[server] starting...", "listen", cfg.ListenAddr, "cache", cfg.CacheBackend, "sqlite", cfg.SQLitePath)

	prom := metrics.NewMetrics(nil)
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	if err := metricsSrv.Start(); err != nil {
		slog.Error("[server] metrics server failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Result cache: Redis when configured and reachable, memory otherwise
	var resultCache model.Cache
	if cfg.CacheBackend == "redis" {
		rc, err := redisstore.NewCache(redisstore.CacheConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.CacheTTL,
		})
		if err != nil {
			slog.Warn("[server] redis cache unavailable, continuing with memory cache", "error", err)
			health.Register("redis", nil)
			health.Mark("redis", err, 0)
		} else {
			defer rc.Close()
			rc.OnLookup = prom.CacheLookupHook("redis")
			rc.Breaker().OnStateChange = func(from, to redisstore.State) {
				prom.RedisCircuitBreakerState.Set(float64(to))
				if to == redisstore.StateOpen {
					prom.RedisCircuitBreakerTrips.Inc()
				}
				slog.Warn("[server] redis circuit breaker", "from", from.String(), "to", to.String())
			}
			rdb := rc.Client()
			health.Register("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
			resultCache = rc
		}
	}
	if resultCache == nil {
		mc := cache.NewMemory(cfg.CacheTTL)
		mc.OnLookup = prom.CacheLookupHook("memory")
		go reportCacheSize(ctx, mc, prom)
		resultCache = mc
	}

	// Series source: SQLite bars first when configured, synthesis otherwise
	gen := synth.New()
	var source model.PriceSource = gen
	if cfg.SQLitePath != "" {
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
		if err != nil {
			slog.Error("[server] sqlite init failed", "error", err)
			os.Exit(1)
		}
		defer store.Close()
		health.Register("sqlite", store.DB().PingContext)

		chain := feed.NewChain(feed.StoreSource{Store: store}, gen)
		chain.OnServe = func(name string) {
			slog.Debug("[server] series served", "source", name)
		}
		source = chain
	}
	health.StartLivenessChecker(ctx, cfg.HealthInterval)

	eng := engine.New(source, resultCache,
		engine.WithMetrics(prom),
		engine.WithConcurrency(cfg.CompareConcurrency),
	)

	if cfg.WarmCron != "" && len(cfg.WarmTickers) > 0 {
		sched := scheduler.NewScheduler(ctx, eng, cfg.WarmTickers, eng.Periods().Years())
		sched.OnRun = func(ok bool, at time.Time) {
			health.RecordWarm(ok, at)
			result := "ok"
			if !ok {
				result = "error"
			}
			prom.WarmRuns.WithLabelValues(result).Inc()
		}
		if err := sched.Register(cfg.WarmCron); err != nil {
			slog.Error("[server] scheduler init failed", "error", err)
			os.Exit(1)
		}
		sched.Start()
		defer sched.Stop()
		go sched.Trigger()
	}

	gw := gateway.NewServer(eng, prom, gateway.Config{
		CORSOrigin:     cfg.CORSOrigin,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("[server] listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[server] http server error", "error", err)
			sigCh <- syscall.SIGTERM
		}
	}()

	sig := <-sigCh
	slog.Info("[server] shutting down", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)
	metricsSrv.Stop(shutdownCtx)
	slog.Info("[server] stopped")
}

// reportCacheSize publishes the in-memory cache size until ctx is done.
func reportCacheSize(ctx context.Context, mc *cache.Memory, prom *metrics.Metrics) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			prom.CacheEntries.Set(float64(mc.Len()))
		}
	}
}
