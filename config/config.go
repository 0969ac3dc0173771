// Package config loads engine configuration from an optional YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
	CORSOrigin  string `yaml:"cors_origin"`

	// Result cache: "memory" or "redis"
	CacheBackend  string        `yaml:"cache_backend"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`

	// Empty means synthetic series only
	SQLitePath string `yaml:"sqlite_path"`

	// Cache warmer (six-field cron spec, seconds first). Empty disables it.
	WarmCron    string   `yaml:"warm_cron"`
	WarmTickers []string `yaml:"warm_tickers"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	LogLevel           string        `yaml:"log_level"`
	CompareConcurrency int           `yaml:"compare_concurrency"`
	HealthInterval     time.Duration `yaml:"health_interval"`
}

// Defaults returns the configuration used when neither file nor env set a value.
func Defaults() *Config {
	return &Config{
		ListenAddr:         ":8000",
		MetricsAddr:        ":9090",
		CORSOrigin:         "*",
		CacheBackend:       "memory",
		CacheTTL:           time.Hour,
		RedisAddr:          "localhost:6379",
		WarmCron:           "0 0 * * * *",
		WarmTickers:        []string{"VTI", "BND", "GLD", "BTC-USD"},
		RateLimitRPS:       20,
		RateLimitBurst:     40,
		LogLevel:           "info",
		CompareConcurrency: 4,
		HealthInterval:     15 * time.Second,
	}
}

// Load reads the YAML file named by CONFIG_PATH (if any) over the defaults,
// then applies environment variable overrides.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_PATH"))
}

// LoadFile is Load with an explicit file path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Environment variable overrides
	cfg.ListenAddr = getEnv("LISTEN_ADDR", cfg.ListenAddr)
	cfg.MetricsAddr = getEnv("METRICS_ADDR", cfg.MetricsAddr)
	cfg.CORSOrigin = getEnv("CORS_ORIGIN", cfg.CORSOrigin)
	cfg.CacheBackend = strings.ToLower(getEnv("CACHE_BACKEND", cfg.CacheBackend))
	cfg.CacheTTL = getDuration("CACHE_TTL", cfg.CacheTTL)
	cfg.RedisAddr = getEnv("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getInt("REDIS_DB", cfg.RedisDB)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.WarmCron = getEnv("WARM_CRON", cfg.WarmCron)
	if v := os.Getenv("WARM_TICKERS"); v != "" {
		cfg.WarmTickers = SplitList(v)
	}
	cfg.RateLimitRPS = getFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.CompareConcurrency = getInt("COMPARE_CONCURRENCY", cfg.CompareConcurrency)
	cfg.HealthInterval = getDuration("HEALTH_INTERVAL", cfg.HealthInterval)

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required when cache_backend is redis")
		}
	default:
		return fmt.Errorf("cache_backend must be memory or redis, got %q", c.CacheBackend)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache_ttl must be positive")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.RateLimitRPS < 0 {
		return fmt.Errorf("rate_limit_rps must not be negative")
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("rate_limit_burst must be at least 1 when rate limiting is enabled")
	}
	if c.CompareConcurrency < 1 {
		return fmt.Errorf("compare_concurrency must be at least 1")
	}
	if c.HealthInterval <= 0 {
		return fmt.Errorf("health_interval must be positive")
	}
	return nil
}

// SplitList splits a comma-separated list, trimming blanks.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("[config] ignoring invalid integer", "key", key, "value", v)
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("[config] ignoring invalid number", "key", key, "value", v)
		return fallback
	}
	return f
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("[config] ignoring invalid duration", "key", key, "value", v)
		return fallback
	}
	return d
}
