// Package redis provides a Redis-backed ResultCache shared by every engine
// replica, guarded by a circuit breaker.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
)

const (
	defaultKeyPrefix    = "mdcache:"
	defaultTTL          = time.Hour
	defaultOpTimeout    = 500 * time.Millisecond
	breakerMaxFailures  = 5
	breakerResetTimeout = 10 * time.Second
)

// CacheConfig configures the Redis cache.
type CacheConfig struct {
	Addr      string // e.g. "localhost:6379"
	Password  string
	DB        int
	TTL       time.Duration
	KeyPrefix string
}

// envelope is the stored form of a cache entry.
type envelope struct {
	CreatedAt time.Time `json:"created_at"`
	Value     []byte    `json:"value"`
}

// Cache implements model.Cache on Redis. Keys also carry a Redis expiry equal
// to the TTL so the server reclaims stale entries; the created_at check on read
// keeps the TTL semantics exact regardless of server clock drift.
type Cache struct {
	client *goredis.Client
	cb     *CircuitBreaker
	ttl    time.Duration
	prefix string
	now    func() time.Time

	// OnLookup is called after every Get (optional, for metrics).
	OnLookup func(hit bool)
}

// Client returns the underlying Redis client for health checks.
func (c *Cache) Client() *goredis.Client { return c.client }

// Breaker returns the circuit breaker guarding Redis calls.
func (c *Cache) Breaker() *CircuitBreaker { return c.cb }

// NewCache connects to Redis and pings the server.
func NewCache(cfg CacheConfig) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("[redis-cache] connected", "addr", cfg.Addr, "db", cfg.DB)
	return newCache(client, cfg), nil
}

func newCache(client *goredis.Client, cfg CacheConfig) *Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Cache{
		client: client,
		cb:     NewCircuitBreaker(breakerMaxFailures, breakerResetTimeout),
		ttl:    ttl,
		prefix: prefix,
		now:    time.Now,
	}
}

// Get returns the payload stored under key if it is younger than the TTL.
// Redis errors and an open breaker are reported as misses.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	var raw []byte
	err := c.cb.Execute(func() error {
		opCtx, cancel := opContext(ctx)
		defer cancel()
		b, err := c.client.Get(opCtx, c.prefix+key).Bytes()
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		raw = b
		return err
	})
	if err != nil && !errors.Is(err, ErrCircuitOpen) {
		slog.Warn("[redis-cache] get failed", "key", key, "error", err)
	}

	value, hit := c.decode(raw)
	if c.OnLookup != nil {
		c.OnLookup(hit)
	}
	return value, hit
}

// Put stores value under key, replacing any existing entry.
func (c *Cache) Put(ctx context.Context, key string, value []byte) {
	data, err := encodeEnvelope(envelope{CreatedAt: c.now(), Value: value})
	if err != nil {
		slog.Warn("[redis-cache] encode failed", "key", key, "error", err)
		return
	}
	err = c.cb.Execute(func() error {
		opCtx, cancel := opContext(ctx)
		defer cancel()
		return c.client.Set(opCtx, c.prefix+key, data, c.ttl).Err()
	})
	if err != nil && !errors.Is(err, ErrCircuitOpen) {
		slog.Warn("[redis-cache] put failed", "key", key, "error", err)
	}
}

// opContext bounds a Redis call by defaultOpTimeout alone. The caller's
// cancellation is detached so a client hanging up mid-request is not counted
// as a Redis failure by the breaker.
func opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), defaultOpTimeout)
}

// Close releases the Redis connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) decode(raw []byte) ([]byte, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	env, err := decodeEnvelope(raw)
	if err != nil {
		slog.Warn("[redis-cache] corrupt entry", "error", err)
		return nil, false
	}
	if c.now().Sub(env.CreatedAt) >= c.ttl {
		return nil, false
	}
	return env.Value, true
}

func encodeEnvelope(e envelope) ([]byte, error) {
	return json.Marshal(e)
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var e envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return envelope{}, fmt.Errorf("unmarshal cache envelope: %w", err)
	}
	return e, nil
}
