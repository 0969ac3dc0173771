package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelope_RoundTrip(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	raw, err := encodeEnvelope(envelope{CreatedAt: created, Value: []byte(`{"x":1}`)})
	require.NoError(t, err)

	env, err := decodeEnvelope(raw)
	require.NoError(t, err)
	assert.True(t, created.Equal(env.CreatedAt))
	assert.Equal(t, `{"x":1}`, string(env.Value))
}

func TestDecode_TTL(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := newCache(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"}), CacheConfig{TTL: time.Hour})
	defer c.Close()
	raw, err := encodeEnvelope(envelope{CreatedAt: created, Value: []byte("v")})
	require.NoError(t, err)

	c.now = func() time.Time { return created.Add(30 * time.Minute) }
	v, ok := c.decode(raw)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))

	c.now = func() time.Time { return created.Add(time.Hour) }
	_, ok = c.decode(raw)
	assert.False(t, ok)

	_, ok = c.decode([]byte("not json"))
	assert.False(t, ok)
	_, ok = c.decode(nil)
	assert.False(t, ok)
}

func TestNewCache_Defaults(t *testing.T) {
	c := newCache(goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"}), CacheConfig{})
	defer c.Close()
	assert.Equal(t, defaultTTL, c.ttl)
	assert.Equal(t, defaultKeyPrefix, c.prefix)
	assert.Equal(t, StateClosed, c.Breaker().CurrentState())
}

// TestCache_Integration runs against a live server when REDIS_ADDR is set.
func TestCache_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	c, err := NewCache(CacheConfig{Addr: addr, TTL: time.Minute, KeyPrefix: "mdcache-test:"})
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	key := "k-" + time.Now().Format(time.RFC3339Nano)
	_, ok := c.Get(ctx, key)
	assert.False(t, ok)

	c.Put(ctx, key, []byte(`{"v":1}`))
	v, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, `{"v":1}`, string(v))

	c.Put(ctx, key, []byte(`{"v":2}`))
	v, _ = c.Get(ctx, key)
	assert.Equal(t, `{"v":2}`, string(v))
}

// cancelAwareHook answers every command with a miss without dialing, and
// fails the command when it runs under a cancelled context.
type cancelAwareHook struct {
	sawCancelled bool
}

func (h *cancelAwareHook) BeforeProcess(ctx context.Context, cmd goredis.Cmder) (context.Context, error) {
	if err := ctx.Err(); err != nil {
		h.sawCancelled = true
		return ctx, err
	}
	return ctx, goredis.Nil
}

func (h *cancelAwareHook) AfterProcess(context.Context, goredis.Cmder) error { return nil }

func (h *cancelAwareHook) BeforeProcessPipeline(ctx context.Context, _ []goredis.Cmder) (context.Context, error) {
	return ctx, nil
}

func (h *cancelAwareHook) AfterProcessPipeline(context.Context, []goredis.Cmder) error { return nil }

func TestCache_CallerCancellationDoesNotTripBreaker(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	hook := &cancelAwareHook{}
	client.AddHook(hook)
	c := newCache(client, CacheConfig{TTL: time.Minute})
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 2*breakerMaxFailures; i++ {
		_, ok := c.Get(ctx, "prices:VTI:1y")
		assert.False(t, ok)
	}
	assert.Equal(t, StateClosed, c.Breaker().CurrentState())

	c.Put(ctx, "prices:VTI:1y", []byte(`{}`))
	assert.False(t, hook.sawCancelled, "redis calls must not inherit the caller's cancellation")
}
