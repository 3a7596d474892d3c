package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name   string      `json:"name"`
	Values [][]float64 `json:"values"`
}

func newRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rc := NewRedisCacheFromClient(client, "test")
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func services(t *testing.T) map[string]Service {
	t.Helper()
	mem := NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	rc, _ := newRedis(t)
	lrc, _ := newRedis(t)
	return map[string]Service{
		"memory":  mem,
		"redis":   rc,
		"layered": NewLayeredCache(lrc),
	}
}

func TestService_RoundTrip(t *testing.T) {
	ctx := context.Background()
	in := payload{Name: "m", Values: [][]float64{{1, 0.1234567890123456789}, {0.1234567890123456789, 1}}}

	for name, svc := range services(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, svc.Set(ctx, "k", in, time.Minute))

			var out payload
			require.NoError(t, svc.Get(ctx, "k", &out))
			assert.Equal(t, in, out)

			got, err := GetTyped[payload](ctx, svc, "k")
			require.NoError(t, err)
			assert.Equal(t, in, got)

			ok, err := svc.Exists(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, svc.Delete(ctx, "k"))
			assert.ErrorIs(t, svc.Get(ctx, "k", &out), ErrCacheMiss)
		})
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
}

func TestMemoryCache_EvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)
	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "a", &v))
}

func TestMemoryCache_DropsExpiredBeforeLiveEntries(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithMemoryCleanup(time.Hour))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "live", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "stale", 2, 5*time.Millisecond))
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, mc.Set(ctx, "new", 3, time.Minute))

	var v int
	assert.NoError(t, mc.Get(ctx, "live", &v), "oldest live entry kept while an expired one can go")
	assert.NoError(t, mc.Get(ctx, "new", &v))
	assert.Equal(t, 2, mc.Len())
}

func TestMemoryCache_ZeroMaxSizeIsUnbounded(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(0))
	defer mc.Close()

	for i := 0; i < 50; i++ {
		require.NoError(t, mc.Set(ctx, GenerateKey("k", fmt.Sprint(i)), i, time.Minute))
	}
	assert.Equal(t, 50, mc.Len())
}

func TestRedisCache_PrefixAndTTL(t *testing.T) {
	ctx := context.Background()
	rc, mr := newRedis(t)

	require.NoError(t, rc.Set(ctx, "session:1", "x", time.Minute))
	assert.True(t, mr.Exists("test:session:1"))

	mr.FastForward(2 * time.Minute)
	var s string
	assert.ErrorIs(t, rc.Get(ctx, "session:1", &s), ErrCacheMiss)
}

func TestLayeredCache_ServesFromRedisAfterL1Miss(t *testing.T) {
	ctx := context.Background()
	rc, _ := newRedis(t)
	lc := NewLayeredCache(rc, WithLayeredMemoryTTL(time.Minute))

	require.NoError(t, rc.Set(ctx, "k", payload{Name: "from-redis"}, time.Minute))
	var out payload
	require.NoError(t, lc.Get(ctx, "k", &out))
	assert.Equal(t, "from-redis", out.Name)

	ok, err := lc.Expire(ctx, "missing", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
