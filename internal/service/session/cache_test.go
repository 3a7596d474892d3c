package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"FinCorr/internal/domain/models"
	"FinCorr/pkg/cache"
	applogger "FinCorr/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(session string, tickers ...string) *models.CorrelationAnalysisResult {
	n := len(tickers)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		for j := range values[i] {
			if i == j {
				values[i][j] = 1
			} else {
				values[i][j] = 0.1 * float64(i+j)
			}
		}
	}
	return &models.CorrelationAnalysisResult{
		SessionID:    session,
		Tickers:      tickers,
		Matrix:       models.CorrelationMatrix{Tickers: tickers, Values: values},
		Observations: 10,
		ComputedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func backends(t *testing.T) map[string]cache.Service {
	t.Helper()
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mem.Close() })
	mr := miniredis.RunT(t)
	rc := cache.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "fincorr")
	t.Cleanup(func() { _ = rc.Close() })
	return map[string]cache.Service{"memory": mem, "redis": rc}
}

func TestCache_Lifecycle(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c := NewCache(backend, WithTTL(time.Minute))

			_, err := c.Get(ctx, "s1")
			assert.ErrorIs(t, err, models.ErrNoAnalysisAvailable)

			first := result("s1", "AAA", "BBB")
			require.NoError(t, c.Put(ctx, "s1", first))
			got, err := c.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, first, got)

			second := result("s1", "CCC", "DDD", "EEE")
			require.NoError(t, c.Put(ctx, "s1", second))
			got, err = c.Get(ctx, "s1")
			require.NoError(t, err)
			assert.Equal(t, second.Tickers, got.Tickers)

			_, err = c.Get(ctx, "s2")
			assert.ErrorIs(t, err, models.ErrNoAnalysisAvailable)

			require.NoError(t, c.Delete(ctx, "s1"))
			_, err = c.Get(ctx, "s1")
			assert.ErrorIs(t, err, models.ErrNoAnalysisAvailable)
			assert.NoError(t, c.Delete(ctx, "s1"))
		})
	}
}

func TestCache_RejectsEmptySession(t *testing.T) {
	c := NewCache(cache.NewMemoryCache())
	_, err := c.Get(context.Background(), " ")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
	assert.ErrorIs(t, c.Put(context.Background(), "", result("x", "A")), models.ErrInvalidInput)
}

func TestCache_ExpiresWithSession(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rc := cache.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "fincorr")
	c := NewCache(rc, WithTTL(time.Minute))

	require.NoError(t, c.Put(ctx, "s1", result("s1", "AAA", "BBB")))
	mr.FastForward(2 * time.Minute)
	_, err := c.Get(ctx, "s1")
	assert.ErrorIs(t, err, models.ErrNoAnalysisAvailable)
}

func TestCache_ConcurrentSessions(t *testing.T) {
	ctx := context.Background()
	c := NewCache(cache.NewMemoryCache())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i%4)
			_ = c.Put(ctx, id, result(id, "AAA", "BBB"))
			_, _ = c.Get(ctx, id)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		got, err := c.Get(ctx, fmt.Sprintf("s%d", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("s%d", i), got.SessionID)
	}
	assert.Equal(t, 0, c.locks.Len())
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()
	unlock := km.Lock("a")

	acquired := make(chan struct{})
	go func() {
		u := km.Lock("a")
		close(acquired)
		u()
	}()

	other := km.Lock("b")
	other()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired
	assert.Eventually(t, func() bool { return km.Len() == 0 }, time.Second, time.Millisecond)
}

type failingExpire struct {
	cache.Service
}

func (failingExpire) Expire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("connection reset")
}

func TestCache_GetSurvivesTTLRefreshFailure(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache()
	defer mem.Close()
	var buf bytes.Buffer
	c := NewCache(failingExpire{Service: mem}, WithLogger(applogger.NewWithWriter(&buf, "debug")))

	require.NoError(t, c.Put(ctx, "s1", result("s1", "A", "B")))
	got, err := c.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got.Tickers)
	assert.Contains(t, buf.String(), "session ttl refresh failed")
	assert.Contains(t, buf.String(), "connection reset")
}

func TestCache_UncappedMemoryKeepsEverySession(t *testing.T) {
	ctx := context.Background()
	mem := cache.NewMemoryCache(cache.WithMemoryMaxSize(0))
	defer mem.Close()
	c := NewCache(mem)

	for i := 0; i < 20; i++ {
		sid := fmt.Sprintf("s%d", i)
		require.NoError(t, c.Put(ctx, sid, result(sid, "A", "B")))
	}
	for i := 0; i < 20; i++ {
		_, err := c.Get(ctx, fmt.Sprintf("s%d", i))
		assert.NoError(t, err)
	}
}
