package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestMemory(t *testing.T, opts ...MemoryOption) (*MemoryCache, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)}
	opts = append([]MemoryOption{WithMemoryClock(clk.Now), WithMemoryCleanup(0)}, opts...)
	mc := NewMemoryCache(opts...)
	t.Cleanup(func() { _ = mc.Close() })
	return mc, clk
}

func TestMemoryCacheRoundTripAndStats(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t)

	var got payload
	err := mc.Get(ctx, "finnhub:profile:AAPL", &got)
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "finnhub:profile:AAPL", payload{Name: "Apple", Score: 1.5}, time.Hour))
	require.NoError(t, mc.Get(ctx, "finnhub:profile:AAPL", &got))
	assert.Equal(t, payload{Name: "Apple", Score: 1.5}, got)

	st, err := mc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.InDelta(t, 0.5, st.HitRate, 1e-9)
	assert.Equal(t, int64(1), st.TotalKeys)
}

func TestMemoryCacheUndecodableIsMiss(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t)

	require.NoError(t, mc.Set(ctx, "finnhub:profile:AAPL", "not-json", time.Hour))

	var got payload
	err := mc.Get(ctx, "finnhub:profile:AAPL", &got)
	require.ErrorIs(t, err, ErrCacheMiss)

	var raw string
	require.NoError(t, mc.Get(ctx, "finnhub:profile:AAPL", &raw))
	assert.Equal(t, "not-json", raw)

	st, err := mc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)

	// GetOrCompute overwrites the unreadable entry
	v, err := GetOrCompute(ctx, mc, "finnhub:profile:AAPL", time.Hour, func(context.Context) (payload, error) {
		return payload{Name: "Apple"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Apple", v.Name)
	require.NoError(t, mc.Get(ctx, "finnhub:profile:AAPL", &got))
	assert.Equal(t, "Apple", got.Name)
}

func TestMemoryCacheHitRateZeroWithoutLookups(t *testing.T) {
	mc, _ := newTestMemory(t)
	st, err := mc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.HitRate)
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	mc, clk := newTestMemory(t)

	ttl, err := mc.TTL(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, KeyAbsent, ttl)

	require.NoError(t, mc.Set(ctx, "forever", "x", 0))
	ttl, err = mc.TTL(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, NoExpiry, ttl)

	require.NoError(t, mc.Set(ctx, "daily", "x", 24*time.Hour))
	clk.Advance(time.Hour)
	ttl, err = mc.TTL(ctx, "daily")
	require.NoError(t, err)
	assert.Equal(t, 23*time.Hour, ttl)

	clk.Advance(23 * time.Hour)
	ok, err := mc.Exists(ctx, "daily")
	require.NoError(t, err)
	assert.False(t, ok)

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "daily", &s), ErrCacheMiss)
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t)

	require.NoError(t, mc.Set(ctx, "k", "v", time.Minute))
	existed, err := mc.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = mc.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t)

	for _, k := range []string{"finnhub:financials:AAPL", "finnhub:peers:AAPL", "finnhub:peers:MSFT", "other:x"} {
		require.NoError(t, mc.Set(ctx, k, "v", time.Hour))
	}
	n, err := mc.DeleteByPattern(ctx, "finnhub:peers:*")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, _ := mc.Exists(ctx, "finnhub:financials:AAPL")
	assert.True(t, ok)
	ok, _ = mc.Exists(ctx, "finnhub:peers:MSFT")
	assert.False(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc, clk := newTestMemory(t, WithMemoryMaxSize(2))

	require.NoError(t, mc.Set(ctx, "a", "1", time.Hour))
	clk.Advance(time.Second)
	require.NoError(t, mc.Set(ctx, "b", "2", time.Hour))
	clk.Advance(time.Second)

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s))
	clk.Advance(time.Second)

	require.NoError(t, mc.Set(ctx, "c", "3", time.Hour))

	ok, _ := mc.Exists(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	ok, _ = mc.Exists(ctx, "a")
	assert.True(t, ok)
}

func TestGetOrCompute(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t)

	calls := 0
	factory := func(context.Context) (payload, error) {
		calls++
		return payload{Name: "computed"}, nil
	}

	v, err := GetOrCompute(ctx, mc, "k", time.Minute, factory)
	require.NoError(t, err)
	assert.Equal(t, "computed", v.Name)

	v, err = GetOrCompute(ctx, mc, "k", time.Minute, factory)
	require.NoError(t, err)
	assert.Equal(t, "computed", v.Name)
	assert.Equal(t, 1, calls)
}

func TestGetOrComputeZeroTTLDoesNotStore(t *testing.T) {
	ctx := context.Background()
	mc, _ := newTestMemory(t)

	calls := 0
	factory := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}
	_, _ = GetOrCompute(ctx, mc, "fresh", 0, factory)
	v, err := GetOrCompute(ctx, mc, "fresh", 0, factory)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestGetOrComputeFactoryError(t *testing.T) {
	mc, _ := newTestMemory(t)
	boom := errors.New("boom")
	_, err := GetOrCompute(context.Background(), mc, "k", time.Minute, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
	ok, _ := mc.Exists(context.Background(), "k")
	assert.False(t, ok)
}

func TestMemoryCacheHealthAfterClose(t *testing.T) {
	mc, _ := newTestMemory(t)
	assert.True(t, mc.Health(context.Background()))
	require.NoError(t, mc.Close())
	assert.False(t, mc.Health(context.Background()))
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "finnhub:insiders:AAPL:2024-01-01:2024-02-01",
		GenerateKeyWithParams("finnhub:insiders", "AAPL", "2024-01-01", "2024-02-01"))
	assert.Equal(t, "finnhub:earnings:all", GenerateKeyWithParams("finnhub:earnings", "", "all"))
	assert.Equal(t, "finnhub:*", BuildPattern("finnhub:"))
	assert.Equal(t, "finnhub:*", BuildPattern("finnhub:*"))
}
