package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCacheGetHitAndMiss(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db, "rg")

	mock.ExpectGet("rg:finnhub:peers:AAPL").SetVal(`["MSFT","GOOGL"]`)
	mock.ExpectGet("rg:finnhub:peers:TSLA").RedisNil()

	var peers []string
	require.NoError(t, c.Get(ctx, "finnhub:peers:AAPL", &peers))
	assert.Equal(t, []string{"MSFT", "GOOGL"}, peers)

	err := c.Get(ctx, "finnhub:peers:TSLA", &peers)
	assert.ErrorIs(t, err, ErrCacheMiss)

	mock.ExpectScan(0, "rg:*", scanBatch).SetVal([]string{"rg:finnhub:peers:AAPL"}, 0)
	st, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Hits: 1, Misses: 1, HitRate: 0.5, TotalKeys: 1}, st)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheGetConnectionError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db, "rg")

	mock.ExpectGet("rg:k").SetErr(errors.New("connection refused"))
	var s string
	err := c.Get(context.Background(), "k", &s)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCacheMiss))
}

func TestRedisCacheSetEncodesJSON(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db, "rg")

	mock.ExpectSet("rg:k", []byte(`{"name":"Apple","score":2}`), time.Hour).SetVal("OK")
	require.NoError(t, c.Set(context.Background(), "k", payload{Name: "Apple", Score: 2}, time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheTTLSentinels(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db, "rg")

	mock.ExpectTTL("rg:a").SetVal(time.Duration(-2))
	mock.ExpectTTL("rg:b").SetVal(time.Duration(-1))
	mock.ExpectTTL("rg:c").SetVal(90 * time.Second)

	d, err := c.TTL(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, KeyAbsent, d)

	d, err = c.TTL(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, NoExpiry, d)

	d, err = c.TTL(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)
}

func TestRedisCacheDeleteAndExists(t *testing.T) {
	ctx := context.Background()
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db, "rg")

	mock.ExpectDel("rg:k").SetVal(1)
	mock.ExpectDel("rg:k").SetVal(0)
	mock.ExpectExists("rg:k").SetVal(0)

	ok, err := c.Delete(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Delete(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheDeleteByPattern(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db, "rg")

	mock.ExpectScan(0, "rg:finnhub:*", scanBatch).SetVal([]string{"rg:finnhub:a", "rg:finnhub:b"}, 7)
	mock.ExpectUnlink("rg:finnhub:a", "rg:finnhub:b").SetVal(2)
	mock.ExpectScan(7, "rg:finnhub:*", scanBatch).SetVal([]string{"rg:finnhub:c"}, 0)
	mock.ExpectUnlink("rg:finnhub:c").SetVal(1)

	n, err := c.DeleteByPattern(context.Background(), "finnhub:*")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCacheHealth(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCacheFromClient(db, "rg")

	mock.ExpectPing().SetVal("PONG")
	mock.ExpectPing().SetErr(errors.New("dial tcp: connection refused"))

	assert.True(t, c.Health(context.Background()))
	assert.False(t, c.Health(context.Background()))
}

func TestRedisOptions(t *testing.T) {
	cfg := defaultRedisConfig()
	WithRedisAddr("cache.internal", 0)(cfg)
	WithRedisAuth("secret", 2)(cfg)
	WithRedisPool(20, 4, 0)(cfg)

	assert.Equal(t, "cache.internal:6379", cfg.Addr)
	assert.Equal(t, "secret", cfg.Password)
	assert.Equal(t, 2, cfg.DB)
	assert.Equal(t, 20, cfg.PoolSize)
	assert.Equal(t, 4, cfg.MinIdleConns)
	assert.Equal(t, 5*time.Second, cfg.DialTimeout)

	WithRedisPool(20, 4, time.Second)(cfg)
	assert.Equal(t, time.Second, cfg.PoolTimeout)
	assert.Equal(t, time.Second, cfg.DialTimeout)
}
