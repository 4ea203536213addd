package marketdata

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"RegimeGuard/internal/domain/models"
	drepo "RegimeGuard/internal/domain/repository"
	"RegimeGuard/pkg/cache"
	"RegimeGuard/pkg/logger"
)

// Limiter gates upstream calls. *ratelimit.SlidingWindow satisfies it.
type Limiter interface {
	Wait(ctx context.Context) (time.Duration, error)
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Client mediates every upstream call through the shared limiter, the retry
// policy and, for cacheable classes, the cache. It is safe for concurrent use.
type Client struct {
	provider drepo.MarketDataProvider
	cache    cache.Store
	limiter  Limiter
	log      *logger.Logger
	metrics  drepo.Metrics

	ttl          TTLConfig
	retry        RetryPolicy
	onCacheError CacheErrorPolicy
	sleep        SleepFunc
	now          func() time.Time

	stats *statsTracker
}

type Option func(*Client)

func WithTTLs(t TTLConfig) Option { return func(c *Client) { c.ttl = t } }

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) {
		if p.MaxAttempts > 0 {
			c.retry = p
		}
	}
}

func WithCacheErrorPolicy(p CacheErrorPolicy) Option {
	return func(c *Client) {
		if p == OnCacheErrorFail {
			c.onCacheError = p
		}
	}
}

// WithSleep replaces the retry sleep, for tests.
func WithSleep(fn SleepFunc) Option { return func(c *Client) { c.sleep = fn } }

func WithNow(fn func() time.Time) Option { return func(c *Client) { c.now = fn } }

func WithMetrics(m drepo.Metrics) Option { return func(c *Client) { c.metrics = m } }

func WithLogger(l *logger.Logger) Option { return func(c *Client) { c.log = l } }

func NewClient(provider drepo.MarketDataProvider, store cache.Store, limiter Limiter, opts ...Option) *Client {
	c := &Client{
		provider:     provider,
		cache:        store,
		limiter:      limiter,
		log:          logger.Nop(),
		ttl:          DefaultTTLs(),
		retry:        DefaultRetryPolicy(),
		onCacheError: OnCacheErrorFresh,
		sleep:        sleepCtx,
		now:          time.Now,
		stats:        newStatsTracker(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stats returns a copy of the process-lifetime counters.
func (c *Client) Stats() Stats {
	return c.stats.snapshot()
}

// Cache exposes the underlying store for invalidation and health checks.
func (c *Client) Cache() cache.Store {
	return c.cache
}

func (c *Client) trackError(key string) {
	c.stats.track(key)
	if c.metrics != nil {
		c.metrics.RecordError(key)
	}
}

// fetchWithCache is the cache-aside path shared by every endpoint. class
// names the data class for logs and metrics. A ttl of zero never touches the
// cache. A not-found upstream answer yields the zero value and no error.
func fetchWithCache[T any](ctx context.Context, c *Client, class, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	var zero T
	store := ttl > 0 && c.cache != nil

	if store {
		var cached T
		err := c.cache.Get(ctx, key, &cached)
		switch {
		case err == nil:
			c.stats.lookup(true)
			if c.metrics != nil {
				c.metrics.RecordCacheLookup(class, true)
			}
			c.log.Debug("cache hit", logger.String("key", key))
			return cached, nil
		case errors.Is(err, cache.ErrCacheMiss):
			c.stats.lookup(false)
			if c.metrics != nil {
				c.metrics.RecordCacheLookup(class, false)
			}
			c.log.Debug("cache miss", logger.String("key", key))
		default:
			c.trackError("cache_unavailable")
			if c.onCacheError == OnCacheErrorFail {
				return zero, fmt.Errorf("%s: %w: %v", key, models.ErrCacheUnavailable, err)
			}
			c.log.Warn("cache unavailable, fetching fresh", logger.String("key", key), logger.Error(err))
			store = false
		}
	}

	waited, err := c.limiter.Wait(ctx)
	if waited > 0 {
		c.stats.wait()
		if c.metrics != nil {
			c.metrics.RecordRateLimitWait(waited.Seconds())
		}
		c.log.Warn("rate limit reached, waited", logger.String("key", key), logger.Duration("waited_ms", waited))
	}
	if err != nil {
		return zero, fmt.Errorf("%s: rate limit wait: %w", key, err)
	}

	val, err := withRetry(ctx, c, class, key, fetch)
	if err != nil {
		return zero, err
	}

	if store && !isNil(val) {
		if err := c.cache.Set(ctx, key, val, ttl); err != nil {
			c.trackError("cache_unavailable")
			c.log.Warn("cache store failed", logger.String("key", key), logger.Error(err))
		}
	}
	return val, nil
}

// withRetry runs fetch under the retry policy. Every attempt counts as one
// upstream call. Rate-limit and server errors retry; everything else returns
// at once.
func withRetry[T any](ctx context.Context, c *Client, class, key string, fetch func(context.Context) (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	attempts := c.retry.MaxAttempts
	for attempt := 1; attempt <= attempts; attempt++ {
		c.stats.call()
		if c.metrics != nil {
			c.metrics.RecordUpstreamCall(class)
		}

		val, err := fetch(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		var ue *models.UpstreamError
		if !errors.As(err, &ue) {
			ue = models.NetworkError(class, err)
			err = ue
		}
		c.trackError(ue.TrackingKey())

		var backoff time.Duration
		switch ue.Kind {
		case models.KindRateLimited:
			backoff = c.retry.RateLimitBackoff
			c.log.Warn("upstream rate limited",
				logger.String("key", key), logger.Int("attempt", attempt), logger.Int("max_attempts", attempts))
		case models.KindServer:
			backoff = c.retry.serverBackoff(attempt)
			c.log.Warn("upstream server error",
				logger.String("key", key), logger.Int("status", ue.StatusCode),
				logger.Int("attempt", attempt), logger.Int("max_attempts", attempts))
		case models.KindNotFound:
			c.log.Warn("no data for key", logger.String("key", key))
			return zero, nil
		case models.KindAuth:
			c.log.Error("upstream rejected api key", logger.String("key", key))
			return zero, err
		default:
			c.log.Error("upstream fetch failed", logger.String("key", key), logger.Error(err))
			return zero, err
		}

		if attempt == attempts {
			break
		}
		if err := c.sleep(ctx, backoff); err != nil {
			return zero, fmt.Errorf("%s: retry backoff: %w", key, err)
		}
	}

	c.trackError("fetch_exhausted")
	return zero, fmt.Errorf("%s: %w after %d attempts: %w", key, models.ErrFetchExhausted, attempts, lastErr)
}

// isNil reports whether v is a nil pointer, slice or map.
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
