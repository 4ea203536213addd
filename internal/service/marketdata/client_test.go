package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegimeGuard/internal/domain/models"
	drepo "RegimeGuard/internal/domain/repository"
	"RegimeGuard/pkg/cache"
)

// fakeProvider answers every endpoint with canned data. Errors queued per
// endpoint are returned first, one per call.
type fakeProvider struct {
	mu     sync.Mutex
	calls  map[string]int
	queued map[string][]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{calls: map[string]int{}, queued: map[string][]error{}}
}

func (f *fakeProvider) fail(endpoint string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queued[endpoint] = append(f.queued[endpoint], errs...)
}

func (f *fakeProvider) hit(endpoint string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[endpoint]++
	if q := f.queued[endpoint]; len(q) > 0 {
		f.queued[endpoint] = q[1:]
		return q[0]
	}
	return nil
}

func (f *fakeProvider) count(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

func (f *fakeProvider) Quote(_ context.Context, s models.Symbol) (*models.Quote, error) {
	if err := f.hit("quote"); err != nil {
		return nil, err
	}
	return &models.Quote{Symbol: s, Current: 100}, nil
}

func (f *fakeProvider) Candles(_ context.Context, _ models.Symbol, _ drepo.Resolution, from, _ time.Time) (models.Series, error) {
	if err := f.hit("candles"); err != nil {
		return nil, err
	}
	return models.Series{{Time: from, Close: 1, Volume: 1}}, nil
}

func (f *fakeProvider) Financials(_ context.Context, s models.Symbol) (*models.Financials, error) {
	if err := f.hit("financials"); err != nil {
		return nil, err
	}
	return &models.Financials{Symbol: s, Metric: map[string]interface{}{"beta": 1.2}}, nil
}

func (f *fakeProvider) Recommendations(context.Context, models.Symbol) ([]models.RecommendationTrend, error) {
	if err := f.hit("recommendations"); err != nil {
		return nil, err
	}
	return []models.RecommendationTrend{{Period: "2024-01-01", Buy: 10}}, nil
}

func (f *fakeProvider) InsiderTransactions(context.Context, models.Symbol, models.DateRange) ([]models.InsiderTransaction, error) {
	if err := f.hit("insider_transactions"); err != nil {
		return nil, err
	}
	return []models.InsiderTransaction{{Name: "X", Change: -5}}, nil
}

func (f *fakeProvider) InsiderSentiment(context.Context, models.Symbol, models.DateRange) ([]models.InsiderSentiment, error) {
	if err := f.hit("insider_sentiment"); err != nil {
		return nil, err
	}
	return []models.InsiderSentiment{{Year: 2024, Month: 1, MSPR: 3}}, nil
}

func (f *fakeProvider) Profile(_ context.Context, s models.Symbol) (*models.CompanyProfile, error) {
	if err := f.hit("profile"); err != nil {
		return nil, err
	}
	return &models.CompanyProfile{Ticker: string(s), Name: "Acme"}, nil
}

func (f *fakeProvider) Peers(context.Context, models.Symbol) ([]string, error) {
	if err := f.hit("peers"); err != nil {
		return nil, err
	}
	return []string{"MSFT", "GOOG"}, nil
}

func (f *fakeProvider) Earnings(context.Context, models.Symbol, models.DateRange) ([]models.EarningsEvent, error) {
	if err := f.hit("earnings"); err != nil {
		return nil, err
	}
	return []models.EarningsEvent{{Symbol: "AAPL", Quarter: 1}}, nil
}

func (f *fakeProvider) News(context.Context, models.Symbol, models.DateRange) ([]models.NewsArticle, error) {
	if err := f.hit("news"); err != nil {
		return nil, err
	}
	return []models.NewsArticle{{ID: 1, Headline: "h"}}, nil
}

type countingLimiter struct {
	mu     sync.Mutex
	n      int
	waited time.Duration
}

func (l *countingLimiter) Wait(context.Context) (time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.n++
	return l.waited, nil
}

func (l *countingLimiter) passes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.n
}

type recordedSleeps struct {
	mu sync.Mutex
	d  []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	r.d = append(r.d, d)
	r.mu.Unlock()
	return nil
}

// brokenStore fails every read and write with a connection error.
type brokenStore struct{ cache.Store }

var errConn = errors.New("dial tcp: connection refused")

func (brokenStore) Get(context.Context, string, interface{}) error { return errConn }

func (brokenStore) Set(context.Context, string, interface{}, time.Duration) error { return errConn }

var harnessNow = time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

type harness struct {
	client   *Client
	provider *fakeProvider
	limiter  *countingLimiter
	sleeps   *recordedSleeps
	store    *cache.MemoryCache
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		provider: newFakeProvider(),
		limiter:  &countingLimiter{},
		sleeps:   &recordedSleeps{},
		store: cache.NewMemoryCache(
			cache.WithMemoryCleanup(0),
			cache.WithMemoryClock(func() time.Time { return harnessNow }),
		),
	}
	t.Cleanup(func() { _ = h.store.Close() })
	opts = append([]Option{WithSleep(h.sleeps.sleep)}, opts...)
	h.client = NewClient(h.provider, h.store, h.limiter, opts...)
	return h
}

func TestCorruptEntryIsRefetched(t *testing.T) {
	h := newHarness(t, WithCacheErrorPolicy(OnCacheErrorFail))
	ctx := context.Background()

	require.NoError(t, h.store.Set(ctx, Key(ClassProfile, "AAPL"), "not-json", time.Hour))

	got, err := h.client.Profile(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, 1, h.provider.count("profile"))
	assert.Equal(t, int64(1), h.client.Stats().CacheMisses)
	assert.Empty(t, h.client.Stats().Errors["cache_unavailable"])

	_, err = h.client.Profile(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, h.provider.count("profile"), "the corrupt entry was overwritten")
}

func statusErr(code int) error {
	return models.ClassifyStatus("test", code, errors.New("boom"))
}

func TestFetchWithCacheIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.client.Profile(ctx, "AAPL")
	require.NoError(t, err)
	second, err := h.client.Profile(ctx, "AAPL")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, h.provider.count("profile"))
	assert.Equal(t, 1, h.limiter.passes(), "a cache hit skips the limiter")

	st := h.client.Stats()
	assert.Equal(t, int64(1), st.APICalls)
	assert.Equal(t, int64(1), st.CacheHits)
	assert.Equal(t, int64(1), st.CacheMisses)
	assert.InDelta(t, 0.5, st.CacheHitRate, 1e-9)

	ttl, err := h.store.TTL(ctx, Key(ClassProfile, "AAPL"))
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, ttl)
}

func TestZeroTTLAlwaysFresh(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := h.client.Quote(ctx, "AAPL")
		require.NoError(t, err)
	}

	assert.Equal(t, 2, h.provider.count("quote"))
	st := h.client.Stats()
	assert.Equal(t, int64(0), st.CacheHits+st.CacheMisses, "always-fresh classes do not touch the cache")
	ok, _ := h.store.Exists(ctx, Key(ClassQuote, "AAPL"))
	assert.False(t, ok)
}

func TestRetryPolicy(t *testing.T) {
	tests := []struct {
		name       string
		errs       []error
		wantErr    error
		wantCalls  int
		wantSleeps []time.Duration
		wantKeys   map[string]int64
	}{
		{
			name:       "429 then success",
			errs:       []error{statusErr(429)},
			wantCalls:  2,
			wantSleeps: []time.Duration{60 * time.Second},
			wantKeys:   map[string]int64{"rate_limit_429": 1},
		},
		{
			name:       "500 and 503 then success",
			errs:       []error{statusErr(500), statusErr(503)},
			wantCalls:  3,
			wantSleeps: []time.Duration{2 * time.Second, 4 * time.Second},
			wantKeys:   map[string]int64{"server_error_500": 1, "server_error_503": 1},
		},
		{
			name:       "exhausted without trailing sleep",
			errs:       []error{statusErr(500), statusErr(500), statusErr(500)},
			wantErr:    models.ErrFetchExhausted,
			wantCalls:  3,
			wantSleeps: []time.Duration{2 * time.Second, 4 * time.Second},
			wantKeys:   map[string]int64{"server_error_500": 3, "fetch_exhausted": 1},
		},
		{
			name:      "401 is fatal",
			errs:      []error{statusErr(401)},
			wantErr:   models.ErrUpstreamAuth,
			wantCalls: 1,
			wantKeys:  map[string]int64{"invalid_api_key": 1},
		},
		{
			name:      "other status propagates",
			errs:      []error{statusErr(403)},
			wantErr:   models.ErrUpstreamOther,
			wantCalls: 1,
			wantKeys:  map[string]int64{"api_error_403": 1},
		},
		{
			name:      "network error does not retry",
			errs:      []error{models.NetworkError("test", errConn)},
			wantErr:   models.ErrNetwork,
			wantCalls: 1,
			wantKeys:  map[string]int64{"network_error": 1},
		},
		{
			name:      "unclassified error is treated as network",
			errs:      []error{errors.New("eof")},
			wantErr:   models.ErrNetwork,
			wantCalls: 1,
			wantKeys:  map[string]int64{"network_error": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.provider.fail("financials", tt.errs...)

			got, err := h.client.Financials(context.Background(), "AAPL")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Nil(t, got)
			} else {
				require.NoError(t, err)
				require.NotNil(t, got)
			}

			assert.Equal(t, tt.wantCalls, h.provider.count("financials"))
			assert.Equal(t, tt.wantSleeps, h.sleeps.d)
			assert.Equal(t, 1, h.limiter.passes(), "limiter is consulted once per fetch")

			st := h.client.Stats()
			assert.Equal(t, int64(tt.wantCalls), st.APICalls)
			assert.Equal(t, tt.wantKeys, st.Errors)
		})
	}
}

func TestNotFoundReturnsNoDataAndIsNotCached(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.provider.fail("profile", statusErr(404))

	p, err := h.client.Profile(ctx, "NOPE")
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, int64(1), h.client.Stats().Errors["invalid_symbol"])

	p, err = h.client.Profile(ctx, "NOPE")
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, 2, h.provider.count("profile"))
}

func TestRetrySleepHonoursCancellation(t *testing.T) {
	h := newHarness(t, WithSleep(func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}))
	h.provider.fail("peers", statusErr(429))

	_, err := h.client.Peers(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, h.provider.count("peers"))
}

func TestCacheUnavailablePolicies(t *testing.T) {
	t.Run("fresh", func(t *testing.T) {
		p := newFakeProvider()
		c := NewClient(p, brokenStore{}, &countingLimiter{})

		v, err := c.Peers(context.Background(), "AAPL")
		require.NoError(t, err)
		assert.Equal(t, []string{"MSFT", "GOOG"}, v)
		assert.Equal(t, 1, p.count("peers"))
		assert.Equal(t, int64(1), c.Stats().Errors["cache_unavailable"])
	})

	t.Run("fail", func(t *testing.T) {
		p := newFakeProvider()
		c := NewClient(p, brokenStore{}, &countingLimiter{}, WithCacheErrorPolicy(OnCacheErrorFail))

		_, err := c.Peers(context.Background(), "AAPL")
		require.Error(t, err)
		assert.True(t, errors.Is(err, models.ErrCacheUnavailable))
		assert.Equal(t, 0, p.count("peers"))
	})
}

func TestRateLimitWaitIsCounted(t *testing.T) {
	h := newHarness(t)
	h.limiter.waited = 5 * time.Second

	_, err := h.client.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.client.Stats().RateLimitWaits)
}

func TestCandlesKeyedByDay(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	from := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

	_, err := h.client.Candles(ctx, "AAPL", drepo.ResDay, from, to)
	require.NoError(t, err)
	_, err = h.client.Candles(ctx, "AAPL", drepo.ResDay, from.Add(time.Hour), to.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 1, h.provider.count("candles"))
	ok, _ := h.store.Exists(ctx, "finnhub:candles:AAPL:D:2024-01-02:2024-06-03")
	assert.True(t, ok)
}

func TestFetchAllPartialResults(t *testing.T) {
	h := newHarness(t, WithRetryPolicy(RetryPolicy{MaxAttempts: 1}))
	h.provider.fail("financials", statusErr(500))
	h.provider.fail("profile", statusErr(401))

	md, err := h.client.FetchAll(context.Background(), " aapl ", models.DateRange{})
	require.NoError(t, err)

	assert.Equal(t, models.Symbol("AAPL"), md.Symbol)
	assert.NotNil(t, md.Quote)
	assert.Nil(t, md.Financials)
	assert.Nil(t, md.Profile)
	assert.Len(t, md.Peers, 2)
	assert.Len(t, md.News, 1)
	assert.Len(t, md.Earnings, 1)
	assert.Contains(t, md.Errors, "financials")
	assert.Contains(t, md.Errors, "company_profile")
	assert.Len(t, md.Errors, 2)
}

func TestFetchAllRejectsEmptySymbol(t *testing.T) {
	h := newHarness(t)
	_, err := h.client.FetchAll(context.Background(), "   ", models.DateRange{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestConcurrentFetchesKeepCountersConsistent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	const n = 64
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = h.client.Quote(ctx, models.Symbol(fmt.Sprintf("S%d", i%8)))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(n), h.client.Stats().APICalls)
	assert.Equal(t, n, h.limiter.passes())
}

func TestKey(t *testing.T) {
	assert.Equal(t, "finnhub:financials:AAPL", Key(ClassFinancials, "AAPL"))
	assert.Equal(t, "finnhub:news:AAPL:2024-01-01:2024-01-31", Key(ClassNews, "AAPL", "2024-01-01", "2024-01-31"))
}
