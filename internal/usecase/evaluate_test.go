package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"RegimeGuard/internal/domain/models"
	drepo "RegimeGuard/internal/domain/repository"
	"RegimeGuard/internal/services/indicators"
	"RegimeGuard/internal/services/regime"
	"RegimeGuard/internal/services/veto"
)

var testNow = time.Date(2024, 6, 3, 15, 0, 0, 0, time.UTC)

func uptrend(n int) models.Series {
	out := make([]models.Candle, n)
	start := testNow.AddDate(0, 0, -n)
	for i := range out {
		c := 100 + float64(i)*0.5 + math.Sin(float64(i))*0.8
		out[i] = models.Candle{
			Time:   start.AddDate(0, 0, i),
			Open:   c - 0.3,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return models.NewSeries(out)
}

type fakeData struct {
	mu         sync.Mutex
	quote      *models.Quote
	quoteErr   error
	series     map[models.Symbol]models.Series
	candlesErr map[models.Symbol]error
	calls      []string
}

func newFakeData() *fakeData {
	return &fakeData{
		series:     map[models.Symbol]models.Series{},
		candlesErr: map[models.Symbol]error{},
	}
}

func (f *fakeData) Quote(_ context.Context, s models.Symbol) (*models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "quote:"+string(s))
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	if f.quote == nil {
		return nil, nil
	}
	q := *f.quote
	q.Symbol = s
	return &q, nil
}

func (f *fakeData) Candles(_ context.Context, s models.Symbol, res drepo.Resolution, from, to time.Time) (models.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("candles:%s:%s:%d", s, res, int(to.Sub(from).Hours()/24)))
	if err := f.candlesErr[s]; err != nil {
		return nil, err
	}
	return f.series[s], nil
}

type memStore struct {
	mu    sync.Mutex
	saved []*models.Evaluation
	err   error
}

func (m *memStore) Init(context.Context) error { return nil }

func (m *memStore) Save(_ context.Context, e *models.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, e)
	return nil
}

func (m *memStore) Recent(_ context.Context, s models.Symbol, limit int) ([]*models.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Evaluation
	for i := len(m.saved) - 1; i >= 0 && len(out) < limit; i-- {
		if m.saved[i].Symbol == s {
			out = append(out, m.saved[i])
		}
	}
	return out, nil
}

func (m *memStore) Health(context.Context) error { return nil }
func (m *memStore) Close() error                 { return nil }

type recordingPublisher struct {
	mu   sync.Mutex
	sent []models.Symbol
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, e *models.Evaluation) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, e.Symbol)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type stubNarrator struct {
	text  string
	err   error
	calls int
}

func (s *stubNarrator) Narrate(context.Context, *models.Evaluation) (string, error) {
	s.calls++
	return s.text, s.err
}

func (s *stubNarrator) Enabled() bool { return true }

func newEvaluator(data MarketData, opts ...EvaluatorOption) *Evaluator {
	base := []EvaluatorOption{WithEvaluatorClock(func() time.Time { return testNow })}
	return NewEvaluator(
		data,
		indicators.NewEngine(indicators.WithNow(func() time.Time { return testNow })),
		regime.NewClassifier(),
		veto.NewEngine(nil),
		append(base, opts...)...,
	)
}

func TestEvaluate_FullPipeline(t *testing.T) {
	data := newFakeData()
	data.quote = &models.Quote{Current: 250}
	data.series["AAPL"] = uptrend(260)
	data.series["SPY"] = uptrend(260)
	store := &memStore{}
	pub := &recordingPublisher{}

	uc := newEvaluator(data, WithStore(store), WithPublisher(pub))
	ev, err := uc.Evaluate(context.Background(), " aapl ", EvaluateOptions{})
	require.NoError(t, err)

	assert.Equal(t, models.Symbol("AAPL"), ev.Symbol)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, 260, ev.Bars)
	assert.Equal(t, 250.0, ev.Snapshot.Trend.Current, "fresh quote is the current price")
	assert.True(t, ev.Regime.Type.Valid())
	assert.Equal(t, models.Symbol("AAPL"), ev.Regime.Symbol)
	assert.Equal(t, !ev.Veto.ShouldVeto, ev.Veto.Severity == nil)
	assert.Empty(t, ev.Narrative)
	assert.Equal(t, testNow, ev.EvaluatedAt)

	require.Len(t, store.saved, 1)
	assert.Equal(t, []models.Symbol{"AAPL"}, pub.sent)
	assert.Contains(t, data.calls, "candles:AAPL:D:400")
	assert.Contains(t, data.calls, "candles:SPY:D:400")
}

func TestEvaluate_QuoteFailureFallsBackToLastClose(t *testing.T) {
	data := newFakeData()
	data.quoteErr = errors.New("boom")
	series := uptrend(120)
	data.series["MSFT"] = series
	data.series["SPY"] = series

	ev, err := newEvaluator(data).Evaluate(context.Background(), "MSFT", EvaluateOptions{})
	require.NoError(t, err)
	last, _ := series.Last()
	assert.Equal(t, last.Close, ev.Snapshot.Trend.Current)
	assert.Nil(t, ev.Quote)
}

func TestEvaluate_CandleFailures(t *testing.T) {
	authErr := &models.UpstreamError{Kind: models.KindAuth, StatusCode: 401, Endpoint: "candles"}

	tests := []struct {
		name    string
		setup   func(*fakeData)
		wantErr []error
	}{
		{
			name:    "upstream error",
			setup:   func(f *fakeData) { f.candlesErr["AAPL"] = authErr },
			wantErr: []error{models.ErrInsufficientData, models.ErrUpstreamAuth},
		},
		{
			name:    "no data",
			setup:   func(f *fakeData) {},
			wantErr: []error{models.ErrInsufficientData},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := newFakeData()
			tt.setup(data)
			store := &memStore{}
			_, err := newEvaluator(data, WithStore(store)).Evaluate(context.Background(), "AAPL", EvaluateOptions{})
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
			assert.Empty(t, store.saved)
		})
	}
}

func TestEvaluate_InvalidSymbol(t *testing.T) {
	_, err := newEvaluator(newFakeData()).Evaluate(context.Background(), "   ", EvaluateOptions{})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestEvaluate_BenchmarkFailureUsesDefaultVIX(t *testing.T) {
	data := newFakeData()
	data.series["AAPL"] = uptrend(120)
	data.candlesErr["SPY"] = errors.New("down")

	ev, err := newEvaluator(data).Evaluate(context.Background(), "AAPL", EvaluateOptions{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultVIX, ev.Snapshot.VIX.Value)
	assert.Equal(t, models.VIXCalm, ev.Snapshot.VIX.Bucket)
}

func TestEvaluate_BenchmarkIsSymbol(t *testing.T) {
	data := newFakeData()
	data.series["SPY"] = uptrend(120)

	_, err := newEvaluator(data).Evaluate(context.Background(), "SPY", EvaluateOptions{})
	require.NoError(t, err)
	assert.Len(t, data.calls, 2, "quote and a single candles fetch: %v", data.calls)
}

func TestEvaluate_Narration(t *testing.T) {
	data := newFakeData()
	data.series["AAPL"] = uptrend(120)
	data.series["SPY"] = uptrend(120)

	n := &stubNarrator{text: "VOTE: HOLD"}
	uc := newEvaluator(data, WithNarrator(n))

	ev, err := uc.Evaluate(context.Background(), "AAPL", EvaluateOptions{})
	require.NoError(t, err)
	assert.Empty(t, ev.Narrative)
	assert.Equal(t, 0, n.calls)

	ev, err = uc.Evaluate(context.Background(), "AAPL", EvaluateOptions{Narrate: true})
	require.NoError(t, err)
	assert.Equal(t, "VOTE: HOLD", ev.Narrative)

	failing := &stubNarrator{err: errors.New("breaker open")}
	plain, err := newEvaluator(data).Evaluate(context.Background(), "AAPL", EvaluateOptions{})
	require.NoError(t, err)
	ev, err = newEvaluator(data, WithNarrator(failing)).Evaluate(context.Background(), "AAPL", EvaluateOptions{Narrate: true})
	require.NoError(t, err, "narration failure never fails the evaluation")
	assert.Empty(t, ev.Narrative)
	assert.Equal(t, plain.Regime.Type, ev.Regime.Type)
	assert.Equal(t, plain.Veto, ev.Veto)
}

func TestEvaluate_SinkFailuresAreNonFatal(t *testing.T) {
	data := newFakeData()
	data.series["AAPL"] = uptrend(120)

	store := &memStore{err: errors.New("disk full")}
	pub := &recordingPublisher{err: errors.New("broker down")}
	ev, err := newEvaluator(data, WithStore(store), WithPublisher(pub)).
		Evaluate(context.Background(), "AAPL", EvaluateOptions{})
	require.NoError(t, err)
	assert.NotNil(t, ev)
	assert.Len(t, pub.sent, 1)
}

func TestEvaluateMany(t *testing.T) {
	data := newFakeData()
	for _, s := range []models.Symbol{"AAPL", "MSFT", "NVDA", "SPY"} {
		data.series[s] = uptrend(120)
	}
	uc := newEvaluator(data, WithEvaluatorConfig(EvaluatorConfig{Workers: 2}))

	res := uc.EvaluateMany(context.Background(), []string{"nvda", "", "AAPL", "TSLA", "msft"}, EvaluateOptions{})
	require.Len(t, res.Evaluations, 3)
	assert.Equal(t, models.Symbol("NVDA"), res.Evaluations[0].Symbol)
	assert.Equal(t, models.Symbol("AAPL"), res.Evaluations[1].Symbol)
	assert.Equal(t, models.Symbol("MSFT"), res.Evaluations[2].Symbol)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors, "")
	assert.Contains(t, res.Errors["TSLA"], "insufficient market data")
}

func TestEvaluateMany_AllSucceed(t *testing.T) {
	data := newFakeData()
	data.series["AAPL"] = uptrend(60)

	res := newEvaluator(data).EvaluateMany(context.Background(), []string{"AAPL"}, EvaluateOptions{})
	assert.Len(t, res.Evaluations, 1)
	assert.Nil(t, res.Errors)

	res = newEvaluator(data).EvaluateMany(context.Background(), nil, EvaluateOptions{})
	assert.Empty(t, res.Evaluations)
	assert.Nil(t, res.Errors)
}

func TestClassifySnapshot(t *testing.T) {
	uc := newEvaluator(newFakeData())
	rsi := 150.0
	vix := 40.0
	got, err := uc.ClassifySnapshot(models.SnapshotInput{Symbol: "aapl", RSI: &rsi, VIX: &vix})
	require.NoError(t, err)

	assert.Equal(t, []string{"RSI"}, got.ResetFields)
	assert.Equal(t, 50.0, got.Snapshot.RSI)
	assert.Equal(t, models.RegimeVolatilitySpike, got.Regime.Type)
	assert.Equal(t, models.Symbol("AAPL"), got.Regime.Symbol)
	assert.True(t, got.Veto.ShouldVeto)
	assert.Equal(t, models.SeverityCritical, *got.Veto.Severity)
}

func TestHistory(t *testing.T) {
	data := newFakeData()
	data.series["AAPL"] = uptrend(60)
	store := &memStore{}
	uc := newEvaluator(data, WithStore(store))

	for i := 0; i < 3; i++ {
		_, err := uc.Evaluate(context.Background(), "AAPL", EvaluateOptions{})
		require.NoError(t, err)
	}
	got, err := uc.History(context.Background(), "aapl", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = newEvaluator(data).History(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = uc.History(context.Background(), "", 10)
	assert.ErrorIs(t, err, models.ErrValidation)
}
