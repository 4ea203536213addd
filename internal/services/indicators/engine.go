package indicators

import (
	"time"

	"RegimeGuard/internal/domain/models"
)

// Engine reduces price history to an IndicatorSnapshot.
type Engine struct {
	volatilityWindow int
	now              func() time.Time
}

type Option func(*Engine)

// WithVolatilityWindow sets the number of daily returns used for volatility
// and the VIX proxy.
func WithVolatilityWindow(n int) Option {
	return func(e *Engine) {
		if n > 1 {
			e.volatilityWindow = n
		}
	}
}

func WithNow(fn func() time.Time) Option {
	return func(e *Engine) { e.now = fn }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{volatilityWindow: DefaultVolatilityWindow, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute builds a snapshot using the last close as the current price.
func (e *Engine) Compute(series, benchmark models.Series) models.IndicatorSnapshot {
	return e.ComputeWithPrice(series, benchmark, 0)
}

// ComputeWithPrice builds a snapshot against an explicit current price, e.g.
// a fresh quote. A non-positive price falls back to the last close. It never
// fails: every indicator has a documented default for short history.
func (e *Engine) ComputeWithPrice(series, benchmark models.Series, price float64) models.IndicatorSnapshot {
	closes := series.Closes()
	if price <= 0 {
		if last, ok := series.Last(); ok {
			price = last.Close
		}
	}

	trend := MovingAverageTrend(closes, price)
	vix := e.VIXProxy(benchmark)

	return models.IndicatorSnapshot{
		Volatility:    Volatility(closes, e.volatilityWindow),
		Trend:         trend,
		PricePosition: PositionAgainst(price, trend.MA50),
		RSI:           RSI(closes, RSIPeriod),
		MACD:          MACD(closes),
		Bollinger:     Bollinger(closes, price),
		ADX:           ADX(series, ADXPeriod),
		OBV:           OBV(series),
		VIX:           models.VIXIndicator{Value: vix, Bucket: models.BucketForVIX(vix)},
		ComputedAt:    e.now().UTC(),
	}
}

// VIXProxy is the benchmark's annualized volatility, or DefaultVIX when the
// benchmark is too short to measure.
func (e *Engine) VIXProxy(benchmark models.Series) float64 {
	if len(benchmark) < 3 {
		return models.DefaultVIX
	}
	return Volatility(benchmark.Closes(), e.volatilityWindow)
}
