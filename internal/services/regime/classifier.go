package regime

import (
	"time"

	"RegimeGuard/internal/domain/models"
	domsvc "RegimeGuard/internal/domain/service"
)

const (
	trendingADX = 25.0
	quietADX    = 15.0
	squeezeBW   = 0.05
)

type rule struct {
	name  string
	match func(s *models.IndicatorSnapshot) (models.RegimeType, bool)
}

// rules are evaluated in order and the first match wins.
var rules = []rule{
	{"vix_extreme", func(s *models.IndicatorSnapshot) (models.RegimeType, bool) {
		return models.RegimeVolatilitySpike, s.VIX.Bucket == models.VIXExtreme
	}},
	{"liquidity_low", func(s *models.IndicatorSnapshot) (models.RegimeType, bool) {
		return models.RegimeLowLiquidity, s.OBV.Liquidity == models.LiquidityLow
	}},
	{"adx_trending", func(s *models.IndicatorSnapshot) (models.RegimeType, bool) {
		if s.ADX <= trendingADX {
			return "", false
		}
		switch {
		case bullishAlignment(s):
			return models.RegimeBullTrend, true
		case bearishAlignment(s):
			return models.RegimeBearTrend, true
		default:
			return models.RegimeRangeBound, true
		}
	}},
	{"adx_quiet_squeeze", func(s *models.IndicatorSnapshot) (models.RegimeType, bool) {
		return models.RegimeStagnation, s.ADX < quietADX && s.Bollinger.Bandwidth < squeezeBW
	}},
	{"default", func(*models.IndicatorSnapshot) (models.RegimeType, bool) {
		return models.RegimeRangeBound, true
	}},
}

func bullishAlignment(s *models.IndicatorSnapshot) bool {
	return s.MACD.Condition.Bullish() &&
		s.PricePosition == models.PositionAbove &&
		s.OBV.Trend == models.OBVBullish
}

func bearishAlignment(s *models.IndicatorSnapshot) bool {
	return s.MACD.Condition.Bearish() &&
		s.PricePosition == models.PositionBelow &&
		s.OBV.Trend == models.OBVBearish
}

// Classifier is a deterministic, total mapping from snapshot to regime.
type Classifier struct {
	now func() time.Time
}

func NewClassifier() *Classifier {
	return &Classifier{now: time.Now}
}

var _ domsvc.RegimeClassifier = (*Classifier)(nil)

// Classify returns exactly one regime. A nil snapshot is treated as all defaults.
func (c *Classifier) Classify(snap *models.IndicatorSnapshot) models.Regime {
	if snap == nil {
		fallback := models.DefaultSnapshot()
		snap = &fallback
	}
	out := models.Regime{Symbol: snap.Symbol, Timestamp: c.now().UTC()}
	for _, r := range rules {
		if t, ok := r.match(snap); ok {
			out.Type, out.Rule = t, r.name
			return out
		}
	}
	// unreachable: the default rule always matches
	out.Type, out.Rule = models.RegimeRangeBound, "default"
	return out
}
