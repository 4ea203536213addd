package indicators

import "RegimeGuard/internal/domain/models"

const (
	shortMA = 50
	longMA  = 200
)

type trendRule struct {
	trend models.MATrend
	match func(cur, ma50, ma200 float64) bool
}

// trendRules are evaluated in order; the first match wins.
var trendRules = []trendRule{
	{models.TrendStrongUp, func(cur, ma50, ma200 float64) bool { return cur > ma50 && ma50 > ma200 }},
	{models.TrendUp, func(cur, ma50, ma200 float64) bool { return cur > ma50 && ma50 < ma200 }},
	{models.TrendHolding, func(cur, ma50, ma200 float64) bool { return cur < ma50 && ma50 > ma200 }},
	{models.TrendDown, func(cur, ma50, ma200 float64) bool { return cur < ma50 && ma50 < ma200 }},
}

// ClassifyTrend applies the ordered moving-average rules.
func ClassifyTrend(cur, ma50, ma200 float64) models.MATrend {
	for _, r := range trendRules {
		if r.match(cur, ma50, ma200) {
			return r.trend
		}
	}
	return models.TrendUnknown
}

// MovingAverageTrend computes MA50/MA200 of closes and the trend of current
// against them. A missing average is reported as 0 with trend unknown.
func MovingAverageTrend(closes []float64, current float64) models.TrendIndicator {
	out := models.TrendIndicator{Current: current, Trend: models.TrendUnknown}
	ma50, ok50 := sma(closes, shortMA)
	ma200, ok200 := sma(closes, longMA)
	if ok50 {
		out.MA50 = ma50
	}
	if ok200 {
		out.MA200 = ma200
	}
	if ok50 && ok200 {
		out.Trend = ClassifyTrend(current, ma50, ma200)
	}
	return out
}

// PositionAgainst compares the price to MA50. An unavailable MA gives unknown.
func PositionAgainst(current, ma50 float64) models.PricePosition {
	switch {
	case ma50 <= 0:
		return models.PositionUnknown
	case current > ma50:
		return models.PositionAbove
	case current < ma50:
		return models.PositionBelow
	default:
		return models.PositionAt
	}
}
