package models

import (
	"encoding/json"
	"time"
)

type MATrend string

const (
	TrendStrongUp MATrend = "strong_uptrend"
	TrendUp       MATrend = "uptrend"
	TrendHolding  MATrend = "holding"
	TrendDown     MATrend = "downtrend"
	TrendUnknown  MATrend = "unknown"
)

type PricePosition string

const (
	PositionAbove   PricePosition = "above"
	PositionBelow   PricePosition = "below"
	PositionAt      PricePosition = "at"
	PositionUnknown PricePosition = "unknown"
)

type MACDCondition string

const (
	MACDStrongBullish MACDCondition = "strong_bullish"
	MACDBullish       MACDCondition = "bullish"
	MACDNeutral       MACDCondition = "neutral"
	MACDBearish       MACDCondition = "bearish"
	MACDStrongBearish MACDCondition = "strong_bearish"
)

// Bullish reports whether the condition is bullish or strong_bullish.
func (c MACDCondition) Bullish() bool { return c == MACDBullish || c == MACDStrongBullish }

// Bearish reports whether the condition is bearish or strong_bearish.
func (c MACDCondition) Bearish() bool { return c == MACDBearish || c == MACDStrongBearish }

// Crossover derives the MACD trade signal from the condition.
func (c MACDCondition) Crossover() MACDSignal {
	switch {
	case c.Bullish():
		return SignalBuy
	case c.Bearish():
		return SignalSell
	default:
		return SignalNone
	}
}

type MACDSignal string

const (
	SignalBuy  MACDSignal = "buy"
	SignalSell MACDSignal = "sell"
	SignalNone MACDSignal = "no_signal"
)

type BandPosition string

const (
	BandFarAbove   BandPosition = "far_above"
	BandAboveUpper BandPosition = "above_upper"
	BandUpperHalf  BandPosition = "upper_half"
	BandLowerHalf  BandPosition = "lower_half"
	BandBelowLower BandPosition = "below_lower"
	BandFarBelow   BandPosition = "far_below"
	BandUnknown    BandPosition = "unknown"
)

type OBVTrend string

const (
	OBVBullish OBVTrend = "bullish"
	OBVBearish OBVTrend = "bearish"
	OBVNeutral OBVTrend = "neutral"
)

type Liquidity string

const (
	LiquidityLow    Liquidity = "low"
	LiquidityNormal Liquidity = "normal"
	LiquidityHigh   Liquidity = "high"
)

type VolumeTrend string

const (
	VolumeIncreasing VolumeTrend = "increasing"
	VolumeStable     VolumeTrend = "stable"
	VolumeDecreasing VolumeTrend = "decreasing"
)

// Divergence is empty when price and OBV agree. It encodes as null then.
type Divergence string

const (
	DivergenceNone    Divergence = ""
	DivergenceBullish Divergence = "bullish"
	DivergenceBearish Divergence = "bearish"
)

func (d Divergence) MarshalJSON() ([]byte, error) {
	if d == DivergenceNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// VIXBucket is the qualitative band of the volatility proxy.
type VIXBucket string

const (
	VIXCalm     VIXBucket = "calm"
	VIXNormal   VIXBucket = "normal"
	VIXElevated VIXBucket = "elevated"
	VIXExtreme  VIXBucket = "extreme"
)

// BucketForVIX maps a VIX-equivalent value to its bucket.
// Boundaries: <15 calm, <20 normal, <=30 elevated, >30 extreme.
func BucketForVIX(v float64) VIXBucket {
	switch {
	case v > 30:
		return VIXExtreme
	case v >= 20:
		return VIXElevated
	case v >= 15:
		return VIXNormal
	default:
		return VIXCalm
	}
}

type TrendIndicator struct {
	Current float64 `json:"current"`
	MA50    float64 `json:"ma50"`
	MA200   float64 `json:"ma200"`
	Trend   MATrend `json:"trend"`
}

type MACDIndicator struct {
	Value     float64       `json:"value"`
	Signal    float64       `json:"signal"`
	Histogram float64       `json:"histogram"`
	Condition MACDCondition `json:"condition"`
	Crossover MACDSignal    `json:"crossover"`
}

type BollingerIndicator struct {
	Upper     float64      `json:"upper"`
	Middle    float64      `json:"middle"`
	Lower     float64      `json:"lower"`
	Bandwidth float64      `json:"bandwidth"`
	Position  BandPosition `json:"position"`
}

type OBVIndicator struct {
	Value         float64     `json:"value"`
	MovingAverage float64     `json:"moving_average"`
	Trend         OBVTrend    `json:"trend"`
	VolumeRatio   float64     `json:"volume_ratio"`
	Liquidity     Liquidity   `json:"liquidity"`
	VolumeTrend   VolumeTrend `json:"volume_trend"`
	Divergence    Divergence  `json:"divergence"`
}

type VIXIndicator struct {
	Value  float64   `json:"value"`
	Bucket VIXBucket `json:"bucket"`
}

// IndicatorSnapshot is the sole input of classification and veto.
// Treat it as immutable once built.
type IndicatorSnapshot struct {
	Symbol        Symbol             `json:"symbol,omitempty"`
	Volatility    float64            `json:"volatility"`
	Trend         TrendIndicator     `json:"trend"`
	PricePosition PricePosition      `json:"price_position"`
	RSI           float64            `json:"rsi"`
	MACD          MACDIndicator      `json:"macd"`
	Bollinger     BollingerIndicator `json:"bollinger"`
	ADX           float64            `json:"adx"`
	OBV           OBVIndicator       `json:"obv"`
	VIX           VIXIndicator       `json:"vix"`
	ComputedAt    time.Time          `json:"computed_at"`
}
