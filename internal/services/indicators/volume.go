package indicators

import "RegimeGuard/internal/domain/models"

const (
	obvMAPeriod       = 20
	volumeAvgShort    = 20
	volumeAvgLong     = 50
	divergenceLag     = 5
	divergenceMinPct  = 2.0
	lowRatio          = 0.3
	lowDayRatio       = 0.5
	lowDaysThreshold  = 3
	lowDaysLookback   = 5
	highRatio         = 2.0
	volumeTrendMargin = 0.10
)

// OBVSeries is the running on-balance volume, seeded at 0 on the first bar.
func OBVSeries(series models.Series) []float64 {
	if len(series) == 0 {
		return nil
	}
	out := make([]float64, len(series))
	for i := 1; i < len(series); i++ {
		switch {
		case series[i].Close > series[i-1].Close:
			out[i] = out[i-1] + series[i].Volume
		case series[i].Close < series[i-1].Close:
			out[i] = out[i-1] - series[i].Volume
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// OBV derives on-balance volume, its trend, and the volume liquidity metrics.
func OBV(series models.Series) models.OBVIndicator {
	out := models.OBVIndicator{
		Trend:       models.OBVNeutral,
		Liquidity:   models.LiquidityNormal,
		VolumeTrend: models.VolumeStable,
	}
	obv := OBVSeries(series)
	if len(obv) == 0 {
		return out
	}
	out.Value = obv[len(obv)-1]
	if ma, ok := sma(obv, obvMAPeriod); ok {
		out.MovingAverage = ma
		switch {
		case out.Value > ma:
			out.Trend = models.OBVBullish
		case out.Value < ma:
			out.Trend = models.OBVBearish
		}
	}

	vols := series.Volumes()
	out.VolumeRatio = volumeRatioAt(vols, len(vols)-1)
	out.Liquidity = Liquidity(vols)
	out.VolumeTrend = VolumeTrendOf(vols)
	out.Divergence = DivergenceOf(series.Closes(), obv)
	return out
}

// volumeRatioAt is vols[i] over the 20-bar average ending at i, or 0 when
// that average is unavailable.
func volumeRatioAt(vols []float64, i int) float64 {
	if i < 0 || i >= len(vols) {
		return 0
	}
	avg, ok := sma(vols[:i+1], volumeAvgShort)
	if !ok || avg <= 0 {
		return 0
	}
	return finiteOrZero(vols[i] / avg)
}

// Liquidity grades current volume against its 20-day average. It is low when
// today's ratio is under 0.3 or at least 3 of the last 5 days were under 0.5,
// high above 2, and normal otherwise or when history is too short.
func Liquidity(vols []float64) models.Liquidity {
	if avg, ok := sma(vols, volumeAvgShort); !ok || avg <= 0 {
		return models.LiquidityNormal
	}
	ratio := volumeRatioAt(vols, len(vols)-1)
	if ratio < lowRatio {
		return models.LiquidityLow
	}

	lowDays := 0
	for i := len(vols) - lowDaysLookback; i < len(vols); i++ {
		if i < volumeAvgShort-1 {
			continue
		}
		if avg, ok := sma(vols[:i+1], volumeAvgShort); ok && avg > 0 && vols[i]/avg < lowDayRatio {
			lowDays++
		}
	}
	if lowDays >= lowDaysThreshold {
		return models.LiquidityLow
	}
	if ratio > highRatio {
		return models.LiquidityHigh
	}
	return models.LiquidityNormal
}

// VolumeTrendOf compares the 20-day to the 50-day average volume with a 10% band.
func VolumeTrendOf(vols []float64) models.VolumeTrend {
	short, ok1 := sma(vols, volumeAvgShort)
	long, ok2 := sma(vols, volumeAvgLong)
	if !ok1 || !ok2 || long <= 0 {
		return models.VolumeStable
	}
	switch {
	case short > long*(1+volumeTrendMargin):
		return models.VolumeIncreasing
	case short < long*(1-volumeTrendMargin):
		return models.VolumeDecreasing
	default:
		return models.VolumeStable
	}
}

// DivergenceOf compares 5-bar percentage moves of price and OBV. Opposite moves
// beyond 2% on both sides flag a divergence.
func DivergenceOf(closes, obv []float64) models.Divergence {
	n := len(closes)
	if n != len(obv) || n < divergenceLag+1 {
		return models.DivergenceNone
	}
	prevPrice := closes[n-1-divergenceLag]
	if prevPrice == 0 {
		return models.DivergenceNone
	}
	priceChg := (closes[n-1] - prevPrice) / prevPrice * 100

	obvChg := 0.0
	if prevOBV := obv[n-1-divergenceLag]; prevOBV != 0 {
		obvChg = (obv[n-1] - prevOBV) / abs(prevOBV) * 100
	}

	switch {
	case priceChg < -divergenceMinPct && obvChg > divergenceMinPct:
		return models.DivergenceBullish
	case priceChg > divergenceMinPct && obvChg < -divergenceMinPct:
		return models.DivergenceBearish
	default:
		return models.DivergenceNone
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
