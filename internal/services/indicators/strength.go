package indicators

import (
	"math"

	"RegimeGuard/internal/domain/models"
)

const ADXPeriod = 14

// ADX is used as a trend-strength proxy: the mean true range over the last
// period bars. Fewer than period+1 candles yields 0.
func ADX(series models.Series, period int) float64 {
	if period <= 0 {
		period = ADXPeriod
	}
	if len(series) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(series) - period; i < len(series); i++ {
		sum += trueRange(series[i], series[i-1].Close)
	}
	return finiteOrZero(sum / float64(period))
}

func trueRange(c models.Candle, prevClose float64) float64 {
	return math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prevClose), math.Abs(c.Low-prevClose)))
}
