package indicators

import "math"

// TradingDaysPerYear annualizes daily volatility.
const TradingDaysPerYear = 252

// DefaultVolatilityWindow is the number of daily returns considered.
const DefaultVolatilityWindow = 30

// Volatility is the annualized standard deviation of daily percentage
// returns over the last window returns, expressed in percent. Fewer than two
// returns yields 0.
func Volatility(closes []float64, window int) float64 {
	if window <= 1 {
		window = DefaultVolatilityWindow
	}
	rets := pctReturns(closes)
	if len(rets) > window {
		rets = rets[len(rets)-window:]
	}
	if len(rets) < 2 {
		return 0
	}
	return finiteOrZero(sampleStdDev(rets) * math.Sqrt(TradingDaysPerYear))
}
