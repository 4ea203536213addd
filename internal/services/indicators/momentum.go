package indicators

import "RegimeGuard/internal/domain/models"

const (
	RSIPeriod   = 14
	DefaultRSI  = 50.0
	macdFast    = 12
	macdSlow    = 26
	macdSignal  = 9
	MACDMinBars = macdFast + macdSlow + macdSignal
)

// RSI is Wilder's relative strength index. Fewer than period+1 closes yields
// 50; a zero average loss yields 100.
func RSI(closes []float64, period int) float64 {
	if period <= 0 {
		period = RSIPeriod
	}
	if len(closes) < period+1 {
		return DefaultRSI
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*float64(period-1) + g) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + l) / float64(period)
	}

	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return finiteOrZero(100 - 100/(1+rs))
}

// MACD computes the 12/26/9 MACD of closes. With fewer than 47 closes every
// value is 0 and the condition neutral.
func MACD(closes []float64) models.MACDIndicator {
	out := models.MACDIndicator{Condition: models.MACDNeutral, Crossover: models.SignalNone}
	if len(closes) < MACDMinBars {
		return out
	}

	fast := emaSeries(closes, macdFast)
	slow := emaSeries(closes, macdSlow)
	line := make([]float64, 0, len(closes)-macdSlow+1)
	for i := macdSlow - 1; i < len(closes); i++ {
		line = append(line, fast[i]-slow[i])
	}
	signal := emaSeries(line, macdSignal)

	out.Value = finiteOrZero(line[len(line)-1])
	out.Signal = finiteOrZero(signal[len(signal)-1])
	out.Histogram = finiteOrZero(out.Value - out.Signal)
	out.Condition = MACDConditionOf(out.Value, out.Signal, out.Histogram)
	out.Crossover = out.Condition.Crossover()
	return out
}

// MACDConditionOf grades the MACD line against its signal.
func MACDConditionOf(macd, signal, hist float64) models.MACDCondition {
	switch {
	case macd > signal && hist > 0 && macd > 0:
		return models.MACDStrongBullish
	case macd > signal:
		return models.MACDBullish
	case macd < signal && hist < 0 && macd < 0:
		return models.MACDStrongBearish
	case macd < signal:
		return models.MACDBearish
	default:
		return models.MACDNeutral
	}
}
