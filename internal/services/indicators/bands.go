package indicators

import "RegimeGuard/internal/domain/models"

const (
	BollingerPeriod = 20
	bollingerK      = 2.0
)

// Bollinger computes 20-period bands at 2 sample standard deviations and
// places price within them. Fewer than 20 closes yields zeros and unknown.
func Bollinger(closes []float64, price float64) models.BollingerIndicator {
	out := models.BollingerIndicator{Position: models.BandUnknown}
	middle, ok := sma(closes, BollingerPeriod)
	if !ok {
		return out
	}
	sd := sampleStdDev(closes[len(closes)-BollingerPeriod:])
	out.Middle = middle
	out.Upper = middle + bollingerK*sd
	out.Lower = middle - bollingerK*sd
	if middle != 0 {
		out.Bandwidth = finiteOrZero((out.Upper - out.Lower) / middle)
	}

	pctB := 0.5
	if width := out.Upper - out.Lower; width > 0 {
		pctB = (price - out.Lower) / width
	}
	out.Position = BandPositionOf(pctB)
	return out
}

// BandPositionOf maps %B to a band category.
func BandPositionOf(pctB float64) models.BandPosition {
	switch {
	case pctB > 1.2:
		return models.BandFarAbove
	case pctB > 1:
		return models.BandAboveUpper
	case pctB >= 0.5:
		return models.BandUpperHalf
	case pctB >= 0:
		return models.BandLowerHalf
	case pctB >= -0.2:
		return models.BandBelowLower
	default:
		return models.BandFarBelow
	}
}
