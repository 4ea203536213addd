package indicators

import "math"

// sma is the simple mean of the last n values. ok is false when fewer than n exist.
func sma(values []float64, n int) (float64, bool) {
	if n <= 0 || len(values) < n {
		return 0, false
	}
	sum := 0.0
	for _, v := range values[len(values)-n:] {
		sum += v
	}
	return sum / float64(n), true
}

// sampleStdDev uses the n-1 denominator. Fewer than two values yields 0.
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)
	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}

// emaSeries returns the EMA of values for period n, seeded with the SMA of the
// first n values. out[i] is valid for i >= n-1; earlier entries are zero.
func emaSeries(values []float64, n int) []float64 {
	out := make([]float64, len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	seed := 0.0
	for _, v := range values[:n] {
		seed += v
	}
	out[n-1] = seed / float64(n)
	k := 2.0 / float64(n+1)
	for i := n; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// pctReturns returns simple period-over-period returns in percent. A
// non-positive previous close contributes 0.
func pctReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (closes[i]-prev)/prev*100)
	}
	return out
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
