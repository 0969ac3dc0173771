package analytics

import "math"

// DailyReturns returns simple returns close[t]/close[t-1] - 1 with r[0] = 0.
func DailyReturns(closes []float64) []float64 {
	returns := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		returns[i] = closes[i]/closes[i-1] - 1
	}
	return returns
}

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the sample standard deviation (n-1 denominator).
// Fewer than two values have no dispersion and yield 0.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// MaxDrawdown returns the deepest fractional decline of the cumulative growth
// path from its running peak. The result is always <= 0.
func MaxDrawdown(returns []float64) float64 {
	cum, peak, worst := 1.0, math.Inf(-1), 0.0
	for _, r := range returns {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		dd := (cum - peak) / peak
		if math.IsNaN(dd) || math.IsInf(dd, 0) {
			continue
		}
		if dd < worst {
			worst = dd
		}
	}
	return worst
}
