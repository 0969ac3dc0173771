// Package numeric normalizes floating-point values before they cross a
// serialization boundary. JSON has no encoding for NaN or ±Inf.
package numeric

import (
	"math"

	"github.com/shopspring/decimal"
)

// Sanitize returns 0 for NaN, +Inf and -Inf and x otherwise.
func Sanitize(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}

// SanitizeAll sanitizes xs in place and returns it.
func SanitizeAll(xs []float64) []float64 {
	for i, x := range xs {
		xs[i] = Sanitize(x)
	}
	return xs
}

// Round2 sanitizes x and rounds it half away from zero to two decimals.
func Round2(x float64) float64 {
	return decimal.NewFromFloat(Sanitize(x)).Round(2).InexactFloat64()
}
