package mathutil

import "math"

// EloScale is the rating difference at which the stronger side is a 10:1 favourite.
const EloScale = 400.0

// EloLogistic is the Elo expected-score curve: 1 / (1 + 10^(-x/400)).
func EloLogistic(x float64) float64 {
	return 1 / (1 + math.Pow(10, -x/EloScale))
}

// Clamp limits x to [lo, hi]. NaN maps to lo.
func Clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) || x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// LogFactorial returns ln(n!) as a running sum of ln(i).
// Exact enough for the small goal counts used here; n <= 0 gives 0.
func LogFactorial(n int) float64 {
	result := 0.0
	for i := 2; i <= n; i++ {
		result += math.Log(float64(i))
	}
	return result
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
