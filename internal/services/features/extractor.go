package features

import "math"

// LogReturn computes ln(cur/prev), or 0 when either price is non-positive.
func LogReturn(prev, cur float64) float64 {
	if prev <= 0 || cur <= 0 {
		return 0
	}
	return math.Log(cur / prev)
}

// RealizedVolatility computes annualized realized volatility over the last
// `window` log returns using the provided number of observations per year.
// Returns 0 when there is insufficient data.
func RealizedVolatility(logReturns []float64, window int, obsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	// annualize
	return math.Sqrt(variance * obsPerYear)
}

// MeanReturn is the average of the last `window` log returns, or 0 when
// there is insufficient data.
func MeanReturn(logReturns []float64, window int) float64 {
	if window <= 0 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		sum += logReturns[i]
	}
	return sum / float64(window)
}

// Imbalance maps two one-sided quantities to (a-b)/(a+b) in [-1, 1].
// Returns 0 when both sides are empty.
func Imbalance(a, b float64) float64 {
	if a <= 0 && b <= 0 {
		return 0
	}
	return (a - b) / (a + b)
}

// Clamp01 clamps v into [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
