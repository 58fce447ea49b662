// Package analysis implements the scoring core: trend classification from
// candlesticks, plus security, activity and profitability scores derived
// from a market snapshot, a holder snapshot and the caller's holdings.
//
// Every function here is pure. Inputs are plain values, outputs are new
// result values, and no function performs I/O or reads the clock; callers
// pass "now" explicitly where age matters.
//
// All divisions are guarded: a zero denominator yields 0 rather than NaN
// or ±Inf, so results are always safe to serialise.
package analysis

import "math"

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// clampScore bounds a score to [0, 100].
func clampScore(v float64) float64 {
	return clamp(v, 0, 100)
}

// safeDiv returns a/b, or 0 when b is zero or the result is not finite.
func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	r := a / b
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// mean of xs; 0 for an empty slice.
func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation of xs.
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sq float64
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(xs)))
}

// lastN returns the trailing n elements of xs (all of them if shorter).
func lastN(xs []float64, n int) []float64 {
	if n >= len(xs) {
		return xs
	}
	return xs[len(xs)-n:]
}
