// Package dsputil provides small numeric helpers shared by the band planner,
// filter designer, and figure rendering.
package dsputil

import "math"

const defaultEpsilon = 1e-12

// Clamp limits value to the inclusive range [min, max].
func Clamp(value, min, max float64) float64 {
	if min > max {
		min, max = max, min
	}

	if value < min {
		return min
	}

	if value > max {
		return max
	}

	return value
}

// NearlyEqual reports whether a and b are equal within eps, using a relative
// comparison for large magnitudes.
func NearlyEqual(a, b, eps float64) bool {
	if eps <= 0 {
		eps = defaultEpsilon
	}

	diff := math.Abs(a - b)
	if diff <= eps {
		return true
	}

	largest := math.Max(math.Abs(a), math.Abs(b))
	if largest == 0 {
		return diff <= eps
	}

	return diff/largest <= eps
}

// LinearToDB converts linear amplitude to dB (20*log10 convention).
// Returns -Inf for zero and NaN for negative values.
func LinearToDB(linear float64) float64 {
	if linear < 0 {
		return math.NaN()
	}

	if linear == 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(linear)
}

// LinSpace returns n values evenly spaced over [start, stop], endpoints
// included. n must be >= 2.
func LinSpace(start, stop float64, n int) []float64 {
	if n < 2 {
		return nil
	}

	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop

	return out
}

// LogSpace returns n values evenly spaced in log10 over [start, stop],
// endpoints included. start and stop must be positive, n >= 2.
func LogSpace(start, stop float64, n int) []float64 {
	if n < 2 || start <= 0 || stop <= 0 {
		return nil
	}

	out := LinSpace(math.Log10(start), math.Log10(stop), n)
	for i, v := range out {
		out[i] = math.Pow(10, v)
	}
	// Exact endpoints; exponentiation of the log endpoints wobbles in the
	// last few ulps otherwise.
	out[0] = start
	out[n-1] = stop

	return out
}
