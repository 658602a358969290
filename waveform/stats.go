package waveform

import "math"

// Stats holds single-pass summary statistics of a trace, used for
// acquisition logging.
type Stats struct {
	Length   int
	Mean     float64
	RMS      float64
	Min      float64
	Max      float64
	Peak     float64 // max(|Max|, |Min|)
	Variance float64 // population variance
}

// Calculate computes Stats in one pass, using Welford's update for the
// mean and variance so long low-frequency records stay numerically stable.
func Calculate(data []float64) Stats {
	n := len(data)
	if n == 0 {
		return Stats{}
	}

	var (
		mean   float64
		m2     float64
		sumSq  float64
		minVal = data[0]
		maxVal = data[0]
	)

	for i, x := range data {
		ni := float64(i + 1)
		delta := x - mean
		mean += delta / ni
		m2 += delta * (x - mean)

		sumSq += x * x

		if x > maxVal {
			maxVal = x
		}

		if x < minVal {
			minVal = x
		}
	}

	nf := float64(n)

	return Stats{
		Length:   n,
		Mean:     mean,
		RMS:      math.Sqrt(sumSq / nf),
		Min:      minVal,
		Max:      maxVal,
		Peak:     math.Max(math.Abs(maxVal), math.Abs(minVal)),
		Variance: m2 / nf,
	}
}
