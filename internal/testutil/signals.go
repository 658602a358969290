package testutil

import (
	"math"
	"math/rand"
)

// DeterministicSine generates a deterministic sine wave.
func DeterministicSine(freqHz, sampleRate, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	step := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out
}

// DeterministicNoise generates white noise with a fixed seed for reproducibility.
func DeterministicNoise(seed int64, amplitude float64, length int) []float64 {
	out := make([]float64, length)
	rng := rand.New(rand.NewSource(seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out
}

// Impulse generates a unit impulse at the given position.
func Impulse(length, pos int) []float64 {
	out := make([]float64, length)
	if pos >= 0 && pos < length {
		out[pos] = 1
	}
	return out
}

// DC generates a constant-valued signal.
func DC(value float64, length int) []float64 {
	out := make([]float64, length)
	for i := range out {
		out[i] = value
	}
	return out
}

// Ones returns a slice of length n filled with 1.0.
func Ones(n int) []float64 {
	return DC(1.0, n)
}

// PlaneWave synthesizes a multichannel recording of a plane wave crossing
// an array. xKm and yKm hold element offsets east and north of the array
// centroid in kilometres. The wave arrives from back-azimuth bazDeg
// (degrees clockwise from north) with trace velocity velKmS. The source
// waveform is a sum of unit sinusoids at freqsHz with staggered phases,
// evaluated analytically at each element's arrival time so that fractional
// sample delays are exact.
func PlaneWave(xKm, yKm []float64, bazDeg, velKmS, sampleRate float64, npts int, freqsHz []float64) [][]float64 {
	theta := bazDeg * math.Pi / 180
	sx := -math.Sin(theta) / velKmS
	sy := -math.Cos(theta) / velKmS

	out := make([][]float64, len(xKm))
	for i := range out {
		delay := sx*xKm[i] + sy*yKm[i]
		ch := make([]float64, npts)
		for n := range ch {
			t := float64(n)/sampleRate - delay
			v := 0.0
			for k, f := range freqsHz {
				v += math.Sin(2*math.Pi*f*t + float64(k))
			}
			ch[n] = v
		}
		out[i] = ch
	}
	return out
}
