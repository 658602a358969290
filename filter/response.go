package filter

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-vecmath"

	"github.com/liamtoney/narrow-band-least-squares/internal/dsputil"
)

const (
	gridStartHz = 0.01
	gridPoints  = 1000
)

// ResponseGrid returns the shared diagnostic frequency grid: 1000 points
// log-spaced from 0.01 Hz to the Nyquist frequency. Every band response is
// sampled on this grid so curves from different bands overlay directly.
// Returns nil if the Nyquist frequency does not exceed the grid start.
func ResponseGrid(sampleRate float64) []float64 {
	return dsputil.LogSpace(gridStartHz, sampleRate/2, gridPoints)
}

// Response computes the complex frequency response H(e^jw) of one section
// at the given frequency and sample rate.
func (c *Coefficients) Response(freqHz, sampleRate float64) complex128 {
	w := 2 * math.Pi * freqHz / sampleRate
	ejw := cmplx.Exp(complex(0, -w))
	ej2w := cmplx.Exp(complex(0, -2*w))

	num := complex(c.B0, 0) + complex(c.B1, 0)*ejw + complex(c.B2, 0)*ej2w
	den := complex(1, 0) + complex(c.A1, 0)*ejw + complex(c.A2, 0)*ej2w

	return num / den
}

// ResponseAt computes the cascade's complex frequency response at one
// frequency as the product of section responses times the input gain.
func (s *SOS) ResponseAt(freqHz float64) complex128 {
	h := complex(s.gain, 0)
	for i := range s.sections {
		h *= s.sections[i].Response(freqHz, s.sampleRate)
	}

	return h
}

// Response samples the cascade's complex frequency response on freqs,
// typically the shared [ResponseGrid].
func (s *SOS) Response(freqs []float64) []complex128 {
	out := make([]complex128, len(freqs))
	for i, f := range freqs {
		out[i] = s.ResponseAt(f)
	}

	return out
}

// MagnitudeDB returns the cascade's magnitude response in dB at one
// frequency.
func (s *SOS) MagnitudeDB(freqHz float64) float64 {
	return 20 * math.Log10(cmplx.Abs(s.ResponseAt(freqHz)))
}

// Magnitudes converts a sampled complex response into linear magnitudes.
func Magnitudes(h []complex128) []float64 {
	if len(h) == 0 {
		return nil
	}

	re := make([]float64, len(h))
	im := make([]float64, len(h))

	for i, c := range h {
		re[i] = real(c)
		im[i] = imag(c)
	}

	out := make([]float64, len(h))
	vecmath.Magnitude(out, re, im)

	return out
}
