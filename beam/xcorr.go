package beam

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// correlator cross-correlates fixed-length windows in the frequency
// domain. Each window is zero-padded to at least twice its length so the
// circular correlation carries every linear lag without aliasing. Buffers
// and the FFT plan are reused across windows and pairs.
type correlator struct {
	winLen int
	padLen int
	fft    *fourier.FFT

	padded  []float64
	spectra [][]complex128 // per-channel coefficients of the current window
	energy  []float64      // per-channel demeaned energy of the current window
	cross   []complex128
	corr    []float64
}

func newCorrelator(winLen, nch int) *correlator {
	padLen := nextPow2(2 * winLen)
	fft := fourier.NewFFT(padLen)

	spectra := make([][]complex128, nch)
	for i := range spectra {
		spectra[i] = make([]complex128, padLen/2+1)
	}

	return &correlator{
		winLen:  winLen,
		padLen:  padLen,
		fft:     fft,
		padded:  make([]float64, padLen),
		spectra: spectra,
		energy:  make([]float64, nch),
		cross:   make([]complex128, padLen/2+1),
		corr:    make([]float64, padLen),
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}

	return p
}

// load demeans each channel's window starting at ptr and caches its
// spectrum and energy for the pair loop.
func (c *correlator) load(data [][]float64, ptr int) {
	for ch, full := range data {
		w := full[ptr : ptr+c.winLen]

		mean := stat.Mean(w, nil)

		copy(c.padded, w)
		floats.AddConst(-mean, c.padded[:c.winLen])
		for i := c.winLen; i < c.padLen; i++ {
			c.padded[i] = 0
		}

		var energy float64
		for _, v := range c.padded[:c.winLen] {
			energy += v * v
		}

		c.energy[ch] = energy
		c.fft.Coefficients(c.spectra[ch], c.padded)
	}
}

// delay cross-correlates the loaded windows of channels i and j and
// returns the delay of channel j relative to channel i in samples
// (sub-sample refined) together with the normalized correlation maximum.
// A window with a dead channel correlates to zero everywhere and reports
// zero delay with zero confidence.
func (c *correlator) delay(i, j int) (lag, ccm float64) {
	norm := math.Sqrt(c.energy[i] * c.energy[j])
	if norm == 0 {
		return 0, 0
	}

	// corr[m] = sum_n x_i[n] * x_j[n+m], negative lags wrapped to the
	// tail of the sequence.
	xi, xj := c.spectra[i], c.spectra[j]
	for k := range c.cross {
		c.cross[k] = cmplx.Conj(xi[k]) * xj[k]
	}

	c.fft.Sequence(c.corr, c.cross)
	floats.Scale(1/float64(c.padLen), c.corr)

	peak := c.peakIndex()

	m := peak
	y0 := c.corr[m]
	ym := c.corr[(m-1+c.padLen)%c.padLen]
	yp := c.corr[(m+1)%c.padLen]

	lag = float64(peak)
	if lag > float64(c.padLen/2) {
		lag -= float64(c.padLen)
	}

	// Parabolic interpolation through the peak and its neighbors.
	if den := ym - 2*y0 + yp; den != 0 {
		delta := (ym - yp) / (2 * den)
		if delta > -0.5 && delta < 0.5 {
			lag += delta
		}
	}

	return lag, y0 / norm
}

// peakIndex scans the physically possible lags, |lag| < winLen: the head
// of the sequence holds lags 0..winLen-1, the tail lags -(winLen-1)..-1.
func (c *correlator) peakIndex() int {
	best, bestVal := 0, math.Inf(-1)

	scan := func(lo, hi int) {
		for m := lo; m < hi; m++ {
			if v := c.corr[m]; v > bestVal {
				best, bestVal = m, v
			}
		}
	}

	scan(0, c.winLen)
	scan(c.padLen-c.winLen+1, c.padLen)

	return best
}
