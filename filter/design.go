package filter

import (
	"errors"
	"fmt"
	"math"
)

// Errors returned by the designers.
var (
	ErrUnknownFamily = errors.New("filter: unknown filter family")
	ErrInvalidBand   = errors.New("filter: band edges must satisfy 0 < low < high < Nyquist")
	ErrInvalidOrder  = errors.New("filter: order must be at least 1")
	ErrInvalidRipple = errors.New("filter: Chebyshev ripple must be positive")
	ErrSampleRate    = errors.New("filter: sample rate must be positive")
)

// Family identifies a filter design family.
type Family int

const (
	// Butterworth is maximally flat in the passband, -3 dB at each edge.
	Butterworth Family = iota

	// Chebyshev1 trades passband ripple for a steeper transition; the
	// response is exactly rippleDB down at each band edge.
	Chebyshev1
)

// String returns the flag-level name of the family.
func (f Family) String() string {
	switch f {
	case Butterworth:
		return "butter"
	case Chebyshev1:
		return "cheby1"
	default:
		return "unknown"
	}
}

// ParseFamily converts a flag value into a Family.
func ParseFamily(s string) (Family, error) {
	switch s {
	case "butter":
		return Butterworth, nil
	case "cheby1":
		return Chebyshev1, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFamily, s)
	}
}

// BandPass designs a band-pass filter for [low, high] Hz: a high-pass
// cascade at the lower edge followed by a low-pass cascade at the upper
// edge, order sections per edge. rippleDB is the Chebyshev passband ripple
// and is ignored for Butterworth.
func BandPass(family Family, low, high float64, order int, rippleDB, sampleRate float64) (*SOS, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: got %g", ErrSampleRate, sampleRate)
	}

	if order < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidOrder, order)
	}

	nyquist := sampleRate / 2
	if low <= 0 || low >= high || high >= nyquist {
		return nil, fmt.Errorf("%w: got [%g, %g] at %g Hz", ErrInvalidBand, low, high, sampleRate)
	}

	sos := &SOS{
		gain:       1,
		family:     family,
		low:        low,
		high:       high,
		order:      order,
		sampleRate: sampleRate,
	}

	switch family {
	case Butterworth:
		sos.sections = append(sos.sections, butterworthHP(low, order, sampleRate)...)
		sos.sections = append(sos.sections, butterworthLP(high, order, sampleRate)...)

	case Chebyshev1:
		if rippleDB <= 0 {
			return nil, fmt.Errorf("%w: got %g", ErrInvalidRipple, rippleDB)
		}

		hp, gainHP := chebyshev1HP(low, order, rippleDB, sampleRate)
		lp, gainLP := chebyshev1LP(high, order, rippleDB, sampleRate)

		sos.sections = append(sos.sections, hp...)
		sos.sections = append(sos.sections, lp...)
		sos.gain = gainHP * gainLP

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFamily, family)
	}

	return sos, nil
}

// butterworthQ returns the quality factor of Butterworth biquad section
// index for the given total order.
func butterworthQ(order, index int) float64 {
	theta := math.Pi * float64(2*index+1) / (2 * float64(order))

	s := math.Sin(theta)
	if s == 0 {
		return 1 / math.Sqrt2
	}

	return 1 / (2 * s)
}

// lowpassSection designs one low-pass biquad at freq with quality factor q.
func lowpassSection(freq, q, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)
	norm := 1 / (1 + alpha)

	return Coefficients{
		B0: (1 - cw) / 2 * norm,
		B1: (1 - cw) * norm,
		B2: (1 - cw) / 2 * norm,
		A1: -2 * cw * norm,
		A2: (1 - alpha) * norm,
	}
}

// highpassSection designs one high-pass biquad at freq with quality factor q.
func highpassSection(freq, q, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * freq / sampleRate
	cw := math.Cos(w0)
	sw := math.Sin(w0)
	alpha := sw / (2 * q)
	norm := 1 / (1 + alpha)

	return Coefficients{
		B0: (1 + cw) / 2 * norm,
		B1: -(1 + cw) * norm,
		B2: (1 + cw) / 2 * norm,
		A1: -2 * cw * norm,
		A2: (1 - alpha) * norm,
	}
}

// firstOrderLP designs a first-order low-pass section at freq for odd
// total orders.
func firstOrderLP(freq, sampleRate float64) Coefficients {
	k := math.Tan(math.Pi * freq / sampleRate)
	norm := 1 / (1 + k)

	return Coefficients{
		B0: k * norm,
		B1: k * norm,
		A1: (k - 1) * norm,
	}
}

// firstOrderHP designs a first-order high-pass section at freq for odd
// total orders.
func firstOrderHP(freq, sampleRate float64) Coefficients {
	k := math.Tan(math.Pi * freq / sampleRate)
	norm := 1 / (1 + k)

	return Coefficients{
		B0: norm,
		B1: -norm,
		A1: (k - 1) * norm,
	}
}

// butterworthLP designs a low-pass Butterworth cascade. Odd orders end in
// a first-order section.
func butterworthLP(freq float64, order int, sampleRate float64) []Coefficients {
	sections := make([]Coefficients, 0, (order+1)/2)

	for i := order/2 - 1; i >= 0; i-- {
		sections = append(sections, lowpassSection(freq, butterworthQ(order, i), sampleRate))
	}

	if order%2 != 0 {
		sections = append(sections, firstOrderLP(freq, sampleRate))
	}

	return sections
}

// butterworthHP designs a high-pass Butterworth cascade. Odd orders end in
// a first-order section.
func butterworthHP(freq float64, order int, sampleRate float64) []Coefficients {
	sections := make([]Coefficients, 0, (order+1)/2)

	for i := order/2 - 1; i >= 0; i-- {
		sections = append(sections, highpassSection(freq, butterworthQ(order, i), sampleRate))
	}

	if order%2 != 0 {
		sections = append(sections, firstOrderHP(freq, sampleRate))
	}

	return sections
}

// cheby1Params converts the passband ripple in dB into the pole-ellipse
// factors: r1 = sinh(u), r0 = cosh^2(u) with u = asinh(1/eps)/order, plus
// the overall gain that puts the even-order passband peaks at 0 dB (the
// response is exactly rippleDB down at the band edge either way).
func cheby1Params(order int, rippleDB float64) (r0, r1, gain float64) {
	eps := math.Sqrt(math.Pow(10, rippleDB/10) - 1)
	u := math.Asinh(1/eps) / float64(order)

	r1 = math.Sinh(u)
	c := math.Cosh(u)
	r0 = c * c

	gain = 1.0
	if order%2 == 0 {
		gain = 1 / math.Sqrt(1+eps*eps)
	}

	return r0, r1, gain
}

// chebyshev1LP designs a low-pass Chebyshev Type I cascade via bilinear
// transform of the analog pole pairs. Odd orders end in the real-pole
// first-order section. The returned gain normalizes the passband peaks
// to unity.
func chebyshev1LP(freq float64, order int, rippleDB, sampleRate float64) ([]Coefficients, float64) {
	r0, r1, gain := cheby1Params(order, rippleDB)

	k := math.Tan(math.Pi * freq / sampleRate)
	k2 := k * k
	sections := make([]Coefficients, 0, (order+1)/2)

	for i := order/2 - 1; i >= 0; i-- {
		tt := math.Sin(float64(2*i+1) * math.Pi / (2 * float64(order)))
		b := 1 / (r0 - tt*tt) // 1/omega0^2 of the analog pole pair
		a := 2 * k * b * r1 * tt
		t := 1 / (a + b + k2)

		sections = append(sections, Coefficients{
			B0: k2 * t,
			B1: 2 * k2 * t,
			B2: k2 * t,
			A1: 2 * (k2 - b) * t,
			A2: (b - a + k2) * t,
		})
	}

	if order%2 != 0 {
		// Real pole at omega = r1 (relative to the passband edge).
		norm := 1 / (1 + r1*k)
		sections = append(sections, Coefficients{
			B0: r1 * k * norm,
			B1: r1 * k * norm,
			A1: (r1*k - 1) * norm,
		})
	}

	return sections, gain
}

// chebyshev1HP designs a high-pass Chebyshev Type I cascade: the low-pass
// prototype with the s -> 1/s transform applied before the bilinear
// mapping.
func chebyshev1HP(freq float64, order int, rippleDB, sampleRate float64) ([]Coefficients, float64) {
	r0, r1, gain := cheby1Params(order, rippleDB)

	k := math.Tan(math.Pi * freq / sampleRate)
	k2 := k * k
	sections := make([]Coefficients, 0, (order+1)/2)

	for i := order/2 - 1; i >= 0; i-- {
		tt := math.Sin(float64(2*i+1) * math.Pi / (2 * float64(order)))
		b := 1 / (r0 - tt*tt)
		a := 2 * k * b * r1 * tt
		t := 1 / (1 + a + b*k2)

		sections = append(sections, Coefficients{
			B0: t,
			B1: -2 * t,
			B2: t,
			A1: 2 * (b*k2 - 1) * t,
			A2: (1 - a + b*k2) * t,
		})
	}

	if order%2 != 0 {
		// Real pole: the low-pass pole at r1 maps to a high-pass corner
		// at 1/r1.
		norm := 1 / (r1 + k)
		sections = append(sections, Coefficients{
			B0: r1 * norm,
			B1: -r1 * norm,
			A1: (k - r1) * norm,
		})
	}

	return sections, gain
}
