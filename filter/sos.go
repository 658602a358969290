package filter

import (
	"github.com/liamtoney/narrow-band-least-squares/waveform"
)

// Coefficients holds the transfer function coefficients of one second-order
// section. a0 is normalized to 1 and not stored.
//
// The sign convention follows Direct Form II Transposed:
//
//	y  = B0*x + d0
//	d0 = B1*x - A1*y + d1
//	d1 = B2*x - A2*y
type Coefficients struct {
	B0, B1, B2 float64 // feedforward (numerator)
	A1, A2     float64 // feedback (denominator)
}

// section pairs coefficients with delay-line state for one pass over a
// single channel.
type section struct {
	Coefficients

	d0, d1 float64
}

func (s *section) processBlock(buf []float64) {
	b0, b1, b2 := s.B0, s.B1, s.B2
	a1, a2 := s.A1, s.A2
	d0, d1 := s.d0, s.d1

	for i, x := range buf {
		y := b0*x + d0
		d0 = b1*x - a1*y + d1
		d1 = b2*x - a2*y
		buf[i] = y
	}

	s.d0, s.d1 = d0, d1
}

// SOS is a designed filter: an ordered cascade of second-order sections
// plus an input gain. It holds no processing state; every Apply or Filter
// call runs with fresh delay lines, so one SOS can filter any number of
// traces independently.
type SOS struct {
	sections []Coefficients
	gain     float64

	family     Family
	low, high  float64
	order      int
	sampleRate float64
}

// NumSections returns the number of second-order sections in the cascade.
func (s *SOS) NumSections() int {
	return len(s.sections)
}

// Band returns the designed [low, high] corner frequencies in Hz.
func (s *SOS) Band() (low, high float64) {
	return s.low, s.high
}

// Family returns the design family of the filter.
func (s *SOS) Family() Family {
	return s.family
}

// Order returns the per-edge design order.
func (s *SOS) Order() int {
	return s.order
}

// SampleRate returns the sample rate the filter was designed for.
func (s *SOS) SampleRate() float64 {
	return s.sampleRate
}

// Filter runs the cascade causally over buf in place with fresh state.
func (s *SOS) Filter(buf []float64) {
	if s.gain != 1 {
		for i, x := range buf {
			buf[i] = x * s.gain
		}
	}

	for _, c := range s.sections {
		sec := section{Coefficients: c}
		sec.processBlock(buf)
	}
}

// Filtered returns a filtered copy of src, leaving src untouched.
func (s *SOS) Filtered(src []float64) []float64 {
	out := make([]float64, len(src))
	copy(out, src)
	s.Filter(out)

	return out
}

// Apply filters every trace of the stream into a new stream, single causal
// pass, independent delay-line state per trace. The input stream is not
// modified.
func (s *SOS) Apply(st waveform.Stream) waveform.Stream {
	out := make(waveform.Stream, len(st))
	for i, tr := range st {
		dup := tr.Copy()
		s.Filter(dup.Data)
		out[i] = dup
	}

	return out
}
