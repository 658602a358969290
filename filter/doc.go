// Package filter provides the band-pass filtering stage of the processing
// pipeline.
//
// A band-pass is built as a high-pass cascade at the lower band edge
// followed by a low-pass cascade at the upper edge, each a chain of
// second-order sections (biquads) in Direct Form II Transposed. Butterworth
// and Chebyshev Type I designs are available; ripple applies to Chebyshev
// only.
//
// [BandPass] designs the filter, [SOS.Apply] runs it causally over a
// waveform stream with independent state per trace, and [SOS.Response]
// samples the complex frequency response for diagnostics. [ResponseGrid]
// is the shared log-spaced frequency grid all band responses are sampled
// on, so curves from different bands are directly comparable.
package filter
