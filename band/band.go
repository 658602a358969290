package band

import (
	"errors"
	"fmt"

	"github.com/liamtoney/narrow-band-least-squares/internal/dsputil"
)

// Errors returned by the planner.
var (
	ErrBandCount      = errors.New("band: number of bands must be at least 1")
	ErrEdgeOrder      = errors.New("band: minimum frequency must be below maximum frequency")
	ErrLogEdge        = errors.New("band: log spacing requires a positive minimum frequency")
	ErrWindowLength   = errors.New("band: window lengths must be positive")
	ErrUnknownSpacing = errors.New("band: unknown spacing")
	ErrUnknownWindow  = errors.New("band: unknown window mode")
)

// Spacing selects how band edges are distributed across the frequency range.
type Spacing int

const (
	// SpacingLinear places edges evenly in frequency.
	SpacingLinear Spacing = iota

	// SpacingLog places edges evenly in log10 frequency, so each band
	// covers a constant frequency ratio.
	SpacingLog
)

// String returns the flag-level name of the spacing.
func (s Spacing) String() string {
	switch s {
	case SpacingLinear:
		return "linear"
	case SpacingLog:
		return "log"
	default:
		return "unknown"
	}
}

// ParseSpacing converts a flag value into a Spacing.
func ParseSpacing(s string) (Spacing, error) {
	switch s {
	case "linear":
		return SpacingLinear, nil
	case "log":
		return SpacingLog, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSpacing, s)
	}
}

// WindowMode selects how beamforming window lengths vary across bands.
type WindowMode int

const (
	// WindowConstant uses one window length for every band.
	WindowConstant WindowMode = iota

	// WindowAdaptive interpolates linearly from a long window at the
	// lowest band to a short window at the highest, so low-frequency
	// bands see enough cycles while high-frequency bands keep time
	// resolution.
	WindowAdaptive
)

// String returns the flag-level name of the window mode.
func (m WindowMode) String() string {
	switch m {
	case WindowConstant:
		return "constant"
	case WindowAdaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// ParseWindowMode converts a flag value into a WindowMode.
func ParseWindowMode(s string) (WindowMode, error) {
	switch s {
	case "constant":
		return WindowConstant, nil
	case "adaptive":
		return WindowAdaptive, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownWindow, s)
	}
}

// Edges returns the nbands+1 strictly increasing band-edge frequencies
// spanning [fmin, fmax]. The first edge is exactly fmin and the last
// exactly fmax. Band i spans [Edges[i], Edges[i+1]).
//
// The maximum frequency is not checked against any Nyquist limit here;
// that is the filter designer's job once the sample rate is known.
func Edges(fmin, fmax float64, spacing Spacing, nbands int) ([]float64, error) {
	if nbands < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBandCount, nbands)
	}

	if fmin >= fmax {
		return nil, fmt.Errorf("%w: got [%g, %g]", ErrEdgeOrder, fmin, fmax)
	}

	switch spacing {
	case SpacingLinear:
		return dsputil.LinSpace(fmin, fmax, nbands+1), nil
	case SpacingLog:
		if fmin <= 0 {
			return nil, fmt.Errorf("%w: got %g", ErrLogEdge, fmin)
		}

		return dsputil.LogSpace(fmin, fmax, nbands+1), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownSpacing, spacing)
	}
}

// WindowLengths returns the per-band beamforming window lengths in seconds.
// Constant mode repeats winlen. Adaptive mode interpolates linearly from
// winlen1 at band 0 to winlenX at band nbands-1 (a single band uses
// winlen1).
func WindowLengths(mode WindowMode, nbands int, winlen, winlen1, winlenX float64) ([]float64, error) {
	if nbands < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBandCount, nbands)
	}

	switch mode {
	case WindowConstant:
		if winlen <= 0 {
			return nil, fmt.Errorf("%w: got %g", ErrWindowLength, winlen)
		}

		out := make([]float64, nbands)
		for i := range out {
			out[i] = winlen
		}

		return out, nil

	case WindowAdaptive:
		if winlen1 <= 0 || winlenX <= 0 {
			return nil, fmt.Errorf("%w: got %g and %g", ErrWindowLength, winlen1, winlenX)
		}

		if nbands == 1 {
			return []float64{winlen1}, nil
		}

		return dsputil.LinSpace(winlen1, winlenX, nbands), nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownWindow, mode)
	}
}
