package waveform

import (
	"errors"
	"fmt"
	"time"
)

// Errors returned by stream accessors.
var (
	ErrEmptyStream   = errors.New("waveform: stream has no traces")
	ErrRateMismatch  = errors.New("waveform: traces have differing sample rates")
	ErrNptsMismatch  = errors.New("waveform: traces have differing sample counts")
	ErrStartMismatch = errors.New("waveform: traces have differing start times")
)

// Stream is an ordered collection of traces from the elements of one array.
// Channel order is significant: it fixes the column order of the geometry
// matrix and the row order of the data matrix handed to the beamformer.
type Stream []*Trace

// SampleRate returns the common sample rate of all traces.
func (st Stream) SampleRate() (float64, error) {
	if len(st) == 0 {
		return 0, ErrEmptyStream
	}

	rate := st[0].SampleRate
	for _, tr := range st[1:] {
		if tr.SampleRate != rate {
			return 0, fmt.Errorf("%w: %s has %g Hz, %s has %g Hz",
				ErrRateMismatch, st[0].ID(), rate, tr.ID(), tr.SampleRate)
		}
	}

	return rate, nil
}

// NumSamples returns the common sample count of all traces.
func (st Stream) NumSamples() (int, error) {
	if len(st) == 0 {
		return 0, ErrEmptyStream
	}

	n := len(st[0].Data)
	for _, tr := range st[1:] {
		if len(tr.Data) != n {
			return 0, fmt.Errorf("%w: %s has %d, %s has %d",
				ErrNptsMismatch, st[0].ID(), n, tr.ID(), len(tr.Data))
		}
	}

	return n, nil
}

// Validate checks that the stream forms a coherent data matrix: non-empty,
// one sample rate, one sample count, and start times aligned to within half
// a sample interval.
func (st Stream) Validate() error {
	rate, err := st.SampleRate()
	if err != nil {
		return err
	}

	if _, err := st.NumSamples(); err != nil {
		return err
	}

	tol := time.Duration(0.5 / rate * float64(time.Second))
	for _, tr := range st[1:] {
		d := tr.Start.Sub(st[0].Start)
		if d < -tol || d > tol {
			return fmt.Errorf("%w: %s starts at %s, %s at %s",
				ErrStartMismatch, st[0].ID(), st[0].Start.UTC().Format(time.RFC3339Nano),
				tr.ID(), tr.Start.UTC().Format(time.RFC3339Nano))
		}
	}

	return nil
}

// Data returns the per-channel sample slices in stream order. The slices
// alias the trace data; callers that mutate them mutate the stream.
func (st Stream) Data() [][]float64 {
	out := make([][]float64, len(st))
	for i, tr := range st {
		out[i] = tr.Data
	}

	return out
}

// Coordinates returns the element latitudes and longitudes in stream order.
func (st Stream) Coordinates() (lats, lons []float64) {
	lats = make([]float64, len(st))
	lons = make([]float64, len(st))

	for i, tr := range st {
		lats[i] = tr.Latitude
		lons[i] = tr.Longitude
	}

	return lats, lons
}

// IDs returns the trace identifiers in stream order.
func (st Stream) IDs() []string {
	out := make([]string, len(st))
	for i, tr := range st {
		out[i] = tr.ID()
	}

	return out
}

// Copy returns a deep copy of the stream.
func (st Stream) Copy() Stream {
	out := make(Stream, len(st))
	for i, tr := range st {
		out[i] = tr.Copy()
	}

	return out
}

// Trim restricts every trace to [start, end).
func (st Stream) Trim(start, end time.Time) {
	for _, tr := range st {
		tr.Trim(start, end)
	}
}

// Scale multiplies every sample of every trace by factor in place.
func (st Stream) Scale(factor float64) {
	for _, tr := range st {
		tr.Scale(factor)
	}
}
