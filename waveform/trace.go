package waveform

import (
	"fmt"
	"math"
	"time"
)

// timeEps is the slack, in fractional samples, allowed when converting
// timestamps to sample indices. It absorbs float rounding in start times
// that are exact multiples of the sample interval.
const timeEps = 1e-6

// Trace is a single channel of evenly sampled data.
type Trace struct {
	Network  string
	Station  string
	Location string
	Channel  string

	Start      time.Time
	SampleRate float64 // Hz
	Data       []float64

	// Element coordinates, decimal degrees.
	Latitude  float64
	Longitude float64
}

// ID returns the canonical NET.STA.LOC.CHA identifier.
func (tr *Trace) ID() string {
	return fmt.Sprintf("%s.%s.%s.%s", tr.Network, tr.Station, tr.Location, tr.Channel)
}

// NumSamples returns the number of samples in the trace.
func (tr *Trace) NumSamples() int {
	return len(tr.Data)
}

// TimeAt returns the timestamp of sample i.
func (tr *Trace) TimeAt(i int) time.Time {
	if tr.SampleRate <= 0 {
		return tr.Start
	}

	return tr.Start.Add(time.Duration(float64(i) / tr.SampleRate * float64(time.Second)))
}

// EndTime returns the timestamp of the last sample, or Start for an empty
// trace.
func (tr *Trace) EndTime() time.Time {
	if len(tr.Data) == 0 {
		return tr.Start
	}

	return tr.TimeAt(len(tr.Data) - 1)
}

// Copy returns a deep copy of the trace.
func (tr *Trace) Copy() *Trace {
	dup := *tr
	dup.Data = make([]float64, len(tr.Data))
	copy(dup.Data, tr.Data)

	return &dup
}

// Scale multiplies every sample by factor in place. Used for scalar
// calibration (counts to physical units).
func (tr *Trace) Scale(factor float64) {
	for i := range tr.Data {
		tr.Data[i] *= factor
	}
}

// Trim restricts the trace to samples with timestamps in [start, end),
// adjusting Start accordingly. Samples outside the window are dropped;
// a window that misses the trace entirely leaves it empty.
func (tr *Trace) Trim(start, end time.Time) {
	if tr.SampleRate <= 0 || len(tr.Data) == 0 {
		return
	}

	first := 0
	if start.After(tr.Start) {
		first = int(math.Ceil(start.Sub(tr.Start).Seconds()*tr.SampleRate - timeEps))
	}

	lastEx := int(math.Ceil(end.Sub(tr.Start).Seconds()*tr.SampleRate - timeEps))

	if first < 0 {
		first = 0
	}

	if lastEx > len(tr.Data) {
		lastEx = len(tr.Data)
	}

	if lastEx < first {
		lastEx = first
	}

	tr.Start = tr.TimeAt(first)
	tr.Data = tr.Data[first:lastEx]
}

// Stats computes the single-pass summary statistics of the trace data.
func (tr *Trace) Stats() Stats {
	return Calculate(tr.Data)
}
