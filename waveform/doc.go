// Package waveform provides the multi-channel time-series data model for
// array processing.
//
// A [Trace] is one channel of evenly sampled data with its station metadata
// and coordinates. A [Stream] is an ordered collection of traces recorded by
// the elements of one array; its channel order fixes the column order of the
// geometry matrix and the row order of every downstream data matrix.
//
// The package also reads and writes the TIMESERIES/SLIST ASCII interchange
// format, which is what the IRIS timeseries web service returns and what
// local single-channel dump files use.
package waveform
