// Package fdsn acquires array waveform data for processing.
//
// The Client fetches from the IRIS web services: channel metadata from the
// fdsnws station service (text format) and samples from the irisws
// timeseries service (SLIST ASCII), one request per matched channel.
// LoadDir covers the offline path, reading TIMESERIES dump files from a
// directory and applying a scalar calibration.
//
// Both paths produce a waveform.Stream with element coordinates attached,
// ready for the geometry and beamforming stages.
package fdsn
