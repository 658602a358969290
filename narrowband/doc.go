// Package narrowband orchestrates the narrow-band least-squares array
// processing pipeline: acquire a multichannel stream, plan the frequency
// bands and window schedule, resolve the array geometry, then band-pass and
// beamform the stream once broadband and once per band, aggregating the
// per-band results into fixed-capacity grids for rendering.
//
// The package owns the run configuration (Config, a plain record validated
// once up front) and the aggregate Grid whose rows are left-aligned
// per-band sequences with NaN tails. Everything runs synchronously on the
// caller's goroutine; the context is checked between bands so a canceled
// run stops at the next band boundary.
package narrowband
