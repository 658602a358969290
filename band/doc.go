// Package band plans the narrow-band analysis schedule: how the configured
// frequency range splits into bands and which beamforming window length each
// band uses.
//
// [Edges] produces the nbands+1 band-edge frequencies with linear or
// logarithmic spacing. [WindowLengths] produces the per-band window schedule,
// either constant or linearly adapted from a long window at the lowest band
// to a short window at the highest. [NewPlan] bundles both, validated, for
// the processing pipeline.
package band
