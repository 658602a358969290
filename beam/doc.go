// Package beam implements least-squares array beamforming over sliding
// time windows.
//
// Each window is demeaned per channel and cross-correlated per unique
// channel pair in the frequency domain. The inter-channel delays feed an
// overdetermined plane-wave fit: co-array · s = τ, solved for the slowness
// vector s by QR least squares. The fit yields the horizontal trace
// velocity 1/|s| in km/s and the back-azimuth (degrees clockwise from
// north, direction of arrival). The median of the pairwise correlation
// maxima (MdCCM) scores how coherent the window is across the array, and
// the delay-residual spread σ_τ scores how well a single plane wave
// explains it.
//
// Alpha selects the estimator: 1.0 is the ordinary least-squares fit over
// all pairs; values in [0.5, 1) run one trimmed refit that drops the
// worst-residual pairs before fitting again.
package beam
