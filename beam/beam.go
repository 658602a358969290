package beam

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/liamtoney/narrow-band-least-squares/geom"
	"github.com/liamtoney/narrow-band-least-squares/waveform"
)

// Errors returned by the beamformer.
var (
	ErrTooFewChannels = errors.New("beam: need at least three channels")
	ErrShortRecord    = errors.New("beam: window longer than record")
	ErrWindow         = errors.New("beam: invalid window parameters")
	ErrAlpha          = errors.New("beam: alpha outside [0.5, 1]")
	ErrGeometry       = errors.New("beam: geometry does not match stream")
	ErrSolve          = errors.New("beam: slowness solve failed")
)

// minPairs is the smallest pair count a trimmed fit may keep: two slowness
// unknowns plus one degree of freedom for the residual spread.
const minPairs = 3

// Params configures one beamforming pass.
type Params struct {
	// WindowSec is the sliding window length in seconds.
	WindowSec float64

	// Overlap is the fractional window overlap in [0, 1).
	Overlap float64

	// Alpha selects the estimator: 1.0 fits all channel pairs, values in
	// [0.5, 1) drop the worst-residual pairs and refit once.
	Alpha float64
}

// Validate checks the parameter ranges.
func (p Params) Validate() error {
	if p.WindowSec <= 0 {
		return fmt.Errorf("%w: window %v s", ErrWindow, p.WindowSec)
	}

	if p.Overlap < 0 || p.Overlap >= 1 {
		return fmt.Errorf("%w: overlap %v", ErrWindow, p.Overlap)
	}

	if p.Alpha < 0.5 || p.Alpha > 1 {
		return fmt.Errorf("%w: got %v", ErrAlpha, p.Alpha)
	}

	return nil
}

// Windows returns the window size and hop in samples plus the number of
// whole windows a record of npts samples yields. A record shorter than one
// window yields zero.
func (p Params) Windows(npts int, sampleRate float64) (size, step, count int) {
	size = int(math.Round(p.WindowSec * sampleRate))

	step = int(math.Round((1 - p.Overlap) * p.WindowSec * sampleRate))
	if step < 1 {
		step = 1
	}

	if size < 2 || npts < size {
		return size, step, 0
	}

	return size, step, 1 + (npts-size)/step
}

// Result holds the per-window estimator outputs, one entry per window in
// time order. Time is the window center.
type Result struct {
	Velocity    []float64 // horizontal trace velocity, km/s
	BackAzimuth []float64 // degrees clockwise from north, arrival direction
	MdCCM       []float64 // median of the pairwise correlation maxima
	SigmaTau    []float64 // delay residual spread, seconds
	Time        []time.Time
}

// Count returns the number of windows in the result.
func (r Result) Count() int {
	return len(r.Velocity)
}

// Process runs the sliding-window least-squares beamformer over a validated
// stream with the element geometry rij (2xN, kilometres, stream channel
// order).
func Process(st waveform.Stream, rij *mat.Dense, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}

	if err := st.Validate(); err != nil {
		return Result{}, err
	}

	nch := len(st)
	if nch < 3 {
		return Result{}, fmt.Errorf("%w: got %d", ErrTooFewChannels, nch)
	}

	if rows, cols := rij.Dims(); rows != 2 || cols != nch {
		return Result{}, fmt.Errorf("%w: geometry %dx%d for %d channels", ErrGeometry, rows, cols, nch)
	}

	rate := st[0].SampleRate
	npts := st[0].NumSamples()

	size, step, count := p.Windows(npts, rate)
	if count == 0 {
		return Result{}, fmt.Errorf("%w: %d-sample window over %d samples", ErrShortRecord, size, npts)
	}

	deltas, pairs, err := geom.PairDeltas(rij)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Velocity:    make([]float64, count),
		BackAzimuth: make([]float64, count),
		MdCCM:       make([]float64, count),
		SigmaTau:    make([]float64, count),
		Time:        make([]time.Time, count),
	}

	data := st.Data()
	corr := newCorrelator(size, nch)

	tau := make([]float64, len(pairs))
	ccms := make([]float64, len(pairs))
	scratch := make([]float64, len(pairs))

	for w := 0; w < count; w++ {
		ptr := w * step
		corr.load(data, ptr)

		for k, pr := range pairs {
			lag, ccm := corr.delay(pr.I, pr.J)
			tau[k] = lag / rate
			ccms[k] = ccm
		}

		fit, err := fitSlowness(deltas, tau, p.Alpha)
		if err != nil {
			return Result{}, fmt.Errorf("window %d: %w", w, err)
		}

		res.Velocity[w] = 1 / math.Hypot(fit.sx, fit.sy)
		res.BackAzimuth[w] = backAzimuth(fit.sx, fit.sy)
		res.MdCCM[w] = median(ccms, scratch)
		res.SigmaTau[w] = fit.sigmaTau
		res.Time[w] = windowCenter(st[0].Start, ptr, size, rate)
	}

	return res, nil
}

type slownessFit struct {
	sx, sy   float64
	sigmaTau float64
}

// fitSlowness solves co-array · s = tau by least squares. For alpha below
// one it refits after dropping the ceil((1-alpha)*npairs) worst-residual
// pairs, never keeping fewer than minPairs.
func fitSlowness(deltas *mat.Dense, tau []float64, alpha float64) (slownessFit, error) {
	sx, sy, resid, err := solve(deltas, tau)
	if err != nil {
		return slownessFit{}, err
	}

	npairs := len(tau)

	if alpha < 1 {
		keep := npairs - int(math.Ceil((1-alpha)*float64(npairs)))
		if keep < minPairs {
			keep = minPairs
		}

		if keep < npairs {
			order := make([]int, npairs)
			for i := range order {
				order[i] = i
			}

			sort.Slice(order, func(a, b int) bool {
				return math.Abs(resid[order[a]]) < math.Abs(resid[order[b]])
			})

			subDeltas := mat.NewDense(keep, 2, nil)
			subTau := make([]float64, keep)
			for i, idx := range order[:keep] {
				subDeltas.Set(i, 0, deltas.At(idx, 0))
				subDeltas.Set(i, 1, deltas.At(idx, 1))
				subTau[i] = tau[idx]
			}

			sx, sy, resid, err = solve(subDeltas, subTau)
			if err != nil {
				return slownessFit{}, err
			}
		}
	}

	return slownessFit{sx: sx, sy: sy, sigmaTau: sigmaTau(resid)}, nil
}

func solve(deltas *mat.Dense, tau []float64) (sx, sy float64, resid []float64, err error) {
	var qr mat.QR
	qr.Factorize(deltas)

	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, mat.NewVecDense(len(tau), tau)); err != nil {
		return 0, 0, nil, fmt.Errorf("%w: %v", ErrSolve, err)
	}

	sx, sy = sol.AtVec(0), sol.AtVec(1)

	resid = make([]float64, len(tau))
	for k := range resid {
		resid[k] = deltas.At(k, 0)*sx + deltas.At(k, 1)*sy - tau[k]
	}

	return sx, sy, resid, nil
}

// sigmaTau is the residual spread of the plane-wave fit: sqrt(SSR/(n-2))
// with two fitted slowness components.
func sigmaTau(resid []float64) float64 {
	n := len(resid)
	if n <= 2 {
		return 0
	}

	var ssr float64
	for _, r := range resid {
		ssr += r * r
	}

	return math.Sqrt(ssr / float64(n-2))
}

// backAzimuth converts a slowness vector into the arrival direction in
// degrees clockwise from north, wrapped to [0, 360).
func backAzimuth(sx, sy float64) float64 {
	baz := math.Atan2(-sx, -sy) * 180 / math.Pi
	if baz < 0 {
		baz += 360
	}

	return baz
}

// median averages the two central values for even counts, matching the
// usual numeric-library convention.
func median(v, scratch []float64) float64 {
	n := len(v)
	if n == 0 {
		return math.NaN()
	}

	copy(scratch, v)
	sort.Float64s(scratch)

	if n%2 == 1 {
		return scratch[n/2]
	}

	return (scratch[n/2-1] + scratch[n/2]) / 2
}

func windowCenter(start time.Time, ptr, size int, rate float64) time.Time {
	centerSec := (float64(ptr) + float64(size)/2) / rate

	return start.Add(time.Duration(centerSec * float64(time.Second)))
}
