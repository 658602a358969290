package narrowband

import (
	"context"
	"image"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/liamtoney/narrow-band-least-squares/band"
	"github.com/liamtoney/narrow-band-least-squares/beam"
	"github.com/liamtoney/narrow-band-least-squares/fdsn"
	"github.com/liamtoney/narrow-band-least-squares/filter"
	"github.com/liamtoney/narrow-band-least-squares/geom"
	"github.com/liamtoney/narrow-band-least-squares/render"
	"github.com/liamtoney/narrow-band-least-squares/waveform"
)

// Pipeline runs the full narrow-band analysis: acquisition, band planning,
// geometry, the broadband pass, the per-band loop, aggregation and figure
// output. Stages run sequentially; the band loop checks the context
// between bands, which is the only cancellation point besides acquisition.
type Pipeline struct {
	cfg    Config
	log    *zap.Logger
	client *fdsn.Client
	stream waveform.Stream
}

// Option adjusts a Pipeline beyond its validated configuration.
type Option func(*Pipeline)

// WithLogger installs a structured logger. The default discards all
// output, keeping library use silent.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClient replaces the IRIS client, usually to point it at a test
// server.
func WithClient(c *fdsn.Client) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.client = c
		}
	}
}

// WithStream bypasses acquisition entirely and processes the given stream.
// The stream is used as-is: it must already be calibrated and carry
// element coordinates.
func WithStream(st waveform.Stream) Option {
	return func(p *Pipeline) {
		p.stream = st
	}
}

// New validates the configuration and assembles a pipeline.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:    cfg,
		log:    zap.NewNop(),
		client: fdsn.NewClient(""),
	}

	for _, o := range opts {
		o(p)
	}

	return p, nil
}

// Output collects everything a run produces, figures aside.
type Output struct {
	// Stream is the acquired, calibrated input; Filtered is its
	// broadband-filtered copy.
	Stream   waveform.Stream
	Filtered waveform.Stream

	// Geometry is the 2xN element offset matrix about the centroid, km.
	Geometry *mat.Dense

	Plan      *band.Plan
	Broadband beam.Result
	Grid      *Grid

	// Freqs is the shared diagnostic frequency grid with the broadband
	// and per-band responses sampled on it.
	Freqs             []float64
	BroadbandResponse []complex128
	BandResponses     [][]complex128

	// FigurePaths lists the written figure files in output order.
	FigurePaths []string
}

func (p *Pipeline) acquire(ctx context.Context) (waveform.Stream, error) {
	if p.stream != nil {
		return p.stream, nil
	}

	switch p.cfg.Source {
	case SourceIRIS:
		return p.client.Waveforms(ctx, fdsn.Query{
			Network:        p.cfg.Network,
			Station:        p.cfg.Station,
			Location:       p.cfg.Location,
			Channel:        p.cfg.Channel,
			Start:          p.cfg.Start,
			End:            p.cfg.End,
			RemoveResponse: p.cfg.RemoveResponse,
		})
	case SourceLocal:
		return fdsn.LoadDir(p.cfg.LocalDir, p.cfg.Start, p.cfg.End,
			p.cfg.Calib, p.cfg.Latitudes, p.cfg.Longitudes)
	}

	return nil, ErrUnknownSource
}

// Run executes the pipeline. The first failing stage aborts the run; there
// are no retries and no partial results.
func (p *Pipeline) Run(ctx context.Context) (*Output, error) {
	st, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Validate(); err != nil {
		return nil, err
	}

	rate, err := st.SampleRate()
	if err != nil {
		return nil, err
	}

	npts, err := st.NumSamples()
	if err != nil {
		return nil, err
	}

	p.log.Info("stream ready",
		zap.String("source", p.cfg.Source.String()),
		zap.Int("channels", len(st)),
		zap.Int("npts", npts),
		zap.Float64("sample_rate", rate))

	for _, tr := range st {
		s := tr.Stats()
		p.log.Info("trace",
			zap.String("id", tr.ID()),
			zap.Float64("mean", s.Mean),
			zap.Float64("rms", s.RMS),
			zap.Float64("peak", s.Peak))
	}

	plan, err := band.NewPlan(p.cfg.bandDef())
	if err != nil {
		return nil, err
	}

	lats, lons := st.Coordinates()

	rij, err := geom.Rij(lats, lons)
	if err != nil {
		return nil, err
	}

	p.log.Info("geometry resolved",
		zap.Int("elements", len(lats)),
		zap.Float64("aperture_km", geom.Aperture(rij)))

	out := &Output{
		Stream:   st,
		Geometry: rij,
		Plan:     plan,
		Freqs:    filter.ResponseGrid(rate),
	}

	// Broadband pass over the full configured range.
	bb, err := filter.BandPass(p.cfg.Family, p.cfg.FMin, p.cfg.FMax,
		p.cfg.Order, p.cfg.RippleDB, rate)
	if err != nil {
		return nil, err
	}

	out.Filtered = bb.Apply(st)
	out.BroadbandResponse = bb.Response(out.Freqs)

	out.Broadband, err = beam.Process(out.Filtered, rij, p.cfg.beamParams(plan.BroadbandSec))
	if err != nil {
		return nil, err
	}

	p.log.Info("broadband pass done",
		zap.Float64("fmin", p.cfg.FMin),
		zap.Float64("fmax", p.cfg.FMax),
		zap.Float64("window_sec", plan.BroadbandSec),
		zap.Int("windows", out.Broadband.Count()))

	out.Grid, err = NewGrid(plan.Count(), Capacity(npts, rate, plan.ShortestWindow(), p.cfg.Overlap))
	if err != nil {
		return nil, err
	}

	out.BandResponses = make([][]complex128, plan.Count())

	for i := 0; i < plan.Count(); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		lo, hi := plan.Band(i)

		sos, err := filter.BandPass(p.cfg.Family, lo, hi, p.cfg.Order, p.cfg.RippleDB, rate)
		if err != nil {
			return nil, err
		}

		out.BandResponses[i] = sos.Response(out.Freqs)

		res, err := beam.Process(sos.Apply(st), rij, p.cfg.beamParams(plan.WindowSec[i]))
		if err != nil {
			return nil, err
		}

		if err := out.Grid.SetRow(i, res); err != nil {
			return nil, err
		}

		p.log.Info("band done",
			zap.Int("band", i+1),
			zap.Float64("fmin", lo),
			zap.Float64("fmax", hi),
			zap.Float64("window_sec", plan.WindowSec[i]),
			zap.Int("windows", res.Count()))
	}

	if err := p.render(out); err != nil {
		return nil, err
	}

	return out, nil
}

// render writes the four run figures in their fixed order.
func (p *Pipeline) render(out *Output) error {
	save := func(img *image.NRGBA, name string) error {
		path, err := render.SaveFigure(img, p.cfg.OutDir, name, p.cfg.Format, p.cfg.DPI)
		if err != nil {
			return err
		}

		p.log.Info("figure saved", zap.String("path", path))
		out.FigurePaths = append(out.FigurePaths, path)

		return nil
	}

	if err := save(render.ArraySummary(out.Filtered, out.Broadband, p.cfg.MdCCMThresh),
		render.NameArraySummary); err != nil {
		return err
	}

	if err := save(render.FilterResponse(out.Freqs, out.BroadbandResponse,
		p.cfg.FMin, p.cfg.FMax, p.cfg.Family, p.cfg.Order, p.cfg.RippleDB),
		render.NameFilterResponse); err != nil {
		return err
	}

	if err := save(render.ProcessingParameters(out.Geometry, out.Plan, out.Freqs,
		out.BandResponses, p.cfg.Family, p.cfg.Order, p.cfg.RippleDB),
		render.NameParameters); err != nil {
		return err
	}

	return save(render.PMCCLike(out.Filtered, out.Plan.Edges, out.Grid.Times,
		out.Grid.BackAzimuth, out.Grid.MdCCM, out.Grid.Valid, p.cfg.MdCCMThresh),
		render.NamePMCCLike)
}
