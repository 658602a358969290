package narrowband

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/liamtoney/narrow-band-least-squares/fdsn"
	"github.com/liamtoney/narrow-band-least-squares/internal/testutil"
	"github.com/liamtoney/narrow-band-least-squares/render"
	"github.com/liamtoney/narrow-band-least-squares/waveform"
)

// ---------------------------------------------------------------------------
// Fixture: a five-element array recording a plane wave
// ---------------------------------------------------------------------------

var (
	pipeX = []float64{0, 0.43, 0.27, -0.27, -0.43}
	pipeY = []float64{0.5, 0.15, -0.4, -0.4, 0.15}
)

const (
	pipeBaz = 137.0
	pipeVel = 0.343
	pipeFs  = 20.0
	pipeN   = 2400
)

var pipeStart = time.Date(2018, 12, 19, 1, 45, 0, 0, time.UTC)

// pipeCoordinates converts the kilometre offsets back to latitudes and
// longitudes about a reference point. The offsets are zero-mean, so the
// centroid of the result is the reference point and the projected geometry
// reproduces pipeX and pipeY.
func pipeCoordinates() (lats, lons []float64) {
	const lat0, lon0 = 64.8738, -147.8616

	degToKm := 6371.0 * math.Pi / 180
	cos0 := math.Cos(lat0 * math.Pi / 180)

	lats = make([]float64, len(pipeX))
	lons = make([]float64, len(pipeX))

	for i := range pipeX {
		lats[i] = lat0 + pipeY[i]/degToKm
		lons[i] = lon0 + pipeX[i]/(cos0*degToKm)
	}

	return lats, lons
}

func pipeStream() waveform.Stream {
	waves := testutil.PlaneWave(pipeX, pipeY, pipeBaz, pipeVel, pipeFs, pipeN,
		[]float64{0.5, 1.1, 2.3})

	lats, lons := pipeCoordinates()

	st := make(waveform.Stream, len(waves))
	for i, w := range waves {
		st[i] = &waveform.Trace{
			Network:    "IM",
			Station:    "I53H" + string(rune('1'+i)),
			Channel:    "BDF",
			Start:      pipeStart,
			SampleRate: pipeFs,
			Data:       w,
			Latitude:   lats[i],
			Longitude:  lons[i],
		}
	}

	return st
}

// pipeConfig narrows the stock configuration to three bands over 0.4-3 Hz,
// bracketing the fixture tones, with windows short enough for a 2 minute
// record.
func pipeConfig(t *testing.T) Config {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Start = pipeStart
	cfg.End = pipeStart.Add(2 * time.Minute)
	cfg.FMin = 0.4
	cfg.FMax = 3
	cfg.NumBands = 3
	cfg.WinLen = 25
	cfg.WinLen1 = 30
	cfg.WinLenX = 15
	cfg.OutDir = t.TempDir()
	cfg.DPI = 100

	return cfg
}

func median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)

	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}

	return (s[n/2-1] + s[n/2]) / 2
}

// ---------------------------------------------------------------------------
// Full run
// ---------------------------------------------------------------------------

func TestPipelineRun(t *testing.T) {
	cfg := pipeConfig(t)

	p, err := New(cfg, WithStream(pipeStream()))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	out, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// Band plan: three log-spaced bands spanning exactly [0.4, 3].
	if out.Plan.Count() != 3 || len(out.Plan.Edges) != 4 {
		t.Fatalf("plan: %d bands, %d edges", out.Plan.Count(), len(out.Plan.Edges))
	}

	testutil.RequireNearlyEqual(t, out.Plan.Edges[0], 0.4, 1e-9)
	testutil.RequireNearlyEqual(t, out.Plan.Edges[3], 3, 1e-9)
	testutil.RequireSliceNearlyEqual(t, out.Plan.WindowSec, []float64{30, 22.5, 15}, 1e-9)
	testutil.RequireNearlyEqual(t, out.Plan.BroadbandSec, 25, 1e-9)

	// Geometry: the projection recovers the fixture offsets.
	if r, c := out.Geometry.Dims(); r != 2 || c != 5 {
		t.Fatalf("geometry %dx%d, want 2x5", r, c)
	}

	for i := range pipeX {
		testutil.RequireNearlyEqual(t, out.Geometry.At(0, i), pipeX[i], 1e-6)
		testutil.RequireNearlyEqual(t, out.Geometry.At(1, i), pipeY[i], 1e-6)
	}

	// Broadband pass: 25 s windows at half overlap over 2400 samples.
	if out.Broadband.Count() != 8 {
		t.Fatalf("broadband windows = %d, want 8", out.Broadband.Count())
	}

	// The filter startup transient can degrade the earliest window, so the
	// wave parameters are asserted on medians across windows.
	testutil.RequireAngleNearlyEqual(t, median(out.Broadband.BackAzimuth), pipeBaz, 1.5)

	vel := median(out.Broadband.Velocity)
	if relErr := math.Abs(vel-pipeVel) / pipeVel; relErr > 0.05 {
		t.Fatalf("median velocity %v, want %v within 5%%", vel, pipeVel)
	}

	coherent := 0
	for _, m := range out.Broadband.MdCCM {
		if m > 0.6 {
			coherent++
		}
	}

	if coherent < 6 {
		t.Fatalf("only %d of 8 broadband windows above the coherence threshold", coherent)
	}

	// Aggregate grid: per-band window counts from the adaptive schedule.
	if got, want := out.Grid.Valid, []int{7, 9, 15}; len(got) != 3 ||
		got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("Grid.Valid = %v, want %v", got, want)
	}

	if out.Grid.Capacity() != 15 || out.Grid.Bands() != 3 {
		t.Fatalf("grid shape %dx%d, want 3x15", out.Grid.Bands(), out.Grid.Capacity())
	}

	if !math.IsNaN(out.Grid.Velocity[0][7]) {
		t.Fatal("band 0 column 7 should stay NaN past its valid count")
	}

	// Window centers: half the band's window length into the record.
	if dt := out.Grid.Times[0][0].Sub(pipeStart); dt != 15*time.Second {
		t.Fatalf("band 0 first center at %v, want 15s", dt)
	}

	if dt := out.Grid.Times[2][0].Sub(pipeStart); dt != 7500*time.Millisecond {
		t.Fatalf("band 2 first center at %v, want 7.5s", dt)
	}

	// Diagnostic responses share one frequency grid.
	if len(out.Freqs) != 1000 || len(out.BroadbandResponse) != 1000 {
		t.Fatalf("response grid %d points, broadband %d", len(out.Freqs), len(out.BroadbandResponse))
	}

	if len(out.BandResponses) != 3 {
		t.Fatalf("band responses = %d, want 3", len(out.BandResponses))
	}

	for i, h := range out.BandResponses {
		if len(h) != 1000 {
			t.Fatalf("band %d response has %d points", i, len(h))
		}
	}

	// Filtering reuses the acquired stream's identity and shape.
	if len(out.Stream) != 5 || len(out.Filtered) != 5 {
		t.Fatalf("stream %d traces, filtered %d", len(out.Stream), len(out.Filtered))
	}

	for i := range out.Stream {
		if out.Stream[i].ID() != out.Filtered[i].ID() {
			t.Fatalf("trace %d: filtered id %q != input id %q", i, out.Filtered[i].ID(), out.Stream[i].ID())
		}
	}
}

func TestPipelineWritesFigures(t *testing.T) {
	cfg := pipeConfig(t)

	p, err := New(cfg, WithStream(pipeStream()))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	out, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	want := []string{
		render.NameArraySummary + ".png",
		render.NameFilterResponse + ".png",
		render.NameParameters + ".png",
		render.NamePMCCLike + ".png",
	}

	if len(out.FigurePaths) != len(want) {
		t.Fatalf("figure paths = %v", out.FigurePaths)
	}

	for i, path := range out.FigurePaths {
		if filepath.Base(path) != want[i] {
			t.Fatalf("figure %d is %q, want %q", i, filepath.Base(path), want[i])
		}

		if filepath.Dir(path) != cfg.OutDir {
			t.Fatalf("figure %d written to %q, want %q", i, filepath.Dir(path), cfg.OutDir)
		}

		if _, err := os.Stat(path); err != nil {
			t.Fatalf("figure %d: %v", i, err)
		}
	}

	// At 100 dpi the summary figure stays at its base raster size.
	f, err := os.Open(out.FigurePaths[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode summary figure: %v", err)
	}

	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 1000 {
		t.Fatalf("summary figure %dx%d, want 800x1000", b.Dx(), b.Dy())
	}
}

// ---------------------------------------------------------------------------
// Determinism and cancellation
// ---------------------------------------------------------------------------

func TestPipelineDeterministic(t *testing.T) {
	run := func() *Output {
		t.Helper()

		p, err := New(pipeConfig(t), WithStream(pipeStream()))
		if err != nil {
			t.Fatalf("New error: %v", err)
		}

		out, err := p.Run(context.Background())
		if err != nil {
			t.Fatalf("Run error: %v", err)
		}

		return out
	}

	a, b := run(), run()

	// Bitwise comparison so NaN padding compares equal to NaN padding.
	sameBits := func(x, y float64) bool {
		return math.Float64bits(x) == math.Float64bits(y)
	}

	for i := 0; i < a.Grid.Bands(); i++ {
		if a.Grid.Valid[i] != b.Grid.Valid[i] {
			t.Fatalf("band %d: valid counts differ", i)
		}

		for j := 0; j < a.Grid.Capacity(); j++ {
			if !sameBits(a.Grid.Velocity[i][j], b.Grid.Velocity[i][j]) ||
				!sameBits(a.Grid.BackAzimuth[i][j], b.Grid.BackAzimuth[i][j]) ||
				!sameBits(a.Grid.MdCCM[i][j], b.Grid.MdCCM[i][j]) {
				t.Fatalf("grid cell (%d,%d) differs between runs", i, j)
			}

			if !a.Grid.Times[i][j].Equal(b.Grid.Times[i][j]) {
				t.Fatalf("grid time (%d,%d) differs between runs", i, j)
			}
		}
	}

	for w := 0; w < a.Broadband.Count(); w++ {
		if !sameBits(a.Broadband.Velocity[w], b.Broadband.Velocity[w]) ||
			!sameBits(a.Broadband.BackAzimuth[w], b.Broadband.BackAzimuth[w]) {
			t.Fatalf("broadband window %d differs between runs", w)
		}
	}
}

func TestPipelineCanceledContext(t *testing.T) {
	p, err := New(pipeConfig(t), WithStream(pipeStream()))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := p.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}

	if out != nil {
		t.Fatal("canceled run returned partial output")
	}
}

// ---------------------------------------------------------------------------
// Acquisition paths
// ---------------------------------------------------------------------------

// pipelineStub serves the fixture array through both IRIS services: station
// metadata with full-precision coordinates and one SLIST block per channel.
func pipelineStub(t *testing.T) *httptest.Server {
	t.Helper()

	st := pipeStream()
	lats, lons := pipeCoordinates()

	mux := http.NewServeMux()

	mux.HandleFunc("/fdsnws/station/1/query", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "#Network|Station|Location|Channel|Latitude|Longitude|Elevation|Depth|Azimuth|Dip|SensorDescription|Scale|ScaleFreq|ScaleUnits|SampleRate|StartTime|EndTime")

		for i, tr := range st {
			fmt.Fprintf(w, "IM|%s||BDF|%s|%s|200.0|0.0|0.0|90.0|Chaparral 50A|1.0|1.0|Pa|20.0|2005-02-08T00:00:00|\n",
				tr.Station,
				strconv.FormatFloat(lats[i], 'f', -1, 64),
				strconv.FormatFloat(lons[i], 'f', -1, 64))
		}
	})

	mux.HandleFunc("/irisws/timeseries/1/query", func(w http.ResponseWriter, r *http.Request) {
		sta := r.URL.Query().Get("sta")

		for _, tr := range st {
			if tr.Station == sta {
				if err := waveform.WriteTimeSeries(w, waveform.Stream{tr}); err != nil {
					t.Errorf("write timeseries: %v", err)
				}

				return
			}
		}

		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestPipelineIRISSource(t *testing.T) {
	srv := pipelineStub(t)

	cfg := pipeConfig(t)

	p, err := New(cfg, WithClient(fdsn.NewClient(srv.URL)))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	out, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(out.Stream) != 5 {
		t.Fatalf("acquired %d traces, want 5", len(out.Stream))
	}

	// Coordinates and samples survive the text round trip, so the run
	// matches the in-memory fixture.
	if got, want := out.Grid.Valid, []int{7, 9, 15}; got[0] != want[0] || got[1] != want[1] || got[2] != want[2] {
		t.Fatalf("Grid.Valid = %v, want %v", got, want)
	}

	testutil.RequireAngleNearlyEqual(t, median(out.Broadband.BackAzimuth), pipeBaz, 1.5)

	vel := median(out.Broadband.Velocity)
	if relErr := math.Abs(vel-pipeVel) / pipeVel; relErr > 0.05 {
		t.Fatalf("median velocity %v, want %v within 5%%", vel, pipeVel)
	}
}

func TestPipelineLocalSource(t *testing.T) {
	dir := t.TempDir()

	for i, tr := range pipeStream() {
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("i53h%d.slist", i+1)))
		if err != nil {
			t.Fatal(err)
		}

		if err := waveform.WriteTimeSeries(f, waveform.Stream{tr}); err != nil {
			t.Fatal(err)
		}

		if err := f.Close(); err != nil {
			t.Fatal(err)
		}
	}

	lats, lons := pipeCoordinates()

	cfg := pipeConfig(t)
	cfg.Source = SourceLocal
	cfg.LocalDir = dir
	cfg.Calib = 1
	cfg.Latitudes = lats
	cfg.Longitudes = lons

	p, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	out, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if len(out.Stream) != 5 {
		t.Fatalf("loaded %d traces, want 5", len(out.Stream))
	}

	// Files sort by name, so channel order matches the coordinate lists.
	for i, tr := range out.Stream {
		if tr.Latitude != lats[i] || tr.Longitude != lons[i] {
			t.Fatalf("trace %d has coordinates %v, %v", i, tr.Latitude, tr.Longitude)
		}
	}

	testutil.RequireAngleNearlyEqual(t, median(out.Broadband.BackAzimuth), pipeBaz, 1.5)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DPI = 0

	if _, err := New(cfg); !errors.Is(err, ErrDPI) {
		t.Fatalf("err = %v, want ErrDPI", err)
	}
}
