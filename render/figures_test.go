package render

import (
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/liamtoney/narrow-band-least-squares/beam"
	"github.com/liamtoney/narrow-band-least-squares/filter"
	"github.com/liamtoney/narrow-band-least-squares/internal/raster"
	"github.com/liamtoney/narrow-band-least-squares/waveform"
)

var figStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// figStream is a single 100-sample, 1 Hz sine trace.
func figStream() waveform.Stream {
	data := make([]float64, 100)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * float64(i) / 25)
	}

	return waveform.Stream{{
		Network: "XX", Station: "TST", Channel: "BDF",
		Start: figStart, SampleRate: 1, Data: data,
	}}
}

func figResult() beam.Result {
	res := beam.Result{}
	for i := 1; i <= 9; i++ {
		res.Time = append(res.Time, figStart.Add(time.Duration(i*10)*time.Second))
		res.Velocity = append(res.Velocity, 0.34)
		res.BackAzimuth = append(res.BackAzimuth, 90)
		res.MdCCM = append(res.MdCCM, 0.9)
		res.SigmaTau = append(res.SigmaTau, 0.01)
	}

	res.MdCCM[4] = 0.2 // the 50 s window falls below the display threshold

	return res
}

func nonWhite(img *image.NRGBA, r image.Rectangle) int {
	count := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.NRGBAAt(x, y) != raster.White {
				count++
			}
		}
	}

	return count
}

// ---- array summary ----

func TestArraySummary(t *testing.T) {
	img := ArraySummary(figStream(), figResult(), 0.6)

	if img.Bounds().Dx() != baseWidth || img.Bounds().Dy() != 1000 {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	if nonWhite(img, img.Bounds()) == 0 {
		t.Fatal("figure is blank")
	}
}

func TestArraySummaryThresholdLine(t *testing.T) {
	img := ArraySummary(figStream(), figResult(), 0.6)

	// The MdCCM panel spans y 227..378; its threshold line sits at 0.6.
	rects := panels(baseWidth, 1000, 5, 36)
	a := raster.NewAxes(&raster.Canvas{Img: img}, rects[1], 0, 99, 0, 1)

	if img.NRGBAAt(rects[1].Min.X+3, a.PixelY(0.6)) != raster.Red {
		t.Fatal("threshold line missing")
	}
}

func TestArraySummaryMutesLowCoherence(t *testing.T) {
	img := ArraySummary(figStream(), figResult(), 0.6)

	rects := panels(baseWidth, 1000, 5, 36)
	a := raster.NewAxes(&raster.Canvas{Img: img}, rects[1], 0, 99, 0, 1)

	// Window 5 (50 s, MdCCM 0.2) must be muted, window 3 (30 s, 0.9) shaded.
	if got := img.NRGBAAt(a.PixelX(50), a.PixelY(0.2)); got != raster.LightGray {
		t.Fatalf("low-coherence point = %v, want muted", got)
	}

	if got := img.NRGBAAt(a.PixelX(30), a.PixelY(0.9)); got != raster.Sequential(0.9) {
		t.Fatalf("high-coherence point = %v, want MdCCM shade", got)
	}
}

func TestArraySummaryHandlesNaN(t *testing.T) {
	res := figResult()
	res.Velocity[2] = math.NaN()
	res.BackAzimuth[2] = math.NaN()
	res.MdCCM[2] = math.NaN()
	res.SigmaTau[2] = math.NaN()

	img := ArraySummary(figStream(), res, 0.6)
	if nonWhite(img, img.Bounds()) == 0 {
		t.Fatal("figure is blank")
	}
}

// ---- filter response ----

func TestFilterResponse(t *testing.T) {
	sos, err := filter.BandPass(filter.Butterworth, 0.5, 5, 2, 0, 40)
	if err != nil {
		t.Fatal(err)
	}

	freqs := filter.ResponseGrid(40)

	img := FilterResponse(freqs, sos.Response(freqs), 0.5, 5, filter.Butterworth, 2, 0)

	if img.Bounds().Dy() != 450 {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	rect := image.Rect(marginLeft, marginTop+10, baseWidth-marginRight, 450-marginBottom)

	a := raster.NewAxes(&raster.Canvas{Img: img}, rect, freqs[0], freqs[len(freqs)-1], -80, 5)
	a.XLog = true

	// Band-edge marker in a region the curve does not reach.
	if img.NRGBAAt(a.PixelX(0.5), rect.Min.Y+10) != raster.Red {
		t.Fatal("lower band-edge marker missing")
	}

	if nonWhite(img, rect) < 500 {
		t.Fatal("response curve missing")
	}
}

func TestFilterResponseEmptyInput(t *testing.T) {
	img := FilterResponse(nil, nil, 0.5, 5, filter.Butterworth, 2, 0)
	if img == nil {
		t.Fatal("nil image for empty input")
	}
}

// ---- pmcc ----

func pmccFixture() (edges []float64, times [][]time.Time, baz, mdccm [][]float64, valid []int) {
	edges = []float64{0.1, 1, 10}

	centers := []time.Time{
		figStart.Add(10 * time.Second),
		figStart.Add(30 * time.Second),
		figStart.Add(50 * time.Second),
		figStart.Add(70 * time.Second),
	}

	times = [][]time.Time{centers, centers}
	baz = [][]float64{{90, 90, 90, 90}, {180, 180, 180, 180}}
	mdccm = [][]float64{{0.9, 0.9, 0.9, 0.9}, {0.9, 0.9, 0.9, 0.9}}
	valid = []int{2, 0}

	return edges, times, baz, mdccm, valid
}

func TestPMCCLikeClipsToValid(t *testing.T) {
	edges, times, baz, mdccm, valid := pmccFixture()

	img := PMCCLike(figStream(), edges, times, baz, mdccm, valid, 0.6)

	rects := panels(baseWidth, 650, 2, 36)
	a := raster.NewAxes(&raster.Canvas{Img: img}, rects[1], 0, 99, edges[0], edges[2])
	a.YLog = true

	// Band 0, window 1 (centered 10 s) is painted with the 90 degree hue.
	if got := img.NRGBAAt(a.PixelX(15), a.PixelY(0.3)); got != raster.Wheel(90) {
		t.Fatalf("cell color = %v, want Wheel(90)", got)
	}

	// Band 0 beyond valid stays unpainted.
	if got := img.NRGBAAt(a.PixelX(65), a.PixelY(0.3)); got != raster.White {
		t.Fatalf("cell beyond valid painted: %v", got)
	}

	// Band 1 has no valid windows at all.
	if got := img.NRGBAAt(a.PixelX(15), a.PixelY(3)); got != raster.White {
		t.Fatalf("empty band painted: %v", got)
	}
}

func TestPMCCLikeThresholdSkips(t *testing.T) {
	edges, times, baz, mdccm, valid := pmccFixture()
	mdccm[0][0] = 0.3

	img := PMCCLike(figStream(), edges, times, baz, mdccm, valid, 0.6)

	rects := panels(baseWidth, 650, 2, 36)
	a := raster.NewAxes(&raster.Canvas{Img: img}, rects[1], 0, 99, edges[0], edges[2])
	a.YLog = true

	if got := img.NRGBAAt(a.PixelX(15), a.PixelY(0.3)); got != raster.White {
		t.Fatalf("low-coherence cell painted: %v", got)
	}

	if got := img.NRGBAAt(a.PixelX(35), a.PixelY(0.3)); got != raster.Wheel(90) {
		t.Fatalf("second cell = %v, want Wheel(90)", got)
	}
}

// ---- save ----

func TestSaveFigurePNG(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "figs")

	c := raster.NewCanvas(10, 8)

	path, err := SaveFigure(c.Img, dir, "out", FormatPNG, 100)
	if err != nil {
		t.Fatalf("SaveFigure error: %v", err)
	}

	if filepath.Base(path) != "out.png" {
		t.Fatalf("path = %q", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png not decodable: %v", err)
	}

	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 8 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
}

func TestSaveFigureDPIScales(t *testing.T) {
	c := raster.NewCanvas(10, 8)

	path, err := SaveFigure(c.Img, t.TempDir(), "out", FormatPNG, 300)
	if err != nil {
		t.Fatalf("SaveFigure error: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}

	if img.Bounds().Dx() != 30 || img.Bounds().Dy() != 24 {
		t.Fatalf("bounds = %v, want 30x24 at 300 dpi", img.Bounds())
	}
}

func TestSaveFigureJPEG(t *testing.T) {
	c := raster.NewCanvas(10, 8)

	path, err := SaveFigure(c.Img, t.TempDir(), "out", FormatJPEG, 100)
	if err != nil {
		t.Fatalf("SaveFigure error: %v", err)
	}

	if filepath.Base(path) != "out.jpg" {
		t.Fatalf("path = %q", path)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := jpeg.Decode(f); err != nil {
		t.Fatalf("jpeg not decodable: %v", err)
	}
}
