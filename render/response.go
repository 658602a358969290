package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/liamtoney/narrow-band-least-squares/band"
	"github.com/liamtoney/narrow-band-least-squares/filter"
	"github.com/liamtoney/narrow-band-least-squares/internal/raster"
)

const dbFloor = -79.5

// decibels converts a sampled complex response to dB, clamped at the plot
// floor so deep-stopband values stay on the axes instead of dropping out.
func decibels(h []complex128) []float64 {
	mags := filter.Magnitudes(h)

	out := make([]float64, len(mags))
	for i, m := range mags {
		db := 20 * math.Log10(m)
		if db < dbFloor || math.IsNaN(db) {
			db = dbFloor
		}

		out[i] = db
	}

	return out
}

// filterLabel names a design the way its parameters are configured.
func filterLabel(family filter.Family, order int, rippleDB float64) string {
	if family == filter.Chebyshev1 {
		return fmt.Sprintf("%s order %d, %g dB ripple", family, order, rippleDB)
	}

	return fmt.Sprintf("%s order %d", family, order)
}

// decadeTicks labels a log-frequency axis at the powers of ten it spans.
func decadeTicks(a *raster.Axes) {
	for p := -3; p <= 3; p++ {
		f := math.Pow(10, float64(p))
		if f < a.X0 || f > a.X1 {
			continue
		}

		a.XTick(f, fmt.Sprintf("%g", f))
	}
}

// responseAxes draws one |H| panel: dB curve on a log-frequency axis with
// band-edge markers.
func responseAxes(c *raster.Canvas, rect image.Rectangle, freqs []float64, db []float64, low, high float64) *raster.Axes {
	a := raster.NewAxes(c, rect, freqs[0], freqs[len(freqs)-1], -80, 5)
	a.XLog = true

	a.VLine(low, raster.Red)
	a.VLine(high, raster.Red)
	a.Polyline(freqs, db, raster.Blue)
	a.Frame(raster.Black)

	for _, y := range []float64{0, -20, -40, -60, -80} {
		a.YTick(y, fmt.Sprintf("%g", y))
	}

	decadeTicks(a)

	return a
}

// FilterResponse renders the broadband design's magnitude response with
// the configured corner frequencies marked.
func FilterResponse(freqs []float64, h []complex128, low, high float64, family filter.Family, order int, rippleDB float64) *image.NRGBA {
	const height = 450

	c := raster.NewCanvas(baseWidth, height)

	if len(freqs) < 2 || len(h) != len(freqs) {
		return c.Img
	}

	rect := image.Rect(marginLeft, marginTop+10, baseWidth-marginRight, height-marginBottom)

	a := responseAxes(c, rect, freqs, decibels(h), low, high)
	a.Title(filterLabel(family, order, rippleDB))
	a.YLabel("|H| [dB]")
	a.XLabel("frequency [Hz]")

	return c.Img
}

// ProcessingParameters renders the run setup: element geometry, the
// per-band window-length schedule, and every band's magnitude response on
// the shared diagnostic grid.
func ProcessingParameters(rij *mat.Dense, plan *band.Plan, freqs []float64, responses [][]complex128, family filter.Family, order int, rippleDB float64) *image.NRGBA {
	const height = 980

	c := raster.NewCanvas(baseWidth, height)
	rects := panels(baseWidth, height, 3, 56)

	c.TextCentered(baseWidth/2, marginTop-18, filterLabel(family, order, rippleDB), raster.Black)

	drawGeometry(c, rects[0], rij)

	if plan != nil {
		drawSchedule(c, rects[1], plan)
		drawBandResponses(c, rects[2], plan, freqs, responses)
	}

	return c.Img
}

// drawGeometry scatters the element offsets about the array centroid.
func drawGeometry(c *raster.Canvas, rect image.Rectangle, rij *mat.Dense) {
	ext := 0.1

	var xs, ys []float64

	if rij != nil {
		_, n := rij.Dims()

		xs = make([]float64, n)
		ys = make([]float64, n)

		for j := 0; j < n; j++ {
			xs[j] = rij.At(0, j)
			ys[j] = rij.At(1, j)

			if v := math.Abs(xs[j]); v > ext {
				ext = v
			}

			if v := math.Abs(ys[j]); v > ext {
				ext = v
			}
		}
	}

	ext *= 1.25

	a := raster.NewAxes(c, rect, -ext, ext, -ext, ext)
	a.Scatter(xs, ys, 3, []color.NRGBA{raster.Black})
	a.Frame(raster.Black)
	a.Title("array geometry")
	a.YLabel("north [km]")
	a.XLabel("east [km]")

	for _, v := range []float64{-ext, 0, ext} {
		a.XTick(v, fmt.Sprintf("%.2g", v))
		a.YTick(v, fmt.Sprintf("%.2g", v))
	}

	for j := range xs {
		c.Text(a.PixelX(xs[j])+5, a.PixelY(ys[j])-5, fmt.Sprintf("%d", j+1), raster.Gray)
	}
}

// drawSchedule plots the window length assigned to each band.
func drawSchedule(c *raster.Canvas, rect image.Rectangle, plan *band.Plan) {
	n := plan.Count()

	xs := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i + 1)
	}

	lo, hi, ok := finiteRange(plan.WindowSec)
	if !ok {
		lo, hi = 0, 1
	}

	if hi == lo {
		hi = lo + 1
	}

	pad := 0.1 * (hi - lo)

	a := raster.NewAxes(c, rect, 0.5, float64(n)+0.5, lo-pad, hi+pad)
	a.Polyline(xs, plan.WindowSec, raster.Blue)
	a.Scatter(xs, plan.WindowSec, 2, []color.NRGBA{raster.Black})
	a.Frame(raster.Black)
	a.Title("window length schedule")
	a.YLabel("window [s]")
	a.XLabel("band")

	step := 1
	if n > 12 {
		step = n / 10
	}

	for i := 1; i <= n; i += step {
		a.XTick(float64(i), fmt.Sprintf("%d", i))
	}

	a.YTick(lo, fmt.Sprintf("%g", lo))
	a.YTick(hi, fmt.Sprintf("%g", hi))
}

// drawBandResponses overlays each band's |H| curve, hue-coded by band.
func drawBandResponses(c *raster.Canvas, rect image.Rectangle, plan *band.Plan, freqs []float64, responses [][]complex128) {
	if len(freqs) < 2 {
		return
	}

	a := raster.NewAxes(c, rect, freqs[0], freqs[len(freqs)-1], -80, 5)
	a.XLog = true

	a.VLine(plan.Edges[0], raster.Red)
	a.VLine(plan.Edges[len(plan.Edges)-1], raster.Red)

	n := len(responses)
	for i, h := range responses {
		if len(h) != len(freqs) {
			continue
		}

		hue := 300 * float64(i) / math.Max(float64(n-1), 1)
		a.Polyline(freqs, decibels(h), raster.Wheel(hue))
	}

	a.Frame(raster.Black)
	a.Title("band responses")
	a.YLabel("|H| [dB]")
	a.XLabel("frequency [Hz]")

	for _, y := range []float64{0, -40, -80} {
		a.YTick(y, fmt.Sprintf("%g", y))
	}

	decadeTicks(a)
}
