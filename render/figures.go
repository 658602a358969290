package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/liamtoney/narrow-band-least-squares/beam"
	"github.com/liamtoney/narrow-band-least-squares/internal/raster"
	"github.com/liamtoney/narrow-band-least-squares/waveform"
)

// Fixed figure basenames, matching the files a run writes.
const (
	NameArraySummary   = "LeastSquares"
	NameFilterResponse = "Filter_Frequency_Response_Broadband"
	NameParameters     = "Processing_Parameters"
	NamePMCCLike       = "LeastSquaresButPMCC"
)

const (
	baseWidth    = 800
	marginLeft   = 70
	marginRight  = 90
	marginTop    = 40
	marginBottom = 60
)

// panels stacks n plot rectangles top to bottom inside a w by h canvas.
func panels(w, h, n, gap int) []image.Rectangle {
	avail := h - marginTop - marginBottom - (n-1)*gap
	ph := avail / n

	out := make([]image.Rectangle, n)
	y := marginTop

	for i := range out {
		out[i] = image.Rect(marginLeft, y, w-marginRight, y+ph)
		y += ph + gap
	}

	return out
}

// secondsSince converts timestamps to offsets from t0.
func secondsSince(t0 time.Time, ts []time.Time) []float64 {
	out := make([]float64, len(ts))
	for i, t := range ts {
		out[i] = t.Sub(t0).Seconds()
	}

	return out
}

// timeTicks labels an offset-seconds axis with five clock times.
func timeTicks(a *raster.Axes, t0 time.Time) {
	for i := 0; i <= 4; i++ {
		off := a.X0 + float64(i)*(a.X1-a.X0)/4
		a.XTick(off, t0.Add(time.Duration(off*float64(time.Second))).UTC().Format("15:04:05"))
	}
}

// finiteRange returns the smallest and largest finite values.
func finiteRange(vals []float64) (lo, hi float64, ok bool) {
	lo, hi = math.Inf(1), math.Inf(-1)

	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}

		if v < lo {
			lo = v
		}

		if v > hi {
			hi = v
		}
	}

	return lo, hi, lo <= hi
}

// mdccmColors shades one point per window by its coherence, muting points
// below the display threshold.
func mdccmColors(mdccm []float64, thresh float64) []color.NRGBA {
	out := make([]color.NRGBA, len(mdccm))

	for i, v := range mdccm {
		if math.IsNaN(v) || v < thresh {
			out[i] = raster.LightGray

			continue
		}

		out[i] = raster.Sequential(v)
	}

	return out
}

// drawWaveform renders a trace as per-column min/max strokes, the usual
// dense-seismogram rendering.
func drawWaveform(a *raster.Axes, tr *waveform.Trace) {
	if tr == nil || tr.NumSamples() == 0 || tr.SampleRate <= 0 {
		return
	}

	w := a.Rect.Dx()

	mins := make([]float64, w)
	maxs := make([]float64, w)

	for i := range mins {
		mins[i] = math.Inf(1)
		maxs[i] = math.Inf(-1)
	}

	for i, v := range tr.Data {
		off := float64(i) / tr.SampleRate
		if off < a.X0 || off > a.X1 {
			continue
		}

		col := a.PixelX(off) - a.Rect.Min.X
		if col < 0 || col >= w {
			continue
		}

		if v < mins[col] {
			mins[col] = v
		}

		if v > maxs[col] {
			maxs[col] = v
		}
	}

	for col := 0; col < w; col++ {
		if mins[col] > maxs[col] {
			continue
		}

		x := a.Rect.Min.X + col
		a.Canvas.Line(x, a.PixelY(maxs[col]), x, a.PixelY(mins[col]), raster.Black)
	}
}

// waveformPanel fills an axes with the trace, symmetric about zero.
func waveformPanel(c *raster.Canvas, rect image.Rectangle, tr *waveform.Trace, dur float64) *raster.Axes {
	amax := 1.0

	if tr != nil {
		if _, hi, ok := finiteRange(absValues(tr.Data)); ok && hi > 0 {
			amax = hi
		}
	}

	a := raster.NewAxes(c, rect, 0, dur, -amax, amax)
	drawWaveform(a, tr)
	a.Frame(raster.Black)
	a.YTick(-amax, fmt.Sprintf("%.3g", -amax))
	a.YTick(0, "0")
	a.YTick(amax, fmt.Sprintf("%.3g", amax))

	if tr != nil {
		a.YLabel(tr.ID())
	}

	return a
}

func absValues(data []float64) []float64 {
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = math.Abs(v)
	}

	return out
}

// colorbar draws a vertical scale beside rect with end labels and a title.
func colorbar(c *raster.Canvas, rect image.Rectangle, colorAt func(float64) color.NRGBA, lo, hi, title string) {
	x0 := rect.Max.X + 18
	x1 := x0 + 16

	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		t := float64(rect.Max.Y-1-y) / float64(rect.Dy()-1)

		col := colorAt(t)
		for x := x0; x < x1; x++ {
			c.Set(x, y, col)
		}
	}

	c.Line(x0, rect.Min.Y, x1, rect.Min.Y, raster.Black)
	c.Line(x0, rect.Max.Y-1, x1, rect.Max.Y-1, raster.Black)
	c.Line(x0, rect.Min.Y, x0, rect.Max.Y-1, raster.Black)
	c.Line(x1, rect.Min.Y, x1, rect.Max.Y-1, raster.Black)

	c.Text(x1+3, rect.Max.Y-1, lo, raster.Black)
	c.Text(x1+3, rect.Min.Y+raster.TextHeight()/2, hi, raster.Black)
	c.TextCentered((x0+x1)/2, rect.Min.Y-6, title, raster.Black)
}

// streamExtent returns the reference start time and the record duration in
// seconds of the first trace.
func streamExtent(st waveform.Stream) (time.Time, float64) {
	if len(st) == 0 {
		return time.Time{}, 1
	}

	tr := st[0]

	dur := tr.EndTime().Sub(tr.Start).Seconds()
	if dur <= 0 {
		dur = 1
	}

	return tr.Start, dur
}

// ArraySummary renders the broadband processing overview: the first trace,
// then MdCCM, velocity and back-azimuth per window, and the delay-residual
// spread. Scatter points are shaded by MdCCM; windows below thresh are
// muted.
func ArraySummary(st waveform.Stream, res beam.Result, thresh float64) *image.NRGBA {
	const height = 1000

	c := raster.NewCanvas(baseWidth, height)
	rects := panels(baseWidth, height, 5, 36)

	t0, dur := streamExtent(st)

	var tr *waveform.Trace
	if len(st) > 0 {
		tr = st[0]
	}

	c.TextCentered(baseWidth/2, marginTop-18,
		fmt.Sprintf("%s - %s UTC",
			t0.UTC().Format("2006-01-02 15:04:05"),
			t0.Add(time.Duration(dur*float64(time.Second))).UTC().Format("15:04:05")),
		raster.Black)

	waveformPanel(c, rects[0], tr, dur)

	xs := secondsSince(t0, res.Time)
	cols := mdccmColors(res.MdCCM, thresh)

	// MdCCM with the display threshold.
	a := raster.NewAxes(c, rects[1], 0, dur, 0, 1)
	a.HLine(thresh, raster.Red)
	a.Scatter(xs, res.MdCCM, 2, cols)
	a.Frame(raster.Black)
	a.YTick(0, "0")
	a.YTick(0.5, "0.5")
	a.YTick(1, "1")
	a.YLabel("MdCCM")
	colorbar(c, rects[1], raster.Sequential, "0", "1", "MdCCM")

	// Trace velocity, autoscaled.
	lo, hi, ok := finiteRange(res.Velocity)
	if !ok || hi == lo {
		lo, hi = 0, 1
	}

	pad := 0.05 * (hi - lo)

	a = raster.NewAxes(c, rects[2], 0, dur, lo-pad, hi+pad)
	a.Scatter(xs, res.Velocity, 2, cols)
	a.Frame(raster.Black)
	a.YTick(lo, fmt.Sprintf("%.2f", lo))
	a.YTick(hi, fmt.Sprintf("%.2f", hi))
	a.YLabel("velocity [km/s]")

	// Back-azimuth on the full circle.
	a = raster.NewAxes(c, rects[3], 0, dur, 0, 360)
	a.Scatter(xs, res.BackAzimuth, 2, cols)
	a.Frame(raster.Black)
	a.YTick(0, "0")
	a.YTick(180, "180")
	a.YTick(360, "360")
	a.YLabel("back-azimuth [deg]")

	// Delay residual spread.
	_, shi, ok := finiteRange(res.SigmaTau)
	if !ok || shi <= 0 {
		shi = 1
	}

	a = raster.NewAxes(c, rects[4], 0, dur, 0, 1.1*shi)
	a.Scatter(xs, res.SigmaTau, 2, cols)
	a.Frame(raster.Black)
	a.YTick(0, "0")
	a.YTick(shi, fmt.Sprintf("%.3g", shi))
	a.YLabel("sigma tau [s]")
	timeTicks(a, t0)
	a.XLabel("time (UTC)")

	return c.Img
}
