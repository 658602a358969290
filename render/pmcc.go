package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/liamtoney/narrow-band-least-squares/internal/raster"
	"github.com/liamtoney/narrow-band-least-squares/waveform"
)

// PMCCLike renders the narrow-band overview: the broadband-filtered trace
// on top and, below it, a time by log-frequency raster with one cell per
// analysis window per band. Cell hue encodes back-azimuth on the full
// circle; windows whose MdCCM falls below thresh are left unpainted. Band
// rows are read only up to valid[i] columns.
func PMCCLike(st waveform.Stream, edges []float64, times [][]time.Time, baz, mdccm [][]float64, valid []int, thresh float64) *image.NRGBA {
	const height = 650

	c := raster.NewCanvas(baseWidth, height)
	rects := panels(baseWidth, height, 2, 36)

	t0, dur := streamExtent(st)

	var tr *waveform.Trace
	if len(st) > 0 {
		tr = st[0]
	}

	waveformPanel(c, rects[0], tr, dur)

	if len(edges) < 2 {
		return c.Img
	}

	a := raster.NewAxes(c, rects[1], 0, dur, edges[0], edges[len(edges)-1])
	a.YLog = true

	nbands := len(edges) - 1
	for _, rows := range []int{len(times), len(baz), len(mdccm), len(valid)} {
		if rows < nbands {
			nbands = rows
		}
	}

	for i := 0; i < nbands; i++ {
		drawBandRow(a, t0, dur, edges[i], edges[i+1], times[i], baz[i], mdccm[i], valid[i], thresh)
	}

	a.Frame(raster.Black)
	a.YLabel("frequency [Hz]")
	a.YTick(edges[0], fmt.Sprintf("%.2g", edges[0]))
	a.YTick(edges[len(edges)-1], fmt.Sprintf("%.2g", edges[len(edges)-1]))

	if edges[0] < 1 && edges[len(edges)-1] > 1 {
		a.YTick(1, "1")
	}

	timeTicks(a, t0)
	a.XLabel("time (UTC)")

	colorbar(c, rects[1], func(t float64) color.NRGBA { return raster.Wheel(360 * t) }, "0", "360", "baz")

	return c.Img
}

// drawBandRow paints one band's cells. Cell width is the band's window
// step, taken from consecutive window centers.
func drawBandRow(a *raster.Axes, t0 time.Time, dur, fLo, fHi float64, ts []time.Time, baz, mdccm []float64, valid int, thresh float64) {
	if valid > len(ts) {
		valid = len(ts)
	}

	if valid > len(baz) {
		valid = len(baz)
	}

	if valid > len(mdccm) {
		valid = len(mdccm)
	}

	if valid < 1 {
		return
	}

	half := dur / float64(2*valid)
	if valid > 1 {
		half = ts[1].Sub(ts[0]).Seconds() / 2
	}

	for j := 0; j < valid; j++ {
		if math.IsNaN(baz[j]) || math.IsNaN(mdccm[j]) || mdccm[j] < thresh {
			continue
		}

		x := ts[j].Sub(t0).Seconds()
		a.Cell(x-half, x+half, fLo, fHi, raster.Wheel(baz[j]))
	}
}
