package raster

import (
	"image"
	"image/color"
	"math"
)

// Axes maps a data-space extent onto a pixel rectangle of a canvas and
// draws data-space primitives into it. X grows right and Y grows up, so
// the pixel row order is inverted. Setting XLog or YLog before drawing
// switches that axis to a log10 mapping; the corresponding extent bounds
// must then be positive.
type Axes struct {
	Canvas *Canvas
	Rect   image.Rectangle

	X0, X1 float64
	Y0, Y1 float64
	XLog   bool
	YLog   bool
}

// NewAxes binds a plot rectangle to a linear data extent.
func NewAxes(c *Canvas, rect image.Rectangle, x0, x1, y0, y1 float64) *Axes {
	return &Axes{Canvas: c, Rect: rect, X0: x0, X1: x1, Y0: y0, Y1: y1}
}

func (a *Axes) xCoord(v float64) float64 {
	lo, hi := a.X0, a.X1
	if a.XLog {
		v, lo, hi = math.Log10(v), math.Log10(lo), math.Log10(hi)
	}

	return (v - lo) / (hi - lo)
}

func (a *Axes) yCoord(v float64) float64 {
	lo, hi := a.Y0, a.Y1
	if a.YLog {
		v, lo, hi = math.Log10(v), math.Log10(lo), math.Log10(hi)
	}

	return (v - lo) / (hi - lo)
}

// PixelX maps a data x onto a canvas column.
func (a *Axes) PixelX(v float64) int {
	return a.Rect.Min.X + int(math.Round(a.xCoord(v)*float64(a.Rect.Dx()-1)))
}

// PixelY maps a data y onto a canvas row.
func (a *Axes) PixelY(v float64) int {
	return a.Rect.Max.Y - 1 - int(math.Round(a.yCoord(v)*float64(a.Rect.Dy()-1)))
}

func (a *Axes) contains(x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return false
	}

	cx, cy := a.xCoord(x), a.yCoord(y)

	return cx >= 0 && cx <= 1 && cy >= 0 && cy <= 1
}

// Frame outlines the plot rectangle.
func (a *Axes) Frame(col color.NRGBA) {
	r := a.Rect
	a.Canvas.Line(r.Min.X, r.Min.Y, r.Max.X-1, r.Min.Y, col)
	a.Canvas.Line(r.Min.X, r.Max.Y-1, r.Max.X-1, r.Max.Y-1, col)
	a.Canvas.Line(r.Min.X, r.Min.Y, r.Min.X, r.Max.Y-1, col)
	a.Canvas.Line(r.Max.X-1, r.Min.Y, r.Max.X-1, r.Max.Y-1, col)
}

// Polyline connects consecutive in-extent points. Segments with an
// endpoint outside the extent (or non-finite) are skipped rather than
// clipped.
func (a *Axes) Polyline(xs, ys []float64, col color.NRGBA) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}

	for i := 1; i < n; i++ {
		if !a.contains(xs[i-1], ys[i-1]) || !a.contains(xs[i], ys[i]) {
			continue
		}

		a.Canvas.Line(a.PixelX(xs[i-1]), a.PixelY(ys[i-1]), a.PixelX(xs[i]), a.PixelY(ys[i]), col)
	}
}

// Scatter draws one disc per in-extent point. cols may hold one color for
// all points or one per point.
func (a *Axes) Scatter(xs, ys []float64, radius int, cols []color.NRGBA) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}

	for i := 0; i < n; i++ {
		if !a.contains(xs[i], ys[i]) {
			continue
		}

		col := cols[0]
		if len(cols) > 1 {
			col = cols[i]
		}

		a.Canvas.Disc(a.PixelX(xs[i]), a.PixelY(ys[i]), radius, col)
	}
}

// Cell fills the axis-aligned data-space rectangle [x0, x1] x [y0, y1].
func (a *Axes) Cell(x0, x1, y0, y1 float64, col color.NRGBA) {
	px0, px1 := a.PixelX(x0), a.PixelX(x1)
	py0, py1 := a.PixelY(y1), a.PixelY(y0) // y inverts

	r := image.Rect(px0, py0, px1+1, py1+1).Intersect(a.Rect)
	a.Canvas.FillRect(r, col)
}

// HLine draws a horizontal reference line across the plot at data y.
func (a *Axes) HLine(y float64, col color.NRGBA) {
	py := a.PixelY(y)
	a.Canvas.Line(a.Rect.Min.X, py, a.Rect.Max.X-1, py, col)
}

// VLine draws a vertical reference line across the plot at data x.
func (a *Axes) VLine(x float64, col color.NRGBA) {
	px := a.PixelX(x)
	a.Canvas.Line(px, a.Rect.Min.Y, px, a.Rect.Max.Y-1, col)
}

const tickLen = 4

// XTick draws a tick mark and label below the plot at data x.
func (a *Axes) XTick(x float64, label string) {
	px := a.PixelX(x)
	a.Canvas.Line(px, a.Rect.Max.Y-1, px, a.Rect.Max.Y-1+tickLen, Black)
	a.Canvas.TextCentered(px, a.Rect.Max.Y+tickLen+TextHeight(), label, Black)
}

// YTick draws a tick mark and label left of the plot at data y.
func (a *Axes) YTick(y float64, label string) {
	py := a.PixelY(y)
	a.Canvas.Line(a.Rect.Min.X-tickLen, py, a.Rect.Min.X-1, py, Black)
	a.Canvas.TextRight(a.Rect.Min.X-tickLen-2, py+TextHeight()/3, label, Black)
}

// Title centers a line of text above the plot.
func (a *Axes) Title(s string) {
	a.Canvas.TextCentered((a.Rect.Min.X+a.Rect.Max.X)/2, a.Rect.Min.Y-6, s, Black)
}

// XLabel centers a line of text under the tick labels.
func (a *Axes) XLabel(s string) {
	a.Canvas.TextCentered((a.Rect.Min.X+a.Rect.Max.X)/2, a.Rect.Max.Y+tickLen+2*TextHeight()+4, s, Black)
}

// YLabel puts a line of text above the top-left corner of the plot, in
// place of a rotated axis label.
func (a *Axes) YLabel(s string) {
	a.Canvas.Text(a.Rect.Min.X, a.Rect.Min.Y-6-TextHeight(), s, Gray)
}
