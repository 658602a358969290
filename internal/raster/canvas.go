package raster

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Standard figure colors.
var (
	White     = color.NRGBA{255, 255, 255, 255}
	Black     = color.NRGBA{0, 0, 0, 255}
	Gray      = color.NRGBA{128, 128, 128, 255}
	LightGray = color.NRGBA{210, 210, 210, 255}
	Red       = color.NRGBA{200, 30, 30, 255}
	Blue      = color.NRGBA{30, 60, 200, 255}
)

// Canvas is a white-backed NRGBA image with primitive drawing operations.
// All coordinates are pixels; out-of-bounds draws are silently clipped.
type Canvas struct {
	Img *image.NRGBA
}

// NewCanvas allocates a w by h canvas filled white.
func NewCanvas(w, h int) *Canvas {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	return &Canvas{Img: img}
}

// Size returns the canvas dimensions in pixels.
func (c *Canvas) Size() (w, h int) {
	b := c.Img.Bounds()

	return b.Dx(), b.Dy()
}

// Set paints one pixel, clipped to the canvas.
func (c *Canvas) Set(x, y int, col color.NRGBA) {
	if image.Pt(x, y).In(c.Img.Bounds()) {
		c.Img.SetNRGBA(x, y, col)
	}
}

// FillRect paints every pixel of r.
func (c *Canvas) FillRect(r image.Rectangle, col color.NRGBA) {
	r = r.Intersect(c.Img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c.Img.SetNRGBA(x, y, col)
		}
	}
}

// Line draws a straight segment with Bresenham stepping.
func (c *Canvas) Line(x0, y0, x1, y1 int, col color.NRGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)

	sx := 1
	if x0 > x1 {
		sx = -1
	}

	sy := 1
	if y0 > y1 {
		sy = -1
	}

	err := dx + dy
	for {
		c.Set(x0, y0, col)

		if x0 == x1 && y0 == y1 {
			return
		}

		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}

		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// Disc draws a filled circle of radius r centered on (cx, cy).
func (c *Canvas) Disc(cx, cy, r int, col color.NRGBA) {
	if r < 1 {
		c.Set(cx, cy, col)

		return
	}

	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.Set(cx+dx, cy+dy, col)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}

// face is the fixed bitmap face used for every label.
var face = basicfont.Face7x13

// TextWidth returns the pixel width of s in the label face.
func TextWidth(s string) int {
	return font.MeasureString(face, s).Ceil()
}

// TextHeight returns the pixel height of one text line.
func TextHeight() int {
	return face.Metrics().Height.Ceil()
}

// Text draws s with its baseline left end at (x, y).
func (c *Canvas) Text(x, y int, s string, col color.NRGBA) {
	d := font.Drawer{
		Dst:  c.Img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  fixed.P(x, y),
	}

	d.DrawString(s)
}

// TextCentered draws s centered horizontally about x.
func (c *Canvas) TextCentered(x, y int, s string, col color.NRGBA) {
	c.Text(x-TextWidth(s)/2, y, s, col)
}

// TextRight draws s with its baseline right end at (x, y).
func (c *Canvas) TextRight(x, y int, s string, col color.NRGBA) {
	c.Text(x-TextWidth(s), y, s, col)
}

// Upscale replicates every pixel of img into a k by k block, so the output
// is exactly k times larger in each dimension. k below one is treated as
// one.
func Upscale(img *image.NRGBA, k int) *image.NRGBA {
	if k <= 1 {
		return img
	}

	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx()*k, b.Dy()*k))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			col := img.NRGBAAt(x, y)
			for dy := 0; dy < k; dy++ {
				for dx := 0; dx < k; dx++ {
					out.SetNRGBA((x-b.Min.X)*k+dx, (y-b.Min.Y)*k+dy, col)
				}
			}
		}
	}

	return out
}
