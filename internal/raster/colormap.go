package raster

import (
	"image/color"
	"math"
)

// sequentialStops is the dark-to-light scale used for coherence shading.
var sequentialStops = []color.NRGBA{
	{0, 0, 64, 255},
	{40, 120, 180, 255},
	{230, 200, 60, 255},
	{255, 255, 210, 255},
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + t*(float64(b)-float64(a))))
}

func interpolate(a, b color.NRGBA, t float64) color.NRGBA {
	return color.NRGBA{
		R: lerp(a.R, b.R, t),
		G: lerp(a.G, b.G, t),
		B: lerp(a.B, b.B, t),
		A: 255,
	}
}

// Sequential maps t in [0, 1] onto the coherence scale. Out-of-range
// values clamp to the end stops.
func Sequential(t float64) color.NRGBA {
	if math.IsNaN(t) || t <= 0 {
		return sequentialStops[0]
	}

	if t >= 1 {
		return sequentialStops[len(sequentialStops)-1]
	}

	pos := t * float64(len(sequentialStops)-1)
	i := int(pos)

	return interpolate(sequentialStops[i], sequentialStops[i+1], pos-float64(i))
}

// Wheel maps an angle in degrees onto a cyclic hue so that values 360
// degrees apart share a color. The angle may be any finite value.
func Wheel(deg float64) color.NRGBA {
	h := math.Mod(deg, 360)
	if h < 0 {
		h += 360
	}

	// HSV to RGB with s = 1, v = 0.85.
	const v = 0.85

	sector := h / 60
	i := int(sector)
	f := sector - float64(i)

	p := 0.0
	q := v * (1 - f)
	u := v * f

	var r, g, b float64
	switch i % 6 {
	case 0:
		r, g, b = v, u, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, u
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = u, p, v
	case 5:
		r, g, b = v, p, q
	}

	return color.NRGBA{
		R: uint8(math.Round(r * 255)),
		G: uint8(math.Round(g * 255)),
		B: uint8(math.Round(b * 255)),
		A: 255,
	}
}
