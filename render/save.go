package render

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/liamtoney/narrow-band-least-squares/internal/raster"
)

// SaveFigure writes a figure image under dir as name plus the format's
// extension and returns the full path. Figures are drawn at a nominal 100
// DPI; other DPI values scale the pixel dimensions by integer replication,
// so proportions and label sizes are preserved. The directory is created
// if needed.
func SaveFigure(img *image.NRGBA, dir, name string, format Format, dpi int) (string, error) {
	k := int(math.Round(float64(dpi) / 100))
	if k < 1 {
		k = 1
	}

	out := raster.Upscale(img, k)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	path := filepath.Join(dir, name+format.Ext())

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	switch format {
	case FormatPNG:
		err = png.Encode(f, out)
	case FormatJPEG:
		err = jpeg.Encode(f, out, nil)
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownFormat, int(format))
	}

	if err != nil {
		f.Close()
		return "", fmt.Errorf("render: encode %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	return path, nil
}
