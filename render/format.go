package render

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownFormat reports an image format name that is not supported.
var ErrUnknownFormat = errors.New("render: unknown image format")

// Format selects the encoding used when figures are written to disk.
type Format int

const (
	// FormatPNG writes lossless PNG files.
	FormatPNG Format = iota

	// FormatJPEG writes JPEG files at the package default quality.
	FormatJPEG
)

// String returns the flag-level name of the format.
func (f Format) String() string {
	switch f {
	case FormatPNG:
		return "png"
	case FormatJPEG:
		return "jpg"
	default:
		return "unknown"
	}
}

// Ext returns the file extension for the format, with the leading dot.
func (f Format) Ext() string {
	return "." + f.String()
}

// ParseFormat converts a flag value into a Format. A leading dot and the
// long spelling "jpeg" are accepted.
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(s), ".") {
	case "png":
		return FormatPNG, nil
	case "jpg", "jpeg":
		return FormatJPEG, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}
