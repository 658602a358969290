package narrowband

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/liamtoney/narrow-band-least-squares/band"
	"github.com/liamtoney/narrow-band-least-squares/beam"
	"github.com/liamtoney/narrow-band-least-squares/filter"
	"github.com/liamtoney/narrow-band-least-squares/render"
)

// Errors returned by Config.Validate.
var (
	ErrUnknownSource = errors.New("narrowband: unknown data source")
	ErrStationCodes  = errors.New("narrowband: network, station and channel codes required")
	ErrTimeRange     = errors.New("narrowband: end must be after start")
	ErrLocalSource   = errors.New("narrowband: local source needs a directory and matching coordinate lists")
	ErrCalibration   = errors.New("narrowband: calibration must be non-zero")
	ErrThreshold     = errors.New("narrowband: mdccm threshold outside [0, 1]")
	ErrDPI           = errors.New("narrowband: dpi must be positive")
)

// Source selects where the waveform stream comes from.
type Source int

const (
	// SourceIRIS fetches from the IRIS FDSN web services.
	SourceIRIS Source = iota

	// SourceLocal reads TIMESERIES files from a directory.
	SourceLocal
)

func (s Source) String() string {
	switch s {
	case SourceIRIS:
		return "iris"
	case SourceLocal:
		return "local"
	default:
		return fmt.Sprintf("Source(%d)", int(s))
	}
}

// ParseSource maps a selector string onto a Source.
func ParseSource(s string) (Source, error) {
	switch strings.ToLower(s) {
	case "iris":
		return SourceIRIS, nil
	case "local":
		return SourceLocal, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSource, s)
	}
}

// Config is the complete run configuration, passed by value through the
// pipeline after a single Validate.
type Config struct {
	// Acquisition.
	Source         Source
	Network        string
	Station        string // wildcards pass through to the service
	Location       string
	Channel        string
	Start, End     time.Time
	RemoveResponse bool // IRIS: apply instrument correction server-side

	// Local source.
	LocalDir   string
	Calib      float64 // scalar counts -> physical units
	Latitudes  []float64
	Longitudes []float64

	// Band plan.
	FMin     float64
	FMax     float64
	NumBands int
	Spacing  band.Spacing

	// Filter design.
	Family   filter.Family
	Order    int
	RippleDB float64

	// Beamforming.
	WindowMode band.WindowMode
	WinLen     float64 // constant mode and the broadband pass
	WinLen1    float64 // adaptive mode, lowest band
	WinLenX    float64 // adaptive mode, highest band
	Overlap    float64
	Alpha      float64

	// Rendering.
	MdCCMThresh float64
	OutDir      string
	Format      render.Format
	DPI         int
}

// DefaultConfig returns the stock infrasound configuration: the I53 array
// at 2018-12-19 01:45 UTC, ten log-spaced bands over 0.07-5 Hz, order-2
// Chebyshev Type I filters with 0.01 dB ripple, adaptive 60-30 s windows
// at 50% overlap, ordinary least squares.
func DefaultConfig() Config {
	start := time.Date(2018, 12, 19, 1, 45, 0, 0, time.UTC)

	return Config{
		Source:         SourceIRIS,
		Network:        "IM",
		Station:        "I53H?",
		Location:       "*",
		Channel:        "BDF",
		Start:          start,
		End:            start.Add(20 * time.Minute),
		RemoveResponse: true,

		Calib: 1,

		FMin:     0.07,
		FMax:     5,
		NumBands: 10,
		Spacing:  band.SpacingLog,

		Family:   filter.Chebyshev1,
		Order:    2,
		RippleDB: 0.01,

		WindowMode: band.WindowAdaptive,
		WinLen:     50,
		WinLen1:    60,
		WinLenX:    30,
		Overlap:    0.5,
		Alpha:      1,

		MdCCMThresh: 0.6,
		OutDir:      ".",
		Format:      render.FormatPNG,
		DPI:         300,
	}
}

// bandDef assembles the band planner inputs.
func (c Config) bandDef() band.Def {
	return band.Def{
		FMin:     c.FMin,
		FMax:     c.FMax,
		Spacing:  c.Spacing,
		NumBands: c.NumBands,
		Mode:     c.WindowMode,
		WinLen:   c.WinLen,
		WinLen1:  c.WinLen1,
		WinLenX:  c.WinLenX,
	}
}

// beamParams pairs a window length with the configured overlap and alpha.
func (c Config) beamParams(windowSec float64) beam.Params {
	return beam.Params{WindowSec: windowSec, Overlap: c.Overlap, Alpha: c.Alpha}
}

// Validate checks every field that can be checked without a sample rate.
// FMax against Nyquist intentionally waits for the filter designer, after
// the stream's rate is known.
func (c Config) Validate() error {
	switch c.Source {
	case SourceIRIS:
		if c.Network == "" || c.Station == "" || c.Channel == "" {
			return ErrStationCodes
		}
	case SourceLocal:
		if c.LocalDir == "" || len(c.Latitudes) == 0 || len(c.Latitudes) != len(c.Longitudes) {
			return fmt.Errorf("%w: dir %q, %d/%d coordinates",
				ErrLocalSource, c.LocalDir, len(c.Latitudes), len(c.Longitudes))
		}

		if c.Calib == 0 {
			return ErrCalibration
		}
	default:
		return fmt.Errorf("%w: %d", ErrUnknownSource, int(c.Source))
	}

	if !c.End.After(c.Start) {
		return fmt.Errorf("%w: %v .. %v", ErrTimeRange, c.Start, c.End)
	}

	if err := c.bandDef().Validate(); err != nil {
		return err
	}

	if c.Order < 1 {
		return fmt.Errorf("%w: %d", filter.ErrInvalidOrder, c.Order)
	}

	if c.Family == filter.Chebyshev1 && c.RippleDB <= 0 {
		return fmt.Errorf("%w: %v", filter.ErrInvalidRipple, c.RippleDB)
	}

	if err := c.beamParams(c.WinLen).Validate(); err != nil {
		return err
	}

	if c.MdCCMThresh < 0 || c.MdCCMThresh > 1 {
		return fmt.Errorf("%w: %v", ErrThreshold, c.MdCCMThresh)
	}

	if c.DPI < 1 {
		return fmt.Errorf("%w: %d", ErrDPI, c.DPI)
	}

	return nil
}
