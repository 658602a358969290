package fdsn

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/liamtoney/narrow-band-least-squares/waveform"
)

// Errors returned by the local loader.
var (
	ErrNoFiles     = errors.New("fdsn: no waveform files in directory")
	ErrCoordinates = errors.New("fdsn: coordinate lists do not match trace count")
)

// LoadDir reads every TIMESERIES dump (*.slist, *.txt) under dir, in
// filename order, trims each trace to [start, end), scales samples by the
// calibration factor and attaches the parallel coordinate lists in trace
// order. calib may be negative for inverted-polarity sensors.
func LoadDir(dir string, start, end time.Time, calib float64, lats, lons []float64) (waveform.Stream, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("fdsn: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".slist", ".txt":
			names = append(names, e.Name())
		}
	}

	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFiles, dir)
	}

	var st waveform.Stream
	for _, name := range names {
		path := filepath.Join(dir, name)

		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("fdsn: %w", err)
		}

		traces, err := waveform.ReadTimeSeries(f)
		f.Close()

		if err != nil {
			return nil, fmt.Errorf("fdsn: %s: %w", path, err)
		}

		st = append(st, traces...)
	}

	if len(lats) != len(st) || len(lons) != len(st) {
		return nil, fmt.Errorf("%w: %d traces, %d/%d coordinates",
			ErrCoordinates, len(st), len(lats), len(lons))
	}

	st.Trim(start, end)
	st.Scale(calib)

	for i, tr := range st {
		tr.Latitude = lats[i]
		tr.Longitude = lons[i]
	}

	return st, nil
}
