package band

import "fmt"

// Def holds the planner inputs. The zero value is not usable; populate all
// fields relevant to the chosen modes and call Validate or NewPlan.
type Def struct {
	FMin     float64 // lowest analysis frequency, Hz
	FMax     float64 // highest analysis frequency, Hz
	Spacing  Spacing
	NumBands int

	Mode    WindowMode
	WinLen  float64 // constant-mode band window and the broadband pass, s
	WinLen1 float64 // adaptive: window at the lowest band, s
	WinLenX float64 // adaptive: window at the highest band, s
}

// Validate checks the definition without building the plan.
func (d Def) Validate() error {
	if _, err := Edges(d.FMin, d.FMax, d.Spacing, d.NumBands); err != nil {
		return err
	}

	if _, err := WindowLengths(d.Mode, d.NumBands, d.WinLen, d.WinLen1, d.WinLenX); err != nil {
		return err
	}

	if d.WinLen <= 0 {
		return fmt.Errorf("%w: broadband window %g", ErrWindowLength, d.WinLen)
	}

	return nil
}

// Plan is a validated analysis schedule: band edges, the per-band window
// lengths, and the broadband window used for the full-range reference pass.
type Plan struct {
	Edges     []float64 // nbands+1 strictly increasing, Hz
	WindowSec []float64 // nbands window lengths, s

	// BroadbandSec is the window length of the full-range pass. It is
	// always the configured base window, independent of Mode.
	BroadbandSec float64

	Spacing Spacing
	Mode    WindowMode
}

// NewPlan builds the analysis schedule from a definition.
func NewPlan(d Def) (*Plan, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	edges, err := Edges(d.FMin, d.FMax, d.Spacing, d.NumBands)
	if err != nil {
		return nil, err
	}

	windows, err := WindowLengths(d.Mode, d.NumBands, d.WinLen, d.WinLen1, d.WinLenX)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Edges:        edges,
		WindowSec:    windows,
		BroadbandSec: d.WinLen,
		Spacing:      d.Spacing,
		Mode:         d.Mode,
	}, nil
}

// Count returns the number of bands.
func (p *Plan) Count() int {
	return len(p.WindowSec)
}

// Band returns the [lo, hi) frequency span of band i.
func (p *Plan) Band(i int) (lo, hi float64) {
	return p.Edges[i], p.Edges[i+1]
}

// ShortestWindow returns the shortest per-band window length. The band
// using it produces the most analysis windows, so it sizes the aggregate
// grids.
func (p *Plan) ShortestWindow() float64 {
	shortest := p.WindowSec[0]
	for _, w := range p.WindowSec[1:] {
		if w < shortest {
			shortest = w
		}
	}

	return shortest
}
