package narrowband

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/liamtoney/narrow-band-least-squares/beam"
)

// Errors returned by the aggregate grid.
var (
	ErrGridShape   = errors.New("narrowband: grid needs at least one band and one column")
	ErrBandIndex   = errors.New("narrowband: band index out of range")
	ErrRowOverflow = errors.New("narrowband: band result exceeds grid capacity")
)

// Capacity returns the number of analysis windows the beamformer yields
// for the shortest configured window over a record of npts samples. The
// band with the shortest window produces the most windows, so this is the
// widest row the aggregate grid ever needs.
func Capacity(npts int, sampleRate, shortestWindowSec, overlap float64) int {
	p := beam.Params{WindowSec: shortestWindowSec, Overlap: overlap, Alpha: 1}

	_, _, count := p.Windows(npts, sampleRate)

	return count
}

// Grid aggregates per-band beamformer outputs into fixed-shape rows. Row i
// holds band i's sequences left-aligned in columns [0, Valid[i]); beyond
// that the float rows stay NaN and the time rows stay the zero time, so a
// consumer that forgets to clip reads unmistakably invalid values.
type Grid struct {
	Velocity    [][]float64
	BackAzimuth [][]float64
	MdCCM       [][]float64
	Times       [][]time.Time

	// Valid[i] is the number of filled columns of band i.
	Valid []int

	capacity int
}

// NewGrid allocates a NaN-filled grid of nbands rows by capacity columns.
func NewGrid(nbands, capacity int) (*Grid, error) {
	if nbands < 1 || capacity < 1 {
		return nil, fmt.Errorf("%w: %d bands, capacity %d", ErrGridShape, nbands, capacity)
	}

	g := &Grid{
		Velocity:    nanRows(nbands, capacity),
		BackAzimuth: nanRows(nbands, capacity),
		MdCCM:       nanRows(nbands, capacity),
		Times:       make([][]time.Time, nbands),
		Valid:       make([]int, nbands),
		capacity:    capacity,
	}

	for i := range g.Times {
		g.Times[i] = make([]time.Time, capacity)
	}

	return g, nil
}

func nanRows(rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		row := make([]float64, cols)
		for j := range row {
			row[j] = math.NaN()
		}

		out[i] = row
	}

	return out
}

// Bands returns the number of band rows.
func (g *Grid) Bands() int {
	return len(g.Valid)
}

// Capacity returns the column count of every row.
func (g *Grid) Capacity() int {
	return g.capacity
}

// SetRow writes a band's result into row i, left-aligned, and records its
// valid-column count. A result wider than the grid is refused whole.
func (g *Grid) SetRow(i int, res beam.Result) error {
	if i < 0 || i >= len(g.Valid) {
		return fmt.Errorf("%w: %d of %d", ErrBandIndex, i, len(g.Valid))
	}

	n := res.Count()
	if n > g.capacity {
		return fmt.Errorf("%w: band %d has %d windows, capacity %d", ErrRowOverflow, i, n, g.capacity)
	}

	copy(g.Velocity[i], res.Velocity)
	copy(g.BackAzimuth[i], res.BackAzimuth)
	copy(g.MdCCM[i], res.MdCCM)
	copy(g.Times[i], res.Time)

	g.Valid[i] = n

	return nil
}
