// Package geom resolves array element coordinates into the relative
// Cartesian geometry the beamformer consumes.
//
// Station latitudes and longitudes become a centroid-relative local
// tangent-plane projection in kilometres (x east, y north). The projection
// is equirectangular about the centroid, which is accurate at array
// apertures (a few kilometres) and keeps the geometry matrix independent
// of absolute position.
package geom

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Errors returned by the geometry resolver.
var (
	ErrLengthMismatch = errors.New("geom: latitude and longitude lists differ in length")
	ErrTooFewElements = errors.New("geom: array needs at least 3 elements")
	ErrGeometryShape  = errors.New("geom: geometry matrix must have 2 rows")
)

// earthRadiusKm is the mean Earth radius used for degree-to-kilometre
// conversion.
const earthRadiusKm = 6371.0

// Rij projects element coordinates onto a centroid-relative tangent plane.
// The result is a 2xN matrix in kilometres: row 0 holds eastward offsets,
// row 1 northward offsets, columns in input (channel) order. Fewer than
// three elements is degenerate for a planar slowness solve and is rejected
// here.
func Rij(lats, lons []float64) (*mat.Dense, error) {
	n := len(lats)
	if n != len(lons) {
		return nil, fmt.Errorf("%w: %d latitudes, %d longitudes", ErrLengthMismatch, n, len(lons))
	}

	if n < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewElements, n)
	}

	lat0 := stat.Mean(lats, nil)
	lon0 := stat.Mean(lons, nil)

	degToKm := earthRadiusKm * math.Pi / 180
	cosLat0 := math.Cos(lat0 * math.Pi / 180)

	rij := mat.NewDense(2, n, nil)
	for i := 0; i < n; i++ {
		rij.Set(0, i, (lons[i]-lon0)*cosLat0*degToKm)
		rij.Set(1, i, (lats[i]-lat0)*degToKm)
	}

	return rij, nil
}

// Pair identifies the two channels of one co-array baseline.
type Pair struct {
	I, J int
}

// PairDeltas returns the co-array of a geometry matrix: one row per
// channel pair (i < j) holding the coordinate difference r_j - r_i in
// kilometres, with the pair list in matching row order. The sign
// convention pairs with inter-channel delays measured as arrival at j
// minus arrival at i.
func PairDeltas(rij *mat.Dense) (*mat.Dense, []Pair, error) {
	rows, n := rij.Dims()
	if rows != 2 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrGeometryShape, rows)
	}

	if n < 3 {
		return nil, nil, fmt.Errorf("%w: got %d", ErrTooFewElements, n)
	}

	npairs := n * (n - 1) / 2
	deltas := mat.NewDense(npairs, 2, nil)
	pairs := make([]Pair, 0, npairs)

	k := 0
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			deltas.Set(k, 0, rij.At(0, j)-rij.At(0, i))
			deltas.Set(k, 1, rij.At(1, j)-rij.At(1, i))
			pairs = append(pairs, Pair{I: i, J: j})
			k++
		}
	}

	return deltas, pairs, nil
}

// Aperture returns the largest inter-element distance of a geometry matrix
// in kilometres.
func Aperture(rij *mat.Dense) float64 {
	rows, n := rij.Dims()
	if rows != 2 || n < 2 {
		return 0
	}

	maxD := 0.0
	for i := 0; i < n-1; i++ {
		for j := i + 1; j < n; j++ {
			dx := rij.At(0, j) - rij.At(0, i)
			dy := rij.At(1, j) - rij.At(1, i)

			d := math.Hypot(dx, dy)
			if d > maxD {
				maxD = d
			}
		}
	}

	return maxD
}
