// Package grid derives coverage bin grids from projected observation
// points and rasterizes point sets into binary occupancy grids.
package grid

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/seaice-data/coverage.report/internal/proj"
)

// ErrInsufficientData reports a point set from which no bins can be
// derived: empty, or collapsed to zero extent along an axis.
var ErrInsufficientData = errors.New("grid: insufficient data to derive bins")

// Arctic basin bounds in the fixed polar stereographic plane, metres.
// These are injected constants, not derived from data: bin counts
// depend on them so grids from different runs stay comparable.
const (
	BasinMinX = -4400000.0
	BasinMaxX = 2500000.0
	BasinMinY = -2500000.0
	BasinMaxY = 3500000.0
)

// OceanAreaKm2 is the reference Arctic ocean area used when converting
// covered cell counts to a percentage of the ocean.
const OceanAreaKm2 = 15558000.0

// Spec holds the bin edges of one run's coverage grid. It is computed
// once from the full dataset extent and passed unchanged to every
// per-interval rasterization; aggregation across intervals is only
// meaningful on a shared Spec.
type Spec struct {
	XEdges []float64 // strictly increasing, len = NX()+1
	YEdges []float64 // strictly increasing, len = NY()+1
}

// NX returns the number of bins along x.
func (s *Spec) NX() int { return len(s.XEdges) - 1 }

// NY returns the number of bins along y.
func (s *Spec) NY() int { return len(s.YEdges) - 1 }

// ComputeBins derives a Spec for the given resolution. The bin count
// per axis comes from the fixed basin extent; the edges span the actual
// data extent. When the data covers less than the basin the realized
// bin width is finer than the nominal resolution — intentional, the
// upstream products are defined this way.
func ComputeBins(pts []proj.XY, resolutionKm float64) (*Spec, error) {
	if len(pts) == 0 {
		return nil, ErrInsufficientData
	}
	if resolutionKm <= 0 {
		return nil, fmt.Errorf("grid: resolution must be positive, got %v", resolutionKm)
	}

	nx := int(math.Floor((BasinMaxX - BasinMinX) / (1000 * resolutionKm)))
	ny := int(math.Floor((BasinMaxY - BasinMinY) / (1000 * resolutionKm)))
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("grid: resolution %v km exceeds the basin extent", resolutionKm)
	}

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i] = p.X
		ys[i] = p.Y
	}

	minX, maxX := floats.Min(xs), floats.Max(xs)
	minY, maxY := floats.Min(ys), floats.Max(ys)
	// A zero-extent axis has no step to derive edges from, and the
	// strictly-increasing edge invariant cannot hold.
	if minX == maxX {
		return nil, fmt.Errorf("%w: zero extent along x (all points at %v)", ErrInsufficientData, minX)
	}
	if minY == maxY {
		return nil, fmt.Errorf("%w: zero extent along y (all points at %v)", ErrInsufficientData, minY)
	}

	return &Spec{
		XEdges: edges(minX, maxX, nx),
		YEdges: edges(minY, maxY, ny),
	}, nil
}

// edges generates n+1 edges from min to max. Edges are computed by
// index rather than accumulated so the count is exact and the last edge
// does not drift below max.
func edges(min, max float64, n int) []float64 {
	step := (max - min) / float64(n)
	out := make([]float64, n+1)
	for k := 0; k <= n; k++ {
		out[k] = min + float64(k)*step
	}
	out[n] = math.Max(out[n], max)
	return out
}

// Occupancy is a binary coverage grid: 1 where at least one point fell
// in the cell, 0 elsewhere. Cells is indexed [ix*NY + iy].
type Occupancy struct {
	NX    int
	NY    int
	Cells []uint8
}

// At returns the occupancy of cell (ix, iy).
func (o *Occupancy) At(ix, iy int) uint8 { return o.Cells[ix*o.NY+iy] }

// CoveredCells counts the cells with at least one observation.
func (o *Occupancy) CoveredCells() int {
	n := 0
	for _, c := range o.Cells {
		if c != 0 {
			n++
		}
	}
	return n
}

// Rasterize bins points into spec's grid and clamps every cell to
// {0,1}. Points outside the edge range are dropped; a point exactly on
// the rightmost edge lands in the last bin. An empty point set yields
// an all-zero grid, not an error.
func Rasterize(pts []proj.XY, spec *Spec) *Occupancy {
	occ := &Occupancy{
		NX:    spec.NX(),
		NY:    spec.NY(),
		Cells: make([]uint8, spec.NX()*spec.NY()),
	}
	for _, p := range pts {
		ix, ok := binIndex(spec.XEdges, p.X)
		if !ok {
			continue
		}
		iy, ok := binIndex(spec.YEdges, p.Y)
		if !ok {
			continue
		}
		occ.Cells[ix*occ.NY+iy] = 1
	}
	return occ
}

// binIndex locates v within the edge array. Bins are half-open
// [e[i], e[i+1]) except the last, which includes its right edge.
func binIndex(edges []float64, v float64) (int, bool) {
	n := len(edges) - 1
	if v < edges[0] || v > edges[n] {
		return 0, false
	}
	if v == edges[n] {
		return n - 1, true
	}
	// First index with edges[i] >= v; an exact edge hit is the left
	// edge of bin i, anything else falls in the bin before it.
	i := sort.SearchFloat64s(edges, v)
	if i < len(edges) && edges[i] == v {
		return i, true
	}
	return i - 1, true
}
