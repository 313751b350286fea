package grid

import (
	"errors"
	"math"
	"testing"

	"github.com/seaice-data/coverage.report/internal/proj"
)

func basinCorners() []proj.XY {
	return []proj.XY{
		{X: BasinMinX, Y: BasinMinY},
		{X: BasinMaxX, Y: BasinMaxY},
	}
}

func TestComputeBinsEmpty(t *testing.T) {
	if _, err := ComputeBins(nil, 10); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("ComputeBins(nil) error = %v, want ErrInsufficientData", err)
	}
}

func TestComputeBinsZeroExtent(t *testing.T) {
	tests := []struct {
		name string
		pts  []proj.XY
	}{
		{"all points identical", []proj.XY{{X: 5, Y: 5}, {X: 5, Y: 5}}},
		{"zero x extent", []proj.XY{{X: 5, Y: 0}, {X: 5, Y: 100}}},
		{"zero y extent", []proj.XY{{X: 0, Y: -3}, {X: 100, Y: -3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ComputeBins(tt.pts, 10)
			if !errors.Is(err, ErrInsufficientData) {
				t.Fatalf("ComputeBins error = %v, want ErrInsufficientData", err)
			}
			if spec != nil {
				t.Errorf("ComputeBins returned a spec alongside the error")
			}
		})
	}
}

func TestComputeBinsBadResolution(t *testing.T) {
	for _, res := range []float64{0, -5} {
		if _, err := ComputeBins(basinCorners(), res); err == nil {
			t.Errorf("ComputeBins(res=%v) succeeded, want error", res)
		}
	}
}

func TestComputeBinsFullBasinCount(t *testing.T) {
	// With data spanning the full basin the bin count per axis is
	// floor(basin_extent / (res * 1000)).
	tests := []struct {
		name   string
		res    float64
		wantNX int
		wantNY int
	}{
		{"10km", 10, 690, 600},
		{"25km", 25, 276, 240},
		{"100km", 100, 69, 60},
		{"7km (non-divisor)", 7, 985, 857},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ComputeBins(basinCorners(), tt.res)
			if err != nil {
				t.Fatalf("ComputeBins failed: %v", err)
			}
			if spec.NX() != tt.wantNX || spec.NY() != tt.wantNY {
				t.Errorf("bins = (%d, %d), want (%d, %d)", spec.NX(), spec.NY(), tt.wantNX, tt.wantNY)
			}
		})
	}
}

func TestComputeBinsEdgesCoverExtent(t *testing.T) {
	pts := []proj.XY{
		{X: -1200000, Y: 150000},
		{X: 430000, Y: -780000},
		{X: -90000, Y: 1100000},
	}
	spec, err := ComputeBins(pts, 10)
	if err != nil {
		t.Fatalf("ComputeBins failed: %v", err)
	}
	if spec.XEdges[0] > -1200000 || spec.XEdges[len(spec.XEdges)-1] < 430000 {
		t.Errorf("x edges [%f, %f] do not cover data extent", spec.XEdges[0], spec.XEdges[len(spec.XEdges)-1])
	}
	if spec.YEdges[0] > -780000 || spec.YEdges[len(spec.YEdges)-1] < 1100000 {
		t.Errorf("y edges [%f, %f] do not cover data extent", spec.YEdges[0], spec.YEdges[len(spec.YEdges)-1])
	}
	for i := 1; i < len(spec.XEdges); i++ {
		if spec.XEdges[i] <= spec.XEdges[i-1] {
			t.Fatalf("x edges not strictly increasing at %d", i)
		}
	}
}

func TestComputeBinsAdaptiveWidth(t *testing.T) {
	// Data covering a small region still gets the basin-derived bin
	// count, so the realized width shrinks below the nominal
	// resolution. This behaviour is load-bearing for the products.
	pts := []proj.XY{{X: 0, Y: 0}, {X: 69000, Y: 60000}}
	spec, err := ComputeBins(pts, 10)
	if err != nil {
		t.Fatalf("ComputeBins failed: %v", err)
	}
	if spec.NX() != 690 {
		t.Fatalf("NX = %d, want 690", spec.NX())
	}
	width := spec.XEdges[1] - spec.XEdges[0]
	if math.Abs(width-100) > 1e-9 {
		t.Errorf("realized x bin width = %f m, want 100 m", width)
	}
}

func TestRasterizeEmpty(t *testing.T) {
	spec, err := ComputeBins(basinCorners(), 100)
	if err != nil {
		t.Fatalf("ComputeBins failed: %v", err)
	}
	occ := Rasterize(nil, spec)
	if occ.NX != spec.NX() || occ.NY != spec.NY() {
		t.Fatalf("occupancy shape (%d, %d) != spec (%d, %d)", occ.NX, occ.NY, spec.NX(), spec.NY())
	}
	if occ.CoveredCells() != 0 {
		t.Errorf("empty rasterization covered %d cells, want 0", occ.CoveredCells())
	}
}

func TestRasterizeBinary(t *testing.T) {
	spec, err := ComputeBins(basinCorners(), 100)
	if err != nil {
		t.Fatalf("ComputeBins failed: %v", err)
	}
	// Many points into one cell must still read 1.
	pts := make([]proj.XY, 50)
	for i := range pts {
		pts[i] = proj.XY{X: 1000, Y: 1000}
	}
	occ := Rasterize(pts, spec)
	for _, c := range occ.Cells {
		if c != 0 && c != 1 {
			t.Fatalf("cell value %d outside {0,1}", c)
		}
	}
	if occ.CoveredCells() != 1 {
		t.Errorf("covered cells = %d, want 1", occ.CoveredCells())
	}
}

func TestRasterizeRightmostEdgeInclusive(t *testing.T) {
	spec := &Spec{
		XEdges: []float64{0, 1, 2},
		YEdges: []float64{0, 1, 2},
	}
	occ := Rasterize([]proj.XY{{X: 2, Y: 2}}, spec)
	if occ.At(1, 1) != 1 {
		t.Errorf("point on rightmost edge not placed in last bin")
	}
	if occ.CoveredCells() != 1 {
		t.Errorf("covered cells = %d, want 1", occ.CoveredCells())
	}
}

func TestRasterizeInteriorEdgeGoesRight(t *testing.T) {
	spec := &Spec{
		XEdges: []float64{0, 1, 2},
		YEdges: []float64{0, 1, 2},
	}
	occ := Rasterize([]proj.XY{{X: 1, Y: 0.5}}, spec)
	if occ.At(1, 0) != 1 {
		t.Errorf("point on interior edge not placed in right-hand bin")
	}
}

func TestRasterizeDropsOutOfRange(t *testing.T) {
	spec := &Spec{
		XEdges: []float64{0, 1, 2},
		YEdges: []float64{0, 1, 2},
	}
	occ := Rasterize([]proj.XY{{X: -0.1, Y: 1}, {X: 2.1, Y: 1}, {X: 1, Y: 5}}, spec)
	if occ.CoveredCells() != 0 {
		t.Errorf("out-of-range points were binned: %d cells covered", occ.CoveredCells())
	}
}

func TestRasterizeClampIdempotent(t *testing.T) {
	spec := &Spec{
		XEdges: []float64{0, 1, 2, 3},
		YEdges: []float64{0, 1, 2, 3},
	}
	a := []proj.XY{{X: 0.5, Y: 0.5}, {X: 1.5, Y: 1.5}}
	b := []proj.XY{{X: 1.5, Y: 1.5}, {X: 2.5, Y: 2.5}}

	clampSum := func() []uint8 {
		oa := Rasterize(a, spec)
		ob := Rasterize(b, spec)
		out := make([]uint8, len(oa.Cells))
		for i := range out {
			s := oa.Cells[i] + ob.Cells[i]
			if s > 1 {
				s = 1
			}
			out[i] = s
		}
		return out
	}

	first := clampSum()
	second := clampSum()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("clamped sum not idempotent at cell %d", i)
		}
	}
}
