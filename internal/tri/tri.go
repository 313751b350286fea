// Package tri builds Delaunay triangle meshes over observation points
// projected into a locally flat plane, keeping vertex references back
// to the raw records.
package tri

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/fogleman/delaunay"

	"github.com/seaice-data/coverage.report/internal/proj"
)

// ErrInsufficientPoints reports an input with fewer than three
// non-collinear points, for which no triangulation exists.
var ErrInsufficientPoints = errors.New("tri: fewer than 3 non-collinear points")

// Triangle is one mesh element. X and Y hold the projected vertex
// coordinates; Vertex holds the corresponding indices into the source
// file's records. The coordinates are copied straight from the
// projected input slice, so reconstructing a triangle from its vertex
// indices reproduces them exactly.
type Triangle struct {
	Index  int
	X      [3]float64
	Y      [3]float64
	Vertex [3]int
}

// Batch is the triangulation of one raw file. Vertex indices are local
// to Source; meshes from different files do not share an index space.
type Batch struct {
	Source    string
	Triangles []Triangle
}

// Triangulate runs a Delaunay triangulation over the projected points.
// Triangle order is stable for identical input.
func Triangulate(pts []proj.XY) ([]Triangle, error) {
	if len(pts) < 3 {
		return nil, fmt.Errorf("%w: got %d points", ErrInsufficientPoints, len(pts))
	}

	dpts := make([]delaunay.Point, len(pts))
	for i, p := range pts {
		dpts[i] = delaunay.Point{X: p.X, Y: p.Y}
	}
	t, err := delaunay.Triangulate(dpts)
	if err != nil {
		// The library rejects degenerate inputs (all points collinear).
		return nil, fmt.Errorf("%w: %v", ErrInsufficientPoints, err)
	}
	if len(t.Triangles) == 0 {
		return nil, fmt.Errorf("%w: degenerate input", ErrInsufficientPoints)
	}

	out := make([]Triangle, 0, len(t.Triangles)/3)
	for i := 0; i+2 < len(t.Triangles); i += 3 {
		v := [3]int{t.Triangles[i], t.Triangles[i+1], t.Triangles[i+2]}
		tri := Triangle{Index: len(out), Vertex: v}
		for k, vi := range v {
			tri.X[k] = pts[vi].X
			tri.Y[k] = pts[vi].Y
		}
		out = append(out, tri)
	}
	return out, nil
}

// csvHeader matches the documented flat product: triangle index, the
// three x coordinates, the three y coordinates, the three vertex
// indices into the raw file.
var csvHeader = []string{"no", "x1", "x2", "x3", "y1", "y2", "y3", "vertex1", "vertex2", "vertex3"}

// WriteCSV writes a batch as a flat delimited table.
func WriteCSV(w io.Writer, b *Batch) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("tri: writing header: %w", err)
	}
	for _, tr := range b.Triangles {
		row := []string{
			strconv.Itoa(tr.Index),
			formatCoord(tr.X[0]), formatCoord(tr.X[1]), formatCoord(tr.X[2]),
			formatCoord(tr.Y[0]), formatCoord(tr.Y[1]), formatCoord(tr.Y[2]),
			strconv.Itoa(tr.Vertex[0]), strconv.Itoa(tr.Vertex[1]), strconv.Itoa(tr.Vertex[2]),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("tri: writing triangle %d: %w", tr.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
