// Package render turns the derived coverage and triangulation products
// into figures: PNG plots via gonum/plot and an interactive HTML
// heatmap via go-echarts. The core hands products in as plain data;
// nothing here feeds back into the computation.
package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/seaice-data/coverage.report/internal/coverage"
	"github.com/seaice-data/coverage.report/internal/grid"
)

// ProductPrefix builds the file name stem shared by a run's outputs:
// tracker, date range, and the window/resolution parameters that
// produced them.
func ProductPrefix(tracker, startDate, endDate string, timestepHours, toleranceHours int, resolutionKm float64, intervalHours int) string {
	return fmt.Sprintf("%s_%s_%s_dt%d_tol%d_res%g_int%d",
		tracker, startDate, endDate, timestepHours, toleranceHours, resolutionKm, intervalHours)
}

// TimeseriesPNG plots percent-of-ocean coverage against interval start
// time. Skipped intervals are absent from rows and leave gaps rather
// than dropping to zero.
func TimeseriesPNG(rows []coverage.Row, path string) error {
	p := plot.New()
	p.Title.Text = "Coverage of the Arctic ocean"
	p.X.Label.Text = "Interval start"
	p.Y.Label.Text = "Covered area (%)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	pts := make(plotter.XYs, len(rows))
	for i, r := range rows {
		pts[i] = plotter.XY{X: float64(r.Start.Unix()), Y: r.Percent}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("render: building line: %w", err)
	}
	line.Width = vg.Points(1)
	p.Add(line, plotter.NewGrid())

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("render: creating output dir: %w", err)
	}
	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("render: saving timeseries plot: %w", err)
	}
	return nil
}

// freqGridXYZ adapts a frequency grid to gonum's heatmap interface.
// No-data cells pass NaN through, which the heatmap leaves undrawn.
type freqGridXYZ struct {
	fg   *coverage.FreqGrid
	spec *grid.Spec
}

func (g freqGridXYZ) Dims() (int, int) { return g.fg.NX, g.fg.NY }

func (g freqGridXYZ) Z(c, r int) float64 { return g.fg.Percent[c*g.fg.NY+r] }

func (g freqGridXYZ) X(c int) float64 {
	return (g.spec.XEdges[c] + g.spec.XEdges[c+1]) / 2
}

func (g freqGridXYZ) Y(r int) float64 {
	return (g.spec.YEdges[r] + g.spec.YEdges[r+1]) / 2
}

// HeatmapPNG plots the percent-of-intervals frequency grid in the
// polar stereographic plane.
func HeatmapPNG(fg *coverage.FreqGrid, spec *grid.Spec, path string) error {
	if fg.NX != spec.NX() || fg.NY != spec.NY() {
		return fmt.Errorf("render: grid shape (%d, %d) does not match spec (%d, %d)",
			fg.NX, fg.NY, spec.NX(), spec.NY())
	}

	p := plot.New()
	p.Title.Text = "Share of intervals with data (%)"
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	h := plotter.NewHeatMap(freqGridXYZ{fg: fg, spec: spec}, palette.Heat(12, 1))
	h.Min = 0
	h.Max = 100
	p.Add(h)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("render: creating output dir: %w", err)
	}
	if err := p.Save(8*vg.Inch, 7*vg.Inch, path); err != nil {
		return fmt.Errorf("render: saving heatmap: %w", err)
	}
	return nil
}

// maxHeatmapCells bounds the echarts payload; larger grids are
// downsampled by stride, like the debug charts this view descends
// from.
const maxHeatmapCells = 20000

// EchartsHeatmap renders an interactive HTML heatmap of the frequency
// grid. No-data cells are omitted from the series entirely, so the
// no-data vs zero distinction survives into the view.
func EchartsHeatmap(w io.Writer, fg *coverage.FreqGrid, title string) error {
	stride := 1
	if fg.NX*fg.NY > maxHeatmapCells {
		stride = int(math.Ceil(math.Sqrt(float64(fg.NX*fg.NY) / float64(maxHeatmapCells))))
	}

	var data []opts.ScatterData
	for ix := 0; ix < fg.NX; ix += stride {
		for iy := 0; iy < fg.NY; iy += stride {
			v := fg.Percent[ix*fg.NY+iy]
			if math.IsNaN(v) {
				continue
			}
			data = append(data, opts.ScatterData{Value: []interface{}{ix, iy, v}})
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("cells=%d stride=%d intervals=%d", len(data), stride, fg.Intervals)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: fg.NX, Name: "x bin"}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: fg.NY, Name: "y bin"}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        100,
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}},
		}),
	)
	scatter.AddSeries("coverage", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}))

	if err := scatter.Render(w); err != nil {
		return fmt.Errorf("render: rendering echarts heatmap: %w", err)
	}
	return nil
}

// dtBins builds the survey's bin edges: 0 and 6, then steps of 12
// until the last edge exceeds the largest span. The first bin is the
// sub-6h outlier bucket; the rest straddle the nominal daily cadences.
func dtBins(maxSpan float64) []float64 {
	edges := []float64{0, 6}
	for edges[len(edges)-1] <= maxSpan {
		edges = append(edges, edges[len(edges)-1]+12)
	}
	return edges
}

// DTHistogramPNG plots the distribution of per-file time spans
// (hours). Used by the delta-time survey subcommand.
func DTHistogramPNG(spansHours []float64, path string) error {
	if len(spansHours) == 0 {
		return fmt.Errorf("render: no file spans to plot")
	}

	p := plot.New()
	p.Title.Text = "Time spans of raw data files"
	p.X.Label.Text = "Span (h)"
	p.Y.Label.Text = "Files"

	edges := dtBins(floats.Max(spansHours))
	h, err := plotter.NewHist(plotter.Values(spansHours), len(edges)-1)
	if err != nil {
		return fmt.Errorf("render: building histogram: %w", err)
	}
	bins := make([]plotter.HistogramBin, len(edges)-1)
	for i := range bins {
		bins[i] = plotter.HistogramBin{Min: edges[i], Max: edges[i+1]}
	}
	for _, v := range spansHours {
		for i := range bins {
			if v >= bins[i].Min && v < bins[i].Max {
				bins[i].Weight++
				break
			}
		}
	}
	h.Bins = bins
	p.Add(h)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("render: creating output dir: %w", err)
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("render: saving histogram: %w", err)
	}
	return nil
}
