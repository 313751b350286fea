// Package coverage accumulates per-interval occupancy grids into the
// two derived products: a percent-of-ocean-area time series and a
// percent-of-intervals frequency grid.
//
// An interval that yields no usable points is skipped, not reported as
// zero: a skipped interval contributes no time-series row and no
// accumulate step. That distinction is part of the product contract and
// is carried through storage and the API.
package coverage

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/seaice-data/coverage.report/internal/grid"
	"github.com/seaice-data/coverage.report/internal/interval"
	"github.com/seaice-data/coverage.report/internal/proj"
)

// PointSource supplies the projected points of one interval. Errors
// mark the interval as skipped; they never abort the run.
type PointSource func(iv interval.Interval) ([]proj.XY, error)

// Row is one time-series entry for a non-skipped interval.
type Row struct {
	Percent float64
	Start   time.Time
	End     time.Time
}

// IntervalResult records what happened to each interval, preserving
// the skip-vs-zero distinction alongside the compact Row output.
type IntervalResult struct {
	Range   interval.Range
	Skipped bool
	Reason  string
	Percent float64
}

// FreqGrid is the per-cell percent-of-intervals product. Percent is
// indexed like grid.Occupancy.Cells; never-observed cells hold NaN
// (no data), which is distinct from an unobtainable literal zero.
// Intervals is the denominator: the full interval count of the run,
// skipped intervals included, so a cell's percentage reads as "share
// of the whole period with data", not share of the usable intervals.
type FreqGrid struct {
	NX        int
	NY        int
	Percent   []float64
	Counts    []int
	Intervals int
}

// Aggregator runs per-interval rasterizations against one shared
// immutable grid spec. The spec must not be recomputed mid-run or the
// per-interval grids stop being comparable.
type Aggregator struct {
	spec         *grid.Spec
	resolutionKm float64
	workers      int
}

// NewAggregator returns an aggregator over spec. workers bounds the
// parallel rasterization fan-out; values below 1 mean serial.
func NewAggregator(spec *grid.Spec, resolutionKm float64, workers int) *Aggregator {
	if workers < 1 {
		workers = 1
	}
	return &Aggregator{spec: spec, resolutionKm: resolutionKm, workers: workers}
}

// rasterized is the outcome of one interval's rasterization, keyed by
// interval index so reduction stays in caller order.
type rasterized struct {
	occ     *grid.Occupancy
	skipped bool
	reason  string
}

// rasterizeAll fans interval rasterization out over the worker pool and
// returns per-interval outcomes in input order. Rasterization per
// interval is independent given the shared spec; only the indexed
// result slot is written, so the reduction that follows is
// deterministic.
func (a *Aggregator) rasterizeAll(intervals []interval.Interval, src PointSource) []rasterized {
	out := make([]rasterized, len(intervals))
	idx := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < a.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				pts, err := src(intervals[i])
				if err != nil {
					out[i] = rasterized{skipped: true, reason: err.Error()}
					continue
				}
				if len(pts) == 0 {
					out[i] = rasterized{skipped: true, reason: "no usable points"}
					continue
				}
				out[i] = rasterized{occ: grid.Rasterize(pts, a.spec)}
			}
		}()
	}
	for i := range intervals {
		idx <- i
	}
	close(idx)
	wg.Wait()
	return out
}

// Timeseries computes the percent-of-ocean-area covered per interval.
// Skipped intervals contribute no row; the full per-interval outcome
// list is returned alongside for callers that need the distinction.
func (a *Aggregator) Timeseries(intervals []interval.Interval, ranges []interval.Range, src PointSource) ([]Row, []IntervalResult) {
	oceanCells := grid.OceanAreaKm2 / (a.resolutionKm * a.resolutionKm)

	results := make([]IntervalResult, len(intervals))
	var rows []Row
	for i, r := range a.rasterizeAll(intervals, src) {
		results[i].Range = ranges[i]
		if r.skipped {
			results[i].Skipped = true
			results[i].Reason = r.reason
			log.Printf("coverage: interval %s..%s skipped: %s", ranges[i].Start.Format(time.RFC3339), ranges[i].End.Format(time.RFC3339), r.reason)
			continue
		}
		pct := float64(r.occ.CoveredCells()) / oceanCells * 100
		results[i].Percent = pct
		rows = append(rows, Row{Percent: pct, Start: ranges[i].Start, End: ranges[i].End})
	}
	return rows, results
}

// FrequencyGrid sums clamped occupancy grids across intervals and
// scales to percent of the total interval count. Skipped intervals
// contribute no accumulate step but stay in the denominator. The grid
// shape comes from the shared spec; every interval rasterizes onto it.
func (a *Aggregator) FrequencyGrid(intervals []interval.Interval, ranges []interval.Range, src PointSource) (*FreqGrid, []IntervalResult) {
	fg := &FreqGrid{
		NX:        a.spec.NX(),
		NY:        a.spec.NY(),
		Counts:    make([]int, a.spec.NX()*a.spec.NY()),
		Intervals: len(intervals),
	}

	results := make([]IntervalResult, len(intervals))
	for i, r := range a.rasterizeAll(intervals, src) {
		results[i].Range = ranges[i]
		if r.skipped {
			results[i].Skipped = true
			results[i].Reason = r.reason
			log.Printf("coverage: interval %s..%s skipped: %s", ranges[i].Start.Format(time.RFC3339), ranges[i].End.Format(time.RFC3339), r.reason)
			continue
		}
		for c, v := range r.occ.Cells {
			fg.Counts[c] += int(v)
		}
	}

	fg.Percent = make([]float64, len(fg.Counts))
	for c, n := range fg.Counts {
		if n == 0 || fg.Intervals == 0 {
			fg.Percent[c] = math.NaN()
			continue
		}
		fg.Percent[c] = float64(n) / float64(fg.Intervals) * 100
	}
	return fg, results
}
