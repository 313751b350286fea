package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/seaice-data/coverage.report/internal/config"
	"github.com/seaice-data/coverage.report/internal/coverage"
	"github.com/seaice-data/coverage.report/internal/db"
	"github.com/seaice-data/coverage.report/internal/grid"
	"github.com/seaice-data/coverage.report/internal/interval"
	"github.com/seaice-data/coverage.report/internal/proj"
	"github.com/seaice-data/coverage.report/internal/render"
	"github.com/seaice-data/coverage.report/internal/track"
	"github.com/seaice-data/coverage.report/internal/tri"
)

// compileRun loads every usable data file for the configured tracker
// and date range and projects the observations onto the polar
// stereographic plane. The returned slices are index-aligned.
func compileRun(cfg *config.RunConfig) ([]track.Point, []proj.XY, error) {
	files, err := track.ListFiles(cfg.GetDataDir(), cfg.GetTracker(), cfg.GetStartDate(), cfg.GetEndDate())
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no %s data files in %s for the configured range", cfg.GetTracker(), cfg.GetDataDir())
	}

	points, skipped, err := track.Compile(files)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range skipped {
		log.Printf("skipping unusable data file %s", name)
	}
	if len(points) == 0 {
		return nil, nil, fmt.Errorf("no usable observations in %d files", len(files))
	}

	lons, lats := track.Coords(points)
	xy, err := proj.PolarStereo(lons, lats)
	if err != nil {
		return nil, nil, err
	}
	return points, xy, nil
}

func runCoverage(cfg *config.RunConfig, database *db.DB) error {
	points, xy, err := compileRun(cfg)
	if err != nil {
		return err
	}
	log.Printf("compiled %d observations", len(points))

	spec, err := grid.ComputeBins(xy, cfg.GetResolutionKm())
	if err != nil {
		return err
	}
	log.Printf("grid %dx%d bins at %g km", spec.NX(), spec.NY(), cfg.GetResolutionKm())

	intervals, ranges := interval.Partition(
		track.Times(points),
		cfg.GetStartDate(), cfg.GetEndDate(),
		cfg.GetTimestepHours(), cfg.GetToleranceHours(), cfg.GetIntervalHours(),
	)
	if len(intervals) == 0 {
		return fmt.Errorf("configured range yields no analysis windows")
	}

	src := func(iv interval.Interval) ([]proj.XY, error) {
		pts := make([]proj.XY, len(iv.Members))
		for i, m := range iv.Members {
			pts[i] = xy[m]
		}
		return pts, nil
	}

	agg := coverage.NewAggregator(spec, cfg.GetResolutionKm(), cfg.GetWorkers())
	rows, results := agg.Timeseries(intervals, ranges, src)
	fg, _ := agg.FrequencyGrid(intervals, ranges, src)

	for _, res := range results {
		if res.Skipped {
			log.Printf("interval %s skipped: %s", res.Range.Start.Format("2006-01-02 15:04"), res.Reason)
		}
	}
	log.Printf("%d of %d intervals produced coverage", len(rows), len(results))

	runID := uuid.NewString()
	run := db.Run{
		RunID:          runID,
		Tracker:        cfg.GetTracker(),
		StartDate:      cfg.GetStartDate(),
		EndDate:        cfg.GetEndDate(),
		TimestepHours:  cfg.GetTimestepHours(),
		ToleranceHours: cfg.GetToleranceHours(),
		IntervalHours:  cfg.GetIntervalHours(),
		ResolutionKm:   cfg.GetResolutionKm(),
	}
	if err := database.RecordRun(run); err != nil {
		return err
	}
	if err := database.RecordCoverageRows(runID, rows); err != nil {
		return err
	}
	if err := database.RecordFrequencyGrid(runID, fg); err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.GetOutputDir(), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	prefix := render.ProductPrefix(
		cfg.GetTracker(),
		cfg.GetStartDate().Format("20060102"), cfg.GetEndDate().Format("20060102"),
		cfg.GetTimestepHours(), cfg.GetToleranceHours(),
		cfg.GetResolutionKm(), cfg.GetIntervalHours(),
	)

	tsPath := filepath.Join(cfg.GetOutputDir(), prefix+"_timeseries.png")
	if err := render.TimeseriesPNG(rows, tsPath); err != nil {
		return err
	}
	hmPath := filepath.Join(cfg.GetOutputDir(), prefix+"_frequency.png")
	if err := render.HeatmapPNG(fg, spec, hmPath); err != nil {
		return err
	}
	htmlPath := filepath.Join(cfg.GetOutputDir(), prefix+"_frequency.html")
	f, err := os.Create(htmlPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", htmlPath, err)
	}
	defer f.Close()
	if err := render.EchartsHeatmap(f, fg, "Coverage frequency "+cfg.GetTracker()); err != nil {
		return err
	}

	log.Printf("run %s recorded; products under %s", runID, cfg.GetOutputDir())
	return nil
}

// runTriangulation triangulates each data file independently on a
// locally-centred azimuthal equidistant plane. Files with too few or
// degenerate observations are skipped, never fatal.
func runTriangulation(cfg *config.RunConfig, database *db.DB) error {
	files, err := track.ListFiles(cfg.GetDataDir(), cfg.GetTracker(), cfg.GetStartDate(), cfg.GetEndDate())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no %s data files in %s for the configured range", cfg.GetTracker(), cfg.GetDataDir())
	}
	if err := os.MkdirAll(cfg.GetOutputDir(), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	runID := uuid.NewString()
	run := db.Run{
		RunID:          runID,
		Tracker:        cfg.GetTracker(),
		StartDate:      cfg.GetStartDate(),
		EndDate:        cfg.GetEndDate(),
		TimestepHours:  cfg.GetTimestepHours(),
		ToleranceHours: cfg.GetToleranceHours(),
		IntervalHours:  cfg.GetIntervalHours(),
		ResolutionKm:   cfg.GetResolutionKm(),
	}
	if err := database.RecordRun(run); err != nil {
		return err
	}

	var done int
	for _, file := range files {
		points, err := track.Load(file)
		if errors.Is(err, track.ErrDataFile) {
			log.Printf("skipping %s: %v", filepath.Base(file.Path), err)
			continue
		}
		if err != nil {
			return err
		}

		lons, lats := track.Coords(points)
		xy, err := proj.AzimuthalEquidistant(lons, lats)
		if err != nil {
			return err
		}

		triangles, err := tri.Triangulate(xy)
		if errors.Is(err, tri.ErrInsufficientPoints) {
			log.Printf("skipping %s: %v", filepath.Base(file.Path), err)
			continue
		}
		if err != nil {
			return err
		}

		batch := &tri.Batch{Source: filepath.Base(file.Path), Triangles: triangles}
		if err := database.RecordTriangles(runID, batch); err != nil {
			return err
		}

		outName := strings.TrimSuffix(batch.Source, filepath.Ext(batch.Source)) + "_triangles.csv"
		out, err := os.Create(filepath.Join(cfg.GetOutputDir(), outName))
		if err != nil {
			return fmt.Errorf("creating %s: %w", outName, err)
		}
		if err := tri.WriteCSV(out, batch); err != nil {
			out.Close()
			return err
		}
		if err := out.Close(); err != nil {
			return err
		}
		done++
	}
	log.Printf("run %s: triangulated %d of %d files", runID, done, len(files))
	return nil
}

// runDTSurvey plots the distribution of per-file time spans so the
// interval parameters can be judged against what the data actually
// carries.
func runDTSurvey(cfg *config.RunConfig) error {
	files, err := track.ListFiles(cfg.GetDataDir(), cfg.GetTracker(), cfg.GetStartDate(), cfg.GetEndDate())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no %s data files in %s for the configured range", cfg.GetTracker(), cfg.GetDataDir())
	}

	// Only files the pipeline would actually process count: spans of
	// unloadable files would skew the distribution the survey is meant
	// to inform.
	var spans []float64
	for _, f := range files {
		if _, err := track.Load(f); err != nil {
			if errors.Is(err, track.ErrDataFile) {
				log.Printf("skipping %s: %v", filepath.Base(f.Path), err)
				continue
			}
			return err
		}
		spans = append(spans, f.End.Sub(f.Start).Hours())
	}
	if len(spans) == 0 {
		return fmt.Errorf("no loadable %s data files in %s for the configured range", cfg.GetTracker(), cfg.GetDataDir())
	}

	if err := os.MkdirAll(cfg.GetOutputDir(), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(cfg.GetOutputDir(), cfg.GetTracker()+"_dt_survey.png")
	if err := render.DTHistogramPNG(spans, path); err != nil {
		return err
	}
	log.Printf("delta-time survey for %d of %d files written to %s", len(spans), len(files), path)
	return nil
}
