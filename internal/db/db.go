// Package db persists run metadata and derived products (coverage time
// series, frequency grids, triangle batches) in sqlite.
package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/seaice-data/coverage.report/internal/coverage"
	"github.com/seaice-data/coverage.report/internal/tri"
)

type DB struct {
	*sql.DB
}

func NewDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			tracker           TEXT,
			start_date        TEXT,
			end_date          TEXT,
			timestep_hours    BIGINT,
			tolerance_hours   BIGINT,
			interval_hours    BIGINT,
			resolution_km     DOUBLE,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS coverage_rows (
			run_id            TEXT,
			interval_start    TEXT,
			interval_end      TEXT,
			percent           DOUBLE,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS frequency_grids (
			run_id            TEXT PRIMARY KEY,
			nx                BIGINT,
			ny                BIGINT,
			interval_count    BIGINT,
			cells             TEXT,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS triangles (
			run_id            TEXT,
			source            TEXT,
			triangle_index    BIGINT,
			x1 DOUBLE, x2 DOUBLE, x3 DOUBLE,
			y1 DOUBLE, y2 DOUBLE, y3 DOUBLE,
			vertex1 BIGINT, vertex2 BIGINT, vertex3 BIGINT,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// Run is one processing run's identity and parameters.
type Run struct {
	RunID          string    `json:"run_id"`
	Tracker        string    `json:"tracker"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	TimestepHours  int       `json:"timestep_hours"`
	ToleranceHours int       `json:"tolerance_hours"`
	IntervalHours  int       `json:"interval_hours"`
	ResolutionKm   float64   `json:"resolution_km"`
}

// RecordRun inserts the run row that products hang off.
func (db *DB) RecordRun(r Run) error {
	_, err := db.Exec(
		`INSERT INTO runs (
			run_id, tracker, start_date, end_date,
			timestep_hours, tolerance_hours, interval_hours, resolution_km
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Tracker,
		r.StartDate.Format(time.RFC3339), r.EndDate.Format(time.RFC3339),
		r.TimestepHours, r.ToleranceHours, r.IntervalHours, r.ResolutionKm,
	)
	if err != nil {
		return fmt.Errorf("db: recording run: %w", err)
	}
	return nil
}

// ListRuns returns all runs, newest first.
func (db *DB) ListRuns() ([]Run, error) {
	rows, err := db.Query(
		`SELECT run_id, tracker, start_date, end_date,
			timestep_hours, tolerance_hours, interval_hours, resolution_km
		FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("db: listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var start, end string
		if err := rows.Scan(&r.RunID, &r.Tracker, &start, &end,
			&r.TimestepHours, &r.ToleranceHours, &r.IntervalHours, &r.ResolutionKm); err != nil {
			return nil, fmt.Errorf("db: scanning run: %w", err)
		}
		if r.StartDate, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, fmt.Errorf("db: run %s start date: %w", r.RunID, err)
		}
		if r.EndDate, err = time.Parse(time.RFC3339, end); err != nil {
			return nil, fmt.Errorf("db: run %s end date: %w", r.RunID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecordCoverageRows stores the time-series product. Skipped intervals
// were never rows, so absence survives storage.
func (db *DB) RecordCoverageRows(runID string, rows []coverage.Row) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO coverage_rows (run_id, interval_start, interval_end, percent)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("db: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(runID, r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339), r.Percent); err != nil {
			return fmt.Errorf("db: inserting coverage row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}

// CoverageRows loads a run's time series in interval order.
func (db *DB) CoverageRows(runID string) ([]coverage.Row, error) {
	rows, err := db.Query(
		`SELECT interval_start, interval_end, percent
		FROM coverage_rows WHERE run_id = ? ORDER BY interval_start`, runID)
	if err != nil {
		return nil, fmt.Errorf("db: loading coverage rows: %w", err)
	}
	defer rows.Close()

	var out []coverage.Row
	for rows.Next() {
		var r coverage.Row
		var start, end string
		if err := rows.Scan(&start, &end, &r.Percent); err != nil {
			return nil, fmt.Errorf("db: scanning coverage row: %w", err)
		}
		if r.Start, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, fmt.Errorf("db: coverage row start: %w", err)
		}
		if r.End, err = time.Parse(time.RFC3339, end); err != nil {
			return nil, fmt.Errorf("db: coverage row end: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RecordFrequencyGrid stores the per-cell percent grid. NaN (no data)
// is encoded as JSON null so it stays distinct from every number.
func (db *DB) RecordFrequencyGrid(runID string, fg *coverage.FreqGrid) error {
	cells, err := encodeCells(fg.Percent)
	if err != nil {
		return fmt.Errorf("db: encoding grid cells: %w", err)
	}
	_, err = db.Exec(
		`INSERT INTO frequency_grids (run_id, nx, ny, interval_count, cells)
		VALUES (?, ?, ?, ?, ?)`,
		runID, fg.NX, fg.NY, fg.Intervals, cells,
	)
	if err != nil {
		return fmt.Errorf("db: recording frequency grid: %w", err)
	}
	return nil
}

// FrequencyGrid loads a run's frequency grid; no-data cells come back
// as NaN.
func (db *DB) FrequencyGrid(runID string) (*coverage.FreqGrid, error) {
	var fg coverage.FreqGrid
	var cells string
	err := db.QueryRow(
		`SELECT nx, ny, interval_count, cells FROM frequency_grids WHERE run_id = ?`, runID).
		Scan(&fg.NX, &fg.NY, &fg.Intervals, &cells)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("db: no frequency grid for run %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("db: loading frequency grid: %w", err)
	}
	if fg.Percent, err = decodeCells(cells); err != nil {
		return nil, fmt.Errorf("db: decoding grid cells: %w", err)
	}
	return &fg, nil
}

// RecordTriangles stores one file's triangulation batch.
func (db *DB) RecordTriangles(runID string, b *tri.Batch) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO triangles (
			run_id, source, triangle_index,
			x1, x2, x3, y1, y2, y3, vertex1, vertex2, vertex3
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("db: prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range b.Triangles {
		if _, err := stmt.Exec(runID, b.Source, t.Index,
			t.X[0], t.X[1], t.X[2], t.Y[0], t.Y[1], t.Y[2],
			t.Vertex[0], t.Vertex[1], t.Vertex[2]); err != nil {
			return fmt.Errorf("db: inserting triangle %d: %w", t.Index, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}

// Triangles loads a run's triangles for one source file, in index
// order.
func (db *DB) Triangles(runID, source string) ([]tri.Triangle, error) {
	rows, err := db.Query(
		`SELECT triangle_index, x1, x2, x3, y1, y2, y3, vertex1, vertex2, vertex3
		FROM triangles WHERE run_id = ? AND source = ? ORDER BY triangle_index`,
		runID, source)
	if err != nil {
		return nil, fmt.Errorf("db: loading triangles: %w", err)
	}
	defer rows.Close()

	var out []tri.Triangle
	for rows.Next() {
		var t tri.Triangle
		if err := rows.Scan(&t.Index,
			&t.X[0], &t.X[1], &t.X[2], &t.Y[0], &t.Y[1], &t.Y[2],
			&t.Vertex[0], &t.Vertex[1], &t.Vertex[2]); err != nil {
			return nil, fmt.Errorf("db: scanning triangle: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// encodeCells serialises a percent grid as a JSON array with null for
// NaN cells.
func encodeCells(cells []float64) (string, error) {
	vals := make([]*float64, len(cells))
	for i := range cells {
		if !math.IsNaN(cells[i]) {
			v := cells[i]
			vals[i] = &v
		}
	}
	data, err := json.Marshal(vals)
	return string(data), err
}

func decodeCells(data string) ([]float64, error) {
	var vals []*float64
	if err := json.Unmarshal([]byte(data), &vals); err != nil {
		return nil, err
	}
	out := make([]float64, len(vals))
	for i, v := range vals {
		if v == nil {
			out[i] = math.NaN()
		} else {
			out[i] = *v
		}
	}
	return out, nil
}
