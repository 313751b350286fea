// Package config loads the JSON run configuration. Fields are
// pointer-typed so a partial config file is safe: anything omitted
// falls back to the documented default via the Get* accessors.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// dateLayout is the layout for start_date / end_date.
const dateLayout = "2006-01-02"

// RunConfig is the root configuration for a processing run.
type RunConfig struct {
	Tracker   *string `json:"tracker,omitempty"`
	DataDir   *string `json:"data_dir,omitempty"`
	OutputDir *string `json:"output_dir,omitempty"`
	DBPath    *string `json:"db_path,omitempty"`

	StartDate *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   *string `json:"end_date,omitempty"`   // YYYY-MM-DD

	TimestepHours  *int     `json:"timestep_hours,omitempty"`
	ToleranceHours *int     `json:"tolerance_hours,omitempty"`
	IntervalHours  *int     `json:"interval_hours,omitempty"`
	ResolutionKm   *float64 `json:"resolution_km,omitempty"`

	Workers *int    `json:"workers,omitempty"`
	Listen  *string `json:"listen,omitempty"`
}

// Load reads a RunConfig from a JSON file. The path must carry a .json
// extension; oversized files are rejected before parsing.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration values are usable. The date
// range is mandatory; everything else has a default.
func (c *RunConfig) Validate() error {
	if c.StartDate == nil || c.EndDate == nil {
		return fmt.Errorf("start_date and end_date are required")
	}
	start, err := time.Parse(dateLayout, *c.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start_date %q: %w", *c.StartDate, err)
	}
	end, err := time.Parse(dateLayout, *c.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end_date %q: %w", *c.EndDate, err)
	}
	if !start.Before(end) {
		return fmt.Errorf("start_date %q must precede end_date %q", *c.StartDate, *c.EndDate)
	}

	if c.ResolutionKm != nil && *c.ResolutionKm <= 0 {
		return fmt.Errorf("resolution_km must be positive, got %v", *c.ResolutionKm)
	}
	if c.TimestepHours != nil && *c.TimestepHours <= 0 {
		return fmt.Errorf("timestep_hours must be positive, got %d", *c.TimestepHours)
	}
	if c.IntervalHours != nil && *c.IntervalHours <= 0 {
		return fmt.Errorf("interval_hours must be positive, got %d", *c.IntervalHours)
	}
	if c.ToleranceHours != nil && *c.ToleranceHours < 0 {
		return fmt.Errorf("tolerance_hours must be non-negative, got %d", *c.ToleranceHours)
	}
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	return nil
}

// GetTracker returns the tracker name or the default.
func (c *RunConfig) GetTracker() string {
	if c.Tracker == nil {
		return "S1"
	}
	return *c.Tracker
}

// GetDataDir returns the raw data directory or the default.
func (c *RunConfig) GetDataDir() string {
	if c.DataDir == nil {
		return "data"
	}
	return *c.DataDir
}

// GetOutputDir returns the product output directory or the default.
func (c *RunConfig) GetOutputDir() string {
	if c.OutputDir == nil {
		return "output"
	}
	return *c.OutputDir
}

// GetDBPath returns the sqlite database path or the default.
func (c *RunConfig) GetDBPath() string {
	if c.DBPath == nil {
		return "coverage.db"
	}
	return *c.DBPath
}

// GetStartDate returns the parsed start date. Validate must have
// passed; an unparseable value here returns the zero time.
func (c *RunConfig) GetStartDate() time.Time {
	if c.StartDate == nil {
		return time.Time{}
	}
	t, _ := time.Parse(dateLayout, *c.StartDate)
	return t
}

// GetEndDate returns the parsed end date.
func (c *RunConfig) GetEndDate() time.Time {
	if c.EndDate == nil {
		return time.Time{}
	}
	t, _ := time.Parse(dateLayout, *c.EndDate)
	return t
}

// GetTimestepHours returns the window step or the default.
func (c *RunConfig) GetTimestepHours() int {
	if c.TimestepHours == nil {
		return 24
	}
	return *c.TimestepHours
}

// GetToleranceHours returns the window tolerance or the default.
func (c *RunConfig) GetToleranceHours() int {
	if c.ToleranceHours == nil {
		return 0
	}
	return *c.ToleranceHours
}

// GetIntervalHours returns the window length or the default.
func (c *RunConfig) GetIntervalHours() int {
	if c.IntervalHours == nil {
		return 72
	}
	return *c.IntervalHours
}

// GetResolutionKm returns the grid resolution or the default.
func (c *RunConfig) GetResolutionKm() float64 {
	if c.ResolutionKm == nil {
		return 10
	}
	return *c.ResolutionKm
}

// GetWorkers returns the rasterization worker count or the default.
func (c *RunConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// GetListen returns the API listen address or the default.
func (c *RunConfig) GetListen() string {
	if c.Listen == nil {
		return ":8080"
	}
	return *c.Listen
}
