// Package track loads raw sea-ice drift observation files. The core
// pipeline only sees its output as plain records; files that cannot be
// used raise ErrDataFile and are skipped by callers, never fatal to a
// run.
package track

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ErrDataFile reports a raw data file that is missing, malformed, or
// holds too few observations to be worth processing.
var ErrDataFile = errors.New("track: unusable data file")

// minObservations is the smallest file worth loading; anything smaller
// cannot even be triangulated.
const minObservations = 3

// fileTimeLayout is the timestamp layout embedded in raw file names:
// TRACKER_YYYYMMDDHHMMSS_YYYYMMDDHHMMSS.csv
const fileTimeLayout = "20060102150405"

// Point is one drift observation.
type Point struct {
	Lon   float64
	Lat   float64
	Time  time.Time
	Index int // row index within the source file
}

// File describes one raw data file and its name-encoded time range.
type File struct {
	Path    string
	Tracker string
	Start   time.Time
	End     time.Time
}

// ParseFileName decodes TRACKER_start_end.csv. Returns ErrDataFile for
// names that do not follow the convention.
func ParseFileName(path string) (File, error) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	parts := strings.Split(base, "_")
	if len(parts) != 3 {
		return File{}, fmt.Errorf("%w: name %q does not match TRACKER_start_end", ErrDataFile, filepath.Base(path))
	}
	start, err := time.Parse(fileTimeLayout, parts[1])
	if err != nil {
		return File{}, fmt.Errorf("%w: bad start time in %q: %v", ErrDataFile, filepath.Base(path), err)
	}
	end, err := time.Parse(fileTimeLayout, parts[2])
	if err != nil {
		return File{}, fmt.Errorf("%w: bad end time in %q: %v", ErrDataFile, filepath.Base(path), err)
	}
	if end.Before(start) {
		return File{}, fmt.Errorf("%w: %q ends before it starts", ErrDataFile, filepath.Base(path))
	}
	return File{Path: path, Tracker: parts[0], Start: start, End: end}, nil
}

// ListFiles returns the raw files in dir for the given tracker whose
// name-encoded range overlaps [start, end], sorted by start time.
// Files with unparseable names are ignored.
func ListFiles(dir, tracker string, start, end time.Time) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("track: reading data dir: %w", err)
	}
	var files []File
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		f, err := ParseFileName(e.Name())
		if err != nil {
			continue
		}
		if f.Tracker != tracker {
			continue
		}
		if f.End.Before(start) || f.Start.After(end) {
			continue
		}
		f.Path = filepath.Join(dir, e.Name())
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Start.Equal(files[j].Start) {
			return files[i].Path < files[j].Path
		}
		return files[i].Start.Before(files[j].Start)
	})
	return files, nil
}

// Load reads one raw file's observations. Rows carry lat and lon
// columns; an optional time column (RFC 3339) overrides the default
// timestamp, the midpoint of the file's name-encoded range. Row order
// defines Point.Index, the file-local index that triangulation output
// refers back to.
func Load(f File) ([]Point, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDataFile, err)
	}
	defer fh.Close()
	return load(fh, f)
}

func load(r io.Reader, f File) ([]Point, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s has no header", ErrDataFile, filepath.Base(f.Path))
	}
	latCol, lonCol, timeCol := -1, -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "lat", "latitude":
			latCol = i
		case "lon", "longitude":
			lonCol = i
		case "time", "timestamp":
			timeCol = i
		}
	}
	if latCol < 0 || lonCol < 0 {
		return nil, fmt.Errorf("%w: %s lacks lat/lon columns", ErrDataFile, filepath.Base(f.Path))
	}

	defaultTime := f.Start.Add(f.End.Sub(f.Start) / 2)

	var points []Point
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: %v", ErrDataFile, filepath.Base(f.Path), len(points), err)
		}
		lat, err := strconv.ParseFloat(row[latCol], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: bad latitude %q", ErrDataFile, filepath.Base(f.Path), len(points), row[latCol])
		}
		lon, err := strconv.ParseFloat(row[lonCol], 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d: bad longitude %q", ErrDataFile, filepath.Base(f.Path), len(points), row[lonCol])
		}
		ts := defaultTime
		if timeCol >= 0 && timeCol < len(row) && row[timeCol] != "" {
			ts, err = time.Parse(time.RFC3339, row[timeCol])
			if err != nil {
				return nil, fmt.Errorf("%w: %s row %d: bad time %q", ErrDataFile, filepath.Base(f.Path), len(points), row[timeCol])
			}
		}
		points = append(points, Point{Lon: lon, Lat: lat, Time: ts, Index: len(points)})
	}

	if len(points) < minObservations {
		return nil, fmt.Errorf("%w: %s holds %d observations, need at least %d", ErrDataFile, filepath.Base(f.Path), len(points), minObservations)
	}
	return points, nil
}

// Compile loads every file, concatenating the usable ones into a single
// record set sorted by timestamp. Files raising ErrDataFile are
// reported in skipped and left out; any other error aborts. The
// returned points keep their file-local Index values.
func Compile(files []File) (points []Point, skipped []string, err error) {
	for _, f := range files {
		pts, err := Load(f)
		if errors.Is(err, ErrDataFile) {
			skipped = append(skipped, fmt.Sprintf("%s: %v", filepath.Base(f.Path), err))
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		points = append(points, pts...)
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
	return points, skipped, nil
}

// Times extracts the timestamp column of a record set.
func Times(points []Point) []time.Time {
	out := make([]time.Time, len(points))
	for i, p := range points {
		out[i] = p.Time
	}
	return out
}

// Coords extracts parallel lon/lat slices from a record set.
func Coords(points []Point) (lons, lats []float64) {
	lons = make([]float64, len(points))
	lats = make([]float64, len(points))
	for i, p := range points {
		lons[i] = p.Lon
		lats[i] = p.Lat
	}
	return lons, lats
}
