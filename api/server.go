// Package api serves stored run products read-only over HTTP.
package api

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/seaice-data/coverage.report/internal/coverage"
	"github.com/seaice-data/coverage.report/internal/db"
	"github.com/seaice-data/coverage.report/internal/render"
	"github.com/seaice-data/coverage.report/internal/version"
)

type Server struct {
	db *db.DB
}

func NewServer(database *db.DB) *Server {
	return &Server{db: database}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/runs", s.listRuns)
	mux.HandleFunc("/coverage", s.coverageRows)
	mux.HandleFunc("/grid", s.frequencyGrid)
	mux.HandleFunc("/heatmap", s.heatmap)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "coverage.report %s\nEndpoints: /runs /coverage?run_id= /grid?run_id= /heatmap?run_id=\n", version.String())
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runs, err := s.db.ListRuns()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list runs: %v", err), http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []db.Run{}
	}
	s.writeJSON(w, runs)
}

func (s *Server) coverageRows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}
	rows, err := s.db.CoverageRows(runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load coverage rows: %v", err), http.StatusInternalServerError)
		return
	}
	type rowJSON struct {
		Percent float64 `json:"percent"`
		Start   string  `json:"start"`
		End     string  `json:"end"`
	}
	out := make([]rowJSON, len(rows))
	for i, row := range rows {
		out[i] = rowJSON{Percent: row.Percent, Start: row.Start.Format("2006-01-02T15:04:05Z07:00"), End: row.End.Format("2006-01-02T15:04:05Z07:00")}
	}
	s.writeJSON(w, out)
}

// gridJSON is the wire form of a frequency grid. Cells uses null for
// no-data so the skip-vs-zero distinction survives serialisation.
type gridJSON struct {
	NX        int        `json:"nx"`
	NY        int        `json:"ny"`
	Intervals int        `json:"interval_count"`
	Cells     []*float64 `json:"cells"`
}

func toGridJSON(fg *coverage.FreqGrid) gridJSON {
	cells := make([]*float64, len(fg.Percent))
	for i := range fg.Percent {
		if !math.IsNaN(fg.Percent[i]) {
			v := fg.Percent[i]
			cells[i] = &v
		}
	}
	return gridJSON{NX: fg.NX, NY: fg.NY, Intervals: fg.Intervals, Cells: cells}
}

func (s *Server) frequencyGrid(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}
	fg, err := s.db.FrequencyGrid(runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load frequency grid: %v", err), http.StatusNotFound)
		return
	}
	s.writeJSON(w, toGridJSON(fg))
}

func (s *Server) heatmap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}
	fg, err := s.db.FrequencyGrid(runID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load frequency grid: %v", err), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.EchartsHeatmap(w, fg, "Coverage frequency "+runID); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render heatmap: %v", err), http.StatusInternalServerError)
	}
}
