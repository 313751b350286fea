package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/seaice-data/coverage.report/api"
	"github.com/seaice-data/coverage.report/internal/config"
	"github.com/seaice-data/coverage.report/internal/db"
	"github.com/seaice-data/coverage.report/internal/version"
)

var (
	configPath    = flag.String("config", "config.json", "Path to run configuration")
	doCoverage    = flag.Bool("coverage", false, "Compute coverage time series and frequency grid")
	doTriangulate = flag.Bool("triangulate", false, "Triangulate each data file")
	doDTSurvey    = flag.Bool("dtsurvey", false, "Plot the distribution of per-file time spans")
	doServe       = flag.Bool("serve", false, "Serve stored run products over HTTP")
)

func main() {
	flag.Parse()
	log.Printf("coverage.report %s", version.String())

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	if !*doCoverage && !*doTriangulate && !*doDTSurvey && !*doServe {
		log.Fatal("Nothing to do: pass -coverage, -triangulate, -dtsurvey or -serve")
	}

	if *doDTSurvey {
		if err := runDTSurvey(cfg); err != nil {
			log.Fatalf("Delta-time survey failed: %v", err)
		}
	}

	if !*doCoverage && !*doTriangulate && !*doServe {
		return
	}

	database, err := db.NewDB(cfg.GetDBPath())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer database.Close()

	if *doCoverage {
		if err := runCoverage(cfg, database); err != nil {
			log.Fatalf("Coverage run failed: %v", err)
		}
	}
	if *doTriangulate {
		if err := runTriangulation(cfg, database); err != nil {
			log.Fatalf("Triangulation run failed: %v", err)
		}
	}

	if *doServe {
		serveProducts(cfg, database)
	}
}

// serveProducts blocks until SIGINT/SIGTERM, then shuts the server
// down with a bounded grace period.
func serveProducts(cfg *config.RunConfig, database *db.DB) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := api.NewServer(database).ServeMux()
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("got request %q", r.URL.Path)
		mux.ServeHTTP(w, r)
	})

	server := &http.Server{
		Addr:    cfg.GetListen(),
		Handler: h,
	}

	go func() {
		log.Printf("serving products on %s", cfg.GetListen())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
	log.Printf("HTTP server stopped")
}
