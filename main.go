// Command stream-report serves stored analysis runs over HTTP. It can ingest
// a directory of measurement CSVs and execute an analysis run before serving.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/stream.report/internal/analysis"
	"github.com/banshee-data/stream.report/internal/api"
	"github.com/banshee-data/stream.report/internal/config"
	"github.com/banshee-data/stream.report/internal/measure"
	"github.com/banshee-data/stream.report/internal/units"
	"github.com/banshee-data/stream.report/internal/version"
)

var (
	listen        = flag.String("listen", ":8080", "Listen address")
	dbFile        = flag.String("db", "measurements.db", "sqlite database path")
	migrationsDir = flag.String("migrations", "db/migrations", "database migrations directory")
	configPath    = flag.String("config", "", "optional tuning config JSON")
	ingestDir     = flag.String("ingest", "", "measurement CSV directory to ingest before serving")
	runAnalysis   = flag.Bool("run", false, "execute an analysis run over the stored measurements before serving")
	bandwidthUnit = flag.String("units", units.BPS, "bandwidth units for API responses (bps, kbps, mbps)")
	followEvery   = flag.Duration("follow", 0, "poll interval for the online decision loop, 0 to disable")
)

func main() {
	flag.Parse()
	log.Printf("stream-report %s (%s)", version.Version, version.GitSHA)

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*bandwidthUnit) {
		log.Fatalf("invalid units %q, valid values: %s", *bandwidthUnit, units.GetValidUnitsString())
	}

	var tuning *config.TuningConfig
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	store, err := measure.NewStore(*dbFile)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer store.Close()
	if err := store.MigrateUp(*migrationsDir); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	if *ingestDir != "" {
		if err := ingest(store, *ingestDir); err != nil {
			log.Fatalf("ingest failed: %v", err)
		}
	}

	if *runAnalysis {
		in, err := store.LoadRunInput()
		if err != nil {
			log.Fatalf("failed to load measurements: %v", err)
		}
		res, err := analysis.Run(in, tuning)
		if err != nil {
			log.Fatalf("analysis run failed: %v", err)
		}
		if err := store.SaveRun(res); err != nil {
			log.Fatalf("failed to save run: %v", err)
		}
		log.Printf("run %s: %d configs profiled, %d on frontier", res.RunID, len(res.Profile), len(res.Frontier))
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *followEvery > 0 {
		follower, err := newFollower(store, tuning, *followEvery)
		if err != nil {
			log.Fatalf("failed to start decision loop: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := follower.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("decision loop stopped: %v", err)
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(store, *bandwidthUnit).ServeMux()
		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", *listen)
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
	}()

	wg.Wait()
}

// newFollower builds the online decision loop over the latest stored run,
// starting from the most accurate frontier point that fits the configured
// bandwidth budget.
func newFollower(store *measure.Store, tuning *config.TuningConfig, pollInterval time.Duration) (*measure.Follower, error) {
	runID, err := store.LatestRunID()
	if err != nil {
		return nil, err
	}
	if runID == "" {
		return nil, fmt.Errorf("no stored runs to follow")
	}

	points, err := store.ProfilePoints(runID, true)
	if err != nil {
		return nil, err
	}
	frontier := analysis.Frontier(points)
	if len(frontier) == 0 {
		return nil, fmt.Errorf("run %s has an empty frontier", runID)
	}

	opts := analysis.TriggerOptionsFromTuning(tuning)
	budget := opts.BandwidthHighWatermark
	if budget <= 0 {
		budget = math.Inf(1)
	}
	start, ok := frontier.FindByBandwidth(budget)
	if !ok {
		start = frontier[0]
	}

	trig := analysis.NewTrigger(opts, frontier, start.Config)
	onDecision := func(d analysis.Decision) {
		log.Printf("decision: switch to %s at interval %d (%s=%.4g)", d.Config, d.Interval, d.Metric, d.MetricValue)
		if err := store.SaveDecisions(runID, []analysis.Decision{d}); err != nil {
			log.Printf("failed to save decision: %v", err)
		}
	}
	return measure.NewFollower(store, runID, trig, nil, pollInterval, onDecision), nil
}

// ingest loads a measurement directory and writes every configuration's
// streams into the store.
func ingest(store *measure.Store, dir string) error {
	in, err := measure.LoadDirectory(dir)
	if err != nil {
		return err
	}
	for cfg, recs := range in.Detections {
		if err := store.InsertDetections(cfg, recs); err != nil {
			return err
		}
		log.Printf("ingested %d detections for %s", len(recs), cfg)
	}
	for cfg, recs := range in.Sizes {
		if err := store.InsertSizes(cfg, recs); err != nil {
			return err
		}
		log.Printf("ingested %d frame sizes for %s", len(recs), cfg)
	}
	return nil
}
