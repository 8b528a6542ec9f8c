// Command report runs the batch analysis pipeline over a directory of
// per-configuration measurement CSVs and writes profile, frontier, summary
// and trace files plus a profile scatter plot.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/banshee-data/stream.report/internal/analysis"
	"github.com/banshee-data/stream.report/internal/config"
	"github.com/banshee-data/stream.report/internal/measure"
	"github.com/banshee-data/stream.report/internal/security"
)

func main() {
	inDir := flag.String("in", ".", "directory of measurement CSVs (LABEL.csv and LABEL.size.csv per configuration)")
	outDir := flag.String("out", "report", "output directory")
	configPath := flag.String("config", "", "optional tuning config JSON")
	dbPath := flag.String("db", "", "optional sqlite database to persist the run into")
	migrationsDir := flag.String("migrations", "db/migrations", "database migrations directory")
	plotFile := flag.String("plot", "profile.png", "profile scatter output name, empty to skip")
	replay := flag.Bool("replay", true, "replay the online trigger over the run and write a trace")
	flag.Parse()

	var tuning *config.TuningConfig
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("load tuning config: %v", err)
		}
	}

	in, err := measure.LoadDirectory(*inDir)
	if err != nil {
		log.Fatalf("load measurements from %s: %v", *inDir, err)
	}

	res, err := analysis.Run(in, tuning)
	if err != nil {
		log.Fatalf("analysis run: %v", err)
	}
	log.Printf("run %s: %d configs summarised, %d profiled, %d on frontier, ground truth %s",
		res.RunID, len(res.Summaries), len(res.Profile), len(res.Frontier), res.GroundTruth)
	for _, d := range res.Diagnostics {
		log.Printf("diagnostic: %s: %s", d.Config, d.Reason)
	}

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}
	if err := writeOutputs(*outDir, res, tuning, *replay); err != nil {
		log.Fatal(err)
	}

	if *plotFile != "" {
		path := filepath.Join(*outDir, *plotFile)
		if err := plotProfile(path, res.Profile, res.Frontier); err != nil {
			log.Fatalf("plot profile: %v", err)
		}
		log.Printf("wrote %s", path)
	}

	if *dbPath != "" {
		if err := persistRun(*dbPath, *migrationsDir, res, tuning, *replay); err != nil {
			log.Fatalf("persist run: %v", err)
		}
		log.Printf("saved run %s to %s", res.RunID, *dbPath)
	}
}

func writeOutputs(dir string, res *analysis.RunResult, tuning *config.TuningConfig, replay bool) error {
	if err := writeCSV(dir, "profile.csv", func(f *os.File) error {
		return measure.WriteProfile(f, res.Profile)
	}); err != nil {
		return err
	}
	if err := writeCSV(dir, "pareto.csv", func(f *os.File) error {
		return measure.WriteProfile(f, res.Frontier)
	}); err != nil {
		return err
	}

	for cfg, series := range res.Summaries {
		name := fmt.Sprintf("summary_%s.csv", cfg.Label())
		if err := writeCSV(dir, name, func(f *os.File) error {
			return measure.WriteSummaries(f, series)
		}); err != nil {
			return err
		}
	}

	if replay {
		decisions, initial, ok := replayTrigger(res, tuning)
		if !ok {
			log.Printf("trace skipped: empty frontier")
			return nil
		}
		trace := analysis.GenerateTrace(res.Summaries, decisions, initial)
		if err := writeCSV(dir, "trace.csv", func(f *os.File) error {
			return measure.WriteTrace(f, trace)
		}); err != nil {
			return err
		}
		log.Printf("trace: %d intervals, %d reconfigurations", len(trace), len(decisions))
	}
	return nil
}

// writeCSV creates dir/name and streams rows into it. Names derived from
// ingested labels are validated so they cannot escape the output directory.
func writeCSV(dir, name string, write func(*os.File) error) error {
	path := filepath.Join(dir, name)
	if err := security.ValidatePathWithinDirectory(path, dir); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func persistRun(dbPath, migrationsDir string, res *analysis.RunResult, tuning *config.TuningConfig, replay bool) error {
	store, err := measure.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.MigrateUp(migrationsDir); err != nil {
		return err
	}
	if err := store.SaveRun(res); err != nil {
		return err
	}
	if replay {
		if decisions, _, ok := replayTrigger(res, tuning); ok {
			return store.SaveDecisions(res.RunID, decisions)
		}
	}
	return nil
}
