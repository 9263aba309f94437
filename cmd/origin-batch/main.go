// Command origin-batch estimates the bubble origin for every frame of every
// test under a root folder, records the estimates in SQLite and renders
// per-test histograms.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/bubble.report/internal/batch"
	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/config"
	"github.com/banshee-data/bubble.report/internal/fsutil"
	"github.com/banshee-data/bubble.report/internal/monitoring"
	"github.com/banshee-data/bubble.report/internal/security"
	"github.com/banshee-data/bubble.report/internal/store"
)

func main() {
	root := flag.String("root", "", "folder containing one sub-folder per test")
	configPath := flag.String("config", "", "analysis config JSON (defaults built in)")
	dbPath := flag.String("db", "", "SQLite database for the estimates (skipped if empty)")
	outDir := flag.String("out", "origin_plots", "output folder for plots")
	label := flag.String("label", "", "label stored with the run")
	framePlots := flag.Bool("frame-plots", false, "write an origin figure for every frame")
	noHist := flag.Bool("no-hist", false, "skip the per-test histograms")
	verbose := flag.Bool("verbose", false, "log every frame")
	flag.Parse()

	if *root == "" {
		flag.Usage()
		os.Exit(2)
	}
	monitoring.SetVerbose(*verbose)

	cfg := config.DefaultAnalysisConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadAnalysisConfig(*configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	opts, err := cfg.ToOptions()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	est, err := bubble.NewEstimator(opts)
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if err := security.ValidateOutputPath(*outDir); err != nil {
		log.Fatalf("invalid output folder: %v", err)
	}

	fsys := fsutil.OSFileSystem{}
	tests, err := batch.DiscoverTests(fsys, *root)
	if err != nil {
		log.Fatalf("discovery failed: %v", err)
	}
	if len(tests) == 0 {
		log.Fatalf("no tests with frames under %s", *root)
	}

	runner := batch.NewRunner(est, cfg.GetWorkers())
	runner.RemoveStationary = cfg.GetRemoveStationary()
	job := &batchJob{
		fsys:       fsys,
		runner:     runner,
		outDir:     *outDir,
		histogram:  !*noHist,
		framePlots: *framePlots,
	}

	if *dbPath != "" {
		st, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		defer st.Close()
		run, err := st.CreateRun(*label, cfg.JSON())
		if err != nil {
			log.Fatalf("failed to create run: %v", err)
		}
		job.store, job.run = st, run
		monitoring.Logf("run %s recording to %s", run.RunID, *dbPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reports, err := job.runAll(ctx, tests)
	writeSummary(os.Stdout, reports)
	if err != nil {
		log.Fatalf("batch stopped: %v", err)
	}
	for _, r := range reports {
		if r.Histogram != "" {
			monitoring.Logf("wrote %s", r.Histogram)
		}
	}
}
