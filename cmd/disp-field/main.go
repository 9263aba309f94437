// Command disp-field fits polynomial surfaces to the displacement field of
// one DIC frame and reports the goodness of fit.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/bubble.report/internal/config"
	"github.com/banshee-data/bubble.report/internal/fsutil"
	"github.com/banshee-data/bubble.report/internal/monitoring"
	"github.com/banshee-data/bubble.report/internal/security"
)

func main() {
	configPath := flag.String("config", "", "analysis config JSON (defaults built in)")
	degree := flag.Int("degree", -1, "polynomial degree (overrides config)")
	passThrough := flag.Bool("pass-through", false, "keep every point instead of the z threshold filter")
	plotDir := flag.String("plots", "", "directory for residual plots")
	verbose := flag.Bool("verbose", false, "log clamp circle details")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] FRAME.dat|FRAME.dicz\n", os.Args[0])
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
	if *passThrough {
		mode := "pass_through"
		cfg.ZFilter = &mode
	}
	d := cfg.GetPolynomialDegree()
	if *degree >= 0 {
		d = *degree
	}

	fsys := fsutil.OSFileSystem{}
	res, err := analyse(fsys, flag.Arg(0), cfg, d)
	if err != nil {
		log.Fatalf("displacement field: %v", err)
	}
	res.writeSummary(os.Stdout)

	if *plotDir != "" {
		if err := security.ValidateOutputPath(*plotDir); err != nil {
			log.Fatalf("invalid plot directory: %v", err)
		}
		written, err := res.writePlots(fsys, *plotDir)
		if err != nil {
			log.Fatalf("plots: %v", err)
		}
		for _, p := range written {
			monitoring.Logf("wrote %s", p)
		}
	}
}
