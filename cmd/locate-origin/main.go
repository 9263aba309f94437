// Command locate-origin estimates the bubble origin of a single DIC frame
// with every method and optionally plots the result.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/bubble.report/internal/config"
	"github.com/banshee-data/bubble.report/internal/fsutil"
	"github.com/banshee-data/bubble.report/internal/monitoring"
	"github.com/banshee-data/bubble.report/internal/plots"
	"github.com/banshee-data/bubble.report/internal/security"
	"github.com/banshee-data/bubble.report/internal/version"
)

func main() {
	configPath := flag.String("config", "", "analysis config JSON (defaults built in)")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	plotPath := flag.String("plot", "", "write a PNG of the frame with origin markers")
	htmlPath := flag.String("html", "", "write an interactive HTML scatter")
	verbose := flag.Bool("verbose", false, "log per-method details")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] FRAME.dat|FRAME.dicz\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if flag.NArg() != 1 {
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

	fsys := fsutil.OSFileSystem{}
	r, err := locate(fsys, flag.Arg(0), cfg)
	if err != nil {
		log.Fatalf("locate origin: %v", err)
	}

	if *asJSON {
		err = writeJSON(os.Stdout, r)
	} else {
		err = writeText(os.Stdout, r)
	}
	if err != nil {
		log.Fatalf("write report: %v", err)
	}

	if *plotPath != "" {
		if err := security.ValidateOutputPath(*plotPath); err != nil {
			log.Fatalf("invalid plot path: %v", err)
		}
		p, err := plots.OriginFigure(r.Frame, r.cloud, r.estimates)
		if err != nil {
			log.Fatalf("plot: %v", err)
		}
		if err := plots.SavePNG(fsys, *plotPath, p, plots.Width, plots.Height); err != nil {
			log.Fatalf("plot: %v", err)
		}
		monitoring.Logf("wrote %s", *plotPath)
	}
	if *htmlPath != "" {
		if err := security.ValidateOutputPath(*htmlPath); err != nil {
			log.Fatalf("invalid html path: %v", err)
		}
		var buf bytes.Buffer
		if err := plots.WriteOriginHTML(&buf, r.Frame, r.cloud, r.estimates); err != nil {
			log.Fatalf("html: %v", err)
		}
		if err := fsys.WriteFile(*htmlPath, buf.Bytes(), 0o644); err != nil {
			log.Fatalf("html: %v", err)
		}
		monitoring.Logf("wrote %s", *htmlPath)
	}
}
