// Command dic-compress converts a folder of DIC .dat exports into
// compressed binary caches that load much faster in the analysis tools.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/bubble.report/internal/fsutil"
	"github.com/banshee-data/bubble.report/internal/monitoring"
	"github.com/banshee-data/bubble.report/internal/security"
)

func main() {
	in := flag.String("in", "", "folder of .dat frames")
	out := flag.String("out", "", "output folder for .dicz caches (must not exist)")
	removeStationary := flag.Bool("remove-stationary", false, "drop points with z0 == 0 and dz == 0")
	workers := flag.Int("workers", 4, "frames converted in parallel")
	verbose := flag.Bool("verbose", false, "log every converted frame")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}
	monitoring.SetVerbose(*verbose)
	if err := security.ValidateOutputPath(*out); err != nil {
		log.Fatalf("invalid output folder: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &converter{fsys: fsutil.OSFileSystem{}, removeStationary: *removeStationary, workers: *workers}
	res, err := c.convert(ctx, *in, *out)
	if err != nil {
		log.Fatalf("conversion failed: %v", err)
	}
	log.Printf("converted %d frames from %s to %s: %d of %d points kept",
		res.Frames, *in, *out, res.Kept, res.Points)
}
