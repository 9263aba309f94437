// Command origin-serve serves recorded origin runs and on-demand frame
// analysis over HTTP, with SQL debugging pages under /debug/.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/bubble.report/internal/api"
	"github.com/banshee-data/bubble.report/internal/bubble"
	"github.com/banshee-data/bubble.report/internal/config"
	"github.com/banshee-data/bubble.report/internal/fsutil"
	"github.com/banshee-data/bubble.report/internal/store"
	"github.com/banshee-data/bubble.report/internal/timeutil"
)

func main() {
	listen := flag.String("listen", "localhost:8090", "HTTP listen address")
	dbPath := flag.String("db", "origins.db", "SQLite database written by origin-batch")
	dataRoot := flag.String("data", "", "folder of test frames for /api/frame (disabled if empty)")
	configPath := flag.String("config", "", "analysis config JSON (defaults built in)")
	flag.Parse()

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

	st, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer st.Close()

	mux := http.NewServeMux()
	if err := st.AttachAdminRoutes(mux); err != nil {
		log.Fatalf("failed to attach admin routes: %v", err)
	}
	apiMux := api.NewServer(st, fsutil.OSFileSystem{}, *dataRoot, est, cfg.GetRemoveStationary()).ServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", apiMux))

	server := &http.Server{
		Addr:              *listen,
		Handler:           api.LoggingMiddleware(timeutil.RealClock{}, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("serving %s on http://%s", *dbPath, *listen)
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
	log.Printf("graceful shutdown complete")
}
