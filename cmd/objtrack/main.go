package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/banshee-data/objtrack/internal/api"
	"github.com/banshee-data/objtrack/internal/db"
	"github.com/banshee-data/objtrack/internal/grpchealth"
	"github.com/banshee-data/objtrack/internal/inference"
	"github.com/banshee-data/objtrack/internal/tracker"
	"github.com/banshee-data/objtrack/internal/version"
)

var (
	devMode          = flag.Bool("dev", false, "Run in dev mode (static detector, aspect-ratio classifier)")
	listen           = flag.String("listen", ":8080", "HTTP listen address")
	grpcListen       = flag.String("grpc-listen", "", "gRPC health listen address (empty disables)")
	dbPath           = flag.String("db", "objtrack.db", "Frame log sqlite database")
	configPath       = flag.String("config", "", "Tuning config JSON (defaults to "+defaultConfigHint+" when present)")
	showVersion      = flag.Bool("version", false, "Print version and exit")
	detectorURL      = flag.String("detector-url", "", "Detector endpoint (overrides config)")
	classifierURL    = flag.String("classifier-url", "", "Classifier endpoint (overrides config)")
	disableRecording = flag.Bool("disable-recording", false, "Do not log frames to the database")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	cfg, err := loadConfig(*configPath, *detectorURL, *classifierURL)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	det, cls, err := newCollaborators(cfg, *devMode)
	if err != nil {
		log.Fatalf("failed to set up inference: %v", err)
	}
	pipeline := inference.NewPipeline(det, cls)
	tr := tracker.NewTracker(tracker.ConfigFromTuning(cfg))

	opts := api.Options{
		MaxUploadBytes: cfg.GetMaxUploadBytes(),
		FrameLogLimit:  cfg.GetFrameLogLimit(),
	}
	var frameLog *db.DB
	if !*disableRecording {
		frameLog, err = db.NewDB(*dbPath)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer frameLog.Close()
		if v, _, err := frameLog.MigrateVersion(); err == nil {
			log.Printf("frame log %s at schema version %d", *dbPath, v)
		}
		opts.Recorder = frameLog
	}

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var healthSrv *grpchealth.Server
	if *grpcListen != "" {
		healthSrv = grpchealth.NewServer(*grpcListen)
		if err := healthSrv.Start(); err != nil {
			log.Fatalf("failed to start gRPC health server: %v", err)
		}
	}

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := api.NewServer(tr, pipeline, opts).ServeMux()
		if frameLog != nil {
			if err := frameLog.AttachAdminRoutes(mux); err != nil {
				log.Printf("admin routes disabled: %v", err)
			}
		}

		server := &http.Server{
			Addr:              *listen,
			Handler:           api.LoggingMiddleware(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			log.Printf("%s listening on %s", version.String(), *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()
		if healthSrv != nil {
			healthSrv.SetServing(true)
		}

		<-ctx.Done()
		log.Println("shutting down HTTP server...")
		if healthSrv != nil {
			healthSrv.SetServing(false)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}
		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	if healthSrv != nil {
		healthSrv.Stop()
	}
	log.Printf("Graceful shutdown complete")
}
