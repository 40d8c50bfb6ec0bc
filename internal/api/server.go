// Package api serves the inference and tracking HTTP surface.
package api

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/banshee-data/objtrack/internal/db"
	"github.com/banshee-data/objtrack/internal/inference"
	"github.com/banshee-data/objtrack/internal/timeutil"
	"github.com/banshee-data/objtrack/internal/tracker"
)

// ANSI escape codes for access log colouring
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

const (
	defaultMaxUploadBytes = 32 << 20
	defaultFrameLogLimit  = 100
	maxFrameLogLimit      = 1000
	multipartMemory       = 8 << 20
)

// FrameRecorder persists processed frames and resets. *db.DB implements it.
type FrameRecorder interface {
	RecordFrame(ctx context.Context, f *db.Frame) error
	RecentFrames(ctx context.Context, limit int) ([]db.Frame, error)
	RecordReset(ctx context.Context, cleared int) error
}

// Options tunes a Server. Zero values select defaults.
type Options struct {
	// Recorder is optional; without it frames are not logged and
	// /api/frames answers 404.
	Recorder       FrameRecorder
	MaxUploadBytes int64
	FrameLogLimit  int
	// Clock stamps recorded frames. Defaults to the system clock.
	Clock timeutil.Clock
}

// Server owns the tracker and the inference pipeline for the HTTP handlers.
type Server struct {
	tracker  *tracker.Tracker
	pipeline *inference.Pipeline
	recorder FrameRecorder

	maxUploadBytes int64
	frameLogLimit  int
	clock          timeutil.Clock

	muxOnce sync.Once
	mux     *http.ServeMux
}

// NewServer wires a tracker and a pipeline into a Server.
func NewServer(t *tracker.Tracker, p *inference.Pipeline, opts Options) *Server {
	s := &Server{
		tracker:        t,
		pipeline:       p,
		recorder:       opts.Recorder,
		maxUploadBytes: opts.MaxUploadBytes,
		frameLogLimit:  opts.FrameLogLimit,
		clock:          opts.Clock,
	}
	if s.maxUploadBytes <= 0 {
		s.maxUploadBytes = defaultMaxUploadBytes
	}
	if s.frameLogLimit <= 0 {
		s.frameLogLimit = defaultFrameLogLimit
	}
	if s.clock == nil {
		s.clock = timeutil.RealClock{}
	}
	return s
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

// ServeMux returns the route table, building it on first use. Safe for
// concurrent callers.
func (s *Server) ServeMux() *http.ServeMux {
	s.muxOnce.Do(s.buildMux)
	return s.mux
}

func (s *Server) buildMux() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/reset", s.handleReset)
	mux.HandleFunc("/file", s.handleFile)
	mux.HandleFunc("/file/", s.handleFile)
	mux.HandleFunc("/api/tracks", s.listTracks)
	mux.HandleFunc("/api/tracks/", s.showTrack)
	mux.HandleFunc("/api/stats", s.showStats)
	mux.HandleFunc("/api/frames", s.listFrames)
	mux.HandleFunc("/debug/tracks/chart", s.handleTracksChart)
	mux.HandleFunc("/debug/tracks/plot.png", s.handleTracksPlot)
	s.mux = mux
}
