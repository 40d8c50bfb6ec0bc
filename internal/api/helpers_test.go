package api

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/banshee-data/objtrack/internal/db"
	"github.com/banshee-data/objtrack/internal/inference"
	"github.com/banshee-data/objtrack/internal/tracker"
)

func pngFrame(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// uploadRequest builds a multipart POST carrying data in field.
func uploadRequest(t *testing.T, path, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "frame.png")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("write form file failed: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func box(l, t, r, b float64) inference.Detection {
	return inference.Detection{Box: tracker.Box{Left: l, Top: t, Right: r, Bottom: b}, Score: 0.8}
}

// newTestServer builds a server whose detector returns dets for every frame.
func newTestServer(t *testing.T, rec FrameRecorder, dets ...inference.Detection) (*Server, *inference.StaticDetector) {
	t.Helper()
	det := &inference.StaticDetector{Detections: dets}
	p := inference.NewPipeline(det, inference.NewAspectClassifier(nil))
	tr := tracker.NewTracker(tracker.Config{MatchThreshold: 300})
	return NewServer(tr, p, Options{Recorder: rec}), det
}

func newFrameLog(t *testing.T) *db.DB {
	t.Helper()
	frameLog, err := db.NewDB(cloneFrameLog(t))
	if err != nil {
		t.Fatalf("failed to open frame log: %v", err)
	}
	t.Cleanup(func() { frameLog.Close() })
	return frameLog
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ServeMux().ServeHTTP(w, req)
	return w
}

// failingRecorder fails every write and counts attempts.
type failingRecorder struct {
	mu       sync.Mutex
	attempts int
}

func (f *failingRecorder) RecordFrame(ctx context.Context, fr *db.Frame) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	return errors.New("disk full")
}

func (f *failingRecorder) RecentFrames(ctx context.Context, limit int) ([]db.Frame, error) {
	return nil, errors.New("disk on fire")
}

func (f *failingRecorder) RecordReset(ctx context.Context, cleared int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	return errors.New("disk full")
}
