package api

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/banshee-data/objtrack/internal/timeutil"
)

func TestStatusCodeColor(t *testing.T) {
	tests := []struct {
		code     int
		contains string
	}{
		{200, "200"},
		{301, "301"},
		{400, "400"},
		{502, "502"},
		{100, "100"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("code_%d", tt.code), func(t *testing.T) {
			result := statusCodeColor(tt.code)
			if !strings.Contains(result, tt.contains) {
				t.Errorf("Expected result to contain %s, got %s", tt.contains, result)
			}
		})
	}
	if statusCodeColor(100) != "100" {
		t.Errorf("informational codes should not be coloured")
	}
}

func TestLoggingResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	lrw := &loggingResponseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	lrw.WriteHeader(http.StatusCreated)
	if lrw.statusCode != http.StatusCreated {
		t.Errorf("Expected status code 201, got %d", lrw.statusCode)
	}
	lrw.Flush()
	if !rec.Flushed {
		t.Error("Flush should reach the underlying writer")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(orig)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	w := httptest.NewRecorder()
	LoggingMiddleware(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/stats?x=1", nil))

	if w.Code != http.StatusTeapot {
		t.Errorf("Expected status 418, got %d", w.Code)
	}
	line := buf.String()
	if !strings.Contains(line, "418") || !strings.Contains(line, "/api/stats?x=1") || !strings.Contains(line, "GET") {
		t.Errorf("unexpected access log line %q", line)
	}
}

func TestServeMux_Cached(t *testing.T) {
	s, _ := newTestServer(t, nil)

	m1 := s.ServeMux()
	if m1 == nil {
		t.Fatal("Expected ServeMux to return non-nil mux")
	}
	if m2 := s.ServeMux(); m1 != m2 {
		t.Error("Expected ServeMux to return same mux on subsequent calls")
	}
}

func TestServeMux_ConcurrentFirstUse(t *testing.T) {
	s, _ := newTestServer(t, nil)

	const callers = 16
	muxes := make([]*http.ServeMux, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			muxes[i] = s.ServeMux()
		}()
	}
	wg.Wait()

	for i, m := range muxes {
		if m == nil || m != muxes[0] {
			t.Fatalf("caller %d got mux %p, want %p", i, m, muxes[0])
		}
	}
}

func TestNewServer_Defaults(t *testing.T) {
	s := NewServer(nil, nil, Options{})
	if s.maxUploadBytes != defaultMaxUploadBytes {
		t.Errorf("maxUploadBytes = %d", s.maxUploadBytes)
	}
	if s.frameLogLimit != defaultFrameLogLimit {
		t.Errorf("frameLogLimit = %d", s.frameLogLimit)
	}
	if _, ok := s.clock.(timeutil.RealClock); !ok {
		t.Errorf("clock = %T, want timeutil.RealClock", s.clock)
	}
}
