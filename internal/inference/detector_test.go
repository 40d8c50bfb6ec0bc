package inference

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/objtrack/internal/httputil"
	"github.com/banshee-data/objtrack/internal/tracker"
)

func TestRemoteDetector_Detect(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"boxes": [[10, 20, 30, 60, 0.9, 1], [0, 0, 5, 5]]}`)

	d := NewRemoteDetector("http://detector:9000/detect", mock)
	dets, err := d.Detect(context.Background(), testFrame(64, 64))
	require.NoError(t, err)

	require.Len(t, dets, 2)
	assert.Equal(t, Detection{Box: tracker.Box{Left: 10, Top: 20, Right: 30, Bottom: 60}, Score: 0.9, Class: "1"}, dets[0])
	assert.Equal(t, Detection{Box: tracker.Box{Left: 0, Top: 0, Right: 5, Bottom: 5}}, dets[1])

	reqs := mock.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "http://detector:9000/detect", reqs[0].URL)
	assert.Equal(t, "image/jpeg", reqs[0].ContentType)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(reqs[0].Body))
	require.NoError(t, err, "detector should receive a JPEG frame")
	assert.Equal(t, 64, cfg.Width)
}

func TestRemoteDetector_NoBoxes(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusOK, `{"boxes": []}`)

	dets, err := NewRemoteDetector("http://detector/", mock).Detect(context.Background(), testFrame(8, 8))
	require.NoError(t, err)
	assert.Empty(t, dets)
}

func TestRemoteDetector_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(m *httputil.MockHTTPClient)
		wantErr []error
	}{
		{
			name:    "server error",
			setup:   func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusInternalServerError, "model crashed") },
			wantErr: []error{ErrUpstream},
		},
		{
			name:    "transport error",
			setup:   func(m *httputil.MockHTTPClient) { m.AddErrorResponse(errors.New("connection refused")) },
			wantErr: []error{ErrUpstream},
		},
		{
			name:    "malformed json",
			setup:   func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusOK, `{"boxes": [`) },
			wantErr: []error{ErrUpstream},
		},
		{
			name:    "short box",
			setup:   func(m *httputil.MockHTTPClient) { m.AddResponse(http.StatusOK, `{"boxes": [[1, 2, 3]]}`) },
			wantErr: []error{ErrUpstream, tracker.ErrInvalidGeometry},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := httputil.NewMockHTTPClient()
			tt.setup(mock)

			_, err := NewRemoteDetector("http://detector/", mock).Detect(context.Background(), testFrame(8, 8))
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestStaticDetector(t *testing.T) {
	d := &StaticDetector{Detections: []Detection{{Box: tracker.Box{Left: 1, Top: 2, Right: 3, Bottom: 4}}}}

	first, err := d.Detect(context.Background(), testFrame(8, 8))
	require.NoError(t, err)
	first[0].Box.Left = 99

	second, err := d.Detect(context.Background(), testFrame(8, 8))
	require.NoError(t, err)
	assert.Equal(t, 1.0, second[0].Box.Left, "callers must not mutate the configured detections")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Detect(ctx, testFrame(8, 8))
	assert.ErrorIs(t, err, context.Canceled)
}
