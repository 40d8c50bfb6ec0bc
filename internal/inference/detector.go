package inference

import (
	"context"
	"fmt"
	"image"
	"strconv"

	"github.com/banshee-data/objtrack/internal/httputil"
	"github.com/banshee-data/objtrack/internal/tracker"
)

// Detection is one box reported by a detector. Score and Class are carried
// for logging and recording; the tracker only sees Box.
type Detection struct {
	Box   tracker.Box `json:"box"`
	Score float64     `json:"score,omitempty"`
	Class string      `json:"class,omitempty"`
}

// Detector finds objects in a frame.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// RemoteDetector posts frames to a detector server and parses
// {"boxes": [[x1, y1, x2, y2, score?, class?], ...]}.
type RemoteDetector struct {
	url    string
	client httputil.HTTPClient
}

// NewRemoteDetector creates a detector backed by the server at url.
func NewRemoteDetector(url string, client httputil.HTTPClient) *RemoteDetector {
	return &RemoteDetector{url: url, client: client}
}

type detectResponse struct {
	Boxes [][]float64 `json:"boxes"`
}

// Detect encodes img as JPEG and asks the server for boxes. Boxes are
// returned in server order.
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	body, err := EncodeJPEG(img)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := postJPEG(ctx, d.client, d.url, body, &resp); err != nil {
		return nil, err
	}

	dets := make([]Detection, 0, len(resp.Boxes))
	for i, raw := range resp.Boxes {
		box, err := tracker.BoxFromSlice(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: box %d: %w", ErrUpstream, i, err)
		}
		det := Detection{Box: box}
		if len(raw) > 4 {
			det.Score = raw[4]
		}
		if len(raw) > 5 {
			det.Class = strconv.Itoa(int(raw[5]))
		}
		dets = append(dets, det)
	}
	return dets, nil
}

// StaticDetector returns the same detections for every frame.
type StaticDetector struct {
	Detections []Detection
}

// Detect returns a copy of the configured detections.
func (d *StaticDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Detection, len(d.Detections))
	copy(out, d.Detections)
	return out, nil
}
