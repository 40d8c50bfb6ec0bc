package inference

import (
	"context"
	"fmt"
	"image"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/objtrack/internal/monitoring"
	"github.com/banshee-data/objtrack/internal/tracker"
)

var logf = monitoring.Prefixed("inference")

// DefaultClassifyConcurrency bounds in-flight classifier calls per frame.
const DefaultClassifyConcurrency = 4

// Pipeline runs detection and per-box classification for one frame and
// produces tracker observations in detector order.
type Pipeline struct {
	detector    Detector
	classifier  Classifier
	concurrency int

	dropped monitoring.Counter
}

// NewPipeline wires a detector and a classifier.
func NewPipeline(d Detector, c Classifier) *Pipeline {
	return &Pipeline{detector: d, classifier: c, concurrency: DefaultClassifyConcurrency}
}

// SetConcurrency sets how many crops are classified at once. n < 1 means 1.
func (p *Pipeline) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	p.concurrency = n
}

// Dropped returns how many detections were discarded for bad geometry since
// the pipeline was created.
func (p *Pipeline) Dropped() uint64 { return p.dropped.Load() }

// FrameResult is what Run hands back for one frame.
type FrameResult struct {
	Observations []tracker.Observation
	Detections   []Detection // kept detections, parallel to Observations
	Dropped      int         // detections discarded in this frame
}

// Run detects objects in img, drops boxes with invalid geometry, and
// classifies the rest. Boxes outside the frame are classified on a blank crop. Any detector or classifier failure
// fails the whole frame so the tracker never sees a partial frame.
func (p *Pipeline) Run(ctx context.Context, img image.Image) (*FrameResult, error) {
	dets, err := p.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("failed to detect: %w", err)
	}

	kept := make([]Detection, 0, len(dets))
	crops := make([]image.Image, 0, len(dets))
	dropped := 0
	for i, det := range dets {
		crop, err := Crop(img, det.Box)
		if err != nil {
			dropped++
			p.dropped.Inc()
			logf("dropping detection %d: %v", i, err)
			continue
		}
		kept = append(kept, det)
		crops = append(crops, crop)
	}

	labels := make([]string, len(crops))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, crop := range crops {
		g.Go(func() error {
			label, err := p.classifier.Classify(gctx, crop)
			if err != nil {
				return fmt.Errorf("failed to classify box %d: %w", i, err)
			}
			labels[i] = label
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &FrameResult{
		Observations: make([]tracker.Observation, len(kept)),
		Detections:   kept,
		Dropped:      dropped,
	}
	for i, det := range kept {
		res.Observations[i] = tracker.Observation{Box: det.Box, Label: labels[i]}
	}
	return res, nil
}
