package inference

import (
	"context"
	"fmt"
	"image"

	"github.com/banshee-data/objtrack/internal/httputil"
)

// DefaultClassNames is the label table of the posture classifier.
var DefaultClassNames = []string{"Lying", "Standing"}

// DefaultInputSize is the square edge the classifier expects.
const DefaultInputSize = 224

// Classifier labels one cropped object.
type Classifier interface {
	Classify(ctx context.Context, crop image.Image) (string, error)
}

// Labels maps class indices to names.
type Labels []string

// Name returns the label at idx.
func (l Labels) Name(idx int) (string, error) {
	if idx < 0 || idx >= len(l) {
		return "", fmt.Errorf("class index %d out of range [0,%d)", idx, len(l))
	}
	return l[idx], nil
}

// RemoteClassifier resizes crops to the model input size, posts them to a
// classifier server and reads {"class_index": n}.
type RemoteClassifier struct {
	url       string
	client    httputil.HTTPClient
	labels    Labels
	inputSize int
}

// NewRemoteClassifier creates a classifier backed by the server at url.
func NewRemoteClassifier(url string, client httputil.HTTPClient, labels []string, inputSize int) *RemoteClassifier {
	if len(labels) == 0 {
		labels = DefaultClassNames
	}
	if inputSize <= 0 {
		inputSize = DefaultInputSize
	}
	return &RemoteClassifier{url: url, client: client, labels: Labels(labels), inputSize: inputSize}
}

type classifyResponse struct {
	ClassIndex *int `json:"class_index"`
}

// Classify returns the label the server picked for crop.
func (c *RemoteClassifier) Classify(ctx context.Context, crop image.Image) (string, error) {
	body, err := EncodeJPEG(Resize(crop, c.inputSize))
	if err != nil {
		return "", err
	}

	var resp classifyResponse
	if err := postJPEG(ctx, c.client, c.url, body, &resp); err != nil {
		return "", err
	}
	if resp.ClassIndex == nil {
		return "", fmt.Errorf("%w: %s: missing class_index", ErrUpstream, c.url)
	}
	name, err := c.labels.Name(*resp.ClassIndex)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrUpstream, c.url, err)
	}
	return name, nil
}

// AspectClassifier labels crops by shape: taller than wide is index 1,
// anything else index 0. It stands in for a model server in dev mode.
type AspectClassifier struct {
	Labels Labels
}

// NewAspectClassifier creates an AspectClassifier; nil labels use
// DefaultClassNames.
func NewAspectClassifier(labels []string) *AspectClassifier {
	if len(labels) == 0 {
		labels = DefaultClassNames
	}
	return &AspectClassifier{Labels: Labels(labels)}
}

// Classify implements Classifier.
func (c *AspectClassifier) Classify(ctx context.Context, crop image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b := crop.Bounds()
	idx := 0
	if b.Dy() > b.Dx() {
		idx = 1
	}
	if idx >= len(c.Labels) {
		idx = len(c.Labels) - 1
	}
	return c.Labels.Name(idx)
}
