package tracker

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGeometry is returned by ValidateBox for boxes the tracker must
// never see.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Box is an axis-aligned rectangle in image pixels.
type Box struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Point is an integer pixel position.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// BoxFromSlice builds a Box from detector output of the form
// [x1, y1, x2, y2, ...]. Trailing values (score, class) are ignored.
func BoxFromSlice(v []float64) (Box, error) {
	if len(v) < 4 {
		return Box{}, fmt.Errorf("%w: need 4 coordinates, got %d", ErrInvalidGeometry, len(v))
	}
	return Box{Left: v[0], Top: v[1], Right: v[2], Bottom: v[3]}, nil
}

// Centroid returns the box center truncated toward zero.
func Centroid(b Box) Point {
	return Point{
		X: int((b.Left + b.Right) / 2.0),
		Y: int((b.Top + b.Bottom) / 2.0),
	}
}

// Width returns Right-Left.
func (b Box) Width() float64 { return b.Right - b.Left }

// Height returns Bottom-Top.
func (b Box) Height() float64 { return b.Bottom - b.Top }

// ValidateBox rejects non-finite coordinates and inverted boxes.
func ValidateBox(b Box) error {
	for _, v := range []float64{b.Left, b.Top, b.Right, b.Bottom} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite coordinate in %+v", ErrInvalidGeometry, b)
		}
	}
	if b.Right < b.Left {
		return fmt.Errorf("%w: right %.1f < left %.1f", ErrInvalidGeometry, b.Right, b.Left)
	}
	if b.Bottom < b.Top {
		return fmt.Errorf("%w: bottom %.1f < top %.1f", ErrInvalidGeometry, b.Bottom, b.Top)
	}
	return nil
}
