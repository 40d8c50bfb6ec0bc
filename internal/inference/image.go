package inference

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"io"

	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/banshee-data/objtrack/internal/tracker"
)

var (
	// ErrInvalidImage is returned when an upload cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")

	// ErrUpstream is returned when a detector or classifier server fails
	// or answers with something other than 2xx.
	ErrUpstream = errors.New("upstream model server error")
)

// JPEGQuality is used when frames and crops are re-encoded for model servers.
const JPEGQuality = 90

// DecodeImage decodes a JPEG, PNG, GIF, BMP or WebP stream and normalises it
// to RGBA.
func DecodeImage(r io.Reader) (*image.RGBA, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty %s image", ErrInvalidImage, format)
	}
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba, nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst, nil
}

// cropRect converts a box to an integer rectangle clamped to bounds.
func cropRect(bounds image.Rectangle, b tracker.Box) image.Rectangle {
	r := image.Rect(int(b.Left), int(b.Top), int(b.Right), int(b.Bottom))
	return r.Add(bounds.Min).Intersect(bounds)
}

// Crop returns the part of img covered by box, clamped to the image bounds.
// Box coordinates are relative to the image origin. A box that does not
// overlap the frame, or has zero area, yields a black crop of the box size
// (at least 1x1, at most the frame size) so it can still be classified and
// tracked.
func Crop(img image.Image, box tracker.Box) (image.Image, error) {
	if err := tracker.ValidateBox(box); err != nil {
		return nil, err
	}
	r := cropRect(img.Bounds(), box)
	if r.Empty() {
		return blankCrop(img.Bounds(), box), nil
	}
	if sub, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(r), nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst, nil
}

func blankCrop(bounds image.Rectangle, box tracker.Box) *image.RGBA {
	w := min(max(int(box.Right)-int(box.Left), 1), max(bounds.Dx(), 1))
	h := min(max(int(box.Bottom)-int(box.Top), 1), max(bounds.Dy(), 1))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
	return dst
}

// Resize scales img to size x size with bilinear interpolation.
func Resize(img image.Image, size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// EncodeJPEG encodes img at JPEGQuality.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
