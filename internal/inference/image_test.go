package inference

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/banshee-data/objtrack/internal/tracker"
)

func testFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	return img
}

func TestDecodeImage_Formats(t *testing.T) {
	src := testFrame(40, 20)

	var pngBuf, bmpBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, src))
	require.NoError(t, bmp.Encode(&bmpBuf, src))
	jpegBytes, err := EncodeJPEG(src)
	require.NoError(t, err)

	cases := map[string][]byte{
		"png":  pngBuf.Bytes(),
		"bmp":  bmpBuf.Bytes(),
		"jpeg": jpegBytes,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			img, err := DecodeImage(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())
		})
	}
}

func TestDecodeImage_Invalid(t *testing.T) {
	_, err := DecodeImage(strings.NewReader("definitely not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = DecodeImage(bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestCrop(t *testing.T) {
	img := testFrame(100, 50)

	crop, err := Crop(img, tracker.Box{Left: 10, Top: 5, Right: 30.9, Bottom: 45})
	require.NoError(t, err)
	assert.Equal(t, 20, crop.Bounds().Dx())
	assert.Equal(t, 40, crop.Bounds().Dy())
	assert.Equal(t, img.At(10, 5), crop.At(crop.Bounds().Min.X, crop.Bounds().Min.Y))
}

func TestCrop_ClampsToBounds(t *testing.T) {
	img := testFrame(100, 50)

	crop, err := Crop(img, tracker.Box{Left: -20, Top: -10, Right: 150, Bottom: 20})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 20), crop.Bounds())
}

func TestCrop_OutsideFrame(t *testing.T) {
	img := testFrame(100, 50)

	crop, err := Crop(img, tracker.Box{Left: 200, Top: 10, Right: 250, Bottom: 40})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 30), crop.Bounds())
	assert.Equal(t, color.RGBA{A: 255}, crop.At(10, 10))

	crop, err = Crop(img, tracker.Box{Left: 10, Top: 10, Right: 10, Bottom: 40})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1, 30), crop.Bounds(), "zero-width box gets a one pixel crop")

	crop, err = Crop(img, tracker.Box{Left: 10, Top: 10, Right: 10, Bottom: 10})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 1, 1), crop.Bounds())

	crop, err = Crop(img, tracker.Box{Left: 1000, Top: 1000, Right: 5000, Bottom: 9000})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 50), crop.Bounds(), "blank crop never exceeds the frame")
}

func TestCrop_InvalidGeometry(t *testing.T) {
	img := testFrame(100, 50)

	_, err := Crop(img, tracker.Box{Left: 30, Top: 10, Right: 10, Bottom: 40})
	assert.ErrorIs(t, err, tracker.ErrInvalidGeometry)
}

func TestResize(t *testing.T) {
	img := testFrame(64, 32)

	out := Resize(img, DefaultInputSize)
	assert.Equal(t, image.Rect(0, 0, 224, 224), out.Bounds())
	_, _, b, a := out.At(100, 100).RGBA()
	assert.Equal(t, uint32(0xffff), a)
	assert.InDelta(t, 128<<8, b, 512)
}

func TestEncodeJPEG(t *testing.T) {
	data, err := EncodeJPEG(testFrame(16, 8))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Width)
	assert.Equal(t, 8, cfg.Height)
}
