// Package testutil provides shared test utilities and fixtures.
//
// Frames are returned as plain (width, height, pix) triples so that any
// polar layer can use them from its own tests without an import cycle.
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/banshee-data/polarview/internal/fsutil"
)

// ScenarioWidth and ScenarioHeight are the dimensions of ScenarioPix.
const (
	ScenarioWidth  = 4
	ScenarioHeight = 4
)

// ScenarioPix returns the 4×4 reference mosaic:
//
//	100 200  50 150
//	 80 160  40 120
//	100 200  50 150
//	 80 160  40 120
func ScenarioPix() []uint8 {
	return []uint8{
		100, 200, 50, 150,
		80, 160, 40, 120,
		100, 200, 50, 150,
		80, 160, 40, 120,
	}
}

// UniformPix returns a width×height buffer filled with v.
func UniformPix(width, height int, v uint8) []uint8 {
	pix := make([]uint8, width*height)
	for i := range pix {
		pix[i] = v
	}
	return pix
}

// GradientPix returns a deterministic width×height buffer whose values
// vary by row and column so every sub-pixel of a cell differs.
func GradientPix(width, height int) []uint8 {
	pix := make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pix[y*width+x] = uint8((x*7 + y*13) % 256)
		}
	}
	return pix
}

// GrayImage wraps pix as an *image.Gray.
func GrayImage(width, height int, pix []uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	copy(img.Pix, pix)
	return img
}

// EncodePNG encodes img as PNG and fails the test on error.
func EncodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// WriteGrayPNG writes pix as a greyscale PNG at name on fsys.
func WriteGrayPNG(t testing.TB, fsys fsutil.FileSystem, name string, width, height int, pix []uint8) {
	t.Helper()
	data := EncodePNG(t, GrayImage(width, height, pix))
	if err := fsys.WriteFile(name, data, 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// WriteColorPNG writes a small RGBA image with distinct channels, which
// has no lossless greyscale projection.
func WriteColorPNG(t testing.TB, fsys fsutil.FileSystem, name string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(x * 40), B: uint8(y * 40), A: 255})
		}
	}
	if err := fsys.WriteFile(name, EncodePNG(t, img), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
