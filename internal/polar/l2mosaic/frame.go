package l2mosaic

import "fmt"

// RawFrame is a single-channel 8-bit sensor frame in row-major order.
//
// Pix is shared by reference. The frame is consumed by one sampling pass
// and must not be mutated while a Sampler walks it.
type RawFrame struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRawFrame wraps pix as a width×height frame. Extra trailing bytes are
// ignored; a short buffer is rejected.
func NewRawFrame(width, height int, pix []uint8) (*RawFrame, error) {
	if width < 0 || height < 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	if len(pix) < width*height {
		return nil, fmt.Errorf("frame buffer too short: got %d bytes, need %d for %dx%d",
			len(pix), width*height, width, height)
	}
	return &RawFrame{Width: width, Height: height, Pix: pix[:width*height]}, nil
}

// At returns the sample at column x, row y.
func (f *RawFrame) At(x, y int) uint8 {
	return f.Pix[y*f.Width+x]
}

// EvenBounds returns the largest even sub-rectangle of the frame. An odd
// trailing row or column is discarded by every mosaic operation.
func (f *RawFrame) EvenBounds() (width, height int) {
	return f.Width &^ 1, f.Height &^ 1
}

// CellBounds returns the number of mosaic cells across and down.
func (f *RawFrame) CellBounds() (cols, rows int) {
	w, h := f.EvenBounds()
	return w / 2, h / 2
}
