package l4visual

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"
)

// Gray returns a read-only image view over the buffer. The view shares
// Pix; callers must not draw into it.
func (b *Buffer) Gray() *image.Gray {
	return &image.Gray{
		Pix:    b.Pix,
		Stride: b.Width,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
	}
}

// Upscale returns a copy enlarged by an integer factor using
// nearest-neighbour sampling so individual cells stay crisp. A factor of
// 1 or less returns a plain copy.
func (b *Buffer) Upscale(factor int) *image.Gray {
	if factor < 1 {
		factor = 1
	}
	dst := image.NewGray(image.Rect(0, 0, b.Width*factor, b.Height*factor))
	if factor == 1 {
		copy(dst.Pix, b.Pix)
		return dst
	}
	src := b.Gray()
	draw.NearestNeighbor.Scale(dst, dst.Rect, src, src.Rect, draw.Src, nil)
	return dst
}

// EncodePNG encodes the buffer, upscaled by factor, as PNG bytes.
func (b *Buffer) EncodePNG(factor int) ([]byte, error) {
	if b.Width == 0 || b.Height == 0 {
		return nil, fmt.Errorf("cannot encode empty %dx%d buffer", b.Width, b.Height)
	}

	var buf bytes.Buffer
	writer := bufio.NewWriter(&buf)
	if err := png.Encode(writer, b.Upscale(factor)); err != nil {
		return nil, fmt.Errorf("failed to encode intensity png: %w", err)
	}
	if err := writer.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
