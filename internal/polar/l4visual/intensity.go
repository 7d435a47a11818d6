package l4visual

import (
	"fmt"
	"math"

	"github.com/banshee-data/polarview/internal/polar/l3stokes"
)

// DefaultIntensityScale maps S0's [0,2] range onto [0,255].
const DefaultIntensityScale = 127.5

// IntensityPolicy controls how S0 becomes a display byte:
// clamp(round(s0 × Scale), 0, 255). The scale is a display choice and
// has no meaning for the Stokes values themselves.
type IntensityPolicy struct {
	Scale float64
}

// DefaultIntensityPolicy returns the full-range policy.
func DefaultIntensityPolicy() IntensityPolicy {
	return IntensityPolicy{Scale: DefaultIntensityScale}
}

// Validate rejects non-positive or non-finite scales.
func (p IntensityPolicy) Validate() error {
	if !(p.Scale > 0) || math.IsInf(p.Scale, 0) {
		return fmt.Errorf("intensity scale must be positive and finite, got %v", p.Scale)
	}
	return nil
}

// Byte converts one S0 value to a display byte.
func (p IntensityPolicy) Byte(s0 float32) uint8 {
	v := math.Round(float64(s0) * p.Scale)
	switch {
	case v <= 0 || math.IsNaN(v):
		return 0
	case v >= math.MaxUint8:
		return math.MaxUint8
	default:
		return uint8(v)
	}
}

// Buffer is a single-channel 8-bit display image, row-major, one byte
// per Stokes cell. A Buffer is never mutated after construction.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// IntensityBuffer derives the display buffer from the S0 component of
// field. The result has the field's dimensions.
func IntensityBuffer(field *l3stokes.Field, policy IntensityPolicy) *Buffer {
	pix := make([]uint8, len(field.Samples))
	for i, s := range field.Samples {
		pix[i] = policy.Byte(s.S0)
	}
	return &Buffer{Width: field.Width, Height: field.Height, Pix: pix}
}

// At returns the byte at column x, row y.
func (b *Buffer) At(x, y int) uint8 {
	return b.Pix[y*b.Width+x]
}
