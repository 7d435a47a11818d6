package l3stokes

import (
	"fmt"

	"github.com/banshee-data/polarview/internal/polar/l2mosaic"
)

// Component selects one Stokes parameter.
type Component int

const (
	ComponentS0 Component = iota
	ComponentS1
	ComponentS2
)

// String returns "s0", "s1" or "s2".
func (c Component) String() string {
	switch c {
	case ComponentS0:
		return "s0"
	case ComponentS1:
		return "s1"
	case ComponentS2:
		return "s2"
	default:
		return fmt.Sprintf("component(%d)", int(c))
	}
}

// Components lists all components in S0, S1, S2 order.
var Components = [...]Component{ComponentS0, ComponentS1, ComponentS2}

// Field is the grid of Stokes samples, one per mosaic cell, row-major.
type Field struct {
	Width   int
	Height  int
	Samples []Sample
}

// NewField allocates a zeroed width×height field.
func NewField(width, height int) *Field {
	return &Field{
		Width:   width,
		Height:  height,
		Samples: make([]Sample, width*height),
	}
}

// At returns the sample at cell column x, row y.
func (f *Field) At(x, y int) Sample {
	return f.Samples[y*f.Width+x]
}

// Len returns the number of samples.
func (f *Field) Len() int {
	return len(f.Samples)
}

// Values copies one component of every sample into a float64 slice in
// field order.
func (f *Field) Values(c Component) []float64 {
	out := make([]float64, len(f.Samples))
	for i, s := range f.Samples {
		out[i] = float64(s.Pick(c))
	}
	return out
}

// Pick returns the requested component of s.
func (s Sample) Pick(c Component) float32 {
	switch c {
	case ComponentS1:
		return s.S1
	case ComponentS2:
		return s.S2
	default:
		return s.S0
	}
}

// BuildField walks frame with sampler and computes one Sample per cell.
// Dimensions are half the frame's even bounds.
func BuildField(frame *l2mosaic.RawFrame, sampler *l2mosaic.Sampler) *Field {
	cols, rows := frame.CellBounds()
	field := NewField(cols, rows)
	for cell := range sampler.Cells(frame) {
		field.Samples[cell.Row*cols+cell.Col] = Compute(NormalizeQuad(cell.Quad))
	}
	return field
}
