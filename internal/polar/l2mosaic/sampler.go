package l2mosaic

import "iter"

// Quad holds the four polarizer-angle samples of one mosaic cell.
type Quad struct {
	I000 uint8
	I045 uint8
	I090 uint8
	I135 uint8
}

// Cell is a Quad tagged with its position in cell coordinates
// (raw row/column divided by two).
type Cell struct {
	Row int
	Col int
	Quad
}

// Sampler walks a RawFrame in 2×2 strides.
type Sampler struct {
	layout Layout
}

// NewSampler returns a Sampler reading cells with the given layout.
func NewSampler(layout Layout) *Sampler {
	return &Sampler{layout: layout}
}

// Count returns the number of cells Cells will yield for f.
func (s *Sampler) Count(f *RawFrame) int {
	cols, rows := f.CellBounds()
	return cols * rows
}

// Cells yields one Cell per super-pixel, row-major, over the even bounds
// of f. The sequence is lazy and may be ranged over more than once.
// It is empty when f is smaller than 2×2.
func (s *Sampler) Cells(f *RawFrame) iter.Seq[Cell] {
	l := s.layout
	return func(yield func(Cell) bool) {
		w, h := f.EvenBounds()
		for row := 0; row < h; row += 2 {
			for col := 0; col < w; col += 2 {
				c := Cell{
					Row: row / 2,
					Col: col / 2,
					Quad: Quad{
						I000: f.At(col+l.I000.DX, row+l.I000.DY),
						I045: f.At(col+l.I045.DX, row+l.I045.DY),
						I090: f.At(col+l.I090.DX, row+l.I090.DY),
						I135: f.At(col+l.I135.DX, row+l.I135.DY),
					},
				}
				if !yield(c) {
					return
				}
			}
		}
	}
}
