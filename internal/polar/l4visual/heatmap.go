package l4visual

import (
	"bytes"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/polarview/internal/polar/l3stokes"
)

// componentGrid adapts one Stokes component to plotter.GridXYZ. Rows are
// flipped so cell row 0 is drawn at the top, as in the source image.
type componentGrid struct {
	field *l3stokes.Field
	comp  l3stokes.Component
}

func (g componentGrid) Dims() (c, r int)   { return g.field.Width, g.field.Height }
func (g componentGrid) X(c int) float64    { return float64(c) }
func (g componentGrid) Y(r int) float64    { return float64(r) }
func (g componentGrid) Z(c, r int) float64 { return float64(g.field.At(c, g.field.Height-1-r).Pick(g.comp)) }

// componentRange returns the fixed colour range for c.
func componentRange(c l3stokes.Component) (lo, hi float64) {
	if c == l3stokes.ComponentS0 {
		return 0, 2
	}
	return -1, 1
}

// RenderHeatmap draws one Stokes component as a PNG heatmap. S1 and S2 use
// a diverging blue-red map over [-1,1]; S0 uses [0,2].
func RenderHeatmap(field *l3stokes.Field, comp l3stokes.Component, title string) ([]byte, error) {
	if field.Width == 0 || field.Height == 0 {
		return nil, fmt.Errorf("cannot plot empty %dx%d field", field.Width, field.Height)
	}

	lo, hi := componentRange(comp)
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(lo)
	cmap.SetMax(hi)

	hm := plotter.NewHeatMap(componentGrid{field: field, comp: comp}, cmap.Palette(255))
	hm.Min = lo
	hm.Max = hi

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%s)", title, comp)
	p.X.Label.Text = "cell column"
	p.Y.Label.Text = "cell row (flipped)"
	p.Add(hm)

	width := 6 * vg.Inch
	height := width * vg.Length(field.Height) / vg.Length(field.Width)
	if height < 2*vg.Inch {
		height = 2 * vg.Inch
	}
	if height > 12*vg.Inch {
		height = 12 * vg.Inch
	}

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create %s heatmap writer: %w", comp, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render %s heatmap: %w", comp, err)
	}
	return buf.Bytes(), nil
}
