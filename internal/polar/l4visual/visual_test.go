package l4visual_test

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/polarview/internal/polar/l2mosaic"
	"github.com/banshee-data/polarview/internal/polar/l3stokes"
	"github.com/banshee-data/polarview/internal/polar/l4visual"
	"github.com/banshee-data/polarview/internal/testutil"
)

func buildField(t *testing.T, width, height int, pix []uint8) *l3stokes.Field {
	t.Helper()
	frame, err := l2mosaic.NewRawFrame(width, height, pix)
	require.NoError(t, err)
	return l3stokes.BuildField(frame, l2mosaic.NewSampler(l2mosaic.DefaultLayout()))
}

func TestIntensityPolicyByte(t *testing.T) {
	p := l4visual.DefaultIntensityPolicy()
	require.NoError(t, p.Validate())

	tests := []struct {
		s0   float32
		want uint8
	}{
		{0, 0},
		{2, 255},
		{1, 128}, // 127.5 rounds half away from zero
		{-0.1, 0},
		{2.5, 255},
		{1.019608, 130},
		{0.666667, 85},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.Byte(tt.s0), "s0=%v", tt.s0)
	}
}

func TestIntensityPolicyValidate(t *testing.T) {
	assert.Error(t, l4visual.IntensityPolicy{Scale: 0}.Validate())
	assert.Error(t, l4visual.IntensityPolicy{Scale: -1}.Validate())
	assert.NoError(t, l4visual.IntensityPolicy{Scale: 255}.Validate())
}

func TestIntensityBufferScenario(t *testing.T) {
	field := buildField(t, testutil.ScenarioWidth, testutil.ScenarioHeight, testutil.ScenarioPix())
	buf := l4visual.IntensityBuffer(field, l4visual.DefaultIntensityPolicy())

	require.Equal(t, 2, buf.Width)
	require.Equal(t, 2, buf.Height)
	assert.Equal(t, []uint8{130, 85, 130, 85}, buf.Pix)
	assert.Equal(t, uint8(85), buf.At(1, 1))
}

func TestIntensityBufferUniformFullScale(t *testing.T) {
	field := buildField(t, 4, 4, testutil.UniformPix(4, 4, 255))
	buf := l4visual.IntensityBuffer(field, l4visual.DefaultIntensityPolicy())
	for _, v := range buf.Pix {
		assert.Equal(t, uint8(255), v)
	}
}

func TestUpscaleNearestNeighbour(t *testing.T) {
	buf := &l4visual.Buffer{Width: 2, Height: 1, Pix: []uint8{10, 200}}

	img := buf.Upscale(3)
	require.Equal(t, 6, img.Rect.Dx())
	require.Equal(t, 3, img.Rect.Dy())
	for y := 0; y < 3; y++ {
		for x := 0; x < 6; x++ {
			want := uint8(10)
			if x >= 3 {
				want = 200
			}
			assert.Equal(t, want, img.GrayAt(x, y).Y, "pixel (%d,%d)", x, y)
		}
	}

	same := buf.Upscale(0)
	assert.Equal(t, buf.Pix, same.Pix)
	same.Pix[0] = 99
	assert.Equal(t, uint8(10), buf.Pix[0], "Upscale must copy")
}

func TestEncodePNG(t *testing.T) {
	buf := &l4visual.Buffer{Width: 2, Height: 2, Pix: []uint8{0, 64, 128, 255}}

	data, err := buf.EncodePNG(2)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 4, img.Bounds().Dx())

	_, err = (&l4visual.Buffer{}).EncodePNG(1)
	assert.Error(t, err)
}

func TestHistogram(t *testing.T) {
	field := buildField(t, testutil.ScenarioWidth, testutil.ScenarioHeight, testutil.ScenarioPix())

	counts, edges := l4visual.Histogram(field, l3stokes.ComponentS0, 4)
	require.Len(t, counts, 4)
	require.Len(t, edges, 5)
	assert.Equal(t, 0.0, edges[0])
	assert.Equal(t, 2.0, edges[4])
	// s0 ≈ 0.667 (bin 1) and ≈ 1.020 (bin 2), two cells each.
	assert.Equal(t, []float64{0, 2, 2, 0}, counts)

	full := buildField(t, 2, 2, testutil.UniformPix(2, 2, 255))
	counts, _ = l4visual.Histogram(full, l3stokes.ComponentS0, 4)
	assert.Equal(t, []float64{0, 0, 0, 1}, counts, "s0=2 belongs to the last bin")
}

func TestRenderHeatmap(t *testing.T) {
	field := buildField(t, 16, 12, testutil.GradientPix(16, 12))

	data, err := l4visual.RenderHeatmap(field, l3stokes.ComponentS1, "gradient")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)

	_, err = l4visual.RenderHeatmap(l3stokes.NewField(0, 0), l3stokes.ComponentS1, "empty")
	assert.Error(t, err)
}

func TestRenderReport(t *testing.T) {
	field := buildField(t, testutil.ScenarioWidth, testutil.ScenarioHeight, testutil.ScenarioPix())

	html, err := l4visual.RenderReport(field, l4visual.ReportInfo{Title: "scenario", Subtitle: "4x4"})
	require.NoError(t, err)

	out := string(html)
	assert.True(t, strings.Contains(out, "s0 histogram"))
	assert.True(t, strings.Contains(out, "s2 histogram"))
}
