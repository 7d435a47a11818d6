package testutil

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/banshee-data/polarview/internal/fsutil"
)

func TestScenarioPixShape(t *testing.T) {
	t.Parallel()

	pix := ScenarioPix()
	if len(pix) != ScenarioWidth*ScenarioHeight {
		t.Fatalf("len(ScenarioPix()) = %d, want %d", len(pix), ScenarioWidth*ScenarioHeight)
	}
	if pix[0] != 100 || pix[5] != 160 {
		t.Errorf("unexpected scenario values: pix[0]=%d pix[5]=%d", pix[0], pix[5])
	}
}

func TestUniformAndGradientPix(t *testing.T) {
	t.Parallel()

	for i, v := range UniformPix(3, 2, 42) {
		if v != 42 {
			t.Fatalf("UniformPix[%d] = %d, want 42", i, v)
		}
	}

	g := GradientPix(4, 4)
	if g[0] == g[1] || g[0] == g[4] {
		t.Errorf("GradientPix neighbours should differ: %v", g[:5])
	}
}

func TestWriteGrayPNGRoundTrip(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	WriteGrayPNG(t, fsys, "/frames/a.png", 4, 4, ScenarioPix())

	data, err := fsys.ReadFile("/frames/a.png")
	AssertNoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	AssertNoError(t, err)
	if got := img.Bounds().Dx(); got != 4 {
		t.Errorf("decoded width = %d, want 4", got)
	}
}

func TestWriteColorPNG(t *testing.T) {
	t.Parallel()

	fsys := fsutil.NewMemoryFileSystem()
	WriteColorPNG(t, fsys, "/frames/c.png")
	if !fsys.Exists("/frames/c.png") {
		t.Fatal("color fixture not written")
	}
}

func TestAssertNoError(t *testing.T) {
	t.Parallel()
	AssertNoError(t, nil)
}
