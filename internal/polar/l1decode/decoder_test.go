package l1decode_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/banshee-data/polarview/internal/fsutil"
	"github.com/banshee-data/polarview/internal/polar/l1decode"
	"github.com/banshee-data/polarview/internal/testutil"
)

func TestDecodeGrayPNG(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	testutil.WriteGrayPNG(t, fsys, "/in/scenario.png", 4, 4, testutil.ScenarioPix())

	d, err := l1decode.NewDecoder(fsys, false).Decode("/in/scenario.png")
	require.NoError(t, err)

	assert.Equal(t, "png", d.Format)
	assert.Equal(t, 4, d.Frame.Width)
	assert.Equal(t, 4, d.Frame.Height)
	assert.Equal(t, testutil.ScenarioPix(), d.Frame.Pix)
}

func TestDecodeTIFFAndBMP(t *testing.T) {
	img := testutil.GrayImage(6, 4, testutil.GradientPix(6, 4))

	var tiffBuf, bmpBuf bytes.Buffer
	require.NoError(t, tiff.Encode(&tiffBuf, img, nil))
	require.NoError(t, bmp.Encode(&bmpBuf, img))

	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/in/a.tiff", tiffBuf.Bytes(), 0644))
	require.NoError(t, fsys.WriteFile("/in/a.bmp", bmpBuf.Bytes(), 0644))

	dec := l1decode.NewDecoder(fsys, false)
	for path, format := range map[string]string{"/in/a.tiff": "tiff", "/in/a.bmp": "bmp"} {
		d, err := dec.Decode(path)
		require.NoError(t, err, path)
		assert.Equal(t, format, d.Format)
		assert.Equal(t, testutil.GradientPix(6, 4), d.Frame.Pix, path)
	}
}

func TestDecodeMissingFileIsIO(t *testing.T) {
	_, err := l1decode.NewDecoder(fsutil.NewMemoryFileSystem(), false).Decode("/nope.png")

	require.Error(t, err)
	assert.True(t, errors.Is(err, l1decode.ErrIO))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Equal(t, l1decode.KindIO, l1decode.KindOf(err))
}

func TestDecodeUnreadableFileIsIO(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	testutil.WriteGrayPNG(t, fsys, "/in/locked.png", 2, 2, testutil.UniformPix(2, 2, 9))
	fsys.FailReads("/in/locked.png", fs.ErrPermission)

	_, err := l1decode.NewDecoder(fsys, false).Decode("/in/locked.png")
	assert.True(t, errors.Is(err, l1decode.ErrIO))
	assert.False(t, errors.Is(err, l1decode.ErrDecode))
}

func TestDecodeGarbageIsDecodeError(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/in/junk.png", []byte("definitely not an image"), 0644))

	_, err := l1decode.NewDecoder(fsys, false).Decode("/in/junk.png")
	assert.True(t, errors.Is(err, l1decode.ErrDecode))
	assert.Equal(t, l1decode.KindDecode, l1decode.KindOf(err))
	assert.Contains(t, err.Error(), "/in/junk.png")
}

func TestDecodeColourIsFormatError(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	testutil.WriteColorPNG(t, fsys, "/in/colour.png")

	_, err := l1decode.NewDecoder(fsys, false).Decode("/in/colour.png")
	assert.True(t, errors.Is(err, l1decode.ErrFormat))
}

func TestDecodeStrictDimensions(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	testutil.WriteGrayPNG(t, fsys, "/in/tiny.png", 1, 3, []uint8{1, 2, 3})

	_, err := l1decode.NewDecoder(fsys, true).Decode("/in/tiny.png")
	assert.True(t, errors.Is(err, l1decode.ErrDimension))

	d, err := l1decode.NewDecoder(fsys, false).Decode("/in/tiny.png")
	require.NoError(t, err)
	assert.Equal(t, 1, d.Frame.Width)
}

// hugePNG returns a valid PNG header declaring width×height over a tiny
// 4×4 payload.
func hugePNG(t *testing.T, width, height uint32) []byte {
	t.Helper()
	data := testutil.EncodePNG(t, testutil.GrayImage(4, 4, testutil.UniformPix(4, 4, 9)))
	// 8-byte signature, then IHDR: length, type, width, height, ..., CRC.
	binary.BigEndian.PutUint32(data[16:20], width)
	binary.BigEndian.PutUint32(data[20:24], height)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestDecodeRejectsOversizedImage(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("/in/bomb.png", hugePNG(t, 100000, 100000), 0644))

	for _, strict := range []bool{false, true} {
		_, err := l1decode.NewDecoder(fsys, strict).Decode("/in/bomb.png")
		require.Error(t, err)
		assert.True(t, errors.Is(err, l1decode.ErrDimension), "strict=%v: %v", strict, err)
		assert.Contains(t, err.Error(), "100000x100000")
	}
}

func TestToGrayProjection(t *testing.T) {
	t.Run("sub-image gray is repacked", func(t *testing.T) {
		src := testutil.GrayImage(4, 4, testutil.ScenarioPix())
		sub := src.SubImage(image.Rect(2, 0, 4, 2)).(*image.Gray)

		g, err := l1decode.ToGray(sub)
		require.NoError(t, err)
		assert.Equal(t, []uint8{50, 150, 40, 120}, g.Pix)
		assert.Equal(t, image.Rect(0, 0, 2, 2), g.Rect)
	})

	t.Run("neutral opaque rgba", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
		src.Set(0, 0, color.NRGBA{R: 7, G: 7, B: 7, A: 255})
		src.Set(1, 0, color.NRGBA{R: 250, G: 250, B: 250, A: 255})

		g, err := l1decode.ToGray(src)
		require.NoError(t, err)
		assert.Equal(t, []uint8{7, 250}, g.Pix)
	})

	t.Run("alpha rejected", func(t *testing.T) {
		src := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		src.Set(0, 0, color.NRGBA{R: 7, G: 7, B: 7, A: 128})

		_, err := l1decode.ToGray(src)
		assert.Error(t, err)
	})

	t.Run("gray16 exact", func(t *testing.T) {
		src := image.NewGray16(image.Rect(0, 0, 2, 1))
		src.SetGray16(0, 0, color.Gray16{Y: 0x0101 * 3})
		src.SetGray16(1, 0, color.Gray16{Y: 0xffff})

		g, err := l1decode.ToGray(src)
		require.NoError(t, err)
		assert.Equal(t, []uint8{3, 255}, g.Pix)
	})

	t.Run("gray16 lossy rejected", func(t *testing.T) {
		src := image.NewGray16(image.Rect(0, 0, 1, 1))
		src.SetGray16(0, 0, color.Gray16{Y: 1000})

		_, err := l1decode.ToGray(src)
		assert.Error(t, err)
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "io", l1decode.KindIO.String())
	assert.Equal(t, "format", l1decode.KindFormat.String())
	assert.Equal(t, l1decode.Kind(0), l1decode.KindOf(errors.New("plain")))
}
