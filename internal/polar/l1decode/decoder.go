package l1decode

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	// Registered containers. Polarization cameras commonly export TIFF or
	// PNG; the rest come for free from the same decoder registry.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/banshee-data/polarview/internal/fsutil"
	"github.com/banshee-data/polarview/internal/polar/l2mosaic"
)

// MaxPixels caps the declared size of a source image. Anything larger fails
// with KindDimension before pixel data is allocated.
const MaxPixels = 1 << 27

// Decoder turns source paths into RawFrames.
type Decoder struct {
	fs     fsutil.FileSystem
	strict bool
}

// NewDecoder returns a Decoder reading through fsys. In strict mode
// images smaller than 2×2 fail with KindDimension; otherwise they decode
// to a frame that yields no cells.
func NewDecoder(fsys fsutil.FileSystem, strict bool) *Decoder {
	return &Decoder{fs: fsys, strict: strict}
}

// Read loads the raw bytes of path. Any failure is KindIO.
func (d *Decoder) Read(path string) ([]byte, error) {
	data, err := d.fs.ReadFile(path)
	if err != nil {
		return nil, newError(KindIO, path, err)
	}
	return data, nil
}

// Decoded is a decoded source frame.
type Decoded struct {
	Frame  *l2mosaic.RawFrame
	Format string // registered container name, e.g. "png", "tiff"
}

// DecodeBytes decodes data previously read from path.
func (d *Decoder) DecodeBytes(path string, data []byte) (*Decoded, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, newError(KindDecode, path, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, newError(KindDimension, path,
			fmt.Errorf("image is %dx%d, over the %d pixel limit", cfg.Width, cfg.Height, MaxPixels))
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, newError(KindDecode, path, err)
	}

	gray, err := ToGray(img)
	if err != nil {
		return nil, newError(KindFormat, path, err)
	}

	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	if d.strict && (w < 2 || h < 2) {
		return nil, newError(KindDimension, path,
			fmt.Errorf("image is %dx%d, need at least 2x2", w, h))
	}

	frame, err := l2mosaic.NewRawFrame(w, h, gray.Pix)
	if err != nil {
		return nil, newError(KindFormat, path, err)
	}
	return &Decoded{Frame: frame, Format: format}, nil
}

// Decode reads and decodes path.
func (d *Decoder) Decode(path string) (*Decoded, error) {
	data, err := d.Read(path)
	if err != nil {
		return nil, err
	}
	return d.DecodeBytes(path, data)
}

// ToGray projects img onto a tightly packed 8-bit greyscale image anchored
// at the origin. Only lossless projections are accepted: every pixel must
// be opaque, neutral (R=G=B) and exactly representable in 8 bits.
func ToGray(img image.Image) (*image.Gray, error) {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(out.Pix[y*out.Stride:(y+1)*out.Stride], row[:b.Dx()])
		}
		return out, nil

	case *image.Gray16:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				v := src.Gray16At(b.Min.X+x, b.Min.Y+y).Y
				if v%0x101 != 0 {
					return nil, fmt.Errorf("16-bit sample %d at (%d,%d) has no exact 8-bit value", v, x, y)
				}
				out.Pix[y*out.Stride+x] = uint8(v / 0x101)
			}
		}
		return out, nil
	}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v, err := neutral(img.At(b.Min.X+x, b.Min.Y+y))
			if err != nil {
				return nil, fmt.Errorf("pixel (%d,%d) in %T: %w", x, y, img, err)
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out, nil
}

func neutral(c color.Color) (uint8, error) {
	r, g, b, a := c.RGBA()
	if a != 0xffff {
		return 0, fmt.Errorf("alpha %d is not opaque", a>>8)
	}
	if r != g || g != b {
		return 0, fmt.Errorf("colour (%d,%d,%d) is not neutral grey", r>>8, g>>8, b>>8)
	}
	if r%0x101 != 0 {
		return 0, fmt.Errorf("grey level %d has no exact 8-bit value", r)
	}
	return uint8(r / 0x101), nil
}
