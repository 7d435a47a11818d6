package l2mosaic

import "fmt"

// Offset is a sub-pixel position inside a 2×2 mosaic cell.
type Offset struct {
	DX int
	DY int
}

// Layout assigns each polarizer angle to its sub-pixel offset.
//
// The polarizer pattern on the sensor is:
//
//	+-----+-----+-----
//	| 090 | 135 | 090
//	+-----+-----+-----
//	| 045 | 000 | 045
//	+-----+-----+-----
//	| 090 | 135 | ...
type Layout struct {
	I000 Offset
	I045 Offset
	I090 Offset
	I135 Offset
}

// DefaultLayout returns the layout of the supported polarization sensor.
// A camera with a different pattern needs a different Layout value, not
// new code.
func DefaultLayout() Layout {
	return Layout{
		I000: Offset{DX: 1, DY: 1},
		I045: Offset{DX: 0, DY: 1},
		I090: Offset{DX: 0, DY: 0},
		I135: Offset{DX: 1, DY: 0},
	}
}

// Validate checks that all four offsets lie inside the cell and that no
// two angles share a sub-pixel.
func (l Layout) Validate() error {
	seen := make(map[Offset]string, 4)
	for _, entry := range []struct {
		name string
		off  Offset
	}{
		{"000", l.I000},
		{"045", l.I045},
		{"090", l.I090},
		{"135", l.I135},
	} {
		if entry.off.DX < 0 || entry.off.DX > 1 || entry.off.DY < 0 || entry.off.DY > 1 {
			return fmt.Errorf("layout offset for %s° out of cell: (%d,%d)", entry.name, entry.off.DX, entry.off.DY)
		}
		if other, dup := seen[entry.off]; dup {
			return fmt.Errorf("layout offsets for %s° and %s° collide at (%d,%d)",
				other, entry.name, entry.off.DX, entry.off.DY)
		}
		seen[entry.off] = entry.name
	}
	return nil
}
