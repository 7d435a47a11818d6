package l3stokes

import (
	"math"

	"github.com/banshee-data/polarview/internal/polar/l2mosaic"
)

// Normalize maps an 8-bit sample onto [0,1].
func Normalize(v uint8) float32 {
	return float32(v) / math.MaxUint8
}

// NormalizedQuad is a Quad mapped onto the unit interval.
type NormalizedQuad struct {
	N000 float32
	N045 float32
	N090 float32
	N135 float32
}

// NormalizeQuad normalises all four samples of q.
func NormalizeQuad(q l2mosaic.Quad) NormalizedQuad {
	return NormalizedQuad{
		N000: Normalize(q.I000),
		N045: Normalize(q.I045),
		N090: Normalize(q.I090),
		N135: Normalize(q.I135),
	}
}

// Sample holds the linear Stokes parameters of one mosaic cell.
//
// For unit-interval inputs S0 is in [0,2] and S1, S2 are in [-1,1].
type Sample struct {
	S0 float32 // total intensity over the 0°/90° pair
	S1 float32 // 0° minus 90°
	S2 float32 // 45° minus 135°
}

// Compute combines a normalised quad into a Sample. The sign convention
// (0° minus 90°, 45° minus 135°) is fixed; angle-of-polarization readers
// downstream depend on it.
func Compute(n NormalizedQuad) Sample {
	return Sample{
		S0: n.N000 + n.N090,
		S1: n.N000 - n.N090,
		S2: n.N045 - n.N135,
	}
}
