// Package l2mosaic owns Layer 2 (Mosaic) of the polarimetry data model.
//
// Responsibilities: the raw single-channel sensor frame, the fixed 2×2
// polarizer layout, and the super-pixel walk that yields one sample quad
// per mosaic cell.
// Key types: RawFrame, Layout, Quad, Sampler.
//
// Dependency rule: L2 may depend on L1, but never on L3+.
package l2mosaic
