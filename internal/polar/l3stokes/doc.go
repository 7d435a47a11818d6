// Package l3stokes owns Layer 3 (Stokes) of the polarimetry data model.
//
// Responsibilities: normalising 8-bit mosaic samples, combining each cell
// into linear Stokes parameters, and assembling the per-cell field.
// Key types: Sample, Field, FieldStats.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4+.
package l3stokes
