// Package l4visual owns Layer 4 (Visual) of the polarimetry data model.
//
// Responsibilities: deriving the single-channel display buffer from S0,
// encoding it for a display sink, and rendering diagnostic artefacts
// (S1/S2 heatmaps, component histograms) from a Stokes field.
// Key types: Buffer, IntensityPolicy.
//
// Dependency rule: L4 may depend on L1-L3. Nothing here feeds back into
// polarimetric computation.
package l4visual
