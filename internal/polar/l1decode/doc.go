// Package l1decode owns Layer 1 (Decode) of the polarimetry data model.
//
// Responsibilities: reading a source file, decoding any registered image
// container, and projecting the result losslessly onto 8-bit greyscale.
// Failures are classified as IO, Decode, Format or Dimension errors.
// Key types: Decoder, Error, Kind.
//
// Dependency rule: L1 depends only on L2 for the RawFrame it produces.
package l1decode
