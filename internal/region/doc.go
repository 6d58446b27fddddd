// Package region implements run-length based connected component labelling.
//
// The package turns a label image (one signed 32-bit value per pixel) into a
// set of connected regions in three steps:
//
//  1. Encoding: every row of the image is run-length encoded into maximal
//     LineSegments of equal value (Encoder, EncodeRow).
//  2. Growing: rows of segments are consumed top to bottom. A segment joins a
//     region of the previous row if both share the same value and their
//     column ranges overlap by at least one column (Grower).
//  3. Summarizing: finished regions report pixel count, center of gravity,
//     bounding box, boundary, form factor and principal axes (Region).
//
// Detector bundles the three steps, filters the result by value and size and
// answers point queries on the last detection. With CreateGraph set it also
// records which regions touch and which region encloses which
// (Region.Neighbours, Region.Parent, Region.SubRegions).
//
// # Coordinate System
//
// Pixel (x, y) covers the unit square [x, x+1) x [y, y+1). Statistics are
// computed over pixel centers (x+0.5, y+0.5), so a 2x2 block at columns and
// rows 1..2 has its center of gravity at (2, 2) and the bounding box
// (1,1)-(3,3). Bounding boxes use inclusive minimum and exclusive maximum.
//
// # Connectivity
//
// Regions are 4-connected: vertically neighbouring segments must share a
// column. Two squares touching only at a corner are separate regions.
//
// # Contract Violations
//
// Malformed input (a segment with XStart >= XEnd, rows that do not increase)
// is a programming error and panics. All other degenerate input, such as an
// empty ROI, yields empty results.
//
// # Thread Safety
//
// Encoder, Grower and Detector own reusable buffers and are not safe for
// concurrent use. Finished Regions are read-only apart from lazily cached
// summaries and should not be shared between goroutines without
// synchronization.
package region
