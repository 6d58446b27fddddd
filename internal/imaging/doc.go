// Package imaging connects decoded image files to region detection.
//
// It loads and caches images, converts them into label images that the
// region package can segment, resolves regions of interest, and renders
// results back into viewable PNGs (crops and annotated overlays). It also
// reports the source colors under a region (RegionColors, SampleColor). All
// rendered images are returned base64 encoded so they can be embedded in
// JSON tool results.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For rectangles, Min is inclusive (top-left) and Max is exclusive
//     (bottom-right)
//
// Label images always start at (0, 0), even if the source image bounds do
// not.
//
// # Label Modes
//
// Region detection compares pixel values for equality, so color images are
// quantized first (see LabelOptions):
//   - threshold: global luminance cut (bild)
//   - gray: equal luminance bands (disintegration/imaging)
//   - sauvola: locally adaptive binarization for uneven lighting
//   - palette: nearest color of a user palette in CIE-Lab (go-colorful)
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Label images handed out by the cache
// share their pixel buffer and must be treated as read-only; their ROI may be
// changed freely.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Regions outside image bounds or with x1 >= x2 or y1 >= y2
//   - Unknown region names or label modes
//   - File I/O errors during image loading
//   - Encoding errors during image output
package imaging
