package region

import (
	"fmt"
	"image"
)

// NoRegion marks a LineSegment that has not been assigned to a region yet.
const NoRegion = -1

// LineSegment is a maximal horizontal run of equal-valued pixels in one row.
//
// The run covers columns [XStart, XEnd). Region is a weak back-reference into
// the Grower's region table; it never owns the region.
type LineSegment struct {
	XStart int   `json:"x_start"` // First column (inclusive)
	XEnd   int   `json:"x_end"`   // One past the last column (exclusive)
	Row    int   `json:"row"`     // Row index
	Value  int32 `json:"value"`   // Shared pixel value
	Region int   `json:"-"`       // Region id, NoRegion until grown
}

// Len returns the number of pixels covered by the segment.
func (s LineSegment) Len() int {
	return s.XEnd - s.XStart
}

// overlaps reports whether s and o share at least one column.
func (s LineSegment) overlaps(o LineSegment) bool {
	return s.XStart < o.XEnd && o.XStart < s.XEnd
}

func (s LineSegment) String() string {
	return fmt.Sprintf("[%d,%d)@%d=%d", s.XStart, s.XEnd, s.Row, s.Value)
}

// EncodeRow run-length encodes a single row and appends the segments to dst.
//
// Parameters:
//   - row: The pixel values of the row.
//   - y: The row index stored in every produced segment.
//   - dst: Destination slice; pass dst[:0] to reuse its storage.
//
// The returned segments cover [0, len(row)) exactly once, in strictly
// increasing XStart order, with adjacent equal values merged.
func EncodeRow(row []int32, y int, dst []LineSegment) []LineSegment {
	if len(row) == 0 {
		return dst
	}
	start := 0
	cur := row[0]
	for x := 1; x < len(row); x++ {
		if row[x] != cur {
			dst = append(dst, LineSegment{XStart: start, XEnd: x, Row: y, Value: cur, Region: NoRegion})
			start = x
			cur = row[x]
		}
	}
	return append(dst, LineSegment{XStart: start, XEnd: len(row), Row: y, Value: cur, Region: NoRegion})
}

// Encoder run-length encodes the ROI of an image row by row.
//
// The encoder owns a segment buffer with room for ROI width x ROI height
// segments (the worst case of one segment per pixel). The buffer is reused
// by subsequent Encode calls and only reallocated when the ROI size changes.
//
// Returned coordinates are relative to the ROI: XStart and XEnd are offset by
// ROI.Min.X and Row by ROI.Min.Y. Callers needing image coordinates add
// Offset().
type Encoder struct {
	buf    []LineSegment
	ends   []int
	width  int
	height int
	offset image.Point
}

// NewEncoder returns an encoder with an empty buffer.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode run-length encodes every row of img's ROI.
func (e *Encoder) Encode(img *Image) {
	roi := img.ROI
	w, h := roi.Dx(), roi.Dy()
	if w <= 0 || h <= 0 {
		w, h = 0, 0
	}
	if w != e.width || h != e.height {
		e.buf = make([]LineSegment, w*h)
		e.ends = make([]int, h)
		e.width, e.height = w, h
	}
	e.offset = roi.Min

	for y := 0; y < h; y++ {
		off := (roi.Min.Y+y)*img.Stride + roi.Min.X
		row := img.Pix[off : off+w]
		base := y * w
		segs := EncodeRow(row, y, e.buf[base:base])
		e.ends[y] = base + len(segs)
	}
}

// Rows returns the number of encoded rows.
func (e *Encoder) Rows() int {
	return e.height
}

// Row returns the segments of ROI row y. The slice aliases the encoder's
// buffer and is overwritten by the next Encode call.
func (e *Encoder) Row(y int) []LineSegment {
	base := y * e.width
	return e.buf[base:e.ends[y]]
}

// Offset returns the ROI origin of the last encoded image.
func (e *Encoder) Offset() image.Point {
	return e.offset
}

// Segments returns the total number of segments of the last Encode call.
func (e *Encoder) Segments() int {
	n := 0
	for y := 0; y < e.height; y++ {
		n += e.ends[y] - y*e.width
	}
	return n
}
