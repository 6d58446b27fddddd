package region

import (
	"fmt"
	"image"
)

// Image is a single channel label image with an optional region of interest.
//
// Pix is stored row-major; the value of pixel (x, y) is Pix[y*Stride+x].
// Coordinates are 0-based with the origin at the top-left corner.
type Image struct {
	// Pix holds the pixel values. len(Pix) must be at least (Height-1)*Stride+Width.
	Pix []int32

	// Width and Height are the image dimensions in pixels.
	Width  int
	Height int

	// Stride is the distance in elements between vertically adjacent pixels.
	Stride int

	// ROI restricts encoding and boundary tracing to a sub-rectangle.
	// It is always contained in (0,0)-(Width,Height).
	ROI image.Rectangle
}

// NewImage allocates a zero-valued image of the given size with a full ROI.
// Negative dimensions are treated as zero.
func NewImage(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image{
		Pix:    make([]int32, width*height),
		Width:  width,
		Height: height,
		Stride: width,
		ROI:    image.Rect(0, 0, width, height),
	}
}

// FromRows builds an image from literal rows. All rows must have the same
// length.
func FromRows(rows ...[]int32) (*Image, error) {
	if len(rows) == 0 {
		return NewImage(0, 0), nil
	}
	img := NewImage(len(rows[0]), len(rows))
	for y, row := range rows {
		if len(row) != img.Width {
			return nil, fmt.Errorf("row %d has %d values, want %d", y, len(row), img.Width)
		}
		copy(img.Row(y), row)
	}
	return img, nil
}

// Bounds returns the full image rectangle.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// At returns the value at (x, y). No bounds checking is performed.
func (m *Image) At(x, y int) int32 {
	return m.Pix[y*m.Stride+x]
}

// Set stores v at (x, y). No bounds checking is performed.
func (m *Image) Set(x, y int, v int32) {
	m.Pix[y*m.Stride+x] = v
}

// Row returns the full row y (ignoring the ROI) as a slice into Pix.
func (m *Image) Row(y int) []int32 {
	off := y * m.Stride
	return m.Pix[off : off+m.Width]
}

// SetROI sets the region of interest, clipped to the image bounds.
// A rectangle that does not intersect the image results in an empty ROI.
func (m *Image) SetROI(r image.Rectangle) {
	m.ROI = r.Intersect(m.Bounds())
}
