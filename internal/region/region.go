package region

import (
	"image"
	"math"
	"sort"
)

// Region is one finished connected component of equal-valued pixels.
//
// Regions are produced by Grower.Finish and Detector.Detect. The statistics
// passed in at construction are final; boundary and PCA results are computed
// on first use and cached.
type Region struct {
	id      int
	value   int32
	moments Moments
	bbox    image.Rectangle
	segs    []LineSegment
	roi     image.Rectangle

	neighbours []*Region
	parent     *Region
	subs       []*Region

	boundary    []image.Point
	thinned     []image.Point
	boundaryLen float64
	hasLen      bool
	pca         *PCAInfo
}

func newRegion(id int, v int32, m Moments, bbox image.Rectangle, segs []LineSegment) *Region {
	return &Region{
		id:      id,
		value:   v,
		moments: m,
		bbox:    bbox,
		segs:    segs,
	}
}

// ID returns the region id assigned by the grower.
func (r *Region) ID() int { return r.id }

// Value returns the pixel value shared by all pixels of the region.
func (r *Region) Value() int32 { return r.value }

// Size returns the number of pixels.
func (r *Region) Size() int { return int(r.moments.N) }

// Segments returns the member segments ordered by row and column. The slice
// must not be modified.
func (r *Region) Segments() []LineSegment { return r.segs }

// Moments returns the accumulated pixel-center moments.
func (r *Region) Moments() Moments { return r.moments }

// COG returns the center of gravity of the pixel centers.
func (r *Region) COG() (float64, float64) {
	return r.moments.Mean()
}

// BoundingBox returns the smallest rectangle containing every pixel.
// Max is exclusive.
func (r *Region) BoundingBox() image.Rectangle { return r.bbox }

// AtBorder reports whether the region touches the border of the ROI it was
// detected in. Regions not produced by a Detector report false.
func (r *Region) AtBorder() bool {
	if r.roi.Empty() {
		return false
	}
	b := r.bbox
	return b.Min.X <= r.roi.Min.X || b.Min.Y <= r.roi.Min.Y ||
		b.Max.X >= r.roi.Max.X || b.Max.Y >= r.roi.Max.Y
}

// Neighbours returns the regions sharing a 4-connected edge with r, ordered
// by id. It is nil unless the grower recorded the region graph.
func (r *Region) Neighbours() []*Region { return r.neighbours }

// Parent returns the region that encloses r, or nil. Parents are only
// assigned by a Detector with CreateGraph set.
func (r *Region) Parent() *Region { return r.parent }

// SubRegions returns the regions directly enclosed by r, ordered by id.
func (r *Region) SubRegions() []*Region { return r.subs }

// Contains reports whether pixel (x, y) belongs to the region.
func (r *Region) Contains(x, y int) bool {
	if !(image.Point{X: x, Y: y}).In(r.bbox) {
		return false
	}
	i := sort.Search(len(r.segs), func(i int) bool {
		s := r.segs[i]
		return s.Row > y || (s.Row == y && s.XEnd > x)
	})
	return i < len(r.segs) && r.segs[i].Row == y && r.segs[i].XStart <= x
}

// UpperLeftPixel returns the leftmost pixel of the topmost row.
func (r *Region) UpperLeftPixel() image.Point {
	if len(r.segs) == 0 {
		return image.Point{}
	}
	s := r.segs[0]
	return image.Point{X: s.XStart, Y: s.Row}
}

// Pixels returns every member pixel in row-major order.
func (r *Region) Pixels() []image.Point {
	pts := make([]image.Point, 0, r.Size())
	for _, s := range r.segs {
		for x := s.XStart; x < s.XEnd; x++ {
			pts = append(pts, image.Point{X: x, Y: s.Row})
		}
	}
	return pts
}

// DrawTo sets every member pixel of img to v. Pixels outside img are skipped.
func (r *Region) DrawTo(img *Image, v int32) {
	b := img.Bounds()
	for _, s := range r.segs {
		if s.Row < b.Min.Y || s.Row >= b.Max.Y {
			continue
		}
		x0 := max(s.XStart, b.Min.X)
		x1 := min(s.XEnd, b.Max.X)
		row := img.Row(s.Row)
		for x := x0; x < x1; x++ {
			row[x] = v
		}
	}
}

// FormFactor returns BoundaryLength² / (4π · Size).
//
// A compact blob has a form factor close to 1; elongated or ragged shapes
// score higher.
func (r *Region) FormFactor() float64 {
	u := r.BoundaryLength()
	return (u * u) / (4 * math.Pi * float64(r.Size()))
}

// PCA returns the principal axes of the raw pixel-center moments, see
// Moments.PCA.
func (r *Region) PCA() PCAInfo {
	if r.pca == nil {
		p := r.moments.PCA()
		r.pca = &p
	}
	return *r.pca
}

// CenteredPCA returns the principal axes of the pixel-center covariance, see
// Moments.CenteredPCA.
func (r *Region) CenteredPCA() PCAInfo {
	return r.moments.CenteredPCA()
}
