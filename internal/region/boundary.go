package region

import (
	"image"
	"math"
)

// Direction tables for 4-neighbour boundary tracing, indexed twice around so
// a search may run up to three steps past the last direction.
//
//	  3
//	2 c 0      index 0 = up, 1 = right, 2 = down, 3 = left
//	  1
var (
	traceDX   = [8]int{0, 1, 0, -1, 0, 1, 0, -1}
	traceDY   = [8]int{-1, 0, 1, 0, -1, 0, 1, 0}
	traceJump = [8]int{3, 0, 1, 2, 3, 0, 1, 2}
)

// Segment lengths of the three boundary gradient types (0°, 26.57°, 45°).
var boundarySegmentLength = [3]float64{
	1,
	1 / math.Cos(math.Atan(0.5)),
	1 / math.Cos(math.Atan(1)),
}

// mask is a bounding-box sized membership bitmap of a region.
type mask struct {
	box  image.Rectangle
	bits []bool
}

func newMask(r *Region) *mask {
	m := &mask{box: r.bbox, bits: make([]bool, r.bbox.Dx()*r.bbox.Dy())}
	w := r.bbox.Dx()
	for _, s := range r.segs {
		off := (s.Row-r.bbox.Min.Y)*w - r.bbox.Min.X
		for x := s.XStart; x < s.XEnd; x++ {
			m.bits[off+x] = true
		}
	}
	return m
}

func (m *mask) has(x, y int) bool {
	if x < m.box.Min.X || x >= m.box.Max.X || y < m.box.Min.Y || y >= m.box.Max.Y {
		return false
	}
	return m.bits[(y-m.box.Min.Y)*m.box.Dx()+x-m.box.Min.X]
}

// Boundary returns the outer contour of the region as a closed chain of
// member pixels, starting at UpperLeftPixel.
//
// The contour is traced by following the region border through 4-neighbours:
// from the current pixel the directions are tried clockwise starting left
// of the direction of arrival, and the first member pixel becomes the next
// contour pixel. Tracing stops when the second contour pixel is entered again
// in the same direction. Holes are not traced.
func (r *Region) Boundary() []image.Point {
	if r.boundary != nil {
		return r.boundary
	}
	r.boundary = traceBoundary(r)
	return r.boundary
}

func traceBoundary(r *Region) []image.Point {
	if r.Size() == 0 {
		return []image.Point{}
	}
	start := r.UpperLeftPixel()
	if r.Size() == 1 {
		return []image.Point{start}
	}
	m := newMask(r)

	// step searches from (x, y) starting at direction dir and returns the
	// first member neighbour and the direction to continue with.
	step := func(x, y, dir int) (int, int, int) {
		for {
			cx, cy := x+traceDX[dir], y+traceDY[dir]
			dir++
			if m.has(cx, cy) {
				return cx, cy, traceJump[dir-1]
			}
		}
	}

	pts := []image.Point{start}
	x, y, dir := step(start.X, start.Y, 0)
	bx, by, bdir := x, y, dir
	for {
		pts = append(pts, image.Point{X: x, Y: y})
		x, y, dir = step(x, y, dir)
		if x == bx && y == by && dir == bdir {
			break
		}
	}
	return pts[:len(pts)-1]
}

// ThinnedBoundary returns the boundary with redundant pixels removed: a
// contour pixel is dropped when its successor is still 8-adjacent to its
// predecessor, which turns staircases into diagonal steps.
func (r *Region) ThinnedBoundary() []image.Point {
	if r.thinned != nil {
		return r.thinned
	}
	r.thinned = thinBoundary(r.Boundary())
	return r.thinned
}

func thinBoundary(b []image.Point) []image.Point {
	n := len(b)
	if n < 3 {
		return append([]image.Point(nil), b...)
	}

	last := b[0]
	thinned := []image.Point{last}
	for i := 2; i < n; i += 2 {
		if !adjacent8(b[i], last) {
			i--
		}
		last = b[i]
		thinned = append(thinned, last)
	}
	if !adjacent8(thinned[0], last) {
		thinned = append(thinned, b[n-1])
	}
	return thinned
}

func adjacent8(a, b image.Point) bool {
	dx, dy := a.X-b.X, a.Y-b.Y
	return dx >= -1 && dx <= 1 && dy >= -1 && dy <= 1
}

// BoundaryLength estimates the contour length from the thinned boundary.
//
// Every contour pixel is classified by how many of its two contour
// neighbours are diagonal (0, 1 or 2), which corresponds to local gradients
// of 0°, 26.57° and 45°. The length is the sum of the matching segment
// lengths. Contours of fewer than two pixels have length equal to their
// pixel count.
func (r *Region) BoundaryLength() float64 {
	if r.hasLen {
		return r.boundaryLen
	}
	r.boundaryLen = boundaryLength(r.ThinnedBoundary())
	r.hasLen = true
	return r.boundaryLen
}

func boundaryLength(b []image.Point) float64 {
	if len(b) < 2 {
		return float64(len(b))
	}

	var grad [3]int
	pre := b[len(b)-2]
	cur := b[len(b)-1]
	post := b[0]
	for i := range b {
		t := 0
		if pre.X != cur.X && pre.Y != cur.Y {
			t++
		}
		if post.X != cur.X && post.Y != cur.Y {
			t++
		}
		grad[t]++

		pre = cur
		cur = post
		post = b[i]
	}
	return boundarySegmentLength[0]*float64(grad[0]) +
		boundarySegmentLength[1]*float64(grad[1]) +
		boundarySegmentLength[2]*float64(grad[2])
}
