package region

import (
	"image"
	"log"
	"math"
	"sort"
	"time"

	"github.com/asim/quadtree"
)

// Constraints select which detected regions are reported.
//
// A region passes when MinSize <= Size() <= MaxSize and
// MinValue <= Value() <= MaxValue.
type Constraints struct {
	MinSize  int   `json:"min_size" yaml:"min_size"`
	MaxSize  int   `json:"max_size" yaml:"max_size"`
	MinValue int32 `json:"min_value" yaml:"min_value"`
	MaxValue int32 `json:"max_value" yaml:"max_value"`
}

// DefaultConstraints accepts every region of an 8-bit label image up to one
// million pixels.
func DefaultConstraints() Constraints {
	return Constraints{
		MinSize:  0,
		MaxSize:  1000000,
		MinValue: 0,
		MaxValue: 255,
	}
}

// Accept reports whether r satisfies the constraints.
func (c Constraints) Accept(r *Region) bool {
	n := r.Size()
	return n >= c.MinSize && n <= c.MaxSize &&
		r.value >= c.MinValue && r.value <= c.MaxValue
}

// Detector runs encoding, growing and filtering over whole images and keeps
// the result of the last run for point and neighbourhood queries.
//
// Example:
//
//	d := region.NewDetector(region.DefaultConstraints())
//	for _, r := range d.Detect(img) {
//	    x, y := r.COG()
//	    fmt.Printf("region %d value=%d size=%d cog=(%.1f, %.1f)\n",
//	        r.ID(), r.Value(), r.Size(), x, y)
//	}
type Detector struct {
	// Constraints filter the regions returned by Detect.
	Constraints Constraints

	// Trace logs the duration of each detection phase.
	Trace bool

	// CreateGraph records the region adjacency graph and assigns parent and
	// sub-regions, see Region.Neighbours.
	CreateGraph bool

	enc    *Encoder
	grower *Grower
	rowBuf []LineSegment

	roi      image.Rectangle
	all      []*Region
	filtered []*Region
	index    *quadtree.QuadTree
}

// NewDetector returns a detector using the given constraints.
func NewDetector(c Constraints) *Detector {
	return &Detector{
		Constraints: c,
		enc:         NewEncoder(),
		grower:      NewGrower(),
	}
}

// Detect finds all regions in the ROI of img and returns those passing the
// constraints, ordered by id.
//
// Region coordinates (segments, bounding boxes, centers) are image
// coordinates, not ROI-relative. The previous result is replaced; regions
// returned by earlier calls remain valid.
func (d *Detector) Detect(img *Image) []*Region {
	start := time.Now()
	d.enc.Encode(img)
	off := d.enc.Offset()
	encoded := time.Now()

	d.grower.Reset()
	d.grower.Graph = d.CreateGraph
	for y := 0; y < d.enc.Rows(); y++ {
		d.rowBuf = d.rowBuf[:0]
		for _, s := range d.enc.Row(y) {
			s.XStart += off.X
			s.XEnd += off.X
			s.Row += off.Y
			d.rowBuf = append(d.rowBuf, s)
		}
		d.grower.AddRow(d.rowBuf)
	}
	d.all = d.grower.Finish()
	grown := time.Now()

	d.roi = img.ROI
	for _, r := range d.all {
		r.roi = img.ROI
	}
	if d.CreateGraph {
		linkParents(d.all)
	}
	linked := time.Now()

	d.filtered = make([]*Region, 0, len(d.all))
	for _, r := range d.all {
		if d.Constraints.Accept(r) {
			d.filtered = append(d.filtered, r)
		}
	}
	d.index = nil

	if d.Trace {
		log.Printf("region: rle %v (%d segments), grow %v (%d regions), graph %v, filter %v (%d kept)",
			encoded.Sub(start), d.enc.Segments(),
			grown.Sub(encoded), len(d.all),
			linked.Sub(grown),
			time.Since(linked), len(d.filtered))
	}
	return d.filtered
}

// linkParents makes n a sub-region of r when n is a neighbour of r, does not
// touch the ROI border and is enclosed by r. Each region gets at most one
// parent, the lowest enclosing id.
func linkParents(all []*Region) {
	for _, r := range all {
		for _, n := range r.neighbours {
			if n.parent != nil || n.AtBorder() {
				continue
			}
			if len(n.neighbours) == 1 || encloses(r, n) {
				n.parent = r
				r.subs = append(r.subs, n)
			}
		}
	}
}

// encloses reports whether every region reachable from inner without
// crossing outer stays off the ROI border and inside the bounding box of
// outer.
func encloses(outer, inner *Region) bool {
	seen := map[*Region]bool{outer: true, inner: true}
	stack := []*Region{inner}
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if r.AtBorder() || !r.bbox.In(outer.bbox) {
			return false
		}
		for _, n := range r.neighbours {
			if !seen[n] {
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
	return true
}

// All returns every region of the last detection, ignoring the constraints.
func (d *Detector) All() []*Region {
	return d.all
}

// Last returns the filtered regions of the last detection.
func (d *Detector) Last() []*Region {
	return d.filtered
}

// RegionAt returns the region of the last detection containing pixel (x, y),
// or nil if the pixel lies outside the ROI. Constraints are not applied, so a
// click always hits some region inside the ROI.
func (d *Detector) RegionAt(x, y int) *Region {
	if !(image.Point{X: x, Y: y}).In(d.roi) {
		return nil
	}
	for _, r := range d.all {
		if r.Contains(x, y) {
			return r
		}
	}
	return nil
}

// Near returns the filtered regions whose center of gravity lies within
// radius of (x, y), closest first.
func (d *Detector) Near(x, y, radius float64) []*Region {
	if len(d.filtered) == 0 || radius < 0 {
		return nil
	}
	if d.index == nil {
		d.index = d.buildIndex()
	}

	box := quadtree.NewAABB(
		quadtree.NewPoint(x, y, nil),
		quadtree.NewPoint(radius, radius, nil),
	)
	var found []*Region
	for _, p := range d.index.Search(box) {
		r := p.Data().(*Region)
		if cogDistance(r, x, y) <= radius {
			found = append(found, r)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		di, dj := cogDistance(found[i], x, y), cogDistance(found[j], x, y)
		if di != dj {
			return di < dj
		}
		return found[i].id < found[j].id
	})
	return found
}

// buildIndex inserts the COG of every filtered region into a quadtree
// covering the ROI.
func (d *Detector) buildIndex() *quadtree.QuadTree {
	halfW := float64(d.roi.Dx())/2 + 1
	halfH := float64(d.roi.Dy())/2 + 1
	midX := float64(d.roi.Min.X) + float64(d.roi.Dx())/2
	midY := float64(d.roi.Min.Y) + float64(d.roi.Dy())/2
	qt := quadtree.New(quadtree.NewAABB(
		quadtree.NewPoint(midX, midY, nil),
		quadtree.NewPoint(halfW, halfH, nil),
	), 0, nil)
	for _, r := range d.filtered {
		cx, cy := r.COG()
		if !qt.Insert(quadtree.NewPoint(cx, cy, r)) {
			log.Printf("region: COG (%.2f, %.2f) of region %d outside index bounds", cx, cy, r.id)
		}
	}
	return qt
}

func cogDistance(r *Region, x, y float64) float64 {
	cx, cy := r.COG()
	return math.Hypot(cx-x, cy-y)
}
