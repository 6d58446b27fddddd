package region

import (
	"fmt"
	"image"
	"math"
	"sort"
)

// State is the lifecycle state of a region while growing.
type State int

const (
	// Open regions received a segment in the most recent row and may still grow.
	Open State = iota
	// Closed regions can no longer be extended; their statistics are final.
	Closed
	// Merged regions were absorbed by a region with a lower id.
	Merged
)

func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Merged:
		return "merged"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// record is one entry of the grower's region arena.
type record struct {
	parent   int
	state    State
	value    int32
	lastRow  int
	moments  Moments
	bbox     image.Rectangle
	segs     []LineSegment
	children []int
}

// Grower assembles connected regions from rows of line segments.
//
// Rows must arrive strictly top to bottom. Each segment is compared with the
// segments of the previous row; a segment of the same value whose column
// range overlaps by at least one column extends that segment's region. A
// segment that bridges several regions merges them into the one with the
// lowest id.
//
// Regions live in an arena indexed by id. Merging redirects the absorbed id
// through a parent index (a disjoint-set forest with path compression), so
// segment back-references never dangle.
//
// With Graph set, the grower also records which regions touch each other
// (4-connected, different values) and Finish fills Region.Neighbours.
type Grower struct {
	// Graph enables neighbour recording. Change it only between Reset and
	// the first AddRow.
	Graph bool

	recs    []record
	prev    []LineSegment
	cur     []LineSegment
	cands   []int
	touch   []int
	edges   [][2]int
	row     int
	started bool
}

// NewGrower returns an empty grower.
func NewGrower() *Grower {
	return &Grower{}
}

// Reset discards all regions so the grower can process a new image. The
// internal buffers are kept.
func (g *Grower) Reset() {
	g.recs = g.recs[:0]
	g.prev = g.prev[:0]
	g.cur = g.cur[:0]
	g.edges = g.edges[:0]
	g.started = false
	g.row = 0
}

// Lookup resolves id to the id of the region that currently owns it. Ids of
// merged regions redirect to the surviving region.
func (g *Grower) Lookup(id int) int {
	return g.find(id)
}

// State returns the lifecycle state of region id.
func (g *Grower) State(id int) State {
	return g.recs[id].state
}

// Len returns the number of region ids handed out so far, including merged
// ones.
func (g *Grower) Len() int {
	return len(g.recs)
}

// AddRow grows the region set by one row of segments.
//
// All segments must share one Row index that is greater than the previous
// row's; they must be ordered by XStart and must not overlap. Violations
// panic. If Row skips one or more rows, every open region is closed before
// the row is processed. An empty row closes every open region.
//
// The Region field of each segment in segs is set to the id of the region it
// joined.
func (g *Grower) AddRow(segs []LineSegment) {
	if len(segs) == 0 {
		g.closeOpen(math.MinInt)
		g.prev = g.prev[:0]
		return
	}

	r := segs[0].Row
	checkRow(segs, r)
	if g.started && r <= g.row {
		panic(fmt.Sprintf("region: row %d added after row %d", r, g.row))
	}
	connected := g.started && r == g.row+1
	if !connected {
		g.closeOpen(r)
		g.prev = g.prev[:0]
	}

	g.cur = g.cur[:0]
	lo := 0
	for i := range segs {
		s := segs[i]
		g.cands = g.cands[:0]
		g.touch = g.touch[:0]

		for lo < len(g.prev) && g.prev[lo].XEnd <= s.XStart {
			lo++
		}
		for j := lo; j < len(g.prev) && g.prev[j].XStart < s.XEnd; j++ {
			p := g.prev[j]
			if !p.overlaps(s) {
				continue
			}
			if p.Value == s.Value {
				g.addCandidate(g.find(p.Region))
			} else if g.Graph {
				g.touch = append(g.touch, p.Region)
			}
		}
		if n := len(g.cur); n > 0 && g.cur[n-1].XEnd == s.XStart {
			// A touching neighbour of equal value only occurs for segments
			// that were not produced by EncodeRow; it is still the same
			// component.
			if g.cur[n-1].Value == s.Value {
				g.addCandidate(g.find(g.cur[n-1].Region))
			} else if g.Graph {
				g.touch = append(g.touch, g.cur[n-1].Region)
			}
		}

		var id int
		if len(g.cands) == 0 {
			id = g.newRecord(s.Value)
		} else {
			sort.Ints(g.cands)
			id = g.cands[0]
			for _, other := range g.cands[1:] {
				g.merge(id, other)
			}
		}

		for _, t := range g.touch {
			g.edges = append(g.edges, [2]int{t, id})
		}
		s.Region = id
		g.extend(id, s)
		segs[i].Region = id
		g.cur = append(g.cur, s)
	}

	g.closeOpen(r)
	g.prev, g.cur = g.cur, g.prev
	g.row = r
	g.started = true
}

// Finish closes all remaining open regions and returns the surviving regions
// ordered by id. Segments of each region are ordered by row and column.
//
// The grower must be Reset before it is used for another image.
func (g *Grower) Finish() []*Region {
	g.closeOpen(math.MinInt)
	g.prev = g.prev[:0]

	regions := make([]*Region, 0)
	byID := make(map[int]*Region)
	var stack []int
	for id := range g.recs {
		rec := &g.recs[id]
		if rec.parent != id {
			continue
		}

		segs := make([]LineSegment, 0, len(rec.segs))
		stack = append(stack[:0], id)
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, s := range g.recs[cur].segs {
				s.Region = id
				segs = append(segs, s)
			}
			stack = append(stack, g.recs[cur].children...)
		}
		sort.Slice(segs, func(i, j int) bool {
			if segs[i].Row != segs[j].Row {
				return segs[i].Row < segs[j].Row
			}
			return segs[i].XStart < segs[j].XStart
		})

		r := newRegion(id, rec.value, rec.moments, rec.bbox, segs)
		regions = append(regions, r)
		if g.Graph {
			byID[id] = r
		}
	}
	if g.Graph {
		g.link(byID)
	}
	return regions
}

// link resolves the recorded edges to surviving regions and fills their
// neighbour lists, ordered by id.
func (g *Grower) link(byID map[int]*Region) {
	pairs := make([][2]int, 0, len(g.edges))
	for _, e := range g.edges {
		a, b := g.find(e[0]), g.find(e[1])
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		pairs = append(pairs, [2]int{a, b})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})
	for _, r := range byID {
		r.neighbours = []*Region{}
	}
	for i, p := range pairs {
		if i > 0 && p == pairs[i-1] {
			continue
		}
		a, b := byID[p[0]], byID[p[1]]
		a.neighbours = append(a.neighbours, b)
		b.neighbours = append(b.neighbours, a)
	}
}

func (g *Grower) addCandidate(id int) {
	for _, c := range g.cands {
		if c == id {
			return
		}
	}
	g.cands = append(g.cands, id)
}

func (g *Grower) newRecord(v int32) int {
	id := len(g.recs)
	g.recs = append(g.recs, record{
		parent: id,
		state:  Open,
		value:  v,
	})
	return id
}

// extend appends s to region id and updates its running statistics.
func (g *Grower) extend(id int, s LineSegment) {
	rec := &g.recs[id]
	rec.bbox = rec.bbox.Union(image.Rect(s.XStart, s.Row, s.XEnd, s.Row+1))
	rec.moments.AddSegment(s)
	rec.segs = append(rec.segs, s)
	rec.lastRow = s.Row
	rec.state = Open
}

// merge absorbs region other into region into.
func (g *Grower) merge(into, other int) {
	dst := &g.recs[into]
	src := &g.recs[other]

	src.parent = into
	src.state = Merged

	dst.moments.Merge(src.moments)
	dst.bbox = dst.bbox.Union(src.bbox)
	if src.lastRow > dst.lastRow {
		dst.lastRow = src.lastRow
	}
	dst.children = append(dst.children, other)
}

// find returns the root of id, compressing the path on the way.
func (g *Grower) find(id int) int {
	root := id
	for g.recs[root].parent != root {
		root = g.recs[root].parent
	}
	for g.recs[id].parent != root {
		next := g.recs[id].parent
		g.recs[id].parent = root
		id = next
	}
	return root
}

// closeOpen closes every open region of the previous row that did not
// receive a segment in row r.
func (g *Grower) closeOpen(r int) {
	for _, s := range g.prev {
		rec := &g.recs[g.find(s.Region)]
		if rec.state == Open && rec.lastRow != r {
			rec.state = Closed
		}
	}
}

// checkRow panics if segs violate the segment ordering contract.
func checkRow(segs []LineSegment, row int) {
	for i, s := range segs {
		if s.XStart >= s.XEnd {
			panic(fmt.Sprintf("region: malformed segment %v", s))
		}
		if s.Row != row {
			panic(fmt.Sprintf("region: segment %v in row %d", s, row))
		}
		if i > 0 && segs[i-1].XEnd > s.XStart {
			panic(fmt.Sprintf("region: segment %v overlaps or precedes %v", s, segs[i-1]))
		}
	}
}
