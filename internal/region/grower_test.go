package region

import (
	"image"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// grow encodes the full image and feeds every row to a fresh grower.
func grow(t *testing.T, img *Image) (*Grower, []*Region) {
	t.Helper()
	e := NewEncoder()
	e.Encode(img)
	g := NewGrower()
	for y := 0; y < e.Rows(); y++ {
		g.AddRow(e.Row(y))
	}
	return g, g.Finish()
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s: expected panic", name)
		}
	}()
	fn()
}

func TestGrower_CenteredBlock(t *testing.T) {
	img := mustImage(t,
		[]int32{0, 0, 0, 0},
		[]int32{0, 1, 1, 0},
		[]int32{0, 1, 1, 0},
		[]int32{0, 0, 0, 0},
	)
	_, regions := grow(t, img)

	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}

	bg, block := regions[0], regions[1]
	if bg.Value() != 0 || bg.Size() != 12 {
		t.Errorf("background: value=%d size=%d, want 0, 12", bg.Value(), bg.Size())
	}
	if block.Value() != 1 || block.Size() != 4 {
		t.Errorf("block: value=%d size=%d, want 1, 4", block.Value(), block.Size())
	}

	if cx, cy := block.COG(); cx != 2 || cy != 2 {
		t.Errorf("block COG: got (%v, %v), want (2, 2)", cx, cy)
	}
	if got, want := block.BoundingBox(), image.Rect(1, 1, 3, 3); got != want {
		t.Errorf("block bbox: got %v, want %v", got, want)
	}
	if got, want := bg.BoundingBox(), image.Rect(0, 0, 4, 4); got != want {
		t.Errorf("background bbox: got %v, want %v", got, want)
	}
}

func TestGrower_SingleRectangle(t *testing.T) {
	img := NewImage(5, 3)
	for i := range img.Pix {
		img.Pix[i] = 4
	}
	_, regions := grow(t, img)

	if len(regions) != 1 {
		t.Fatalf("got %d regions, want 1", len(regions))
	}
	r := regions[0]
	if r.Size() != 15 || r.Value() != 4 {
		t.Errorf("got size=%d value=%d, want 15, 4", r.Size(), r.Value())
	}
	if cx, cy := r.COG(); cx != 2.5 || cy != 1.5 {
		t.Errorf("COG: got (%v, %v), want (2.5, 1.5)", cx, cy)
	}
}

func TestGrower_DiagonalSquares(t *testing.T) {
	img := mustImage(t,
		[]int32{1, 1, 0, 0},
		[]int32{1, 1, 0, 0},
		[]int32{0, 0, 1, 1},
		[]int32{0, 0, 1, 1},
	)
	_, regions := grow(t, img)

	if len(regions) != 4 {
		t.Fatalf("got %d regions, want 4 (corner contact must not connect)", len(regions))
	}
	wantValues := []int32{1, 0, 0, 1}
	for i, r := range regions {
		if r.ID() != i {
			t.Errorf("region %d has id %d", i, r.ID())
		}
		if r.Value() != wantValues[i] || r.Size() != 4 {
			t.Errorf("region %d: value=%d size=%d, want %d, 4", i, r.Value(), r.Size(), wantValues[i])
		}
	}
}

func TestGrower_UShapeMerge(t *testing.T) {
	img := mustImage(t,
		[]int32{1, 0, 1},
		[]int32{1, 0, 1},
		[]int32{1, 1, 1},
	)
	e := NewEncoder()
	e.Encode(img)
	g := NewGrower()
	g.AddRow(e.Row(0))
	g.AddRow(e.Row(1))

	if g.Len() != 3 {
		t.Fatalf("after two rows: got %d ids, want 3", g.Len())
	}
	if g.State(2) != Open {
		t.Errorf("region 2 state: got %v, want open", g.State(2))
	}

	g.AddRow(e.Row(2))
	if g.State(2) != Merged {
		t.Errorf("region 2 state: got %v, want merged", g.State(2))
	}
	if got := g.Lookup(2); got != 0 {
		t.Errorf("Lookup(2): got %d, want 0", got)
	}
	if row := e.Row(2); row[0].Region != 0 {
		t.Errorf("bottom segment joined region %d, want 0", row[0].Region)
	}
	// The 0-valued stem did not reach the last row.
	if g.State(1) != Closed {
		t.Errorf("region 1 state: got %v, want closed", g.State(1))
	}

	regions := g.Finish()
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}
	if regions[0].ID() != 0 || regions[0].Size() != 7 {
		t.Errorf("merged region: id=%d size=%d, want 0, 7", regions[0].ID(), regions[0].Size())
	}
	if g.State(0) != Closed {
		t.Errorf("region 0 state after Finish: got %v, want closed", g.State(0))
	}
	for _, s := range regions[0].Segments() {
		if s.Region != 0 {
			t.Errorf("segment %v refers to region %d, want 0", s, s.Region)
		}
	}
}

func TestGrower_MergeIntoLowestID(t *testing.T) {
	img := mustImage(t,
		[]int32{1, 1, 1, 0, 0},
		[]int32{0, 0, 1, 0, 1},
		[]int32{0, 0, 0, 0, 1},
	)
	g, regions := grow(t, img)

	// Region 2 (left 0-run of row 1) and region 1 (right 0-run of row 0)
	// meet in row 2; the survivor is the lower id.
	if got := g.Lookup(2); got != 1 {
		t.Errorf("Lookup(2): got %d, want 1", got)
	}

	gotIDs := make([]int, len(regions))
	gotSizes := make([]int, len(regions))
	for i, r := range regions {
		gotIDs[i] = r.ID()
		gotSizes[i] = r.Size()
	}
	if diff := cmp.Diff([]int{0, 1, 3}, gotIDs); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{4, 9, 2}, gotSizes); diff != "" {
		t.Errorf("sizes mismatch (-want +got):\n%s", diff)
	}

	want := []LineSegment{
		{XStart: 3, XEnd: 5, Row: 0, Value: 0, Region: 1},
		{XStart: 0, XEnd: 2, Row: 1, Value: 0, Region: 1},
		{XStart: 3, XEnd: 4, Row: 1, Value: 0, Region: 1},
		{XStart: 0, XEnd: 4, Row: 2, Value: 0, Region: 1},
	}
	if diff := cmp.Diff(want, regions[1].Segments()); diff != "" {
		t.Errorf("segments of merged region (-want +got):\n%s", diff)
	}
	if got, want := regions[1].BoundingBox(), image.Rect(0, 0, 5, 3); got != want {
		t.Errorf("bbox: got %v, want %v", got, want)
	}
}

func TestGrower_GapRowClosesRegions(t *testing.T) {
	g := NewGrower()
	g.AddRow([]LineSegment{seg(0, 2, 0, 5)})
	g.AddRow([]LineSegment{seg(0, 2, 2, 5)})

	if g.State(0) != Closed {
		t.Errorf("region 0 state: got %v, want closed", g.State(0))
	}
	regions := g.Finish()
	if len(regions) != 2 {
		t.Errorf("got %d regions across a gap row, want 2", len(regions))
	}
}

func TestGrower_EmptyRowClosesRegions(t *testing.T) {
	g := NewGrower()
	g.AddRow([]LineSegment{seg(0, 2, 0, 5)})
	g.AddRow(nil)
	if g.State(0) != Closed {
		t.Errorf("region 0 state: got %v, want closed", g.State(0))
	}
	g.AddRow([]LineSegment{seg(0, 2, 1, 5)})
	if got := len(g.Finish()); got != 2 {
		t.Errorf("got %d regions, want 2", got)
	}
}

func TestGrower_Reset(t *testing.T) {
	g := NewGrower()
	g.AddRow([]LineSegment{seg(0, 2, 3, 5)})
	g.Finish()
	g.Reset()

	if g.Len() != 0 {
		t.Errorf("Len after Reset: got %d, want 0", g.Len())
	}
	// Row 0 is accepted again after Reset.
	g.AddRow([]LineSegment{seg(0, 1, 0, 1)})
	if got := len(g.Finish()); got != 1 {
		t.Errorf("got %d regions, want 1", got)
	}
}

func TestGrower_ContractViolations(t *testing.T) {
	mustPanic(t, "empty segment", func() {
		NewGrower().AddRow([]LineSegment{seg(3, 3, 0, 1)})
	})
	mustPanic(t, "reversed segment", func() {
		NewGrower().AddRow([]LineSegment{seg(4, 2, 0, 1)})
	})
	mustPanic(t, "overlapping segments", func() {
		NewGrower().AddRow([]LineSegment{seg(0, 3, 0, 1), seg(2, 4, 0, 2)})
	})
	mustPanic(t, "mixed rows", func() {
		NewGrower().AddRow([]LineSegment{seg(0, 1, 0, 1), seg(1, 2, 1, 2)})
	})
	mustPanic(t, "repeated row", func() {
		g := NewGrower()
		g.AddRow([]LineSegment{seg(0, 1, 2, 1)})
		g.AddRow([]LineSegment{seg(0, 1, 2, 1)})
	})
	mustPanic(t, "decreasing row", func() {
		g := NewGrower()
		g.AddRow([]LineSegment{seg(0, 1, 2, 1)})
		g.AddRow([]LineSegment{seg(0, 1, 1, 1)})
	})
}

// countComponents labels img by 4-connected flood fill.
func countComponents(img *Image) int {
	seen := make([]bool, len(img.Pix))
	n := 0
	for start := range img.Pix {
		if seen[start] {
			continue
		}
		n++
		v := img.Pix[start]
		stack := []int{start}
		seen[start] = true
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := p%img.Width, p/img.Width
			for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= img.Width || ny >= img.Height {
					continue
				}
				q := ny*img.Width + nx
				if !seen[q] && img.Pix[q] == v {
					seen[q] = true
					stack = append(stack, q)
				}
			}
		}
	}
	return n
}

func TestGrower_RandomImagePartition(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		img := NewImage(23, 17)
		for i := range img.Pix {
			img.Pix[i] = int32(rng.Intn(3))
		}
		_, regions := grow(t, img)

		if got, want := len(regions), countComponents(img); got != want {
			t.Fatalf("trial %d: got %d regions, flood fill finds %d", trial, got, want)
		}

		total := 0
		owner := make([]int, len(img.Pix))
		for i := range owner {
			owner[i] = -1
		}
		for _, r := range regions {
			total += r.Size()
			for _, p := range r.Pixels() {
				i := p.Y*img.Width + p.X
				if owner[i] != -1 {
					t.Fatalf("trial %d: pixel %v in regions %d and %d", trial, p, owner[i], r.ID())
				}
				owner[i] = r.ID()
				if img.Pix[i] != r.Value() {
					t.Fatalf("trial %d: pixel %v has value %d, region %d has %d",
						trial, p, img.Pix[i], r.ID(), r.Value())
				}
			}
		}
		if total != len(img.Pix) {
			t.Fatalf("trial %d: region sizes sum to %d, want %d", trial, total, len(img.Pix))
		}
	}
}
