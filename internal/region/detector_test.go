package region

import (
	"bytes"
	"image"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDetector_Constraints(t *testing.T) {
	img := mustImage(t,
		[]int32{0, 0, 0, 0},
		[]int32{0, 1, 1, 0},
		[]int32{0, 1, 1, 0},
		[]int32{0, 0, 0, 0},
	)

	tests := []struct {
		name      string
		c         Constraints
		wantCount int
	}{
		{"defaults", DefaultConstraints(), 2},
		{"value 1 only", Constraints{MinSize: 0, MaxSize: 100, MinValue: 1, MaxValue: 1}, 1},
		{"small only", Constraints{MinSize: 1, MaxSize: 4, MinValue: 0, MaxValue: 255}, 1},
		{"large only", Constraints{MinSize: 5, MaxSize: 100, MinValue: 0, MaxValue: 255}, 1},
		{"nothing", Constraints{MinSize: 13, MaxSize: 100, MinValue: 0, MaxValue: 255}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(tt.c)
			got := d.Detect(img)
			if len(got) != tt.wantCount {
				t.Errorf("got %d regions, want %d", len(got), tt.wantCount)
			}
			if len(d.All()) != 2 {
				t.Errorf("All: got %d regions, want 2", len(d.All()))
			}
			if len(d.Last()) != len(got) {
				t.Errorf("Last: got %d regions, want %d", len(d.Last()), len(got))
			}
		})
	}
}

func TestDetector_ROIImageCoordinates(t *testing.T) {
	img := filled(6, 6, image.Rect(3, 3, 5, 5), 1)
	img.SetROI(image.Rect(2, 2, 6, 6))

	d := NewDetector(DefaultConstraints())
	regions := d.Detect(img)
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}

	block := onlyRegion(t, regions, 1)
	if got, want := block.BoundingBox(), image.Rect(3, 3, 5, 5); got != want {
		t.Errorf("bbox: got %v, want %v", got, want)
	}
	if cx, cy := block.COG(); cx != 4 || cy != 4 {
		t.Errorf("COG: got (%v, %v), want (4, 4)", cx, cy)
	}
	if block.AtBorder() {
		t.Error("block inside the ROI reported at border")
	}

	bg := onlyRegion(t, regions, 0)
	if bg.Size() != 12 {
		t.Errorf("background size inside ROI: got %d, want 12", bg.Size())
	}
	if !bg.AtBorder() {
		t.Error("background should touch the ROI border")
	}
	if got := bg.UpperLeftPixel(); got != image.Pt(2, 2) {
		t.Errorf("background UpperLeftPixel: got %v, want (2,2)", got)
	}
}

func TestDetector_RegionAt(t *testing.T) {
	img := filled(6, 6, image.Rect(3, 3, 5, 5), 1)
	img.SetROI(image.Rect(2, 2, 6, 6))

	// Constraints do not hide regions from clicks.
	d := NewDetector(Constraints{MinSize: 0, MaxSize: 100, MinValue: 1, MaxValue: 1})
	d.Detect(img)

	if r := d.RegionAt(3, 3); r == nil || r.Value() != 1 {
		t.Errorf("RegionAt(3,3): got %v, want the block", r)
	}
	if r := d.RegionAt(2, 5); r == nil || r.Value() != 0 {
		t.Errorf("RegionAt(2,5): got %v, want the background", r)
	}
	if r := d.RegionAt(0, 0); r != nil {
		t.Errorf("RegionAt(0,0) outside ROI: got region %d, want nil", r.ID())
	}
}

func TestDetector_Near(t *testing.T) {
	img := NewImage(20, 20)
	for _, at := range []image.Point{{1, 1}, {10, 10}, {16, 1}} {
		for y := at.Y; y < at.Y+2; y++ {
			for x := at.X; x < at.X+2; x++ {
				img.Set(x, y, 1)
			}
		}
	}

	d := NewDetector(Constraints{MinSize: 0, MaxSize: 100, MinValue: 1, MaxValue: 1})
	if got := len(d.Detect(img)); got != 3 {
		t.Fatalf("got %d regions, want 3", got)
	}

	near := d.Near(12, 4, 8)
	if len(near) != 2 {
		t.Fatalf("Near(12,4,8): got %d regions, want 2", len(near))
	}
	cogs := make([]image.Point, len(near))
	for i, r := range near {
		cx, cy := r.COG()
		cogs[i] = image.Pt(int(cx), int(cy))
	}
	if cogs[0] != image.Pt(17, 2) || cogs[1] != image.Pt(11, 11) {
		t.Errorf("Near order: got %v, want [(17,2) (11,11)]", cogs)
	}

	exact := d.Near(2, 2, 0.5)
	if len(exact) != 1 {
		t.Errorf("Near(2,2,0.5): got %d regions, want 1", len(exact))
	}
	if got := d.Near(2, 2, -1); got != nil {
		t.Errorf("negative radius: got %d regions, want none", len(got))
	}
}

func TestDetector_ReuseAcrossImages(t *testing.T) {
	d := NewDetector(DefaultConstraints())
	first := d.Detect(filled(5, 5, image.Rect(0, 0, 2, 2), 3))
	firstBlock := onlyRegion(t, first, 3)

	second := d.Detect(filled(5, 5, image.Rect(1, 1, 5, 5), 7))
	secondBlock := onlyRegion(t, second, 7)

	if firstBlock.Size() != 4 || secondBlock.Size() != 16 {
		t.Errorf("sizes: got %d and %d, want 4 and 16", firstBlock.Size(), secondBlock.Size())
	}
	if got, want := firstBlock.BoundingBox(), image.Rect(0, 0, 2, 2); got != want {
		t.Errorf("earlier region changed: bbox %v, want %v", got, want)
	}
}

func TestDetector_Trace(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	d := NewDetector(DefaultConstraints())
	d.Trace = true
	d.Detect(NewImage(4, 4))

	if !strings.Contains(buf.String(), "rle") {
		t.Errorf("trace output missing phase timings: %q", buf.String())
	}
}

func regionIDs(regions []*Region) []int {
	ids := make([]int, len(regions))
	for i, r := range regions {
		ids[i] = r.ID()
	}
	return ids
}

func TestDetector_RegionGraph(t *testing.T) {
	// A ring of 1s enclosing a blob of 2s, and a single 3 in the background.
	img := mustImage(t,
		[]int32{0, 0, 0, 0, 0, 0, 0, 0, 0},
		[]int32{0, 1, 1, 1, 1, 0, 0, 0, 0},
		[]int32{0, 1, 2, 2, 1, 0, 3, 0, 0},
		[]int32{0, 1, 2, 2, 1, 0, 0, 0, 0},
		[]int32{0, 1, 1, 1, 1, 0, 0, 0, 0},
		[]int32{0, 0, 0, 0, 0, 0, 0, 0, 0},
	)

	d := NewDetector(DefaultConstraints())
	d.CreateGraph = true
	regions := d.Detect(img)
	if len(regions) != 4 {
		t.Fatalf("got %d regions, want 4", len(regions))
	}
	bg := onlyRegion(t, regions, 0)
	ring := onlyRegion(t, regions, 1)
	blob := onlyRegion(t, regions, 2)
	dot := onlyRegion(t, regions, 3)

	tests := []struct {
		name           string
		r              *Region
		wantNeighbours []*Region
		wantParent     *Region
		wantSubs       []*Region
	}{
		{"background", bg, []*Region{ring, dot}, nil, []*Region{ring, dot}},
		{"ring", ring, []*Region{bg, blob}, bg, []*Region{blob}},
		{"blob", blob, []*Region{ring}, ring, nil},
		{"dot", dot, []*Region{bg}, bg, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(regionIDs(tt.wantNeighbours), regionIDs(tt.r.Neighbours())); diff != "" {
				t.Errorf("Neighbours mismatch (-want +got):\n%s", diff)
			}
			if got := tt.r.Parent(); got != tt.wantParent {
				t.Errorf("Parent: got %v, want %v", got, tt.wantParent)
			}
			if diff := cmp.Diff(regionIDs(tt.wantSubs), regionIDs(tt.r.SubRegions())); diff != "" {
				t.Errorf("SubRegions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDetector_RegionGraphOff(t *testing.T) {
	img := filled(5, 5, image.Rect(1, 1, 4, 4), 1)
	d := NewDetector(DefaultConstraints())
	for _, r := range d.Detect(img) {
		if r.Neighbours() != nil || r.Parent() != nil || r.SubRegions() != nil {
			t.Errorf("region %d has graph data without CreateGraph", r.ID())
		}
	}
}

// A region that touches the ROI border is never a sub-region, even when its
// only neighbour surrounds it on the other sides.
func TestDetector_RegionGraphBorderChild(t *testing.T) {
	img := mustImage(t,
		[]int32{0, 0, 0, 0, 0},
		[]int32{0, 0, 0, 0, 0},
		[]int32{0, 0, 0, 0, 0},
		[]int32{0, 0, 1, 0, 0},
	)
	d := NewDetector(DefaultConstraints())
	d.CreateGraph = true
	regions := d.Detect(img)
	bump := onlyRegion(t, regions, 1)
	if got := regionIDs(bump.Neighbours()); len(got) != 1 {
		t.Fatalf("Neighbours: got %v, want one", got)
	}
	if bump.Parent() != nil {
		t.Errorf("border region got parent %d", bump.Parent().ID())
	}
}

// Merged regions report the surviving id as neighbour.
func TestGrower_GraphAfterMerge(t *testing.T) {
	img := mustImage(t,
		[]int32{1, 0, 1},
		[]int32{1, 0, 1},
		[]int32{1, 1, 1},
	)
	e := NewEncoder()
	e.Encode(img)
	g := NewGrower()
	g.Graph = true
	for y := 0; y < e.Rows(); y++ {
		g.AddRow(e.Row(y))
	}
	regions := g.Finish()
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}
	u := onlyRegion(t, regions, 1)
	gap := onlyRegion(t, regions, 0)
	if diff := cmp.Diff([]int{gap.ID()}, regionIDs(u.Neighbours())); diff != "" {
		t.Errorf("U neighbours mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{u.ID()}, regionIDs(gap.Neighbours())); diff != "" {
		t.Errorf("gap neighbours mismatch (-want +got):\n%s", diff)
	}
}
