package region

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const eps = 1e-9

func near(a, b float64) bool {
	return math.Abs(a-b) <= eps*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}

func TestMoments_AddSegmentMatchesPixels(t *testing.T) {
	segs := []LineSegment{
		seg(0, 1, 0, 0),
		seg(3, 9, 2, 0),
		seg(17, 40, 11, 0),
	}
	for _, s := range segs {
		var closed, direct Moments
		closed.AddSegment(s)
		for x := s.XStart; x < s.XEnd; x++ {
			direct.Add(float64(x)+0.5, float64(s.Row)+0.5)
		}

		pairs := [][2]float64{
			{closed.N, direct.N},
			{closed.SumX, direct.SumX},
			{closed.SumY, direct.SumY},
			{closed.SumXX, direct.SumXX},
			{closed.SumYY, direct.SumYY},
			{closed.SumXY, direct.SumXY},
		}
		for i, p := range pairs {
			if !near(p[0], p[1]) {
				t.Errorf("segment %v moment %d: closed form %v, per pixel %v", s, i, p[0], p[1])
			}
		}
	}
}

func TestMoments_PCAPinned(t *testing.T) {
	// 2x2 block at columns and rows 1..2
	var m Moments
	m.AddSegment(seg(1, 3, 1, 0))
	m.AddSegment(seg(1, 3, 2, 0))

	got := m.PCA()
	want := PCAInfo{
		CX:   2,
		CY:   2,
		Arc1: math.Pi / 4,
		Arc2: -math.Pi / 4,
		Len1: math.Sqrt(8.25),
		Len2: 0.5,
	}
	checkPCA(t, "raw", got, want)

	centered := m.CenteredPCA()
	checkPCA(t, "centered", centered, PCAInfo{CX: 2, CY: 2, Len1: 1, Len2: 1})
}

func TestMoments_PCASinglePoint(t *testing.T) {
	var m Moments
	m.Add(3.5, 4.5)
	got := m.PCA()
	checkPCA(t, "single", got, PCAInfo{CX: 3.5, CY: 4.5})

	var empty Moments
	checkPCA(t, "empty", empty.PCA(), PCAInfo{})
}

func TestMoments_EigenvaluesMatchGonum(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 50; trial++ {
		var m Moments
		n := 2 + rng.Intn(30)
		for i := 0; i < n; i++ {
			m.Add(rng.Float64()*100-50, rng.Float64()*100-50)
		}

		mxx, myy, mxy := m.SumXX/m.N, m.SumYY/m.N, m.SumXY/m.N
		var es mat.EigenSym
		if !es.Factorize(mat.NewSymDense(2, []float64{mxx, mxy, mxy, myy}), false) {
			t.Fatalf("trial %d: eigen decomposition failed", trial)
		}
		vals := es.Values(nil) // ascending

		l1, l2 := symEigen2(mxx, myy, mxy)
		if math.Abs(l1-vals[1]) > 1e-6 || math.Abs(l2-vals[0]) > 1e-6 {
			t.Errorf("trial %d: eigenvalues (%v, %v), gonum (%v, %v)", trial, l1, l2, vals[1], vals[0])
		}

		p := m.PCA()
		if math.Abs(p.Len1-math.Sqrt(vals[1])) > 1e-6 {
			t.Errorf("trial %d: Len1 %v, want %v", trial, p.Len1, math.Sqrt(vals[1]))
		}
		if p.Len2 < 0 || p.Len2 > p.Len1 {
			t.Errorf("trial %d: Len2 %v outside [0, %v]", trial, p.Len2, p.Len1)
		}
	}
}

func TestMoments_Merge(t *testing.T) {
	var a, b, all Moments
	a.AddSegment(seg(0, 4, 0, 0))
	b.AddSegment(seg(2, 5, 1, 0))
	all.AddSegment(seg(0, 4, 0, 0))
	all.AddSegment(seg(2, 5, 1, 0))

	a.Merge(b)
	if a != all {
		t.Errorf("merged moments %+v, want %+v", a, all)
	}
}

func checkPCA(t *testing.T, name string, got, want PCAInfo) {
	t.Helper()
	fields := []struct {
		field     string
		got, want float64
	}{
		{"CX", got.CX, want.CX},
		{"CY", got.CY, want.CY},
		{"Arc1", got.Arc1, want.Arc1},
		{"Arc2", got.Arc2, want.Arc2},
		{"Len1", got.Len1, want.Len1},
		{"Len2", got.Len2, want.Len2},
	}
	for _, f := range fields {
		if !near(f.got, f.want) {
			t.Errorf("%s PCA %s: got %v, want %v", name, f.field, f.got, f.want)
		}
	}
}
