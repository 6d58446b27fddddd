package server

import (
	"image"
	"math"

	"github.com/ironsheep/region-tools-mcp/internal/region"
)

// rectResult is a rectangle with exclusive x2, y2.
type rectResult struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func newRectResult(r image.Rectangle) rectResult {
	return rectResult{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

type pointResult struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// pcaResult reports principal axes with angles in radians.
type pcaResult struct {
	CX   float64 `json:"cx"`
	CY   float64 `json:"cy"`
	Arc1 float64 `json:"arc1"`
	Arc2 float64 `json:"arc2"`
	Len1 float64 `json:"len1"`
	Len2 float64 `json:"len2"`
}

func newPCAResult(p region.PCAInfo) pcaResult {
	return pcaResult{
		CX:   round(p.CX, 3),
		CY:   round(p.CY, 3),
		Arc1: round(p.Arc1, 4),
		Arc2: round(p.Arc2, 4),
		Len1: round(p.Len1, 3),
		Len2: round(p.Len2, 3),
	}
}

type regionSummary struct {
	ID             int         `json:"id"`
	Value          int32       `json:"value"`
	Size           int         `json:"size"`
	COG            pointResult `json:"cog"`
	BoundingBox    rectResult  `json:"bounding_box"`
	AtBorder       bool        `json:"at_border"`
	FormFactor     float64     `json:"form_factor"`
	BoundaryLength float64     `json:"boundary_length"`
	PCA            pcaResult   `json:"pca"`
	Axes           pcaResult   `json:"axes"`
	Boundary       [][2]int    `json:"boundary,omitempty"`
	Distance       *float64    `json:"distance,omitempty"`
	Neighbours     []int       `json:"neighbours,omitempty"`
	Parent         *int        `json:"parent,omitempty"`
	SubRegions     []int       `json:"sub_regions,omitempty"`
}

// summarize reports r with values rounded for display. PCA holds the raw
// moment features, Axes the covariance axes around the COG.
func summarize(r *region.Region, withBoundary bool) regionSummary {
	cx, cy := r.COG()
	sum := regionSummary{
		ID:             r.ID(),
		Value:          r.Value(),
		Size:           r.Size(),
		COG:            pointResult{X: round(cx, 3), Y: round(cy, 3)},
		BoundingBox:    newRectResult(r.BoundingBox()),
		AtBorder:       r.AtBorder(),
		FormFactor:     round(r.FormFactor(), 4),
		BoundaryLength: round(r.BoundaryLength(), 3),
		PCA:            newPCAResult(r.PCA()),
		Axes:           newPCAResult(r.CenteredPCA()),
	}
	sum.Neighbours = regionIDs(r.Neighbours())
	sum.SubRegions = regionIDs(r.SubRegions())
	if p := r.Parent(); p != nil {
		id := p.ID()
		sum.Parent = &id
	}
	if withBoundary {
		pts := r.ThinnedBoundary()
		sum.Boundary = make([][2]int, len(pts))
		for i, p := range pts {
			sum.Boundary[i] = [2]int{p.X, p.Y}
		}
	}
	return sum
}

func regionIDs(regions []*region.Region) []int {
	if len(regions) == 0 {
		return nil
	}
	ids := make([]int, len(regions))
	for i, r := range regions {
		ids[i] = r.ID()
	}
	return ids
}

type centerResult struct {
	Index  int       `json:"index"`
	X      float64   `json:"x"`
	Y      float64   `json:"y"`
	Dead   bool      `json:"dead"`
	Points int       `json:"points"`
	PCA    pcaResult `json:"pca"`
}

type regionAssignment struct {
	ID      int `json:"id"`
	Cluster int `json:"cluster"`
}

type clusterResult struct {
	K           int                `json:"k"`
	Online      bool               `json:"online"`
	Points      int                `json:"points"`
	MeanQE      float64            `json:"mean_qe"`
	Centers     []centerResult     `json:"centers"`
	Assignments []int              `json:"assignments,omitempty"`
	Regions     []regionAssignment `json:"regions,omitempty"`
}

// round rounds v to the given number of decimal places.
func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func distance(x1, y1, x2, y2 float64) float64 {
	return math.Hypot(x2-x1, y2-y1)
}
