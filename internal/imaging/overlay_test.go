package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/region-tools-mcp/internal/region"
	"github.com/ironsheep/region-tools-mcp/internal/vq"
)

// detectBlocks converts img with the default threshold and returns the white
// regions.
func detectBlocks(t *testing.T, img image.Image) []*region.Region {
	t.Helper()
	labels, err := ToLabels(img, DefaultLabelOptions())
	if err != nil {
		t.Fatalf("ToLabels failed: %v", err)
	}
	c := region.DefaultConstraints()
	c.MinValue = 255
	return region.NewDetector(c).Detect(labels)
}

func rgbAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestRenderOverlay(t *testing.T) {
	img := createBlocksImage(40, 30, 8, image.Pt(4, 4), image.Pt(24, 14))
	regions := detectBlocks(t, img)
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}

	centers := []vq.Point{{X: 20, Y: 20}, vq.DeadCenter}
	result, err := RenderOverlay(img, regions, centers, DefaultOverlayOptions())
	if err != nil {
		t.Fatalf("RenderOverlay failed: %v", err)
	}
	if result.Width != 40 || result.Height != 30 {
		t.Errorf("size: got %dx%d, want 40x30", result.Width, result.Height)
	}
	if result.Regions != 2 || result.Centers != 1 {
		t.Errorf("counts: got %d regions, %d centers, want 2, 1", result.Regions, result.Centers)
	}

	out := decodeResult(t, result.ImageBase64)

	// Bottom-right corner of the first box carries the first region color.
	if got, want := rgbAt(out, 11, 11), regionColor(0); got != want {
		t.Errorf("box corner: got %v, want %v", got, want)
	}
	// Center marker in magenta.
	if got := rgbAt(out, 20, 20); got != (color.RGBA{255, 0, 255, 255}) {
		t.Errorf("VQ center: got %v, want magenta", got)
	}
	// Untouched background stays black.
	if got := rgbAt(out, 38, 2); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("background: got %v, want black", got)
	}
}

func TestRenderOverlay_FillAndBoundary(t *testing.T) {
	img := createBlocksImage(20, 20, 6, image.Pt(5, 5))
	regions := detectBlocks(t, img)

	opts := OverlayOptions{Fill: 255, Boundary: true, CenterColor: "#00FF00"}
	result, err := RenderOverlay(img, regions, nil, opts)
	if err != nil {
		t.Fatalf("RenderOverlay failed: %v", err)
	}
	out := decodeResult(t, result.ImageBase64)

	want := regionColor(0)
	for _, p := range []image.Point{{5, 5}, {8, 8}, {10, 10}} {
		if got := rgbAt(out, p.X, p.Y); got != want {
			t.Errorf("filled pixel %v: got %v, want %v", p, got, want)
		}
	}
	if got := rgbAt(out, 4, 4); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("pixel outside region: got %v, want black", got)
	}
}

func TestRenderOverlay_FillKeepsRegionColors(t *testing.T) {
	img := createBlocksImage(40, 30, 8, image.Pt(4, 4), image.Pt(24, 14))
	regions := detectBlocks(t, img)
	if len(regions) != 2 {
		t.Fatalf("got %d regions, want 2", len(regions))
	}

	result, err := RenderOverlay(img, regions, nil, OverlayOptions{Fill: 255})
	if err != nil {
		t.Fatalf("RenderOverlay failed: %v", err)
	}
	out := decodeResult(t, result.ImageBase64)

	tests := []struct {
		p    image.Point
		want color.RGBA
	}{
		{image.Pt(4, 4), regionColor(0)},
		{image.Pt(11, 11), regionColor(0)},
		{image.Pt(24, 14), regionColor(1)},
		{image.Pt(31, 21), regionColor(1)},
		{image.Pt(20, 10), color.RGBA{0, 0, 0, 255}},
	}
	for _, tt := range tests {
		if got := rgbAt(out, tt.p.X, tt.p.Y); got != tt.want {
			t.Errorf("pixel %v: got %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestRegionColor_Distinct(t *testing.T) {
	seen := make(map[color.RGBA]int)
	for i := 0; i < 12; i++ {
		c := regionColor(i)
		if prev, ok := seen[c]; ok {
			t.Errorf("regions %d and %d share color %v", prev, i, c)
		}
		seen[c] = i
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		input   string
		want    color.RGBA
		wantErr bool
	}{
		{"#FF0000", color.RGBA{255, 0, 0, 255}, false},
		{"00ff00", color.RGBA{0, 255, 0, 255}, false},
		{"#0000FF80", color.RGBA{0, 0, 255, 128}, false},
		{"", color.RGBA{}, true},
		{"#FFF0", color.RGBA{}, true},
		{"#GGGGGG", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseHexColor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDrawLabel(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	fg := color.RGBA{255, 255, 255, 255}
	bg := color.RGBA{0, 0, 0, 255}

	drawLabel(img, 1, 1, "1", fg, bg)

	// Top row of the '1' glyph is "010".
	if got := img.RGBAAt(2, 1); got != fg {
		t.Errorf("glyph pixel: got %v, want %v", got, fg)
	}
	if got := img.RGBAAt(1, 1); got != bg {
		t.Errorf("background pixel: got %v, want %v", got, bg)
	}

	// Labels near the border are clipped, not panicking.
	drawLabel(img, 18, 8, "123", fg, bg)
	drawLabel(img, 0, 0, "?x", fg, bg)
}
