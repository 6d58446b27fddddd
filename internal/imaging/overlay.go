package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/region-tools-mcp/internal/region"
	"github.com/ironsheep/region-tools-mcp/internal/vq"
)

// OverlayOptions select what RenderOverlay draws.
type OverlayOptions struct {
	Boxes    bool  `json:"boxes"`    // Bounding boxes
	COG      bool  `json:"cog"`      // Center of gravity crosses
	Boundary bool  `json:"boundary"` // Traced outer contours
	IDs      bool  `json:"ids"`      // Region id labels
	Fill     uint8 `json:"fill"`     // Fill opacity, 0 disables filling

	// CenterColor is the hex color of VQ centers, "#FF00FF" if empty or invalid.
	CenterColor string `json:"center_color,omitempty"`
}

// DefaultOverlayOptions draws boxes, centers and ids.
func DefaultOverlayOptions() OverlayOptions {
	return OverlayOptions{Boxes: true, COG: true, IDs: true}
}

// OverlayResult contains the annotated image
type OverlayResult struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
	Regions     int    `json:"regions"`
	Centers     int    `json:"centers"`
}

// RenderOverlay draws regions and cluster centers on top of a copy of img.
//
// Parameters:
//   - img: The image the regions were detected in.
//   - regions: Regions in the coordinates of img's bounds (origin at Min).
//   - centers: Optional VQ centers; dead centers are skipped.
//   - opts: Selects the annotations.
//
// Every region gets its own color, spread around the hue circle so
// neighbouring ids stay distinguishable.
func RenderOverlay(img image.Image, regions []*region.Region, centers []vq.Point, opts OverlayOptions) (*OverlayResult, error) {
	bounds := img.Bounds()
	result := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(result, result.Bounds(), img, bounds.Min, draw.Src)

	if opts.Fill > 0 {
		fillRegions(result, regions, opts.Fill)
	}
	for i, r := range regions {
		c := regionColor(i)

		if opts.Boundary {
			for _, p := range r.Boundary() {
				setPixel(result, p.X, p.Y, c)
			}
		}
		if opts.Boxes {
			drawRect(result, r.BoundingBox(), c)
		}
		if opts.COG {
			cx, cy := r.COG()
			drawCross(result, int(math.Floor(cx)), int(math.Floor(cy)), 3, c)
		}
		if opts.IDs {
			b := r.BoundingBox()
			drawLabel(result, b.Min.X+1, b.Min.Y+1, strconv.Itoa(r.ID()),
				color.RGBA{255, 255, 255, 255}, color.RGBA{0, 0, 0, 180})
		}
	}

	centerColor, err := parseHexColor(opts.CenterColor)
	if err != nil {
		centerColor = color.RGBA{255, 0, 255, 255}
	}
	drawn := 0
	for _, p := range centers {
		if p == vq.DeadCenter {
			continue
		}
		x, y := int(math.Floor(p.X)), int(math.Floor(p.Y))
		drawX(result, x, y, 4, centerColor)
		drawn++
	}

	encoded, err := encodePNG(result)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return &OverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
		Regions:     len(regions),
		Centers:     drawn,
	}, nil
}

// regionColor returns the i-th overlay color, stepping the hue by the golden
// angle.
func regionColor(i int) color.RGBA {
	hue := math.Mod(float64(i)*137.508, 360)
	r, g, b := colorful.Hsv(hue, 0.85, 0.95).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// fillRegions paints the regions into a mask, 1 + index per region, and
// blends each masked pixel with its region color.
func fillRegions(img *image.RGBA, regions []*region.Region, alpha uint8) {
	b := img.Bounds()
	mask := region.NewImage(b.Dx(), b.Dy())
	for i, r := range regions {
		r.DrawTo(mask, int32(i+1))
	}
	for y := 0; y < mask.Height; y++ {
		for x, v := range mask.Row(y) {
			if v > 0 {
				blend(img, x, y, regionColor(int(v-1)), alpha)
			}
		}
	}
}

func setPixel(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

// blend draws c over the pixel at (x, y) with the given opacity.
func blend(img *image.RGBA, x, y int, c color.RGBA, alpha uint8) {
	if !(image.Point{X: x, Y: y}).In(img.Bounds()) {
		return
	}
	o := img.RGBAAt(x, y)
	a := uint32(alpha)
	mix := func(fg, bg uint8) uint8 {
		return uint8((uint32(fg)*a + uint32(bg)*(255-a)) / 255)
	}
	img.SetRGBA(x, y, color.RGBA{mix(c.R, o.R), mix(c.G, o.G), mix(c.B, o.B), 255})
}

// drawRect outlines r; Max is exclusive.
func drawRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		setPixel(img, x, r.Min.Y, c)
		setPixel(img, x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		setPixel(img, r.Min.X, y, c)
		setPixel(img, r.Max.X-1, y, c)
	}
}

func drawCross(img *image.RGBA, x, y, size int, c color.RGBA) {
	for d := -size; d <= size; d++ {
		setPixel(img, x+d, y, c)
		setPixel(img, x, y+d, c)
	}
}

func drawX(img *image.RGBA, x, y, size int, c color.RGBA) {
	for d := -size; d <= size; d++ {
		setPixel(img, x+d, y+d, c)
		setPixel(img, x+d, y-d, c)
	}
}

// parseHexColor parses a hex color string like "#FF0000" or "#FF000080"
func parseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	switch len(hex) {
	case 6:
		c, err := colorful.Hex("#" + hex)
		if err != nil {
			return color.RGBA{}, err
		}
		r, g, b := c.RGB255()
		return color.RGBA{R: r, G: g, B: b, A: 255}, nil
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		return color.RGBA{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}
}

// drawLabel draws a text label with a 3x5 pixel font at the given position.
// Only digits, ',' and '#' have glyphs; other characters leave a gap.
func drawLabel(img *image.RGBA, x, y int, text string, fg, bg color.RGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
		',': {"000", "000", "000", "010", "010"},
		'#': {"101", "111", "101", "111", "101"},
	}

	const charWidth = 4
	const labelHeight = 6
	labelWidth := len(text) * charWidth

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setPixel(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		if glyph, ok := glyphs[ch]; ok {
			for row, line := range glyph {
				for col, pixel := range line {
					if pixel == '1' {
						setPixel(img, cx+col, y+row, fg)
					}
				}
			}
		}
		cx += charWidth
	}
}
