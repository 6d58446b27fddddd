package imaging

import (
	"fmt"
	"image"
	"sort"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/region-tools-mcp/internal/region"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// RGBAColor represents an RGBA color with 8-bit components including alpha.
//
// The alpha component represents opacity:
//   - 0 = fully transparent
//   - 255 = fully opaque
type RGBAColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in multiple representations.
type ColorResult struct {
	Hex  string    `json:"hex"`  // Hex format "#RRGGBB" (no alpha)
	RGB  RGBColor  `json:"rgb"`  // RGB components
	RGBA RGBAColor `json:"rgba"` // RGBA components with alpha
	HSL  HSLColor  `json:"hsl"`  // HSL representation
}

func newColorResult(r, g, b, a uint8) ColorResult {
	return ColorResult{
		Hex:  fmt.Sprintf("#%02X%02X%02X", r, g, b),
		RGB:  RGBColor{R: r, G: g, B: b},
		RGBA: RGBAColor{R: r, G: g, B: b, A: a},
		HSL:  rgbToHSL(r, g, b),
	}
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Coordinates are relative to the image origin, the same convention as
// region coordinates: (0, 0) is img.Bounds().Min.
//
// For 16-bit images, values are scaled down by right-shifting 8 bits. The
// Hex format excludes alpha; use RGBA.A to get transparency information.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	if x < 0 || x >= bounds.Dx() || y < 0 || y >= bounds.Dy() {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds", x, y)
	}

	r, g, b, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
	c := newColorResult(uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8))
	return &c, nil
}

// ColorFrequency represents a color and its occurrence frequency.
type ColorFrequency struct {
	Hex        string   `json:"hex"`        // Hex color "#RRGGBB" (quantized)
	Percentage float64  `json:"percentage"` // Percentage of pixels with this color (0-100)
	RGB        RGBColor `json:"rgb"`        // RGB components (quantized)
}

// RegionColorsResult describes the source colors under one region.
type RegionColorsResult struct {
	ID       int              `json:"id"`
	Pixels   int              `json:"pixels"`
	Mean     ColorResult      `json:"mean"`     // Average in linear RGB
	Dominant []ColorFrequency `json:"dominant"` // Most frequent first
}

// RegionColors reports the mean color and the count most frequent colors of
// the pixels of img covered by r.
//
// Region coordinates are relative to img.Bounds().Min. Segments reaching
// outside the image are an error; they mean r was detected in another image.
//
// # Color Quantization
//
// To group similar colors for the dominant list, each RGB component is
// quantized by dividing by 16 and rounding down:
//
//	quantized = (original / 16) * 16
//
// For example, colors #F0F0F0 and #FAFAFA both count as #F0F0F0. The mean is
// computed from the unquantized colors.
func RegionColors(img image.Image, r *region.Region, count int) (*RegionColorsResult, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be at least 1, got %d", count)
	}
	bounds := img.Bounds()
	local := image.Rect(0, 0, bounds.Dx(), bounds.Dy())
	if !r.BoundingBox().In(local) {
		return nil, fmt.Errorf("region %d at %v outside image bounds %v", r.ID(), r.BoundingBox(), local)
	}

	counts := make(map[RGBColor]int)
	var lr, lg, lb, alpha float64
	total := 0
	for _, s := range r.Segments() {
		y := bounds.Min.Y + s.Row
		for x := bounds.Min.X + s.XStart; x < bounds.Min.X+s.XEnd; x++ {
			c := img.At(x, y)
			cf, _ := colorful.MakeColor(c)
			fr, fg, fb := cf.LinearRgb()
			lr, lg, lb = lr+fr, lg+fg, lb+fb

			cr, cg, cb, ca := c.RGBA()
			alpha += float64(ca >> 8)
			// Quantize to reduce color space (group similar colors)
			counts[RGBColor{
				R: uint8((cr >> 8) / 16 * 16),
				G: uint8((cg >> 8) / 16 * 16),
				B: uint8((cb >> 8) / 16 * 16),
			}]++
			total++
		}
	}

	result := &RegionColorsResult{ID: r.ID(), Pixels: total}
	if total == 0 {
		return result, nil
	}

	n := float64(total)
	mr, mg, mb := colorful.LinearRgb(lr/n, lg/n, lb/n).Clamped().RGB255()
	result.Mean = newColorResult(mr, mg, mb, uint8(alpha/n+0.5))

	colors := make([]ColorFrequency, 0, len(counts))
	for c, cnt := range counts {
		colors = append(colors, ColorFrequency{
			Hex:        fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B),
			Percentage: float64(cnt) / n * 100,
			RGB:        c,
		})
	}
	sort.Slice(colors, func(i, j int) bool {
		if colors[i].Percentage != colors[j].Percentage {
			return colors[i].Percentage > colors[j].Percentage
		}
		return colors[i].Hex < colors[j].Hex
	})
	if len(colors) > count {
		colors = colors[:count]
	}
	result.Dominant = colors
	return result, nil
}

// rgbToHSL converts 8-bit RGB values to HSL color space.
//
// Returns HSLColor with:
//   - H: 0-360 (degrees on color wheel)
//   - S: 0-100 (percentage)
//   - L: 0-100 (percentage)
func rgbToHSL(r, g, b uint8) HSLColor {
	rf := float64(r) / 255.0
	gf := float64(g) / 255.0
	bf := float64(b) / 255.0

	hi := max(rf, gf, bf)
	lo := min(rf, gf, bf)
	l := (hi + lo) / 2.0

	if hi == lo {
		return HSLColor{H: 0, S: 0, L: int(l * 100)}
	}

	var s float64
	if l < 0.5 {
		s = (hi - lo) / (hi + lo)
	} else {
		s = (hi - lo) / (2.0 - hi - lo)
	}

	var h float64
	switch hi {
	case rf:
		h = (gf - bf) / (hi - lo)
		if gf < bf {
			h += 6
		}
	case gf:
		h = 2.0 + (bf-rf)/(hi-lo)
	case bf:
		h = 4.0 + (rf-gf)/(hi-lo)
	}
	h *= 60

	return HSLColor{
		H: int(h),
		S: int(s * 100),
		L: int(l * 100),
	}
}
