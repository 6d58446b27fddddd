package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"rescribe.xyz/preproc"

	"github.com/ironsheep/region-tools-mcp/internal/region"
)

// Label conversion modes.
const (
	ModeThreshold = "threshold"
	ModeGray      = "gray"
	ModeSauvola   = "sauvola"
	ModePalette   = "palette"
)

// TransparentLabel is assigned to fully transparent pixels in palette mode.
const TransparentLabel int32 = -1

// LabelOptions control how a color image becomes a label image.
//
// Region detection works on exact value equality, so every mode quantizes
// the image to a handful of values:
//   - threshold: global luminance threshold, labels 0 and 255
//   - gray: luminance split into Levels equal bands, labels 0..Levels-1
//   - sauvola: locally adaptive binarization, labels 0 and 255
//   - palette: nearest palette color in CIE-Lab, label = palette index
type LabelOptions struct {
	Mode          string   `json:"mode" yaml:"mode"`
	Threshold     uint8    `json:"threshold" yaml:"threshold"`
	Levels        int      `json:"levels" yaml:"levels"`
	SauvolaK      float64  `json:"sauvola_k" yaml:"sauvola_k"`
	SauvolaWindow int      `json:"sauvola_window" yaml:"sauvola_window"`
	Palette       []string `json:"palette,omitempty" yaml:"palette,omitempty"`
	Invert        bool     `json:"invert" yaml:"invert"`
}

// DefaultLabelOptions returns a mid-gray threshold conversion.
func DefaultLabelOptions() LabelOptions {
	return LabelOptions{
		Mode:          ModeThreshold,
		Threshold:     128,
		Levels:        4,
		SauvolaK:      0.3,
		SauvolaWindow: 19,
	}
}

// Validate checks the options of the selected mode.
func (o LabelOptions) Validate() error {
	switch o.Mode {
	case ModeThreshold:
	case ModeGray:
		if o.Levels < 2 || o.Levels > 256 {
			return fmt.Errorf("levels must be in [2, 256], got %d", o.Levels)
		}
	case ModeSauvola:
		if o.SauvolaWindow < 3 {
			return fmt.Errorf("sauvola window must be at least 3, got %d", o.SauvolaWindow)
		}
		if o.SauvolaK <= 0 {
			return fmt.Errorf("sauvola k must be positive, got %g", o.SauvolaK)
		}
	case ModePalette:
		if len(o.Palette) == 0 {
			return fmt.Errorf("palette mode requires at least one color")
		}
		for _, hex := range o.Palette {
			if _, err := colorful.Hex(hex); err != nil {
				return fmt.Errorf("invalid palette color %q: %w", hex, err)
			}
		}
	default:
		return fmt.Errorf("unknown label mode %q", o.Mode)
	}
	return nil
}

// Key identifies the conversion result of the options; options producing the
// same labels may still have different keys.
func (o LabelOptions) Key() string {
	return fmt.Sprintf("%s|%d|%d|%g|%d|%s|%t",
		o.Mode, o.Threshold, o.Levels, o.SauvolaK, o.SauvolaWindow,
		strings.ToLower(strings.Join(o.Palette, ",")), o.Invert)
}

// ToLabels converts img into a label image with a full ROI.
//
// Parameters:
//   - img: Any decoded image. Its bounds are shifted so the label image
//     starts at (0, 0).
//   - opts: Conversion settings, see LabelOptions.
//
// Returns:
//   - *region.Image: One int32 label per pixel.
//   - error: Non-nil if opts are invalid.
//
// Invert flips the image before binarization in the threshold, gray and
// sauvola modes; it is ignored in palette mode.
func ToLabels(img image.Image, opts LabelOptions) (*region.Image, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var src image.Image = img
	if opts.Invert && opts.Mode != ModePalette {
		src = imaging.Invert(img)
	}

	switch opts.Mode {
	case ModeThreshold:
		return fromGray(segment.Threshold(src, opts.Threshold), nil), nil
	case ModeGray:
		levels := opts.Levels
		return fromGray(toGray(src), func(v uint8) int32 {
			return int32(int(v) * levels / 256)
		}), nil
	case ModeSauvola:
		return fromGray(preproc.IntegralSauvola(toGray(src), opts.SauvolaK, opts.SauvolaWindow), nil), nil
	default:
		return paletteLabels(img, opts.Palette)
	}
}

// toGray converts img to an 8-bit luminance image with origin (0, 0).
func toGray(img image.Image) *image.Gray {
	nrgba := imaging.Grayscale(img)
	b := nrgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := nrgba.Pix[y*nrgba.Stride:]
		dst := gray.Pix[y*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = src[4*x]
		}
	}
	return gray
}

// fromGray copies g into a label image, mapping every byte through fn.
func fromGray(g *image.Gray, fn func(uint8) int32) *region.Image {
	b := g.Bounds()
	out := region.NewImage(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		src := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		dst := out.Row(y)
		for x, v := range src {
			if fn == nil {
				dst[x] = int32(v)
			} else {
				dst[x] = fn(v)
			}
		}
	}
	return out
}

// paletteLabels assigns every pixel the index of the perceptually nearest
// palette color.
func paletteLabels(img image.Image, hexes []string) (*region.Image, error) {
	palette := make([]colorful.Color, len(hexes))
	for i, hex := range hexes {
		c, err := colorful.Hex(hex)
		if err != nil {
			return nil, fmt.Errorf("invalid palette color %q: %w", hex, err)
		}
		palette[i] = c
	}

	b := img.Bounds()
	out := region.NewImage(b.Dx(), b.Dy())
	memo := make(map[color.RGBA]int32)
	for y := 0; y < b.Dy(); y++ {
		row := out.Row(y)
		for x := 0; x < b.Dx(); x++ {
			rgba := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			if label, ok := memo[rgba]; ok {
				row[x] = label
				continue
			}
			label := nearestPaletteIndex(rgba, palette)
			memo[rgba] = label
			row[x] = label
		}
	}
	return out, nil
}

func nearestPaletteIndex(c color.RGBA, palette []colorful.Color) int32 {
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return TransparentLabel
	}
	best, bestDist := 0, cc.DistanceLab(palette[0])
	for i := 1; i < len(palette); i++ {
		if d := cc.DistanceLab(palette[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return int32(best)
}
