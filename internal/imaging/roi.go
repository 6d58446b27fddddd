package imaging

import (
	"fmt"
	"image"
	"sort"
)

// roiNames maps region names to rectangles relative to an image of size w x h.
var roiNames = map[string]func(w, h int) image.Rectangle{
	"full":         func(w, h int) image.Rectangle { return image.Rect(0, 0, w, h) },
	"top-left":     func(w, h int) image.Rectangle { return image.Rect(0, 0, w/2, h/2) },
	"top-right":    func(w, h int) image.Rectangle { return image.Rect(w/2, 0, w, h/2) },
	"bottom-left":  func(w, h int) image.Rectangle { return image.Rect(0, h/2, w/2, h) },
	"bottom-right": func(w, h int) image.Rectangle { return image.Rect(w/2, h/2, w, h) },
	"top-half":     func(w, h int) image.Rectangle { return image.Rect(0, 0, w, h/2) },
	"bottom-half":  func(w, h int) image.Rectangle { return image.Rect(0, h/2, w, h) },
	"left-half":    func(w, h int) image.Rectangle { return image.Rect(0, 0, w/2, h) },
	"right-half":   func(w, h int) image.Rectangle { return image.Rect(w/2, 0, w, h) },
	// center 50% of the image
	"center": func(w, h int) image.Rectangle { return image.Rect(w/4, h/4, w-w/4, h-h/4) },
}

// ROINames lists the names accepted by NamedROI in sorted order.
func ROINames() []string {
	names := make([]string, 0, len(roiNames))
	for name := range roiNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NamedROI returns the rectangle of a named image region such as
// "top-left" or "center", in the coordinates of bounds.
func NamedROI(bounds image.Rectangle, name string) (image.Rectangle, error) {
	fn, ok := roiNames[name]
	if !ok {
		return image.Rectangle{}, fmt.Errorf("unknown region: %s", name)
	}
	return fn(bounds.Dx(), bounds.Dy()).Add(bounds.Min), nil
}

// ValidateROI checks that r is non-empty and lies inside bounds.
func ValidateROI(bounds, r image.Rectangle) error {
	if r.Min.X >= r.Max.X || r.Min.Y >= r.Max.Y {
		return fmt.Errorf("invalid region (%d,%d)-(%d,%d): x1 must be < x2, y1 must be < y2",
			r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
	}
	if !r.In(bounds) {
		return fmt.Errorf("region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			r.Min.X, r.Min.Y, r.Max.X, r.Max.Y,
			bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	return nil
}
