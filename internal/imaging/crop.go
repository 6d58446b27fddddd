package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/imaging"
)

// CropResult contains the cropped image data
type CropResult struct {
	X           int    `json:"x"` // Top-left corner of the crop in the source image
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// Crop extracts rect from img, optionally rescaled, and returns it as a
// base64 PNG. Scale values <= 0 or 1 keep the original size; enlarged
// crops use nearest-neighbour sampling so label boundaries stay sharp.
func Crop(img image.Image, rect image.Rectangle, scale float64) (*CropResult, error) {
	if err := ValidateROI(img.Bounds(), rect); err != nil {
		return nil, fmt.Errorf("crop: %w", err)
	}

	cropped := imaging.Crop(img, rect)

	if scale != 1.0 && scale > 0 {
		newWidth := max(1, int(float64(cropped.Bounds().Dx())*scale))
		newHeight := max(1, int(float64(cropped.Bounds().Dy())*scale))
		filter := imaging.Lanczos
		if scale > 1 {
			filter = imaging.NearestNeighbor
		}
		cropped = imaging.Resize(cropped, newWidth, newHeight, filter)
	}

	encoded, err := encodePNG(cropped)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cropped image: %w", err)
	}

	return &CropResult{
		X:           rect.Min.X,
		Y:           rect.Min.Y,
		Width:       cropped.Bounds().Dx(),
		Height:      cropped.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// CropRegion crops the bounding box of a region grown by margin pixels on
// every side. The grown box is clipped to the image, so regions at the image
// border yield smaller crops.
func CropRegion(img image.Image, bbox image.Rectangle, margin int, scale float64) (*CropResult, error) {
	if margin < 0 {
		return nil, fmt.Errorf("margin must not be negative, got %d", margin)
	}
	rect := bbox.Inset(-margin).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region box %v lies outside image bounds %v", bbox, img.Bounds())
	}
	return Crop(img, rect, scale)
}

// encodePNG returns img as base64 encoded PNG.
func encodePNG(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
