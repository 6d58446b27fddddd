package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// decodeResult decodes a base64 PNG produced by this package.
func decodeResult(t *testing.T, b64 string) image.Image {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	return img
}

func TestCrop(t *testing.T) {
	img := createBlocksImage(100, 100, 10, image.Pt(20, 30))

	result, err := Crop(img, image.Rect(20, 30, 30, 40), 1.0)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if result.Width != 10 || result.Height != 10 || result.X != 20 || result.Y != 30 {
		t.Errorf("crop: got %dx%d at (%d,%d), want 10x10 at (20,30)",
			result.Width, result.Height, result.X, result.Y)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	decoded := decodeResult(t, result.ImageBase64)
	r, g, b, _ := decoded.At(5, 5).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("crop content: got (%d,%d,%d), want white", r>>8, g>>8, b>>8)
	}
}

func TestCrop_Scale(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name  string
		scale float64
		want  int
	}{
		{"up", 2.0, 100},
		{"down", 0.5, 25},
		{"zero keeps size", 0, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Crop(img, image.Rect(0, 0, 50, 50), tt.scale)
			if err != nil {
				t.Fatalf("Crop failed: %v", err)
			}
			if result.Width != tt.want || result.Height != tt.want {
				t.Errorf("scaled size: got %dx%d, want %dx%d", result.Width, result.Height, tt.want, tt.want)
			}
		})
	}
}

func TestCrop_InvalidRect(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name string
		rect image.Rectangle
	}{
		{"x1 negative", image.Rect(-1, 0, 50, 50)},
		{"x2 too large", image.Rect(0, 0, 101, 50)},
		{"y2 too large", image.Rect(0, 0, 50, 101)},
		{"empty", image.Rectangle{Min: image.Pt(10, 10), Max: image.Pt(10, 20)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(img, tt.rect, 1.0); err == nil {
				t.Error("Crop should fail")
			}
		})
	}
}

func TestCropRegion(t *testing.T) {
	img := createInMemoryImage(50, 50, color.RGBA{0, 0, 0, 255})

	tests := []struct {
		name          string
		bbox          image.Rectangle
		margin        int
		wantX, wantY  int
		wantW, wantH  int
	}{
		{"inside", image.Rect(10, 10, 20, 15), 2, 8, 8, 14, 9},
		{"clipped at origin", image.Rect(0, 0, 4, 4), 3, 0, 0, 7, 7},
		{"clipped at far edge", image.Rect(45, 40, 50, 50), 5, 40, 35, 10, 15},
		{"no margin", image.Rect(1, 2, 3, 4), 0, 1, 2, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CropRegion(img, tt.bbox, tt.margin, 1)
			if err != nil {
				t.Fatalf("CropRegion failed: %v", err)
			}
			if result.X != tt.wantX || result.Y != tt.wantY || result.Width != tt.wantW || result.Height != tt.wantH {
				t.Errorf("got %dx%d at (%d,%d), want %dx%d at (%d,%d)",
					result.Width, result.Height, result.X, result.Y,
					tt.wantW, tt.wantH, tt.wantX, tt.wantY)
			}
		})
	}

	if _, err := CropRegion(img, image.Rect(1, 1, 2, 2), -1, 1); err == nil {
		t.Error("CropRegion should reject a negative margin")
	}
	if _, err := CropRegion(img, image.Rect(80, 80, 90, 90), 1, 1); err == nil {
		t.Error("CropRegion should fail for a box outside the image")
	}
}
