package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/ironsheep/region-tools-mcp/internal/region"
)

// cachedImage is one decoded file plus the label images derived from it.
type cachedImage struct {
	img    image.Image
	format string
	labels map[string]*region.Image
}

// ImageCache provides thread-safe caching of decoded images and of the label
// images computed from them.
//
// Images are keyed by the exact path string. Label images are keyed by path
// and LabelOptions, so running region detection twice on the same file with
// the same conversion settings decodes and converts it only once.
//
// # Memory Management
//
// Entries remain in memory until removed via Evict() or Clear(). Evicting a
// path drops its label images as well.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	labels, err := cache.Labels("/path/to/image.png", imaging.DefaultLabelOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	regions := region.NewDetector(region.DefaultConstraints()).Detect(labels)
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]*cachedImage
}

// NewImageCache creates an empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]*cachedImage),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Parameters:
//   - path: Path to a PNG, JPEG or GIF file.
//
// Returns:
//   - image.Image: The decoded image.
//   - error: Non-nil if the file cannot be opened or decoded.
func (c *ImageCache) Load(path string) (image.Image, error) {
	entry, err := c.entry(path)
	if err != nil {
		return nil, err
	}
	return entry.img, nil
}

func (c *ImageCache) entry(path string) (*cachedImage, error) {
	c.mu.RLock()
	if e, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return e, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.images[path]; ok {
		return e, nil
	}
	e := &cachedImage{img: img, format: format, labels: make(map[string]*region.Image)}
	c.images[path] = e
	return e, nil
}

// Labels returns the label image of path under opts, converting and caching
// it on first use.
//
// The returned *region.Image is a private header over shared pixel data:
// callers may change its ROI freely but must not write to Pix.
func (c *ImageCache) Labels(path string, opts LabelOptions) (*region.Image, error) {
	e, err := c.entry(path)
	if err != nil {
		return nil, err
	}

	key := opts.Key()
	c.mu.RLock()
	labels, ok := e.labels[key]
	c.mu.RUnlock()

	if !ok {
		labels, err = ToLabels(e.img, opts)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		e.labels[key] = labels
		c.mu.Unlock()
	}

	view := *labels
	return &view, nil
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Clear removes all images and label images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]*cachedImage)
	c.mu.Unlock()
}

// Evict removes one image and its label images from the cache. Unknown paths
// are ignored.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// ImageInfo describes a loaded image file.
type ImageInfo struct {
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"` // Decoder name: "png", "jpeg" or "gif"
	ColorModel    string `json:"color_model"`
	HasAlpha      bool   `json:"has_alpha"`
	FileSizeBytes int64  `json:"file_size_bytes"`
	PixelCount    int    `json:"pixel_count"`
}

// LoadImageInfo loads an image through the cache and reports its metadata.
// The format is the one detected by the decoder, not the file extension.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	e, err := cache.entry(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	model, alpha := describeColorModel(e.img)
	b := e.img.Bounds()
	return &ImageInfo{
		Width:         b.Dx(),
		Height:        b.Dy(),
		Format:        e.format,
		ColorModel:    model,
		HasAlpha:      alpha,
		FileSizeBytes: stat.Size(),
		PixelCount:    b.Dx() * b.Dy(),
	}, nil
}

func describeColorModel(img image.Image) (string, bool) {
	switch img.(type) {
	case *image.Gray:
		return "gray8", false
	case *image.Gray16:
		return "gray16", false
	case *image.Paletted:
		return "paletted", true
	case *image.YCbCr:
		return "ycbcr", false
	case *image.RGBA, *image.NRGBA:
		return "rgba8", true
	case *image.RGBA64, *image.NRGBA64:
		return "rgba16", true
	default:
		return "other", true
	}
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image, loading it into the
// cache if needed.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
