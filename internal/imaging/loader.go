package imaging

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
)

// supportedExtensions lists the input formats the batch picks up.
var supportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsSupported reports whether name has a png, jpg or jpeg extension,
// compared case-insensitively.
func IsSupported(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// ListImages returns the names of the supported image files directly under
// dir, sorted by name. Subdirectories are not descended into.
//
// An existing directory with no matching files yields an empty slice and a
// nil error.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if IsSupported(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}

// LoadCanvas decodes the image at path, applies its EXIF orientation and
// resizes it to exactly width x height with bilinear filtering.
//
// Returns:
//   - *image.RGBA: A fresh canvas owned by the caller, with bounds (0,0)-(width,height).
//   - error: Non-nil if the file cannot be opened or decoded.
func LoadCanvas(path string, width, height int) (*image.RGBA, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	return ToCanvas(img, width, height), nil
}

// ToCanvas resizes an already decoded image to the canvas size and converts
// it to RGBA. The alpha channel is discarded before resizing, so transparent
// pixels keep their stored color and the canvas is fully opaque. The source
// image is not modified.
func ToCanvas(img image.Image, width, height int) *image.RGBA {
	resized := imaging.Resize(opaque(img), width, height, imaging.Linear)
	return clone.AsRGBA(resized)
}

// opaque returns a non-premultiplied copy of img with every alpha set to 255.
func opaque(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// CloneCanvas returns a deep copy of a canvas.
func CloneCanvas(img *image.RGBA) *image.RGBA {
	return clone.AsRGBA(img)
}

// Save encodes img to path using the format implied by the extension.
// JPEG files are written at the given quality (1-100). Existing files are
// overwritten.
func Save(path string, img image.Image, jpegQuality int) error {
	var encoder imgio.Encoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		encoder = imgio.PNGEncoder()
	case ".jpg", ".jpeg":
		encoder = imgio.JPEGEncoder(jpegQuality)
	default:
		return fmt.Errorf("unsupported output format: %s", filepath.Ext(path))
	}

	if err := imgio.Save(path, img, encoder); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// CanvasCache provides thread-safe caching of loaded canvases keyed by path.
//
// All canvases in a cache share the same size. Once an image is loaded,
// subsequent Load calls for the same path return the same canvas without disk
// I/O, so callers must not draw on the returned canvas directly.
//
// # Example Usage
//
//	cache := imaging.NewCanvasCache(800, 600)
//	canvas, err := cache.Load("/path/to/banana.jpg")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	work := imaging.CloneCanvas(canvas)
type CanvasCache struct {
	mu       sync.RWMutex
	width    int
	height   int
	canvases map[string]*image.RGBA
}

// NewCanvasCache creates an empty cache producing width x height canvases.
func NewCanvasCache(width, height int) *CanvasCache {
	return &CanvasCache{
		width:    width,
		height:   height,
		canvases: make(map[string]*image.RGBA),
	}
}

// Load retrieves a canvas from the cache or loads it from disk if not cached.
//
// The canvas is cached using the exact path string provided. Different paths
// to the same file (e.g., relative vs absolute) result in separate entries.
func (c *CanvasCache) Load(path string) (*image.RGBA, error) {
	c.mu.RLock()
	if img, ok := c.canvases[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := LoadCanvas(path, c.width, c.height)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.canvases[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all canvases from the cache.
func (c *CanvasCache) Clear() {
	c.mu.Lock()
	c.canvases = make(map[string]*image.RGBA)
	c.mu.Unlock()
}

// Evict removes the canvas loaded from path. Unknown paths are ignored.
func (c *CanvasCache) Evict(path string) {
	c.mu.Lock()
	delete(c.canvases, path)
	c.mu.Unlock()
}
