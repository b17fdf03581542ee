package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// Region represents a rectangular region within an image.
//
// Coordinates follow the standard image convention:
//   - (X1, Y1) is the top-left corner (inclusive)
//   - (X2, Y2) is the bottom-right corner (exclusive)
//   - Width = X2 - X1, Height = Y2 - Y1
type Region struct {
	X1 int // Left edge X coordinate (inclusive)
	Y1 int // Top edge Y coordinate (inclusive)
	X2 int // Right edge X coordinate (exclusive)
	Y2 int // Bottom edge Y coordinate (exclusive)
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

// Crop extracts region from img.
//
// Like slicing a pixel array, the parts of the region that fall outside the
// image are dropped rather than rejected. If nothing of the region remains,
// or the region is inverted, ErrEmptyRegion is returned.
func Crop(img image.Image, region Region) (*image.NRGBA, error) {
	if region.X1 >= region.X2 || region.Y1 >= region.Y2 {
		return nil, ErrEmptyRegion
	}

	rect := region.Rect().Intersect(img.Bounds())
	if rect.Empty() {
		return nil, ErrEmptyRegion
	}

	return imaging.Crop(img, rect), nil
}
