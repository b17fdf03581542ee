package imaging

import (
	"errors"
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// ErrEmptyRegion is returned when a region has no pixels inside the image.
var ErrEmptyRegion = errors.New("region contains no pixels")

// HSV8 is a color on the 8-bit HSV scale: H in [0,179], S and V in [0,255].
type HSV8 struct {
	H uint8
	S uint8
	V uint8
}

// ToHSV8 converts 8-bit RGB components to the 8-bit HSV scale.
//
// Hue in degrees is halved and rounded to the nearest integer, so pure red is
// 0, yellow 30, green 60 and blue 120. Hues of 359 degrees and up round to 180
// and wrap to 0, keeping H in [0,179]. Saturation and value are scaled from
// [0,1] to [0,255]. Gray pixels (including black and white) have H = S = 0.
func ToHSV8(r, g, b uint8) HSV8 {
	c := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
	h, s, v := c.Hsv()

	hue := math.Round(h / 2)
	if hue >= 180 {
		hue -= 180
	}

	return HSV8{
		H: uint8(hue),
		S: uint8(math.Round(s * 255)),
		V: uint8(math.Round(v * 255)),
	}
}

// Hue8 returns only the hue component of ToHSV8.
func Hue8(r, g, b uint8) uint8 {
	return ToHSV8(r, g, b).H
}

// MeanHue returns the arithmetic mean of the 8-bit hue of every pixel in img.
//
// Returns ErrEmptyRegion if img has no pixels.
func MeanHue(img image.Image) (float64, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return 0, ErrEmptyRegion
	}

	var sum float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			sum += float64(Hue8(uint8(r>>8), uint8(g>>8), uint8(b>>8)))
		}
	}

	return sum / float64(bounds.Dx()*bounds.Dy()), nil
}
