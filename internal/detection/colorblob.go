package detection

import (
	"context"
	"image"

	"github.com/anthonynsimon/bild/clone"

	bimg "github.com/ironsheep/banana-ripeness/internal/imaging"
)

// ColorBlobOptions configures a ColorBlobDetector. Hue and saturation use
// the 8-bit OpenCV scale (hue 0-179, saturation 0-255).
type ColorBlobOptions struct {
	HueMin        int
	HueMax        int
	MinSaturation int

	// MinArea is the smallest component, in pixels, reported as a detection.
	MinArea int
}

// DefaultColorBlobOptions covers green through brown-yellow banana peel.
func DefaultColorBlobOptions() ColorBlobOptions {
	return ColorBlobOptions{
		HueMin:        10,
		HueMax:        75,
		MinSaturation: 80,
		MinArea:       400,
	}
}

// ColorBlobDetector finds 4-connected regions of banana-colored pixels. It
// needs no model and is meant for benches without weights.
type ColorBlobDetector struct {
	opts ColorBlobOptions
}

// NewColorBlobDetector returns a detector using opts.
func NewColorBlobDetector(opts ColorBlobOptions) *ColorBlobDetector {
	return &ColorBlobDetector{opts: opts}
}

// Detect returns one class 0 detection per qualifying component, in scan
// order (column-major from the top-left). Confidence is the share of the
// component's bounding box covered by the component.
func (d *ColorBlobDetector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	rgba := clone.AsRGBA(img)
	b := rgba.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, nil
	}

	mask := make([]bool, w*h)
	for y := 0; y < h; y++ {
		off := rgba.PixOffset(b.Min.X, b.Min.Y+y)
		for x := 0; x < w; x++ {
			p := rgba.Pix[off+4*x : off+4*x+3]
			mask[y*w+x] = d.pass(bimg.ToHSV8(p[0], p[1], p[2]))
		}
	}

	seen := make([]bool, w*h)
	var dets []Detection
	for i := 0; i < w; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := 0; j < h; j++ {
			idx := j*w + i
			if seen[idx] {
				continue
			}
			seen[idx] = true
			if !mask[idx] {
				continue
			}

			queue := []image.Point{{i, j}}
			x0, y0, x1, y1 := i, j, i, j
			count := 0
			for len(queue) != 0 {
				pt := queue[0]
				queue = queue[1:]
				count++
				if pt.X < x0 {
					x0 = pt.X
				}
				if pt.X > x1 {
					x1 = pt.X
				}
				if pt.Y < y0 {
					y0 = pt.Y
				}
				if pt.Y > y1 {
					y1 = pt.Y
				}
				for _, n := range [4]image.Point{{pt.X, pt.Y - 1}, {pt.X, pt.Y + 1}, {pt.X - 1, pt.Y}, {pt.X + 1, pt.Y}} {
					if n.X < 0 || n.Y < 0 || n.X >= w || n.Y >= h {
						continue
					}
					nIdx := n.Y*w + n.X
					if seen[nIdx] {
						continue
					}
					seen[nIdx] = true
					if mask[nIdx] {
						queue = append(queue, n)
					}
				}
			}

			if count < d.opts.MinArea {
				continue
			}
			area := (x1 - x0 + 1) * (y1 - y0 + 1)
			dets = append(dets, Detection{
				ClassID:    0,
				Confidence: float64(count) / float64(area),
				Box: Box{
					X1: b.Min.X + x0,
					Y1: b.Min.Y + y0,
					X2: b.Min.X + x1 + 1,
					Y2: b.Min.Y + y1 + 1,
				},
			})
		}
	}
	return dets, nil
}

func (d *ColorBlobDetector) pass(c bimg.HSV8) bool {
	return int(c.H) >= d.opts.HueMin && int(c.H) <= d.opts.HueMax && int(c.S) >= d.opts.MinSaturation
}

// Close does nothing.
func (d *ColorBlobDetector) Close() error { return nil }
