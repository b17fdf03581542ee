package detection

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	"github.com/nfnt/resize"
)

// letterboxFill is the gray used to pad model inputs.
var letterboxFill = color.RGBA{114, 114, 114, 255}

// Letterbox maps an image onto a square model input without distorting it:
// the image is scaled to fit, then centered on a gray square.
type Letterbox struct {
	Size  int     // side of the square model input
	Scale float64 // source pixels to model pixels
	NewW  int     // scaled width before padding
	NewH  int     // scaled height before padding
	PadX  int     // left padding
	PadY  int     // top padding
	SrcW  int
	SrcH  int
}

// NewLetterbox computes the letterbox geometry for a srcW x srcH image.
func NewLetterbox(srcW, srcH, size int) Letterbox {
	r := math.Min(float64(size)/float64(srcW), float64(size)/float64(srcH))
	newW := int(math.Round(float64(srcW) * r))
	newH := int(math.Round(float64(srcH) * r))
	dw := float64(size-newW) / 2
	dh := float64(size-newH) / 2

	return Letterbox{
		Size:  size,
		Scale: r,
		NewW:  newW,
		NewH:  newH,
		PadX:  int(math.Round(dw - 0.1)),
		PadY:  int(math.Round(dh - 0.1)),
		SrcW:  srcW,
		SrcH:  srcH,
	}
}

// Apply renders img into a new Size x Size RGBA image.
func (l Letterbox) Apply(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, l.Size, l.Size))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: letterboxFill}, image.Point{}, draw.Src)

	scaled := resize.Resize(uint(l.NewW), uint(l.NewH), img, resize.Bilinear)
	target := image.Rect(l.PadX, l.PadY, l.PadX+l.NewW, l.PadY+l.NewH)
	draw.Draw(dst, target, scaled, scaled.Bounds().Min, draw.Src)

	return dst
}

// Unscale maps a box in model coordinates back to the source image, clipping
// it to the image and truncating to whole pixels.
func (l Letterbox) Unscale(x1, y1, x2, y2 float64) Box {
	fx := func(v float64) int {
		v = (v - float64(l.PadX)) / l.Scale
		return int(math.Max(0, math.Min(v, float64(l.SrcW))))
	}
	fy := func(v float64) int {
		v = (v - float64(l.PadY)) / l.Scale
		return int(math.Max(0, math.Min(v, float64(l.SrcH))))
	}
	return Box{X1: fx(x1), Y1: fy(y1), X2: fx(x2), Y2: fy(y2)}
}

// fillBlob writes img into dst as planar RGB floats in [0,1] (CHW order).
// dst must hold 3 * width * height values.
func fillBlob(img *image.RGBA, dst []float32) {
	b := img.Bounds()
	stride := b.Dx() * b.Dy()
	idx := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		for x := 0; x < b.Dx(); x++ {
			i := off + 4*x
			dst[idx] = float32(img.Pix[i]) / 255.0
			dst[idx+stride] = float32(img.Pix[i+1]) / 255.0
			dst[idx+2*stride] = float32(img.Pix[i+2]) / 255.0
			idx++
		}
	}
}

// DecodeOptions tunes YOLO output decoding.
type DecodeOptions struct {
	// ScoreThreshold: a box is a candidate when its best class score is
	// strictly greater than this.
	ScoreThreshold float64

	// IOUThreshold: a box is suppressed by a higher scoring box of the same
	// class when their IoU is strictly greater than this.
	IOUThreshold float64

	// MaxDetections caps the number of boxes kept after suppression.
	MaxDetections int
}

// DefaultDecodeOptions matches the Ultralytics prediction defaults.
func DefaultDecodeOptions() DecodeOptions {
	return DecodeOptions{ScoreThreshold: 0.25, IOUThreshold: 0.7, MaxDetections: 300}
}

type candidate struct {
	x1, y1, x2, y2 float64
	score          float64
	class          int
}

// DecodeYOLO turns a YOLOv8 detection head output into detections in source
// image coordinates.
//
// output is the [1, 4+numClasses, numBoxes] tensor flattened in row-major
// order: for box i, output[i], output[numBoxes+i], output[2*numBoxes+i] and
// output[3*numBoxes+i] are cx, cy, w, h in model pixels, followed by one
// score row per class. Suppression is per class. The result is sorted by
// confidence, highest first.
func DecodeYOLO(output []float32, numClasses, numBoxes int, lb Letterbox, opts DecodeOptions) []Detection {
	if numClasses < 1 || numBoxes < 1 || len(output) < (4+numClasses)*numBoxes {
		return nil
	}

	cands := make([]candidate, 0, 64)
	for i := 0; i < numBoxes; i++ {
		class, score := 0, float32(-1)
		for c := 0; c < numClasses; c++ {
			if s := output[(4+c)*numBoxes+i]; s > score {
				class, score = c, s
			}
		}
		if float64(score) <= opts.ScoreThreshold {
			continue
		}

		cx := float64(output[i])
		cy := float64(output[numBoxes+i])
		w := float64(output[2*numBoxes+i])
		h := float64(output[3*numBoxes+i])
		cands = append(cands, candidate{
			x1: cx - w/2, y1: cy - h/2,
			x2: cx + w/2, y2: cy + h/2,
			score: float64(score),
			class: class,
		})
	}

	kept := nonMaxSuppression(cands, opts.IOUThreshold, opts.MaxDetections)

	dets := make([]Detection, 0, len(kept))
	for _, c := range kept {
		dets = append(dets, Detection{
			ClassID:    c.class,
			Confidence: c.score,
			Box:        lb.Unscale(c.x1, c.y1, c.x2, c.y2),
		})
	}
	return dets
}

// nonMaxSuppression keeps the highest scoring boxes, dropping any box that
// overlaps an already kept box of the same class by more than iouThreshold.
func nonMaxSuppression(cands []candidate, iouThreshold float64, maxDet int) []candidate {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	kept := make([]candidate, 0, len(cands))
	for _, c := range cands {
		if maxDet > 0 && len(kept) >= maxDet {
			break
		}
		suppressed := false
		for _, k := range kept {
			if k.class == c.class && iou(k, c) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, c)
		}
	}
	return kept
}

func iou(a, b candidate) float64 {
	ix1 := math.Max(a.x1, b.x1)
	iy1 := math.Max(a.y1, b.y1)
	ix2 := math.Min(a.x2, b.x2)
	iy2 := math.Min(a.y2, b.y2)

	inter := math.Max(0, ix2-ix1) * math.Max(0, iy2-iy1)
	union := (a.x2-a.x1)*(a.y2-a.y1) + (b.x2-b.x1)*(b.y2-b.y1) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
