// Package ripeness estimates how ripe a banana is from its peel color.
//
// The estimate is the mean OpenCV hue (0-179 scale) of the best banana
// detection, mapped linearly so that hue 20 (yellow) is 100% ripe and hue 65
// (green) is 0%.
package ripeness

import (
	"context"
	"fmt"
	"image"

	"github.com/ironsheep/banana-ripeness/internal/detection"
	bimg "github.com/ironsheep/banana-ripeness/internal/imaging"
)

// Hue anchors of the ripeness scale.
const (
	RipeHue   = 20.0 // fully ripe
	UnripeHue = 65.0 // fully green
	LowerHue  = 15.0 // lowest hue still mapped linearly
)

// ErrEmptyRegion is returned when the chosen box has no pixels inside the
// image.
var ErrEmptyRegion = bimg.ErrEmptyRegion

// Estimator defaults: the detection threshold and the banana class id.
const (
	DefaultMinConfidence = 0.5
	DefaultClassID       = 0
)

// Result is the estimate for one image.
type Result struct {
	Percentage float64       `json:"percentage"`
	MeanHue    float64       `json:"mean_hue"`
	Box        detection.Box `json:"box"`
	Confidence float64       `json:"confidence"`
}

// Percentage maps a mean hue to a ripeness percentage.
//
// Hues in [15, 65] map linearly with 20 at 100 and 65 at 0; no clamping is
// applied, so hues in [15, 20) give more than 100. Lower hues give 100 and
// higher hues give 0.
func Percentage(hue float64) float64 {
	switch {
	case hue >= LowerHue && hue <= UnripeHue:
		return (UnripeHue - hue) / (UnripeHue - RipeHue) * 100
	case hue < RipeHue:
		return 100
	default:
		return 0
	}
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithMinConfidence sets the confidence a banana detection must reach.
func WithMinConfidence(conf float64) Option {
	return func(e *Estimator) { e.minConfidence = conf }
}

// WithClassID sets the model class that denotes a banana.
func WithClassID(id int) Option {
	return func(e *Estimator) { e.classID = id }
}

// Estimator turns detections into a ripeness estimate. It is safe for
// concurrent use if its Detector is.
type Estimator struct {
	detector      detection.Detector
	minConfidence float64
	classID       int
}

// NewEstimator returns an Estimator backed by d.
func NewEstimator(d detection.Detector, opts ...Option) *Estimator {
	e := &Estimator{
		detector:      d,
		minConfidence: DefaultMinConfidence,
		classID:       DefaultClassID,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Estimate detects bananas in img and estimates the ripeness of the most
// confident one. It returns nil, nil when no detection qualifies.
func (e *Estimator) Estimate(ctx context.Context, img image.Image) (*Result, error) {
	dets, err := e.detector.Detect(ctx, img)
	if err != nil {
		return nil, err
	}

	best, ok := detection.Best(detection.Apply(dets,
		detection.NewScoreFilter(e.minConfidence),
		detection.NewClassFilter(e.classID),
	))
	if !ok {
		return nil, nil
	}

	crop, err := bimg.Crop(img, bimg.Region{X1: best.Box.X1, Y1: best.Box.Y1, X2: best.Box.X2, Y2: best.Box.Y2})
	if err != nil {
		return nil, fmt.Errorf("banana box %s: %w", best.Box, err)
	}

	hue, err := bimg.MeanHue(crop)
	if err != nil {
		return nil, fmt.Errorf("banana box %s: %w", best.Box, err)
	}

	return &Result{
		Percentage: Percentage(hue),
		MeanHue:    hue,
		Box:        best.Box,
		Confidence: best.Confidence,
	}, nil
}
