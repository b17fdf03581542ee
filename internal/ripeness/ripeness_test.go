package ripeness

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/banana-ripeness/internal/detection"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		hue  float64
		want float64
	}{
		{20, 100},
		{65, 0},
		{42.5, 50},
		{15, 1000.0 / 9.0},
		{17.5, 950.0 / 9.0},
		{10, 100},
		{0, 100},
		{65.01, 0},
		{90, 0},
		{180, 0},
	}

	for _, tt := range tests {
		got := Percentage(tt.hue)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Percentage(%v) = %v, want %v", tt.hue, got, tt.want)
		}
	}
}

// createCanvas returns a w x h image filled with bg, with r painted fg.
func createCanvas(w, h int, bg color.RGBA, r image.Rectangle, fg color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (image.Point{x, y}).In(r) {
				img.SetRGBA(x, y, fg)
			} else {
				img.SetRGBA(x, y, bg)
			}
		}
	}
	return img
}

func staticDetector(dets ...detection.Detection) detection.Detector {
	return detection.DetectorFunc(func(ctx context.Context, img image.Image) ([]detection.Detection, error) {
		return dets, nil
	})
}

func TestEstimate(t *testing.T) {
	yellow := color.RGBA{255, 255, 0, 255} // hue 30
	img := createCanvas(200, 100, color.RGBA{0, 0, 255, 255}, image.Rect(20, 20, 80, 80), yellow)

	box := detection.Box{X1: 20, Y1: 20, X2: 80, Y2: 80}
	e := NewEstimator(staticDetector(detection.Detection{ClassID: 0, Confidence: 0.9, Box: box}))

	res, err := e.Estimate(context.Background(), img)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.MeanHue != 30 {
		t.Errorf("MeanHue = %v, want 30", res.MeanHue)
	}
	if want := 35.0 / 45.0 * 100; math.Abs(res.Percentage-want) > 1e-9 {
		t.Errorf("Percentage = %v, want %v", res.Percentage, want)
	}
	if res.Box != box || res.Confidence != 0.9 {
		t.Errorf("unexpected detection in result: %+v", res)
	}
}

func TestEstimate_PicksMostConfident(t *testing.T) {
	// Left half green (hue 60), right half yellow (hue 30).
	img := createCanvas(100, 50, color.RGBA{0, 255, 0, 255}, image.Rect(50, 0, 100, 50), color.RGBA{255, 255, 0, 255})

	left := detection.Box{X1: 0, Y1: 0, X2: 50, Y2: 50}
	right := detection.Box{X1: 50, Y1: 0, X2: 100, Y2: 50}

	e := NewEstimator(staticDetector(
		detection.Detection{ClassID: 0, Confidence: 0.9, Box: left},
		detection.Detection{ClassID: 0, Confidence: 0.95, Box: right},
		detection.Detection{ClassID: 1, Confidence: 0.99, Box: left},
	))

	res, err := e.Estimate(context.Background(), img)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if res == nil || res.Box != right {
		t.Fatalf("expected the 0.95 detection, got %+v", res)
	}
	if res.MeanHue != 30 {
		t.Errorf("MeanHue = %v, want 30", res.MeanHue)
	}
}

func TestEstimate_NoDetection(t *testing.T) {
	img := createCanvas(10, 10, color.RGBA{255, 255, 0, 255}, image.Rectangle{}, color.RGBA{})
	box := detection.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}

	tests := []struct {
		name string
		dets []detection.Detection
		opts []Option
	}{
		{"none", nil, nil},
		{"low confidence", []detection.Detection{{Confidence: 0.49, Box: box}}, nil},
		{"other class", []detection.Detection{{ClassID: 3, Confidence: 0.99, Box: box}}, nil},
		{"custom threshold", []detection.Detection{{Confidence: 0.7, Box: box}}, []Option{WithMinConfidence(0.8)}},
		{"custom class", []detection.Detection{{ClassID: 0, Confidence: 0.9, Box: box}}, []Option{WithClassID(46)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := NewEstimator(staticDetector(tt.dets...), tt.opts...).Estimate(context.Background(), img)
			if err != nil {
				t.Fatalf("Estimate failed: %v", err)
			}
			if res != nil {
				t.Errorf("expected no result, got %+v", res)
			}
		})
	}
}

func TestEstimate_ThresholdIsInclusive(t *testing.T) {
	img := createCanvas(10, 10, color.RGBA{255, 255, 0, 255}, image.Rectangle{}, color.RGBA{})
	e := NewEstimator(staticDetector(detection.Detection{Confidence: 0.5, Box: detection.Box{X1: 0, Y1: 0, X2: 10, Y2: 10}}))

	res, err := e.Estimate(context.Background(), img)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if res == nil {
		t.Error("a detection at exactly the threshold should qualify")
	}
}

func TestEstimate_ClippedBox(t *testing.T) {
	img := createCanvas(40, 40, color.RGBA{255, 255, 0, 255}, image.Rectangle{}, color.RGBA{})

	e := NewEstimator(staticDetector(detection.Detection{Confidence: 0.8, Box: detection.Box{X1: 30, Y1: 30, X2: 90, Y2: 90}}))
	res, err := e.Estimate(context.Background(), img)
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if res == nil || res.MeanHue != 30 {
		t.Errorf("expected hue of the visible part, got %+v", res)
	}

	e = NewEstimator(staticDetector(detection.Detection{Confidence: 0.8, Box: detection.Box{X1: 50, Y1: 50, X2: 90, Y2: 90}}))
	if _, err := e.Estimate(context.Background(), img); !errors.Is(err, ErrEmptyRegion) {
		t.Errorf("expected ErrEmptyRegion for a box outside the image, got %v", err)
	}
}

func TestEstimate_DetectorError(t *testing.T) {
	boom := errors.New("inference failed")
	e := NewEstimator(detection.DetectorFunc(func(ctx context.Context, img image.Image) ([]detection.Detection, error) {
		return nil, boom
	}))

	if _, err := e.Estimate(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4))); !errors.Is(err, boom) {
		t.Errorf("expected detector error, got %v", err)
	}
}
