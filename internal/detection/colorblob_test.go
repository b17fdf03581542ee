package detection

import (
	"context"
	"image"
	"image/color"
	"testing"
)

// fillRect paints the half-open rectangle r with c.
func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func TestColorBlobDetector_Detect(t *testing.T) {
	img := createTestImage(100, 100, color.White)
	fillRect(img, image.Rect(20, 30, 60, 50), color.RGBA{255, 255, 0, 255})
	// Too small to report.
	fillRect(img, image.Rect(80, 80, 85, 85), color.RGBA{255, 255, 0, 255})

	d := NewColorBlobDetector(DefaultColorBlobOptions())
	dets, err := d.Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 1 {
		t.Fatalf("expected 1 detection, got %d: %+v", len(dets), dets)
	}

	want := Box{X1: 20, Y1: 30, X2: 60, Y2: 50}
	if dets[0].Box != want {
		t.Errorf("box = %v, want %v", dets[0].Box, want)
	}
	if dets[0].ClassID != 0 {
		t.Errorf("class = %d, want 0", dets[0].ClassID)
	}
	if dets[0].Confidence != 1 {
		t.Errorf("confidence = %v, want 1 for a solid rectangle", dets[0].Confidence)
	}
}

func TestColorBlobDetector_IgnoresOtherColors(t *testing.T) {
	tests := []struct {
		name string
		c    color.RGBA
	}{
		{"blue", color.RGBA{0, 0, 255, 255}},
		{"gray", color.RGBA{128, 128, 128, 255}},
		{"pale yellow", color.RGBA{255, 255, 230, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := createTestImage(60, 60, color.Black)
			fillRect(img, image.Rect(10, 10, 50, 50), tt.c)

			dets, err := NewColorBlobDetector(DefaultColorBlobOptions()).Detect(context.Background(), img)
			if err != nil {
				t.Fatalf("Detect failed: %v", err)
			}
			if len(dets) != 0 {
				t.Errorf("expected no detections, got %+v", dets)
			}
		})
	}
}

func TestColorBlobDetector_SeparateComponents(t *testing.T) {
	img := createTestImage(120, 60, color.White)
	green := color.RGBA{60, 200, 20, 255}
	fillRect(img, image.Rect(70, 10, 110, 50), green)
	fillRect(img, image.Rect(5, 10, 45, 50), color.RGBA{230, 200, 30, 255})

	dets, err := NewColorBlobDetector(DefaultColorBlobOptions()).Detect(context.Background(), img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(dets) != 2 {
		t.Fatalf("expected 2 detections, got %d", len(dets))
	}
	// Scan order is left to right.
	if dets[0].Box.X1 != 5 || dets[1].Box.X1 != 70 {
		t.Errorf("unexpected order: %+v", dets)
	}
}

func TestColorBlobDetector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	img := createTestImage(10, 10, color.White)
	if _, err := NewColorBlobDetector(DefaultColorBlobOptions()).Detect(ctx, img); err == nil {
		t.Error("expected error for cancelled context")
	}
}

// createTestImage creates a solid color test image
func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}
