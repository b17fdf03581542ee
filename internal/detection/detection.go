package detection

import (
	"context"
	"fmt"
	"image"
)

// Box is an axis-aligned bounding box in integer pixel coordinates.
type Box struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Width is X2 - X1.
func (b Box) Width() int { return b.X2 - b.X1 }

// Height is Y2 - Y1.
func (b Box) Height() int { return b.Y2 - b.Y1 }

// Valid reports whether X1 < X2 and Y1 < Y2.
func (b Box) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// Detection is one candidate object found by a detector.
type Detection struct {
	// ClassID is the model class of the object.
	ClassID int `json:"class_id"`

	// Confidence is the detector score in [0,1].
	Confidence float64 `json:"confidence"`

	// Box is the bounding box of the object.
	Box Box `json:"box"`
}

// Detector finds objects in an image.
//
// Detect returns every detection the backend produced, in backend order,
// without applying the caller's confidence threshold. An error means the
// model could not be run for this image.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
	Close() error
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(ctx context.Context, img image.Image) ([]Detection, error)

// Detect calls f(ctx, img).
func (f DetectorFunc) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	return f(ctx, img)
}

// Close does nothing.
func (f DetectorFunc) Close() error { return nil }
