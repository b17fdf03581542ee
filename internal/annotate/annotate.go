// Package annotate draws the ripeness overlay onto a canvas.
package annotate

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ironsheep/banana-ripeness/internal/detection"
)

// Bar geometry. Corners are inclusive, so the bar covers 501 x 31 pixels.
const (
	BarX      = 50
	BarY      = 50
	BarLength = 500
	BarBottom = 80

	textGap       = 5
	hueBaseline   = 40
	valueBaseline = 75
	lineWidth     = 2
)

// DefaultFontSize is the text height in points at 72 DPI.
const DefaultFontSize = 22

// Overlay colors.
var (
	White  = color.RGBA{255, 255, 255, 255}
	Yellow = color.RGBA{255, 255, 0, 255}
	Green  = color.RGBA{0, 255, 0, 255}
	Red    = color.RGBA{255, 0, 0, 255}
	Black  = color.RGBA{0, 0, 0, 255}
	Blue   = color.RGBA{0, 0, 255, 255}
)

var font *truetype.Font

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Annotator draws the overlay. The zero value is not usable; use New.
type Annotator struct {
	fontSize float64
}

// New returns an Annotator drawing text at fontSize; values <= 0 mean
// DefaultFontSize.
func New(fontSize float64) *Annotator {
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	return &Annotator{fontSize: fontSize}
}

// FillLength is the yellow bar length in pixels for percentage. It is not
// clamped: percentages above 100 run past the bar.
func FillLength(percentage float64) int {
	return int(BarLength * (percentage / 100))
}

// Annotate draws the ripeness bar, the hue and percentage readouts and the
// banana box into img and returns img.
func (a *Annotator) Annotate(img *image.RGBA, percentage, meanHue float64, box detection.Box) *image.RGBA {
	dc := gg.NewContextForRGBA(img)
	l := FillLength(percentage)

	fillRect(dc, image.Rect(BarX, BarY, BarX+BarLength, BarBottom), White)
	fillRect(dc, image.Rect(BarX, BarY, BarX+l, BarBottom), Yellow)
	strokeRect(dc, image.Rect(BarX, BarY, BarX+BarLength, BarBottom), Green)

	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: a.fontSize}))
	textX := float64(BarX + l + textGap)
	dc.SetColor(Red)
	dc.DrawString(fmt.Sprintf("Hue: %.2f", meanHue), textX, hueBaseline)
	dc.SetColor(Black)
	dc.DrawString(fmt.Sprintf("%.2f%%", percentage), textX, valueBaseline)

	strokeRect(dc, box.Rect(), Blue)

	return img
}

// fillRect fills r with both corners inclusive.
func fillRect(dc *gg.Context, r image.Rectangle, c color.Color) {
	dc.SetColor(c)
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()+1), float64(r.Dy()+1))
	dc.Fill()
}

// strokeRect outlines r with a lineWidth pen centered on its edges.
func strokeRect(dc *gg.Context, r image.Rectangle, c color.Color) {
	dc.SetColor(c)
	dc.SetLineWidth(lineWidth)
	dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	dc.Stroke()
}
