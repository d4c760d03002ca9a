// Package sample maps bubble layout coordinates into the canonical page
// frame and reduces each bubble region to an intensity scalar.
package sample

import (
	"math"

	"omr-grader/pkg/geometry"
)

// pointsPerInch is the design unit: layout coordinates are authored in
// 1/72-inch points.
const pointsPerInch = 72.0

// Frame describes the canonical normalized image: a fixed pixel grid with
// known density, onto which every aligned page is warped. Layout coordinates
// have their origin at the bottom-left of the page; pixel coordinates have
// theirs at the top-left, so the vertical axis flips during mapping.
type Frame struct {
	DPI      float64
	WidthPx  int
	HeightPx int
}

// NewFrame builds the canonical frame for a page of the given design size.
func NewFrame(dpi, widthPt, heightPt float64) Frame {
	return Frame{
		DPI:      dpi,
		WidthPx:  int(math.Round(widthPt * dpi / pointsPerInch)),
		HeightPx: int(math.Round(heightPt * dpi / pointsPerInch)),
	}
}

// PtToPx converts a length in design points to pixels.
func (f Frame) PtToPx(pt float64) float64 {
	return pt * f.DPI / pointsPerInch
}

// PxToPt converts a length in pixels to design points.
func (f Frame) PxToPt(px float64) float64 {
	return px * pointsPerInch / f.DPI
}

// DesignToPixel maps a design-space position (origin bottom-left) to a pixel
// position in the canonical image (origin top-left).
func (f Frame) DesignToPixel(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: f.PtToPx(p.X),
		Y: float64(f.HeightPx) - f.PtToPx(p.Y),
	}
}

// PixelToDesign is the inverse of DesignToPixel.
func (f Frame) PixelToDesign(p geometry.Point2D) geometry.Point2D {
	return geometry.Point2D{
		X: f.PxToPt(p.X),
		Y: f.PxToPt(float64(f.HeightPx) - p.Y),
	}
}
