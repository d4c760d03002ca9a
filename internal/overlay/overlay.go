// Package overlay renders the per-page diagnostic image: the normalized
// page with every sampled bubble region drawn on top of it, colored by its
// fill decision. The overlay is a pure rendering side effect for human
// audit and never feeds back into decoding.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"omr-grader/internal/decode"
)

var (
	blankColor   = color.RGBA{R: 130, G: 130, B: 130, A: 255}
	filledColor  = color.RGBA{R: 255, A: 255}
	literalColor = color.RGBA{G: 200, A: 255}
)

// Render draws the fill decisions onto a copy of the aligned grayscale
// page. The caller owns the returned color image and must Close it.
func Render(aligned gocv.Mat, marks []decode.Mark) gocv.Mat {
	canvas := gocv.NewMat()
	gocv.CvtColor(aligned, &canvas, gocv.ColorGrayToBGR)

	for _, m := range marks {
		region := m.Reading.Region
		if region.Empty() {
			continue
		}
		if m.Reading.Bubble.Literal() {
			// Printed decimal points and fraction bars get a dot, not a box;
			// there is nothing to fill.
			center := image.Pt(region.X+region.Width/2, region.Y+region.Height/2)
			gocv.Circle(&canvas, center, 4, literalColor, 2)
			continue
		}
		rect := image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height)
		c := blankColor
		if m.Filled {
			c = filledColor
		}
		gocv.Rectangle(&canvas, rect, c, 2)
	}
	return canvas
}

// Write renders the overlay and saves it as an image file.
func Write(path string, aligned gocv.Mat, marks []decode.Mark) error {
	canvas := Render(aligned, marks)
	defer canvas.Close()
	if ok := gocv.IMWrite(path, canvas); !ok {
		return fmt.Errorf("write overlay %s", path)
	}
	return nil
}
