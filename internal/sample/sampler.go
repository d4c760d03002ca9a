package sample

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"omr-grader/internal/layout"
	"omr-grader/pkg/geometry"
)

// blankIntensity is reported when a bubble region falls outside the image;
// white reads as unmarked.
const blankIntensity = 255.0

// Reading pairs one bubble definition with its sampled mean intensity and
// the pixel region it was sampled from.
type Reading struct {
	Bubble    layout.Bubble
	Intensity float64 // mean grayscale over the region, 0-255; lower = darker
	Region    geometry.RectInt
}

// ReadBubbles samples every bubble of one page from the aligned grayscale
// image. Printed literals (decimal point, fraction bar) have no fillable
// target; their region is still computed for overlay rendering but their
// intensity is left at the blank value.
func ReadBubbles(aligned gocv.Mat, frame Frame, bubbles []layout.Bubble, radiusPt float64) []Reading {
	readings := make([]Reading, 0, len(bubbles))
	for _, b := range bubbles {
		region := InscribedRegion(frame, b.Pos, radiusPt)
		r := Reading{Bubble: b, Region: region, Intensity: blankIntensity}
		if !b.Literal() {
			r.Intensity = meanIntensity(aligned, region)
		}
		readings = append(readings, r)
	}
	return readings
}

// InscribedRegion returns the largest axis-aligned square inscribed in the
// bubble's printed circle, in canonical pixel coordinates. Sampling the
// inscribed square rather than the bounding box keeps the printed outline's
// ink out of the mean.
func InscribedRegion(frame Frame, designPos geometry.Point2D, radiusPt float64) geometry.RectInt {
	center := frame.DesignToPixel(designPos)
	half := frame.PtToPx(radiusPt / math.Sqrt2)
	region := geometry.RectInt{
		X:      int(math.Round(center.X - half)),
		Y:      int(math.Round(center.Y - half)),
		Width:  int(math.Round(2 * half)),
		Height: int(math.Round(2 * half)),
	}
	return region.Clamp(frame.WidthPx, frame.HeightPx)
}

// meanIntensity reads the mean grayscale value over a region of the aligned
// image. Out-of-bounds or empty regions read as blank.
func meanIntensity(img gocv.Mat, region geometry.RectInt) float64 {
	if region.Empty() {
		return blankIntensity
	}
	roi := img.Region(image.Rect(region.X, region.Y, region.X+region.Width, region.Y+region.Height))
	defer roi.Close()
	return roi.Mean().Val1
}
