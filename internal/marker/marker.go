// Package marker finds the four corner alignment marks on a scanned page.
//
// One marker template is shared by every page of a run. Each corner is
// searched only within a bounded region near that corner, which keeps dark
// page content elsewhere from producing false matches. Matching uses
// normalized cross-correlation, so confidences compare across pages and
// scanners.
package marker

import (
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"omr-grader/pkg/geometry"
)

// Corner identifies one of the four page corners, in the same order as the
// canonical frame targets.
type Corner int

const (
	TopLeft Corner = iota
	TopRight
	BottomLeft
	BottomRight
)

// String returns the corner name.
func (c Corner) String() string {
	switch c {
	case TopLeft:
		return "top-left"
	case TopRight:
		return "top-right"
	case BottomLeft:
		return "bottom-left"
	case BottomRight:
		return "bottom-right"
	}
	return "unknown"
}

// Match is one located marker: the center of the best template position in
// full-image pixel coordinates and its normalized correlation score,
// clamped to [0,1].
type Match struct {
	Corner     Corner
	Center     geometry.Point2D
	Confidence float64
}

// Template is the prepared marker reference image: grayscale, resized to
// the expected on-page marker diameter, blurred and normalized the same way
// pages are before matching.
type Template struct {
	mat    gocv.Mat
	sizePx int
}

// Load reads the marker template from disk and prepares it for matching at
// the given expected on-page size in pixels.
func Load(path string, sizePx int) (*Template, error) {
	m := gocv.IMRead(path, gocv.IMReadGrayScale)
	if m.Empty() {
		return nil, fmt.Errorf("read marker template %s: empty or unreadable image", path)
	}
	defer m.Close()
	return FromMat(m, sizePx)
}

// FromMat prepares a template from an already-loaded grayscale image. The
// input is not modified.
func FromMat(m gocv.Mat, sizePx int) (*Template, error) {
	if sizePx < 4 {
		return nil, fmt.Errorf("template size %dpx too small", sizePx)
	}
	resized := gocv.NewMat()
	gocv.Resize(m, &resized, image.Pt(sizePx, sizePx), 0, 0, gocv.InterpolationLinear)

	prepared := Prepare(resized)
	resized.Close()
	return &Template{mat: prepared, sizePx: sizePx}, nil
}

// Size returns the prepared template side length in pixels.
func (t *Template) Size() int { return t.sizePx }

// Close releases the template image.
func (t *Template) Close() {
	t.mat.Close()
}

// Prepare applies the shared pre-matching filter: light Gaussian blur to
// suppress scanner noise, then min-max normalization to the full 0-255
// range so print density does not shift correlation scores. Returns a new
// Mat; the input is untouched.
func Prepare(img gocv.Mat) gocv.Mat {
	blurred := gocv.NewMat()
	gocv.GaussianBlur(img, &blurred, image.Pt(3, 3), 0, 0, gocv.BorderDefault)
	normalized := gocv.NewMat()
	gocv.Normalize(blurred, &normalized, 0, 255, gocv.NormMinMax)
	blurred.Close()
	return normalized
}

// Locate searches the bounded region near each corner of the prepared page
// image for the template. A corner whose search region cannot hold the
// template is skipped, so fewer than four matches may come back.
func Locate(page gocv.Mat, tmpl *Template) []Match {
	w := page.Cols()
	h := page.Rows()
	marginX := w / 4
	marginY := h / 4

	regions := []struct {
		corner Corner
		rect   image.Rectangle
	}{
		{TopLeft, image.Rect(0, 0, marginX, marginY)},
		{TopRight, image.Rect(w-marginX, 0, w, marginY)},
		{BottomLeft, image.Rect(0, h-marginY, marginX, h)},
		{BottomRight, image.Rect(w-marginX, h-marginY, w, h)},
	}

	matches := make([]Match, 0, 4)
	for _, r := range regions {
		if r.rect.Dx() < tmpl.sizePx || r.rect.Dy() < tmpl.sizePx {
			continue
		}
		m, ok := matchInRegion(page, tmpl, r.rect)
		if !ok {
			continue
		}
		m.Corner = r.corner
		matches = append(matches, m)
	}
	return matches
}

// matchInRegion runs normalized template matching inside one search region
// and returns the best match in full-image coordinates.
func matchInRegion(page gocv.Mat, tmpl *Template, rect image.Rectangle) (Match, bool) {
	region := page.Region(rect)
	defer region.Close()

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.MatchTemplate(region, tmpl.mat, &result, gocv.TmCcoeffNormed, mask)
	if result.Empty() {
		return Match{}, false
	}

	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)

	// Featureless regions make the normalized correlation degenerate (zero
	// variance denominator); treat that as no match rather than letting a
	// NaN slip past the confidence gate.
	confidence := float64(maxVal)
	if math.IsNaN(confidence) || confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	half := float64(tmpl.sizePx) / 2
	return Match{
		Center: geometry.Point2D{
			X: float64(rect.Min.X+maxLoc.X) + half,
			Y: float64(rect.Min.Y+maxLoc.Y) + half,
		},
		Confidence: confidence,
	}, true
}
