// Package alignment normalizes raw scanned pages into the canonical
// coordinate frame the bubble layout was authored against.
//
// A page either aligns with confidence at or above the gate, or it is
// unreadable — there is no partial success. The gate is hard because the
// pixel-to-design mapping downstream has no tolerance for a missing or
// misplaced corner.
package alignment

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"omr-grader/internal/marker"
	"omr-grader/internal/sample"
	"omr-grader/pkg/geometry"
)

// Error reports why a page could not be aligned.
type Error struct {
	Found      int     // markers located
	Confidence float64 // lowest confidence among located markers
	Gate       float64
}

func (e *Error) Error() string {
	if e.Found < 4 {
		return fmt.Sprintf("alignment failed: found %d of 4 corner markers", e.Found)
	}
	return fmt.Sprintf("alignment failed: marker confidence %.3f below gate %.2f", e.Confidence, e.Gate)
}

// Result is a successfully normalized page.
type Result struct {
	// Aligned is the canonical-size grayscale image. The caller owns it and
	// must Close it.
	Aligned gocv.Mat
	// Transform maps raw-image pixels to canonical pixels.
	Transform geometry.Homography
	// Confidence is the lowest of the four marker confidences, in [0,1].
	Confidence float64
	Markers    []marker.Match
}

// Options carries the alignment parameters from the run configuration.
type Options struct {
	// MinConfidence is the marker-match gate; below it the page fails.
	MinConfidence float64
	// EdgeOffsetPt is the design-space distance of marker centers from the
	// two nearest page edges.
	EdgeOffsetPt float64
}

// AlignPage locates the four corner markers on a raw grayscale page and
// warps it into the canonical frame. The input is not modified or closed.
func AlignPage(raw gocv.Mat, tmpl *marker.Template, frame sample.Frame, opts Options) (*Result, error) {
	prepared := marker.Prepare(raw)
	defer prepared.Close()

	matches := marker.Locate(prepared, tmpl)
	if err := gateMarkers(matches, opts.MinConfidence); err != nil {
		return nil, err
	}

	src := make([]geometry.Point2D, 4)
	for _, m := range matches {
		src[m.Corner] = m.Center
	}
	dst := canonicalTargets(frame, opts.EdgeOffsetPt)

	transform, err := ComputeHomography(src, dst)
	if err != nil {
		return nil, err
	}

	aligned := warp(prepared, transform, frame)

	confidence := 1.0
	for _, m := range matches {
		if m.Confidence < confidence {
			confidence = m.Confidence
		}
	}

	return &Result{
		Aligned:    aligned,
		Transform:  transform,
		Confidence: confidence,
		Markers:    matches,
	}, nil
}

// gateMarkers enforces the hard acceptance gate: all four corners located
// and none below the confidence floor.
func gateMarkers(matches []marker.Match, minConfidence float64) error {
	if len(matches) < 4 {
		return &Error{Found: len(matches), Gate: minConfidence}
	}
	worst := matches[0].Confidence
	for _, m := range matches[1:] {
		if m.Confidence < worst {
			worst = m.Confidence
		}
	}
	if worst < minConfidence {
		return &Error{Found: len(matches), Confidence: worst, Gate: minConfidence}
	}
	return nil
}

// canonicalTargets returns where the four marker centers sit in the
// canonical frame, in corner order.
func canonicalTargets(frame sample.Frame, edgeOffsetPt float64) []geometry.Point2D {
	off := frame.PtToPx(edgeOffsetPt)
	w := float64(frame.WidthPx)
	h := float64(frame.HeightPx)
	return []geometry.Point2D{
		{X: off, Y: off},         // top-left
		{X: w - off, Y: off},     // top-right
		{X: off, Y: h - off},     // bottom-left
		{X: w - off, Y: h - off}, // bottom-right
	}
}

// warp applies the transform, producing the fixed canonical-size image.
func warp(src gocv.Mat, h geometry.Homography, frame sample.Frame) gocv.Mat {
	m := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV64F)
	defer m.Close()
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.SetDoubleAt(r, c, h.M[r][c])
		}
	}

	dst := gocv.NewMat()
	gocv.WarpPerspective(src, &dst, m, image.Pt(frame.WidthPx, frame.HeightPx))
	return dst
}
