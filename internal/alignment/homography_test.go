package alignment

import (
	"errors"
	"math"
	"testing"

	"omr-grader/internal/marker"
	"omr-grader/internal/sample"
	"omr-grader/pkg/geometry"
)

func TestComputeHomographyIdentity(t *testing.T) {
	pts := []geometry.Point2D{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 0, Y: 200}, {X: 100, Y: 200}}
	h, err := ComputeHomography(pts, pts)
	if err != nil {
		t.Fatalf("ComputeHomography: %v", err)
	}
	for _, p := range []geometry.Point2D{{X: 17, Y: 150}, {X: 50, Y: 100}, {X: 99, Y: 1}} {
		got := h.Apply(p)
		if got.Distance(p) > 1e-6 {
			t.Errorf("identity maps %+v to %+v", p, got)
		}
	}
}

func TestComputeHomographyTranslationAndScale(t *testing.T) {
	src := []geometry.Point2D{{X: 10, Y: 10}, {X: 110, Y: 10}, {X: 10, Y: 210}, {X: 110, Y: 210}}
	dst := make([]geometry.Point2D, 4)
	for i, p := range src {
		dst[i] = geometry.Point2D{X: 2*p.X + 30, Y: 2*p.Y - 5}
	}

	h, err := ComputeHomography(src, dst)
	if err != nil {
		t.Fatalf("ComputeHomography: %v", err)
	}
	p := geometry.Point2D{X: 60, Y: 110}
	want := geometry.Point2D{X: 150, Y: 215}
	if got := h.Apply(p); got.Distance(want) > 1e-6 {
		t.Errorf("Apply(%+v) = %+v, want %+v", p, got, want)
	}
}

func TestComputeHomographyPerspectiveRoundTrip(t *testing.T) {
	// Skewed quadrilateral onto a rectangle, the alignment case.
	src := []geometry.Point2D{{X: 32, Y: 28}, {X: 1660, Y: 41}, {X: 25, Y: 2170}, {X: 1671, Y: 2155}}
	dst := []geometry.Point2D{{X: 30, Y: 30}, {X: 1670, Y: 30}, {X: 30, Y: 2170}, {X: 1670, Y: 2170}}

	h, err := ComputeHomography(src, dst)
	if err != nil {
		t.Fatalf("ComputeHomography: %v", err)
	}
	if err := h.MeanReprojectionError(src, dst); err > 1e-6 {
		t.Errorf("reprojection error %v on defining points", err)
	}

	inv, ok := h.Inverse()
	if !ok {
		t.Fatal("transform not invertible")
	}
	p := geometry.Point2D{X: 850, Y: 1100}
	back := inv.Apply(h.Apply(p))
	if back.Distance(p) > 1e-6 {
		t.Errorf("round trip moved %+v to %+v", p, back)
	}
}

func TestComputeHomographyDeterministic(t *testing.T) {
	src := []geometry.Point2D{{X: 31.5, Y: 29.25}, {X: 1663.1, Y: 40.8}, {X: 24.9, Y: 2169.5}, {X: 1670.2, Y: 2154.7}}
	dst := []geometry.Point2D{{X: 30, Y: 30}, {X: 1670, Y: 30}, {X: 30, Y: 2170}, {X: 1670, Y: 2170}}

	first, err := ComputeHomography(src, dst)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := ComputeHomography(src, dst)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("run %d produced a different transform", i)
		}
	}
}

func TestComputeHomographyRejectsWrongCount(t *testing.T) {
	pts := []geometry.Point2D{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	if _, err := ComputeHomography(pts, pts); err == nil {
		t.Error("expected error for 3 points")
	}
}

func TestGateRequiresFourMarkers(t *testing.T) {
	matches := []marker.Match{
		{Corner: marker.TopLeft, Confidence: 0.9},
		{Corner: marker.TopRight, Confidence: 0.9},
		{Corner: marker.BottomLeft, Confidence: 0.9},
	}
	err := gateMarkers(matches, 0.6)
	if err == nil {
		t.Fatal("3 markers must fail the gate")
	}
	var alignErr *Error
	if !errors.As(err, &alignErr) || alignErr.Found != 3 {
		t.Errorf("unexpected error %v", err)
	}
}

func TestGateRejectsLowConfidence(t *testing.T) {
	matches := []marker.Match{
		{Corner: marker.TopLeft, Confidence: 0.95},
		{Corner: marker.TopRight, Confidence: 0.59},
		{Corner: marker.BottomLeft, Confidence: 0.95},
		{Corner: marker.BottomRight, Confidence: 0.95},
	}
	if err := gateMarkers(matches, 0.6); err == nil {
		t.Error("confidence 0.59 must fail the 0.6 gate")
	}

	matches[1].Confidence = 0.6
	if err := gateMarkers(matches, 0.6); err != nil {
		t.Errorf("confidence exactly at the gate should pass, got %v", err)
	}
}

func TestCanonicalTargetsMatchFrame(t *testing.T) {
	frame := sample.NewFrame(200, 612, 792)
	targets := canonicalTargets(frame, 30)

	off := frame.PtToPx(30)
	if math.Abs(targets[0].X-off) > 1e-9 || math.Abs(targets[0].Y-off) > 1e-9 {
		t.Errorf("top-left target %+v, want (%.2f, %.2f)", targets[0], off, off)
	}
	if targets[3].X != float64(frame.WidthPx)-off || targets[3].Y != float64(frame.HeightPx)-off {
		t.Errorf("bottom-right target %+v misplaced", targets[3])
	}
}
