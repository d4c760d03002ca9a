package threshold

import (
	"math/rand"
	"testing"
)

const (
	minJump = 25.0
	clamp   = 210.0
)

func TestClearGapSeparatesClusters(t *testing.T) {
	values := []float64{10, 12, 200, 205}
	cutoff := Estimate(values, minJump, clamp)

	if cutoff <= 12 || cutoff >= 200 {
		t.Fatalf("cutoff %.1f not strictly between clusters (12, 200)", cutoff)
	}
	for _, v := range []float64{10, 12} {
		if !Filled(v, cutoff) {
			t.Errorf("intensity %v should classify as filled", v)
		}
	}
	for _, v := range []float64{200, 205} {
		if Filled(v, cutoff) {
			t.Errorf("intensity %v should classify as blank", v)
		}
	}
}

func TestGapMidpoint(t *testing.T) {
	// Single gap from 60 to 180: cutoff lands in the middle.
	cutoff := Estimate([]float64{50, 55, 60, 180, 185, 190}, minJump, clamp)
	if cutoff != 120 {
		t.Errorf("cutoff = %v, want 120", cutoff)
	}
}

func TestOrderIndependence(t *testing.T) {
	base := []float64{40, 190, 55, 200, 47, 185}
	want := Estimate(base, minJump, clamp)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := make([]float64, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		if got := Estimate(shuffled, minJump, clamp); got != want {
			t.Fatalf("permutation %d: cutoff %v != %v", i, got, want)
		}
	}
}

func TestClampNeverExceeded(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
	}{
		{"uniform dark blanks", []float64{220, 220, 220, 220}},
		{"gap above clamp", []float64{215, 216, 250, 251}},
		{"single value", []float64{240}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cutoff := Estimate(tt.values, minJump, clamp)
			if cutoff > clamp {
				t.Errorf("cutoff %v exceeds clamp %v", cutoff, clamp)
			}
			for _, v := range tt.values {
				if v >= clamp && Filled(v, cutoff) {
					t.Errorf("intensity %v above clamp classified as filled", v)
				}
			}
		})
	}
}

func TestMeanFallbackWhenNoSeparation(t *testing.T) {
	// All values within the noise floor of each other: mean is used.
	cutoff := Estimate([]float64{100, 105, 110}, minJump, clamp)
	if cutoff != 105 {
		t.Errorf("cutoff = %v, want mean 105", cutoff)
	}
}

func TestEqualGapsPickClosestToRangeMidpoint(t *testing.T) {
	// Three equal gaps of 60 with midpoints 40, 100 and 160. The range
	// midpoint is 100, so the middle gap wins.
	cutoff := Estimate([]float64{10, 70, 130, 190}, minJump, clamp)
	if cutoff != 100 {
		t.Errorf("cutoff = %v, want 100", cutoff)
	}

	// Two equal gaps equidistant from the range midpoint (mids 40 and 120,
	// range mid 80): the lower gap is kept, deterministically.
	cutoff = Estimate([]float64{10, 70, 90, 150}, minJump, clamp)
	if cutoff != 40 {
		t.Errorf("cutoff = %v, want deterministic 40", cutoff)
	}
}

func TestBoundaryValueReadsBlank(t *testing.T) {
	if Filled(120, 120) {
		t.Error("intensity equal to cutoff must read as blank")
	}
	if !Filled(119.9, 120) {
		t.Error("intensity below cutoff must read as filled")
	}
}
