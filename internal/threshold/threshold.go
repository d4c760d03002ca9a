// Package threshold derives the fill/no-fill decision boundary for one
// group of mutually-exclusive bubbles.
//
// Ink darkens a bubble, so a filled bubble's mean intensity sits well below
// the blank ones. With exactly one regime shift in the group, the natural
// cutoff is the midpoint of the largest intensity gap. When no gap clears
// the minimum jump (all blank, or all filled), the group mean is used
// instead. The result is always capped so that a uniformly dark but
// unfilled group can never be classified as filled just because its values
// cluster together.
package threshold

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// defaultCutoff is used when a group has no intensities at all.
const defaultCutoff = 200.0

// Estimate computes the cutoff intensity for a bubble group. Gaps smaller
// than minJump are noise, not separation; the returned value never exceeds
// clamp. The estimate depends only on the multiset of intensities, not
// their order.
func Estimate(intensities []float64, minJump, clamp float64) float64 {
	if len(intensities) == 0 {
		return math.Min(defaultCutoff, clamp)
	}

	sorted := make([]float64, len(intensities))
	copy(sorted, intensities)
	sort.Float64s(sorted)

	lo := sorted[0]
	hi := sorted[len(sorted)-1]
	rangeMid := (lo + hi) / 2

	// Largest gap above the noise floor. Ties go to the gap whose midpoint
	// is closest to the middle of the group's range, then to the lower one.
	bestGap := 0.0
	bestMid := 0.0
	found := false
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i] - sorted[i-1]
		if gap <= minJump {
			continue
		}
		mid := (sorted[i] + sorted[i-1]) / 2
		switch {
		case !found || gap > bestGap:
			bestGap, bestMid, found = gap, mid, true
		case gap == bestGap:
			if math.Abs(mid-rangeMid) < math.Abs(bestMid-rangeMid) {
				bestMid = mid
			}
		}
	}

	cutoff := bestMid
	if !found {
		cutoff = stat.Mean(sorted, nil)
	}
	return math.Min(cutoff, clamp)
}

// Filled reports whether a sampled intensity counts as inked under the
// cutoff. The boundary itself reads as blank.
func Filled(intensity, cutoff float64) bool {
	return intensity < cutoff
}
