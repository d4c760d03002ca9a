package geometry

import (
	"math"
)

// Homography represents a 3x3 projective transformation matrix in row-major
// order. The bottom-right element is kept at 1 by construction.
type Homography struct {
	M [3][3]float64
}

// Apply applies the transform to a point, including perspective division.
func (h Homography) Apply(p Point2D) Point2D {
	x := h.M[0][0]*p.X + h.M[0][1]*p.Y + h.M[0][2]
	y := h.M[1][0]*p.X + h.M[1][1]*p.Y + h.M[1][2]
	w := h.M[2][0]*p.X + h.M[2][1]*p.Y + h.M[2][2]
	if math.Abs(w) < 1e-12 {
		return Point2D{}
	}
	return Point2D{X: x / w, Y: y / w}
}

// Inverse returns the inverse transform, if it exists.
func (h Homography) Inverse() (Homography, bool) {
	m := h.M
	// Cofactor expansion of the 3x3 determinant.
	c00 := m[1][1]*m[2][2] - m[1][2]*m[2][1]
	c01 := m[1][2]*m[2][0] - m[1][0]*m[2][2]
	c02 := m[1][0]*m[2][1] - m[1][1]*m[2][0]
	det := m[0][0]*c00 + m[0][1]*c01 + m[0][2]*c02
	if math.Abs(det) < 1e-12 {
		return Homography{}, false
	}
	inv := Homography{}
	inv.M[0][0] = c00 / det
	inv.M[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) / det
	inv.M[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) / det
	inv.M[1][0] = c01 / det
	inv.M[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) / det
	inv.M[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) / det
	inv.M[2][0] = c02 / det
	inv.M[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) / det
	inv.M[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) / det
	return inv, true
}

// MeanReprojectionError returns the average distance between transformed
// source points and their expected destinations.
func (h Homography) MeanReprojectionError(src, dst []Point2D) float64 {
	if len(src) != len(dst) || len(src) == 0 {
		return math.Inf(1)
	}
	var total float64
	for i := range src {
		total += h.Apply(src[i]).Distance(dst[i])
	}
	return total / float64(len(src))
}
