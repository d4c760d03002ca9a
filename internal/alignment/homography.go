package alignment

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"omr-grader/pkg/geometry"
)

// ComputeHomography solves for the projective transform mapping the four
// source points onto the four destination points. The system is exactly
// determined (eight equations, eight unknowns) and solved directly, so
// identical inputs always produce the identical transform.
func ComputeHomography(src, dst []geometry.Point2D) (geometry.Homography, error) {
	if len(src) != 4 || len(dst) != 4 {
		return geometry.Homography{}, fmt.Errorf("need exactly 4 point pairs, got %d/%d", len(src), len(dst))
	}

	// Each correspondence contributes two rows of
	//   x' = (h0 x + h1 y + h2) / (h6 x + h7 y + 1)
	//   y' = (h3 x + h4 y + h5) / (h6 x + h7 y + 1)
	// linearized as A h = b with h8 fixed at 1.
	A := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		x, y := src[i].X, src[i].Y
		xp, yp := dst[i].X, dst[i].Y

		A.Set(i*2, 0, x)
		A.Set(i*2, 1, y)
		A.Set(i*2, 2, 1)
		A.Set(i*2, 6, -xp*x)
		A.Set(i*2, 7, -xp*y)
		b.SetVec(i*2, xp)

		A.Set(i*2+1, 3, x)
		A.Set(i*2+1, 4, y)
		A.Set(i*2+1, 5, 1)
		A.Set(i*2+1, 6, -yp*x)
		A.Set(i*2+1, 7, -yp*y)
		b.SetVec(i*2+1, yp)
	}

	var h mat.VecDense
	if err := h.SolveVec(A, b); err != nil {
		return geometry.Homography{}, fmt.Errorf("degenerate marker configuration: %w", err)
	}

	return geometry.Homography{M: [3][3]float64{
		{h.AtVec(0), h.AtVec(1), h.AtVec(2)},
		{h.AtVec(3), h.AtVec(4), h.AtVec(5)},
		{h.AtVec(6), h.AtVec(7), 1},
	}}, nil
}
