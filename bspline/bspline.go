// Package bspline evaluates tensor-product B-spline surfaces on clamped knot
// vectors. Basis matrices are built once per sampling axis and applied with
// two matrix products, so a surface evaluation costs O(rows·cols·ctrl).
package bspline

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidDegree is returned for a degree that the knot vector or control
// point count cannot carry.
var ErrInvalidDegree = errors.New("invalid B-spline degree")

// ErrKnots is returned for a knot vector that decreases anywhere.
var ErrKnots = errors.New("knot vector is not non-decreasing")

func checkKnots(knots []float64) error {
	for i := 1; i < len(knots); i++ {
		if knots[i] < knots[i-1] {
			return fmt.Errorf("knot %d (%g) is below knot %d (%g): %w", i, knots[i], i-1, knots[i-1], ErrKnots)
		}
	}
	return nil
}

// ClampedKnotVector returns the open-uniform knot vector on [0,1] for n
// control points of degree p: p+1 zeros, n-p-1 evenly spaced interior knots
// and p+1 ones.
func ClampedKnotVector(n, p int) ([]float64, error) {
	if p < 0 || n < p+1 {
		return nil, fmt.Errorf("%d control points with degree %d: %w", n, p, ErrInvalidDegree)
	}
	knots := make([]float64, n+p+1)
	span := float64(n - p)
	for i := 1; i < n-p; i++ {
		knots[p+i] = float64(i) / span
	}
	for i := n; i < n+p+1; i++ {
		knots[i] = 1
	}
	return knots, nil
}

// DegreeFromKnots infers the degree implied by a knot vector and control
// point count.
func DegreeFromKnots(knots []float64, n int) (int, error) {
	p := len(knots) - n - 1
	if p < 0 {
		return 0, fmt.Errorf("%d knots for %d control points: %w", len(knots), n, ErrInvalidDegree)
	}
	if err := checkKnots(knots); err != nil {
		return 0, err
	}
	return p, nil
}

// findSpan locates the knot span containing x (NURBS book A2.1).
// x at the right end maps to the last non-empty span.
func findSpan(x float64, knots []float64, p int) int {
	n := len(knots) - p - 2
	if x >= knots[n+1] {
		return n
	}
	if x <= knots[p] {
		return p
	}
	low, high := p, n+1
	mid := (low + high) / 2
	for x < knots[mid] || x >= knots[mid+1] {
		if x < knots[mid] {
			high = mid
		} else {
			low = mid
		}
		mid = (low + high) / 2
	}
	return mid
}

// basisFuns returns the p+1 non-zero basis values on span i (NURBS book A2.2).
func basisFuns(i int, x float64, knots []float64, p int) []float64 {
	out := make([]float64, p+1)
	left := make([]float64, p+1)
	right := make([]float64, p+1)
	out[0] = 1
	for j := 1; j <= p; j++ {
		left[j] = x - knots[i+1-j]
		right[j] = knots[i+j] - x
		saved := 0.0
		for r := 0; r < j; r++ {
			temp := out[r] / (right[r+1] + left[j-r])
			out[r] = saved + right[r+1]*temp
			saved = left[j-r] * temp
		}
		out[j] = saved
	}
	return out
}

// Basis evaluates all n = len(knots)-p-1 basis functions at x. Values of x
// outside the knot range are clamped to it.
func Basis(x float64, knots []float64, p int) ([]float64, error) {
	n := len(knots) - p - 1
	if p < 0 || n < p+1 {
		return nil, fmt.Errorf("%d knots with degree %d: %w", len(knots), p, ErrInvalidDegree)
	}
	if err := checkKnots(knots); err != nil {
		return nil, err
	}
	lo, hi := knots[p], knots[n]
	if x < lo {
		x = lo
	}
	if x > hi {
		x = hi
	}
	span := findSpan(x, knots, p)
	out := make([]float64, n)
	for j, v := range basisFuns(span, x, knots, p) {
		out[span-p+j] = v
	}
	return out, nil
}

// DesignMatrix returns the len(xs) x n matrix whose row i holds the basis
// values at xs[i].
func DesignMatrix(xs, knots []float64, p int) (*mat.Dense, error) {
	n := len(knots) - p - 1
	if n < 1 || len(xs) == 0 {
		return nil, fmt.Errorf("design matrix for %d samples and %d knots: %w", len(xs), len(knots), ErrInvalidDegree)
	}
	m := mat.NewDense(len(xs), n, nil)
	for i, x := range xs {
		row, err := Basis(x, knots, p)
		if err != nil {
			return nil, err
		}
		m.SetRow(i, row)
	}
	return m, nil
}

// Evaluate returns the surface rowBasis · ctrl · colBasisᵀ.
func Evaluate(rowBasis, ctrl, colBasis mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Product(rowBasis, ctrl, colBasis.T())
	return &out
}

// Backpropagate returns rowBasisᵀ · grad · colBasis, the gradient of a
// scalar loss with respect to the control points given its gradient with
// respect to the evaluated surface.
func Backpropagate(rowBasis, grad, colBasis mat.Matrix) *mat.Dense {
	var out mat.Dense
	out.Product(rowBasis.T(), grad, colBasis)
	return &out
}
