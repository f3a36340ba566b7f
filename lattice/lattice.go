// Package lattice builds the analytic lattice-focal starting surface for a
// DOE: the aperture is divided into n x n subsquares, each acting as a small
// lens focused at a different depth, and the resulting piecewise slope field
// is integrated into a height map.
package lattice

import (
	"errors"
	"fmt"
	"math"

	"github.com/bob-anderson-ok/DOEcamera/spectral"
)

var (
	// ErrSubsquares is returned when the optical geometry is too small to
	// carry a lattice of at least two subsquares per side.
	ErrSubsquares = errors.New("wrong subsquare number")
	// ErrFill is returned for an unknown fill mode.
	ErrFill = errors.New("unsupported lattice fill")
)

// Fill modes for SlopeMap.
const (
	FillInscribe     = "inscribe"
	FillCircumscribe = "circumscribe"
)

// SlopeRange is the relative inverse-depth span of [minDepth, maxDepth].
func SlopeRange(minDepth, maxDepth float64) float64 {
	return 2 * (maxDepth - minDepth) / (maxDepth + minDepth)
}

// Delta is the size of one sensor pixel back-projected onto the focal plane.
func Delta(pitch, focalLength, focalDepth float64) float64 {
	sensorDistance := 1 / (1/focalLength - 1/focalDepth)
	return pitch * focalDepth / sensorDistance
}

// SubsquareCount returns the odd number of subsquares per side (at least 3)
// for an aperture of the given diameter.
func SubsquareCount(diameter, slopeRange, delta float64) (int, error) {
	raw := math.Round(math.Cbrt(diameter * slopeRange / (2 * delta)))
	if math.IsNaN(raw) || math.IsInf(raw, 0) || raw < 2 {
		return 0, fmt.Errorf("%v from diameter %g, slope range %g, delta %g: %w",
			raw, diameter, slopeRange, delta, ErrSubsquares)
	}
	n := int(raw)
	if n < 3 {
		n = 3
	}
	if n%2 == 0 {
		n++
	}
	return n, nil
}

// SlopeField assigns every point of a u/v sampling grid to a subsquare.
// All planes are indexed [row (v)][col (u)].
type SlopeField struct {
	N       int
	Index   [][]int
	Slope   [][]float64
	CentreU [][]float64
	CentreV [][]float64
}

// SlopeMap lays an n x n lattice over the aperture and gives subsquare k the
// relative slope linspace(-s/2, s/2, n²)[k], numbered row-major. With
// FillInscribe the lattice covers the square inscribed in the aperture circle
// and points outside it join the nearest subsquare; with FillCircumscribe it
// covers [-D/2, D/2]².
func SlopeMap(u, v []float64, n int, slopeRange, diameter float64, fill string) (*SlopeField, error) {
	var side float64
	switch fill {
	case FillInscribe:
		side = diameter / math.Sqrt2
	case FillCircumscribe:
		side = diameter
	default:
		return nil, fmt.Errorf("fill %q: %w", fill, ErrFill)
	}
	if n < 1 {
		return nil, fmt.Errorf("%d subsquares: %w", n, ErrSubsquares)
	}

	slopes := spectral.Linspace(-slopeRange/2, slopeRange/2, n*n)
	cell := side / float64(n)
	cellIndex := func(x float64) int {
		i := int(math.Floor((x + side/2) / cell))
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	}

	f := &SlopeField{
		N:       n,
		Index:   make([][]int, len(v)),
		Slope:   spectral.MakeReal2D(len(v), len(u)),
		CentreU: spectral.MakeReal2D(len(v), len(u)),
		CentreV: spectral.MakeReal2D(len(v), len(u)),
	}
	for y, vy := range v {
		f.Index[y] = make([]int, len(u))
		iy := cellIndex(vy)
		for x, ux := range u {
			ix := cellIndex(ux)
			k := iy*n + ix
			f.Index[y][x] = k
			f.Slope[y][x] = slopes[k]
			f.CentreU[y][x] = -side/2 + (float64(ix)+0.5)*cell
			f.CentreV[y][x] = -side/2 + (float64(iy)+0.5)*cell
		}
	}
	return f, nil
}

// SlopeToHeight integrates the lattice into a DOE height map on the u/v grid.
// Subsquare k focuses depth d_k with 1/d_k = (1+s_k)·(1/min+1/max)/2, so the
// DOE adds lens power P_k = 1/d_k - 1/focalDepth about the subsquare centre.
// The resulting gradient field is integrated in the least squares sense and
// shifted so the lowest point is at height 0.
func SlopeToHeight(u, v []float64, field *SlopeField, focalDepth, minDepth, maxDepth, refractiveIndex float64) ([][]float64, error) {
	h, w := len(v), len(u)
	if h < 2 || w < 2 {
		return nil, fmt.Errorf("%dx%d grid is too small to integrate", h, w)
	}
	if refractiveIndex <= 1 {
		return nil, fmt.Errorf("refractive index %g must exceed 1", refractiveIndex)
	}
	mean := 0.5 * (1/minDepth + 1/maxDepth)

	gu := spectral.MakeReal2D(h, w)
	gv := spectral.MakeReal2D(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			power := (1+field.Slope[y][x])*mean - 1/focalDepth
			gu[y][x] = -power * (u[x] - field.CentreU[y][x]) / (refractiveIndex - 1)
			gv[y][x] = -power * (v[y] - field.CentreV[y][x]) / (refractiveIndex - 1)
		}
	}

	// Differences between neighbouring samples, trapezoid rule.
	gx := spectral.MakeReal2D(h, w-1)
	for y := 0; y < h; y++ {
		for x := 0; x < w-1; x++ {
			gx[y][x] = 0.5 * (gu[y][x] + gu[y][x+1]) * (u[x+1] - u[x])
		}
	}
	gy := spectral.MakeReal2D(h-1, w)
	for y := 0; y < h-1; y++ {
		for x := 0; x < w; x++ {
			gy[y][x] = 0.5 * (gv[y][x] + gv[y+1][x]) * (v[y+1] - v[y])
		}
	}

	height := SolvePoisson(Divergence(gx, gy), true)
	low := math.Inf(1)
	for y := range height {
		for _, val := range height[y] {
			low = math.Min(low, val)
		}
	}
	for y := range height {
		for x := range height[y] {
			height[y][x] -= low
		}
	}
	return height, nil
}
