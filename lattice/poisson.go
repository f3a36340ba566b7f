package lattice

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/bob-anderson-ok/DOEcamera/spectral"
)

// Divergence turns edge differences into the right hand side of the discrete
// Neumann Poisson problem. gx[y][x] is U[y][x+1]-U[y][x] and gy[y][x] is
// U[y+1][x]-U[y][x]. Boundary samples use the mirrored stencil, so for a
// field that really is a gradient SolvePoisson recovers U exactly (up to a
// constant).
func Divergence(gx, gy [][]float64) [][]float64 {
	h := len(gx)
	w := len(gx[0]) + 1
	div := spectral.MakeReal2D(h, w)
	for y := 0; y < h; y++ {
		div[y][0] += 2 * gx[y][0]
		div[y][w-1] -= 2 * gx[y][w-2]
		for x := 1; x < w-1; x++ {
			div[y][x] += gx[y][x] - gx[y][x-1]
		}
	}
	for x := 0; x < w; x++ {
		div[0][x] += 2 * gy[0][x]
		div[h-1][x] -= 2 * gy[h-2][x]
		for y := 1; y < h-1; y++ {
			div[y][x] += gy[y][x] - gy[y-1][x]
		}
	}
	return div
}

// dct2 applies the DCT-I along rows and then columns.
func dct2(a [][]float64) [][]float64 {
	h, w := len(a), len(a[0])
	out := spectral.MakeReal2D(h, w)
	rowDCT := fourier.NewDCT(w)
	for y := 0; y < h; y++ {
		rowDCT.Transform(out[y], a[y])
	}
	colDCT := fourier.NewDCT(h)
	col := make([]float64, h)
	res := make([]float64, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = out[y][x]
		}
		colDCT.Transform(res, col)
		for y := 0; y < h; y++ {
			out[y][x] = res[y]
		}
	}
	return out
}

// transformNormalToEV returns the coefficients of a in the cosine eigenbasis
// of the Neumann Laplacian.
func transformNormalToEV(a [][]float64) [][]float64 {
	h, w := len(a), len(a[0])
	t := dct2(a)
	scale := 1.0 / float64((h-1)*(w-1))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t[y][x] *= scale
		}
	}
	for x := 0; x < w; x++ {
		t[0][x] *= 0.5
		t[h-1][x] *= 0.5
	}
	for y := 0; y < h; y++ {
		t[y][0] *= 0.5
		t[y][w-1] *= 0.5
	}
	return t
}

// transformEVToNormal is the inverse of transformNormalToEV. It modifies a.
func transformEVToNormal(a [][]float64) [][]float64 {
	h, w := len(a), len(a[0])
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			a[y][x] *= 0.25
		}
	}
	for x := 1; x < w-1; x++ {
		a[0][x] *= 0.5
		a[h-1][x] *= 0.5
	}
	for y := 1; y < h-1; y++ {
		a[y][0] *= 0.5
		a[y][w-1] *= 0.5
	}
	return dct2(a)
}

// laplaceEigenvalues of the 1D Neumann Laplacian on n samples.
func laplaceEigenvalues(n int) []float64 {
	v := make([]float64, n)
	for i := 0; i < n; i++ {
		s := math.Sin(float64(i) / float64(2*(n-1)) * math.Pi)
		v[i] = -4 * s * s
	}
	return v
}

// makeCompatibleBoundary spreads the trapezoid-weighted sum of f over its
// boundary so that the Neumann problem has a solution.
func makeCompatibleBoundary(f [][]float64) {
	h, w := len(f), len(f[0])
	sum := 0.0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			sum += f[y][x]
		}
	}
	for x := 1; x < w-1; x++ {
		sum += 0.5 * (f[0][x] + f[h-1][x])
	}
	for y := 1; y < h-1; y++ {
		sum += 0.5 * (f[y][0] + f[y][w-1])
	}
	sum += 0.25 * (f[0][0] + f[h-1][0] + f[0][w-1] + f[h-1][w-1])

	add := -sum / float64(h+w-3)
	for x := 0; x < w; x++ {
		f[0][x] += add
		f[h-1][x] += add
	}
	for y := 1; y < h-1; y++ {
		f[y][0] += add
		f[y][w-1] += add
	}
}

// SolvePoisson solves Laplace U = f with Neumann boundary conditions. When
// adjustBoundary is set the boundary of f is modified so that a solution
// exists; otherwise the least squares solution is returned. f may be
// modified. The solution is shifted so that its maximum is 0.
func SolvePoisson(f [][]float64, adjustBoundary bool) [][]float64 {
	h, w := len(f), len(f[0])
	if adjustBoundary {
		makeCompatibleBoundary(f)
	}
	ft := transformNormalToEV(f)

	ut := spectral.MakeReal2D(h, w)
	ly := laplaceEigenvalues(h)
	lx := laplaceEigenvalues(w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x == 0 && y == 0 {
				continue // only adds a constant
			}
			ut[y][x] = ft[y][x] / (ly[y] + lx[x])
		}
	}
	u := transformEVToNormal(ut)

	high := math.Inf(-1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			high = math.Max(high, u[y][x])
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			u[y][x] -= high
		}
	}
	return u
}
