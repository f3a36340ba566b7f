// Package spectral holds the Fourier-domain and complex-field primitives used by
// the diffraction integral: 2D transforms, zero-frequency shifts, and conversions
// between amplitude/phase and real/imaginary representations.
package spectral

import (
	"errors"

	"gonum.org/v1/gonum/dsp/fourier"
)

// ErrRagged is returned for matrices whose rows differ in length.
var ErrRagged = errors.New("ragged matrix")

// FFT2 transforms a in place, rows then columns, using gonum's CmplxFFT.
// Gonum transforms are unnormalized: a forward pass followed by an inverse
// pass multiplies the data by rows*cols.
func FFT2(a [][]complex128, forward bool) {
	h := len(a)
	if h == 0 {
		return
	}
	w := len(a[0])

	rowFFT := fourier.NewCmplxFFT(w)
	colFFT := fourier.NewCmplxFFT(h)

	// rows
	tmp := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(tmp, a[y])
		if forward {
			rowFFT.Coefficients(tmp, tmp)
		} else {
			rowFFT.Sequence(tmp, tmp)
		}
		copy(a[y], tmp)
	}

	// cols
	col := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = a[y][x]
		}
		if forward {
			colFFT.Coefficients(col, col)
		} else {
			colFFT.Sequence(col, col)
		}
		for y := 0; y < h; y++ {
			a[y][x] = col[y]
		}
	}
}

// RealFFT2 returns the full complex spectrum of a real plane.
func RealFFT2(x [][]float64) [][]complex128 {
	h, w := len(x), 0
	if h > 0 {
		w = len(x[0])
	}
	out := MakeComplex2D(h, w)
	for y := 0; y < h; y++ {
		for i := 0; i < w; i++ {
			out[y][i] = complex(x[y][i], 0)
		}
	}
	FFT2(out, true)
	return out
}

// MakeComplex2D allocates an h x w complex plane.
func MakeComplex2D(h, w int) [][]complex128 {
	m := make([][]complex128, h)
	for i := range m {
		m[i] = make([]complex128, w)
	}
	return m
}

// MakeReal2D allocates an h x w real plane.
func MakeReal2D(h, w int) [][]float64 {
	m := make([][]float64, h)
	for i := range m {
		m[i] = make([]float64, w)
	}
	return m
}

// RectSize reports the dimensions of m, rejecting ragged input.
func RectSize(m [][]float64) (h, w int, err error) {
	h = len(m)
	if h == 0 {
		return 0, 0, nil
	}
	w = len(m[0])
	for i := 1; i < h; i++ {
		if len(m[i]) != w {
			return 0, 0, ErrRagged
		}
	}
	return h, w, nil
}
