package spectral

import (
	"math"
	"math/cmplx"
)

// Exp2XY converts amplitude and phase planes to a complex field a·cos φ + i·a·sin φ.
func Exp2XY(amplitude, phase [][]float64) [][]complex128 {
	h := len(amplitude)
	out := make([][]complex128, h)
	for y := 0; y < h; y++ {
		out[y] = make([]complex128, len(amplitude[y]))
		for x := range amplitude[y] {
			s, c := math.Sincos(phase[y][x])
			out[y][x] = complex(amplitude[y][x]*c, amplitude[y][x]*s)
		}
	}
	return out
}

// XY2Exp splits a complex field into amplitude and phase.
func XY2Exp(field [][]complex128) (amplitude, phase [][]float64) {
	h := len(field)
	amplitude = make([][]float64, h)
	phase = make([][]float64, h)
	for y := 0; y < h; y++ {
		amplitude[y] = make([]float64, len(field[y]))
		phase[y] = make([]float64, len(field[y]))
		for x, z := range field[y] {
			amplitude[y][x] = cmplx.Abs(z)
			phase[y][x] = cmplx.Phase(z)
		}
	}
	return amplitude, phase
}

// Abs2 returns the squared magnitude of every sample.
func Abs2(field [][]complex128) [][]float64 {
	out := make([][]float64, len(field))
	for y := range field {
		out[y] = make([]float64, len(field[y]))
		for x, z := range field[y] {
			out[y][x] = real(z)*real(z) + imag(z)*imag(z)
		}
	}
	return out
}

// Abs returns the magnitude of every sample.
func Abs(field [][]complex128) [][]float64 {
	out := make([][]float64, len(field))
	for y := range field {
		out[y] = make([]float64, len(field[y]))
		for x, z := range field[y] {
			out[y][x] = cmplx.Abs(z)
		}
	}
	return out
}
