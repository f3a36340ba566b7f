// Package imaging forms captured images from depth layered scenes by
// convolving every layer with its PSF.
package imaging

import (
	"errors"

	"github.com/bob-anderson-ok/DOEcamera/spectral"
)

type ConvMode int

const (
	ConvSame ConvMode = iota
	ConvFull
	ConvValid
)

type PaddingMode int

const (
	PadZeros PaddingMode = iota
	PadReflect
	PadReplicate
	PadCircular
)

// ConvolvePSFFFT convolves image with a PSF using 2D FFT.
//
// image: HxW
// psf:   PhxPw, centred at (Ph/2, Pw/2) as produced by an fftshift
// mode:  Same, Full, Valid
// pad:   Zeros, Reflect, Replicate, Circular (Same only; Full and Valid
//
//	are defined with zeros outside the image)
//
// Returns a real-valued output (same units as input).
func ConvolvePSFFFT(image, psf [][]float64, mode ConvMode, pad PaddingMode) ([][]float64, error) {
	H, W, err := spectral.RectSize(image)
	if err != nil {
		return nil, err
	}
	Ph, Pw, err := spectral.RectSize(psf)
	if err != nil {
		return nil, err
	}
	if H == 0 || W == 0 || Ph == 0 || Pw == 0 {
		return nil, errors.New("empty image or psf")
	}

	// Output dimensions and where they start in the full convolution.
	var outH, outW, startY, startX int
	switch mode {
	case ConvSame:
		outH, outW = H, W
		startY, startX = Ph-1, Pw-1
	case ConvFull:
		outH, outW = H+Ph-1, W+Pw-1
	case ConvValid:
		outH, outW = H-Ph+1, W-Pw+1
		startY, startX = Ph-1, Pw-1
		if outH <= 0 || outW <= 0 {
			return nil, errors.New("valid convolution requested but psf larger than image")
		}
	default:
		return nil, errors.New("unknown ConvMode")
	}

	// For Same the image is extended by the padding policy so that the
	// valid part of the extended convolution lines the PSF centre up with
	// every image pixel.
	extH, extW := H, W
	offY, offX := 0, 0
	if mode == ConvSame {
		extH, extW = H+Ph-1, W+Pw-1
		offY, offX = Ph-1-Ph/2, Pw-1-Pw/2
	}

	// FFT grid large enough that the part we keep never wraps.
	FH := nextPow2(extH + Ph - 1)
	FW := nextPow2(extW + Pw - 1)

	A := spectral.MakeComplex2D(FH, FW)
	B := spectral.MakeComplex2D(FH, FW)

	for y := 0; y < extH; y++ {
		for x := 0; x < extW; x++ {
			A[y][x] = complex(sample2D(image, y-offY, x-offX, pad), 0)
		}
	}
	for y := 0; y < Ph; y++ {
		for x := 0; x < Pw; x++ {
			B[y][x] = complex(psf[y][x], 0)
		}
	}

	spectral.FFT2(A, true)
	spectral.FFT2(B, true)

	// Multiply spectra.
	for y := 0; y < FH; y++ {
		for x := 0; x < FW; x++ {
			A[y][x] *= B[y][x]
		}
	}

	spectral.FFT2(A, false)

	// Gonum transforms are unnormalized: forward then inverse multiplies by N.
	scale := float64(FH * FW)

	out := make([][]float64, outH)
	for y := 0; y < outH; y++ {
		out[y] = make([]float64, outW)
		for x := 0; x < outW; x++ {
			out[y][x] = real(A[y+startY][x+startX]) / scale
		}
	}
	return out, nil
}

// -------------------- Padding --------------------

func sample2D(img [][]float64, y, x int, mode PaddingMode) float64 {
	H := len(img)
	W := len(img[0])

	if 0 <= y && y < H && 0 <= x && x < W {
		return img[y][x]
	}

	switch mode {
	case PadZeros:
		return 0

	case PadReplicate:
		yy := clamp(y, 0, H-1)
		xx := clamp(x, 0, W-1)
		return img[yy][xx]

	case PadReflect:
		yy := reflectIndex(y, H)
		xx := reflectIndex(x, W)
		return img[yy][xx]

	case PadCircular:
		yy := spectral.Mod(y, H)
		xx := spectral.Mod(x, W)
		return img[yy][xx]
	}

	return 0
}

// -------------------- utility --------------------

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// reflectIndex implements "reflect" padding without repeating edge pixels.
// Example for n=5 indices: ... 2 1 0 1 2 3 4 3 2 1 0 1 ...
func reflectIndex(i, n int) int {
	if n <= 1 {
		return 0
	}
	period := 2*n - 2
	i = spectral.Mod(i, period)
	if i >= n {
		i = period - i
	}
	return i
}
