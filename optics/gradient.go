package optics

import (
	"fmt"
	"math"

	"github.com/bob-anderson-ok/DOEcamera/spectral"
)

// PSFBackward returns the gradient of a scalar loss with respect to the
// per-wavelength heightmap, given the loss gradient gradPSF with respect to
// PSF(sceneDistances, true). It is the exact adjoint of the diffraction
// pipeline: pad or crop, centring shift, energy scaling, decimation, |FFT|²
// and the height to phase map.
func (c *ClassicCamera) PSFBackward(sceneDistances []float64, gradPSF PSF) ([][][]float64, error) {
	s := gradPSF.Shape()
	want := [4]int{len(c.grids), len(sceneDistances), c.cfg.ImageSize[0], c.cfg.ImageSize[1]}
	if s != want {
		return nil, fmt.Errorf("gradient shape %v, want %v: %w", s, want, ErrShape)
	}
	heights, err := c.Heightmap()
	if err != nil {
		return nil, err
	}

	out := make([][][]float64, len(c.grids))
	for i, g := range c.grids {
		wl := c.cfg.Wavelengths[i]
		dPhaseDHeight := HeightmapToPhase(1, wl, RefractiveIndex(wl))
		out[i] = spectral.MakeReal2D(len(g.V), len(g.U))
		for j, d := range sceneDistances {
			field, err := c.apertureField(i, d, heights[i])
			if err != nil {
				return nil, err
			}
			spectrum := make([][]complex128, len(field))
			for y := range field {
				spectrum[y] = append([]complex128(nil), field[y]...)
			}
			spectral.FFT2(spectrum, true)

			gradIntensity := c.intensityGradient(i, gradPSF[i][j], len(field), len(field[0]))

			// w = unnormalised inverse DFT of (dL/d|F|²)·F
			w := spectral.MakeComplex2D(len(field), len(field[0]))
			for y := range w {
				for x := range w[y] {
					w[y][x] = complex(gradIntensity[y][x], 0) * spectrum[y][x]
				}
			}
			spectral.FFT2(w, false)

			for y := range field {
				for x, e := range field[y] {
					if e == 0 {
						continue
					}
					// d|F|²/dφ through E = a·exp(iφ)
					dPhase := -2 * imag(e*complex(real(w[y][x]), -imag(w[y][x])))
					out[i][y][x] += dPhase * dPhaseDHeight
				}
			}
		}
	}
	return out, nil
}

// intensityGradient pulls a sensor-plane gradient back to the full |FFT|²
// plane of an h x w aperture grid.
func (c *ClassicCamera) intensityGradient(i int, grad [][]float64, h, w int) [][]float64 {
	sf := c.scaleFactor
	dh := int(math.Ceil(float64(h-sf/2) / float64(sf)))
	dw := int(math.Ceil(float64(w-sf/2) / float64(sf)))

	// undo pad or crop
	oy, ox := spectral.PadOrCropOffsets(dh, dw, c.cfg.ImageSize[0], c.cfg.ImageSize[1])
	shifted := spectral.MakeReal2D(dh, dw)
	for y := 0; y < dh; y++ {
		ty := y + oy
		if ty < 0 || ty >= len(grad) {
			continue
		}
		for x := 0; x < dw; x++ {
			tx := x + ox
			if tx < 0 || tx >= len(grad[ty]) {
				continue
			}
			shifted[y][x] = grad[ty][tx]
		}
	}

	// undo the centring shift and the energy scale
	decimated := spectral.Roll(shifted, -(dh / 2), -(dw / 2))
	scale := c.sensorScale(i)

	full := spectral.MakeReal2D(h, w)
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			full[sf/2+y*sf][sf/2+x*sf] = decimated[y][x] * scale
		}
	}
	return full
}
