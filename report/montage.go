package report

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"

	"github.com/bob-anderson-ok/DOEcamera/optics"
)

const (
	montageLeft = 80
	montageTop  = 24
	montageGap  = 2
)

// PSFSliceView returns one PSF slice as an 8-bit image stretched between
// the pLow and pHigh percentiles of its values.
func PSFSliceView(psf optics.PSF, channel, depth int, pLow, pHigh float64) (*image.Gray, error) {
	if channel < 0 || channel >= len(psf) || depth < 0 || depth >= len(psf[channel]) {
		return nil, fmt.Errorf("no PSF slice at channel %d depth %d", channel, depth)
	}
	return MatrixToGrayViewPercentile(psf[channel][depth], pLow, pHigh)
}

// PSFMontage lays the PSF out as a grid with one row per depth and one
// column per wavelength. Each cell is scaled to its own peak, square root
// stretched, tinted with its channel colour and resampled to cellPx.
func PSFMontage(psf optics.PSF, wavelengths, depths []float64, cellPx int) (image.Image, error) {
	s := psf.Shape()
	if s[0] == 0 || s[1] == 0 || s[2] == 0 || s[3] == 0 {
		return nil, errors.New("empty psf")
	}
	if len(wavelengths) != s[0] || len(depths) != s[1] {
		return nil, fmt.Errorf("psf shape %v does not match %d wavelengths and %d depths", s, len(wavelengths), len(depths))
	}
	if cellPx <= 0 {
		cellPx = s[3]
	}

	W := montageLeft + s[0]*(cellPx+montageGap)
	H := montageTop + s[1]*(cellPx+montageGap)
	dc := gg.NewContext(W, H)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	peaks := psf.Peaks()
	for c := 0; c < s[0]; c++ {
		tint := channelTint(c)
		for d := 0; d < s[1]; d++ {
			cell := image.NewRGBA(image.Rect(0, 0, s[3], s[2]))
			peak := peaks[c][d]
			for y := 0; y < s[2]; y++ {
				for x := 0; x < s[3]; x++ {
					t := 0.0
					if peak > 0 {
						t = math.Sqrt(math.Max(psf[c][d][y][x], 0) / peak)
					}
					cell.SetRGBA(x, y, color.RGBA{
						R: uint8(math.Round(t * tint[0])),
						G: uint8(math.Round(t * tint[1])),
						B: uint8(math.Round(t * tint[2])),
						A: 255,
					})
				}
			}
			var img image.Image = cell
			if cellPx != s[3] || cellPx != s[2] {
				img = resample(cell, cellPx, cellPx)
			}
			dc.DrawImage(img, montageLeft+c*(cellPx+montageGap), montageTop+d*(cellPx+montageGap))
		}
	}

	dc.SetRGB(1, 1, 1)
	for c, wl := range wavelengths {
		x := float64(montageLeft + c*(cellPx+montageGap) + cellPx/2)
		dc.DrawStringAnchored(fmt.Sprintf("%.0f nm", wl*1e9), x, montageTop/2, 0.5, 0.5)
	}
	for d, depth := range depths {
		y := float64(montageTop + d*(cellPx+montageGap) + cellPx/2)
		dc.DrawStringAnchored(fmt.Sprintf("%.2f m", depth), 8, y, 0, 0.5)
	}
	return dc.Image(), nil
}

func channelTint(c int) [3]float64 {
	switch c % 3 {
	case 0:
		return [3]float64{255, 64, 64}
	case 1:
		return [3]float64{64, 255, 64}
	default:
		return [3]float64{80, 120, 255}
	}
}
