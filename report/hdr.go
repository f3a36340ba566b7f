package report

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"

	"github.com/bob-anderson-ok/DOEcamera/optics"
)

// PSFStrip is an HDR image of a PSF with the depths laid side by side.
// Channels sharing a colour (c%3) are averaged into one RGB plane, so the
// radiance values keep the PSF's physical scale.
type PSFStrip struct {
	psf  optics.PSF
	h, w int
}

func NewPSFStrip(psf optics.PSF) (PSFStrip, error) {
	s := psf.Shape()
	if s[0] == 0 || s[1] == 0 || s[2] == 0 || s[3] == 0 {
		return PSFStrip{}, errors.New("empty psf")
	}
	return PSFStrip{psf: psf, h: s[2], w: s[3]}, nil
}

// Implement image.Image
func (p PSFStrip) ColorModel() color.Model { return hdrcolor.RGBModel }
func (p PSFStrip) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.w*len(p.psf[0]), p.h)
}
func (p PSFStrip) At(x, y int) color.Color { return p.HDRAt(x, y) }

// Implement hdr.Image
func (p PSFStrip) HDRAt(x, y int) hdrcolor.Color {
	d, xx := x/p.w, x%p.w
	var sum [3]float64
	var count [3]int
	for c := range p.psf {
		sum[c%3] += p.psf[c][d][y][xx]
		count[c%3]++
	}
	for k := range sum {
		if count[k] > 0 {
			sum[k] /= float64(count[k])
		}
	}
	return hdrcolor.RGB{R: sum[0], G: sum[1], B: sum[2]}
}
func (p PSFStrip) Size() int { return p.Bounds().Dx() * p.Bounds().Dy() }

// WritePSFHDR writes the PSF strip as a Radiance RGBE file.
func WritePSFHDR(filename string, psf optics.PSF) (err error) {
	img, err := NewPSFStrip(psf)
	if err != nil {
		return err
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return rgbe.Encode(f, img)
}
