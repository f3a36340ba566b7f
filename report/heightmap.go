package report

import (
	"errors"
	"image"
	"image/color"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	xdraw "golang.org/x/image/draw"
)

// heightStops runs dark blue through teal and green to yellow.
var heightStops = []colorful.Color{
	{R: 0.267, G: 0.005, B: 0.329},
	{R: 0.229, G: 0.322, B: 0.546},
	{R: 0.128, G: 0.567, B: 0.551},
	{R: 0.369, G: 0.789, B: 0.383},
	{R: 0.993, G: 0.906, B: 0.144},
}

// Colormap returns the heightmap colour for t in [0,1], blended in Lab
// space between fixed stops.
func Colormap(t float64) color.RGBA {
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	pos := t * float64(len(heightStops)-1)
	i := int(pos)
	if i >= len(heightStops)-1 {
		i = len(heightStops) - 2
	}
	c := heightStops[i].BlendLab(heightStops[i+1], pos-float64(i)).Clamped()
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// HeightmapImage colours a heightmap between its minimum and maximum and
// resamples it to px by px. A px of zero keeps the native size.
func HeightmapImage(h [][]float64, px int) (image.Image, error) {
	if len(h) == 0 || len(h[0]) == 0 {
		return nil, errors.New("empty heightmap")
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range h {
		for _, v := range row {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	src := image.NewRGBA(image.Rect(0, 0, len(h[0]), len(h)))
	for y, row := range h {
		for x, v := range row {
			src.SetRGBA(x, y, Colormap((v-lo)/span))
		}
	}
	if px <= 0 || (px == len(h) && px == len(h[0])) {
		return src, nil
	}
	return resample(src, px, px), nil
}

func resample(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}
