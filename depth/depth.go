// Package depth maps between metric scene depth and inverse perspective
// sampling, and splits depth maps into layer masks.
package depth

import (
	"math"

	"github.com/bob-anderson-ok/DOEcamera/spectral"
)

// Floor is the smallest depth value used in reciprocal expressions.
const Floor = 1e-8

// IPSToMetric maps an inverse perspective sample u in [0,1] to metric depth.
func IPSToMetric(u, minDepth, maxDepth float64) float64 {
	return (maxDepth * minDepth) / (maxDepth - (maxDepth-minDepth)*u)
}

// MetricToIPS is the inverse of IPSToMetric.
func MetricToIPS(d, minDepth, maxDepth float64) float64 {
	d = math.Max(d, Floor)
	return (maxDepth*d - maxDepth*minDepth) / ((maxDepth - minDepth) * d)
}

// Grid returns n metric depths evenly spaced in inverse perspective.
func Grid(n int, minDepth, maxDepth float64) []float64 {
	u := spectral.Linspace(0, 1, n)
	out := make([]float64, n)
	for i, v := range u {
		out[i] = IPSToMetric(v, minDepth, maxDepth)
	}
	return out
}

// Layers splits a normalised depth map (values in (0,1]) into n masks
// indexed [layer][row][col].
//
// In binary mode every pixel belongs to exactly one layer. In soft mode a
// pixel is shared between its two nearest layer centres with triangular
// weights; the weights sum to one except within half a layer of either end
// of the range, where part of the weight falls outside.
func Layers(depthmap [][]float64, n int, binary bool) [][][]float64 {
	h := len(depthmap)
	w := 0
	if h > 0 {
		w = len(depthmap[0])
	}
	out := make([][][]float64, n)
	for k := range out {
		out[k] = spectral.MakeReal2D(h, w)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := math.Min(math.Max(depthmap[y][x], Floor), 1) * float64(n)
			if binary {
				k := int(math.Ceil(v)) - 1
				if k < 0 {
					k = 0
				}
				if k >= n {
					k = n - 1
				}
				out[k][y][x] = 1
				continue
			}
			for k := 0; k < n; k++ {
				centre := float64(k) + 0.5
				wk := 1 - math.Abs(v-centre)
				if wk > 0 {
					out[k][y][x] = wk
				}
			}
		}
	}
	return out
}
