package spectral

import "gonum.org/v1/gonum/floats"

// PadOrCrop centres x in an h x w plane, zero padding or cropping each
// dimension by (target-size)/2 on the leading side.
func PadOrCrop(x [][]float64, h, w int) [][]float64 {
	out := MakeReal2D(h, w)
	sh := len(x)
	if sh == 0 {
		return out
	}
	sw := len(x[0])
	oy := floorDiv(h-sh, 2)
	ox := floorDiv(w-sw, 2)
	for y := 0; y < sh; y++ {
		ty := y + oy
		if ty < 0 || ty >= h {
			continue
		}
		for i := 0; i < sw; i++ {
			tx := i + ox
			if tx < 0 || tx >= w {
				continue
			}
			out[ty][tx] = x[y][i]
		}
	}
	return out
}

// PadOrCropOffsets reports the row and column offsets PadOrCrop applies when
// taking an sh x sw plane to h x w. Source (y, x) lands at (y+oy, x+ox).
func PadOrCropOffsets(sh, sw, h, w int) (oy, ox int) {
	return floorDiv(h-sh, 2), floorDiv(w-sw, 2)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Linspace matches numpy's linspace().
func Linspace(start, end float64, n int) []float64 {
	if n <= 1 {
		return []float64{start}
	}
	return floats.Span(make([]float64, n), start, end)
}
