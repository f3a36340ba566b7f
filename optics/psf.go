package optics

import "github.com/bob-anderson-ok/DOEcamera/spectral"

// PSF holds point spread functions indexed [wavelength][depth][row][col].
type PSF [][][][]float64

// NewPSF allocates a zero PSF of the given shape.
func NewPSF(channels, depths, h, w int) PSF {
	p := make(PSF, channels)
	for c := range p {
		p[c] = make([][][]float64, depths)
		for d := range p[c] {
			p[c][d] = spectral.MakeReal2D(h, w)
		}
	}
	return p
}

// Shape returns (channels, depths, rows, cols).
func (p PSF) Shape() [4]int {
	var s [4]int
	s[0] = len(p)
	if s[0] > 0 {
		s[1] = len(p[0])
		if s[1] > 0 {
			s[2] = len(p[0][0])
			if s[2] > 0 {
				s[3] = len(p[0][0][0])
			}
		}
	}
	return s
}

// Clone returns a deep copy of p.
func (p PSF) Clone() PSF {
	s := p.Shape()
	out := NewPSF(s[0], s[1], s[2], s[3])
	for c := range p {
		for d := range p[c] {
			for y := range p[c][d] {
				copy(out[c][d][y], p[c][d][y])
			}
		}
	}
	return out
}

// PadOrCrop centres every slice of p in an h x w plane.
func (p PSF) PadOrCrop(h, w int) PSF {
	out := make(PSF, len(p))
	for c := range p {
		out[c] = make([][][]float64, len(p[c]))
		for d := range p[c] {
			out[c][d] = spectral.PadOrCrop(p[c][d], h, w)
		}
	}
	return out
}

// Sums returns the total of every (channel, depth) slice.
func (p PSF) Sums() [][]float64 {
	out := make([][]float64, len(p))
	for c := range p {
		out[c] = make([]float64, len(p[c]))
		for d := range p[c] {
			out[c][d] = sum2(p[c][d])
		}
	}
	return out
}

// Peaks returns the largest value of every (channel, depth) slice.
func (p PSF) Peaks() [][]float64 {
	out := make([][]float64, len(p))
	for c := range p {
		out[c] = make([]float64, len(p[c]))
		for d := range p[c] {
			out[c][d] = max2(p[c][d])
		}
	}
	return out
}

// NormalizePSF scales every (channel, depth) slice to unit sum. Slices that
// sum to zero are left at zero.
func NormalizePSF(p PSF) PSF {
	out := p.Clone()
	for c := range out {
		for d := range out[c] {
			s := sum2(out[c][d])
			if s == 0 {
				continue
			}
			scale2(out[c][d], 1/s)
		}
	}
	return out
}

func sum2(x [][]float64) float64 {
	s := 0.0
	for _, row := range x {
		for _, v := range row {
			s += v
		}
	}
	return s
}

func scale2(x [][]float64, f float64) {
	for _, row := range x {
		for i := range row {
			row[i] *= f
		}
	}
}

func max2(x [][]float64) float64 {
	m := 0.0
	for _, row := range x {
		for _, v := range row {
			if v > m {
				m = v
			}
		}
	}
	return m
}
