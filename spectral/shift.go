package spectral

// Mod returns i modulo n in [0, n).
func Mod(i, n int) int {
	r := i % n
	if r < 0 {
		r += n
	}
	return r
}

// Roll circularly shifts x by dy rows and dx columns: out[y+dy][x+dx] = x[y][x].
func Roll(x [][]float64, dy, dx int) [][]float64 {
	h := len(x)
	if h == 0 {
		return nil
	}
	w := len(x[0])
	out := MakeReal2D(h, w)
	for y := 0; y < h; y++ {
		yy := Mod(y+dy, h)
		for i := 0; i < w; i++ {
			out[yy][Mod(i+dx, w)] = x[y][i]
		}
	}
	return out
}

// RollComplex is Roll for complex planes.
func RollComplex(x [][]complex128, dy, dx int) [][]complex128 {
	h := len(x)
	if h == 0 {
		return nil
	}
	w := len(x[0])
	out := MakeComplex2D(h, w)
	for y := 0; y < h; y++ {
		yy := Mod(y+dy, h)
		for i := 0; i < w; i++ {
			out[yy][Mod(i+dx, w)] = x[y][i]
		}
	}
	return out
}

// FFTShift moves the zero-frequency sample to the centre (roll by n/2).
func FFTShift(x [][]float64) [][]float64 {
	if len(x) == 0 {
		return nil
	}
	return Roll(x, len(x)/2, len(x[0])/2)
}

// IFFTShift undoes FFTShift (roll by (n+1)/2, which is -n/2 modulo n).
// A centred PSF passed through IFFTShift has its peak at (0,0).
func IFFTShift(x [][]float64) [][]float64 {
	if len(x) == 0 {
		return nil
	}
	return Roll(x, (len(x)+1)/2, (len(x[0])+1)/2)
}

// FFTShiftComplex is FFTShift for complex planes.
func FFTShiftComplex(x [][]complex128) [][]complex128 {
	if len(x) == 0 {
		return nil
	}
	return RollComplex(x, len(x)/2, len(x[0])/2)
}
