package lattice

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/bob-anderson-ok/DOEcamera/spectral"
)

func TestSlopeRange(t *testing.T) {
	assert.InDelta(t, 1.0, SlopeRange(1, 3), 1e-12)
	assert.Equal(t, 0.0, SlopeRange(2, 2))
}

func TestSubsquareCount(t *testing.T) {
	tests := []struct {
		name     string
		diameter float64
		want     int
		wantErr  bool
	}{
		{"too small", 1e-6, 0, true},
		{"rounds to two", 16, 3, false},
		{"rounds to four", 128, 5, false},
		{"already odd", 250, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// diameter * 1 / (2 * 1) == diameter / 2
			n, err := SubsquareCount(tt.diameter, 1, 1)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrSubsquares)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
			assert.Equal(t, 1, n%2)
		})
	}
	_, err := SubsquareCount(math.NaN(), 1, 1)
	assert.ErrorIs(t, err, ErrSubsquares)
}

func TestDelta(t *testing.T) {
	// focal plane at 2f images with unit magnification
	assert.InDelta(t, 5e-6, Delta(5e-6, 0.05, 0.1), 1e-15)
}

func TestSlopeMapFill(t *testing.T) {
	u := spectral.Linspace(-1, 1, 7)
	_, err := SlopeMap(u, u, 3, 1, 2, "bogus")
	assert.ErrorIs(t, err, ErrFill)

	f, err := SlopeMap(u, u, 3, 1, 2, FillCircumscribe)
	require.NoError(t, err)
	assert.Equal(t, 0, f.Index[0][0])
	assert.Equal(t, 8, f.Index[6][6])
	assert.Equal(t, 4, f.Index[3][3])
	assert.InDelta(t, -0.5, f.Slope[0][0], 1e-12)
	assert.InDelta(t, 0.5, f.Slope[6][6], 1e-12)
	assert.InDelta(t, 0, f.Slope[3][3], 1e-12)
	assert.InDelta(t, 0, f.CentreU[3][3], 1e-12)

	// corners outside the inscribed square clamp to the corner subsquares
	g, err := SlopeMap(u, u, 3, 1, 2, FillInscribe)
	require.NoError(t, err)
	assert.Equal(t, 0, g.Index[0][0])
	assert.Equal(t, 2, g.Index[0][6])
	assert.InDelta(t, 2/math.Sqrt2/3, g.CentreU[0][6], 1e-12)
}

func TestPoissonRecoversField(t *testing.T) {
	h, w := 9, 12
	want := spectral.MakeReal2D(h, w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want[y][x] = math.Sin(0.7*float64(x)) + 0.3*float64(y*y) - 0.1*float64(x*y)
		}
	}
	gx := spectral.MakeReal2D(h, w-1)
	for y := 0; y < h; y++ {
		for x := 0; x < w-1; x++ {
			gx[y][x] = want[y][x+1] - want[y][x]
		}
	}
	gy := spectral.MakeReal2D(h-1, w)
	for y := 0; y < h-1; y++ {
		for x := 0; x < w; x++ {
			gy[y][x] = want[y+1][x] - want[y][x]
		}
	}
	got := SolvePoisson(Divergence(gx, gy), true)

	var a, b []float64
	for y := 0; y < h; y++ {
		a = append(a, want[y]...)
		b = append(b, got[y]...)
	}
	offset := stat.Mean(a, nil) - stat.Mean(b, nil)
	for i := range a {
		assert.InDelta(t, a[i], b[i]+offset, 1e-9)
	}
	assert.InDelta(t, 1, stat.Correlation(a, b, nil), 1e-12)
}

func TestSlopeToHeightSingleLens(t *testing.T) {
	u := spectral.Linspace(-1, 1, 9)
	f, err := SlopeMap(u, u, 1, 0, 2, FillCircumscribe)
	require.NoError(t, err)
	// power 1/2 - 1 = -0.5, index 1.5: h = 0.5(u²+v²)
	h, err := SlopeToHeight(u, u, f, 1, 2, 2, 1.5)
	require.NoError(t, err)
	for y, vy := range u {
		for x, ux := range u {
			assert.InDelta(t, 0.5*(ux*ux+vy*vy), h[y][x], 1e-9)
		}
	}
}

func TestSlopeToHeightLattice(t *testing.T) {
	u := spectral.Linspace(-1e-3, 1e-3, 25)
	f, err := SlopeMap(u, u, 3, SlopeRange(1, 5), 2e-3, FillInscribe)
	require.NoError(t, err)
	h, err := SlopeToHeight(u, u, f, 1.7, 1, 5, 1.56)
	require.NoError(t, err)
	low, high := math.Inf(1), math.Inf(-1)
	for y := range h {
		for _, v := range h[y] {
			require.False(t, math.IsNaN(v))
			low = math.Min(low, v)
			high = math.Max(high, v)
		}
	}
	assert.Equal(t, 0.0, low)
	assert.Greater(t, high, 0.0)

	_, err = SlopeToHeight(u[:1], u, f, 1.7, 1, 5, 1.56)
	assert.Error(t, err)
}
