package optics

import (
	"math"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bob-anderson-ok/DOEcamera/bspline"
	"github.com/bob-anderson-ok/DOEcamera/lattice"
)

func smallBSplineOptions() BSplineOptions {
	o := DefaultBSplineOptions()
	o.GridSize = [2]int{8, 8}
	return o
}

func TestBSplineCameraErrors(t *testing.T) {
	o := smallBSplineOptions()
	o.InitType = "random"
	_, err := NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), o)
	assert.ErrorIs(t, err, ErrConfig)

	o = smallBSplineOptions()
	o.KnotVectors[0] = []float64{0, 0.5, 1}
	_, err = NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), o)
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorIs(t, err, bspline.ErrInvalidDegree)

	o = smallBSplineOptions()
	o.GridSize[0] = 7
	o.KnotVectors[0] = []float64{0, 0, 0, 0, 0.9, 0.2, 0.6, 1, 1, 1, 1}
	_, err = NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), o)
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorIs(t, err, bspline.ErrKnots)

	o = smallBSplineOptions()
	o.Degrees = [2]int{8, 3}
	_, err = NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), o)
	assert.ErrorIs(t, err, ErrConfig)

	o = smallBSplineOptions()
	o.InitType = InitLatticeFocal
	o.Fill = "tiled"
	_, err = NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), o)
	assert.ErrorIs(t, err, lattice.ErrFill)
}

func TestBSplineCameraExplicitKnots(t *testing.T) {
	o := smallBSplineOptions()
	k, err := bspline.ClampedKnotVector(8, 2)
	require.NoError(t, err)
	o.KnotVectors[1] = k
	c, err := NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), o)
	require.NoError(t, err)
	assert.Equal(t, [2]int{3, 2}, c.Surface().Degrees)
}

func TestBSplineDefaultInitIsFlat(t *testing.T) {
	c, err := NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), smallBSplineOptions())
	require.NoError(t, err)

	h, err := c.Heightmap()
	require.NoError(t, err)
	require.Len(t, h, 3)
	assert.Len(t, h[0], 16)
	for i := range h {
		for y := range h[i] {
			for _, v := range h[i][y] {
				assert.Equal(t, 0.0, v)
			}
		}
	}

	d := c.DepthGrid()
	diffracted, err := c.PSF(d, true)
	require.NoError(t, err)
	plain, err := c.PSF(d, false)
	require.NoError(t, err)
	assert.Equal(t, plain, diffracted)
}

func TestLatticeFocalInit(t *testing.T) {
	o := smallBSplineOptions()
	o.InitType = InitLatticeFocal
	c, err := NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), o)
	require.NoError(t, err)

	s, n, wl, err := c.PrepareLatticeFocalInit()
	require.NoError(t, err)
	assert.InDelta(t, 1, s, 1e-12)
	assert.Equal(t, 3, n)
	assert.Equal(t, 550e-9, wl)

	ctrl := c.ControlPoints()
	assert.Equal(t, 0.0, mat.Min(ctrl))
	assert.Greater(t, mat.Max(ctrl), 0.0)

	psf, err := c.PSFAtCamera([2]int{32, 32}, PSFRequest{})
	require.NoError(t, err)
	for _, row := range psf.Sums() {
		for _, v := range row {
			assert.InDelta(t, 1, v, 1e-9)
		}
	}
}

func TestLatticeFocalInitRejectsTinyGeometry(t *testing.T) {
	cfg := smallConfig()
	cfg.ApertureDiameter = 1e-4
	o := smallBSplineOptions()
	o.InitType = InitLatticeFocal
	_, err := NewBSplineApertureCamera(cfg, DefaultClassicOptions(), o)
	assert.ErrorIs(t, err, ErrConfig)
	assert.ErrorIs(t, err, lattice.ErrSubsquares)
}

func TestSetControlPointsInvalidatesCaches(t *testing.T) {
	c, err := NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), smallBSplineOptions())
	require.NoError(t, err)

	before, err := c.PSFAtCamera([2]int{32, 32}, PSFRequest{UseCache: true})
	require.NoError(t, err)
	h0, err := c.HeightmapWithCache(true)
	require.NoError(t, err)

	ctrl := mat.NewDense(8, 8, nil)
	rng := rand.New(rand.NewSource(5))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			ctrl.Set(y, x, rng.Float64()*2e-6)
		}
	}
	require.NoError(t, c.SetControlPoints(ctrl))
	assert.ErrorIs(t, c.SetControlPoints(mat.NewDense(2, 2, nil)), ErrShape)

	h1, err := c.HeightmapWithCache(true)
	require.NoError(t, err)
	assert.NotEqual(t, h0, h1)

	after, err := c.PSFAtCamera([2]int{32, 32}, PSFRequest{UseCache: true})
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestAberration(t *testing.T) {
	c, err := NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), smallBSplineOptions())
	require.NoError(t, err)

	u := []float64{-2e-3, 0, 5e-4}
	v := []float64{0, 7e-4}
	field, err := c.Aberration(u, v, 0)
	require.NoError(t, err)
	require.Len(t, field, 2)
	require.Len(t, field[0], 3)
	assert.Equal(t, complex(0, 0), field[0][0])
	assert.Equal(t, complex(1, 0), field[0][1])
	assert.Equal(t, complex(1, 0), field[1][2])

	ctrl := mat.NewDense(8, 8, nil)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			ctrl.Set(y, x, 1e-7)
		}
	}
	require.NoError(t, c.SetControlPoints(ctrl))
	field, err = c.Aberration(u, v, 550e-9)
	require.NoError(t, err)
	want := HeightmapToPhase(1e-7, 550e-9, RefractiveIndex(550e-9))
	assert.InDelta(t, 1, cmplx.Abs(field[0][1]), 1e-12)
	assert.InDelta(t, want, cmplx.Phase(field[0][1]), 1e-9)
}

func TestFoldedHeightmap(t *testing.T) {
	o := smallBSplineOptions()
	o.DesignWavelength = 550e-9
	c, err := NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), o)
	require.NoError(t, err)
	ctrl := mat.NewDense(8, 8, nil)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			ctrl.Set(y, x, 5e-6)
		}
	}
	require.NoError(t, c.SetControlPoints(ctrl))
	h, err := c.Heightmap()
	require.NoError(t, err)
	period := 550e-9 / (RefractiveIndex(550e-9) - 1)
	for _, row := range h[1] {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, period)
			assert.InDelta(t, math.Mod(5e-6, period), v, 1e-15)
		}
	}
}

func TestHeightmapLog(t *testing.T) {
	o := smallBSplineOptions()
	o.InitType = InitLatticeFocal
	c, err := NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), o)
	require.NoError(t, err)
	h, err := c.HeightmapLog(20, 24)
	require.NoError(t, err)
	require.Len(t, h, 20)
	require.Len(t, h[0], 24)
	low, high := math.Inf(1), math.Inf(-1)
	for y := range h {
		for _, v := range h[y] {
			low = math.Min(low, v)
			high = math.Max(high, v)
		}
	}
	assert.Equal(t, 0.0, low)
	assert.InDelta(t, 1, high, 1e-12)
}

func TestParametersRoundTrip(t *testing.T) {
	o := smallBSplineOptions()
	o.InitType = InitLatticeFocal
	c, err := NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), o)
	require.NoError(t, err)

	params := c.Parameters()
	rows, ok := params["control_points"].([][]float64)
	require.True(t, ok)
	require.Len(t, rows, 8)

	fresh, err := NewBSplineApertureCamera(smallConfig(), DefaultClassicOptions(), smallBSplineOptions())
	require.NoError(t, err)
	generic := make([]interface{}, len(rows))
	for i, r := range rows {
		items := make([]interface{}, len(r))
		for j, v := range r {
			items[j] = v
		}
		generic[i] = items
	}
	require.NoError(t, fresh.LoadParameters(map[string]interface{}{"control_points": generic}))
	assert.True(t, mat.Equal(c.ControlPoints(), fresh.ControlPoints()))

	assert.ErrorIs(t, fresh.LoadParameters(map[string]interface{}{}), ErrConfig)
	assert.ErrorIs(t, fresh.LoadParameters(map[string]interface{}{"control_points": "x"}), ErrConfig)
}
