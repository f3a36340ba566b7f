package optics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractConfig(t *testing.T) {
	params := map[string]interface{}{
		"min_depth":   1.0,
		"max_depth":   3.0,
		"n_depths":    5.0,
		"image_size":  []interface{}{32.0, 48.0},
		"wavelengths": []interface{}{632e-9, 550e-9, 450e-9},
		"focal_depth": 1.7,
	}
	c, err := ExtractConfig(params)
	require.NoError(t, err)
	assert.Equal(t, 5, c.NDepths)
	assert.Equal(t, [2]int{32, 48}, c.ImageSize)
	assert.Equal(t, []float64{632e-9, 550e-9, 450e-9}, c.Wavelengths)
	assert.Equal(t, DefaultConfig().FocalLength, c.FocalLength)

	c, err = ExtractConfig(map[string]interface{}{"image_size": 64.0, "wavelengths": 550e-9})
	require.NoError(t, err)
	assert.Equal(t, [2]int{64, 64}, c.ImageSize)
	assert.Equal(t, []float64{550e-9}, c.Wavelengths)
	assert.ErrorIs(t, c.Validate(), ErrConfig)
}

func TestExtractConfigTypeErrors(t *testing.T) {
	tests := []map[string]interface{}{
		{"min_depth": "near"},
		{"n_depths": 2.5},
		{"image_size": []interface{}{32.0}},
		{"wavelengths": []interface{}{"red"}},
		{"wavelengths": true},
	}
	for _, params := range tests {
		_, err := ExtractConfig(params)
		assert.ErrorIs(t, err, ErrConfig, "%v", params)
	}
}

func TestExtractCameraOptions(t *testing.T) {
	co, err := ExtractClassicOptions(map[string]interface{}{"effective_psf_factor": 4.0, "double_precision": false})
	require.NoError(t, err)
	assert.Equal(t, ClassicOptions{EffectivePSFFactor: 4}, co)

	_, err = ExtractClassicOptions(map[string]interface{}{"double_precision": "yes"})
	assert.ErrorIs(t, err, ErrConfig)

	bo, err := ExtractBSplineOptions(map[string]interface{}{
		"bspline_grid_size":   20.0,
		"bspline_degree":      5.0,
		"initialization_type": "lattice_focal",
	})
	require.NoError(t, err)
	assert.Equal(t, [2]int{20, 20}, bo.GridSize)
	assert.Equal(t, [2]int{5, 5}, bo.Degrees)
	assert.Equal(t, InitLatticeFocal, bo.InitType)
	assert.Equal(t, "inscribe", bo.Fill)

	_, err = ExtractBSplineOptions(map[string]interface{}{"initialization_type": "zeros"})
	assert.ErrorIs(t, err, ErrConfig)
	_, err = ExtractBSplineOptions(map[string]interface{}{"lattice_fill": "tiled"})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestUsageListsEveryParameter(t *testing.T) {
	specs := append(append(BaseParams(), ClassicParams()...), BSplineParams()...)
	u := Usage(specs)
	for _, s := range specs {
		assert.Contains(t, u, s.Name)
	}
}
