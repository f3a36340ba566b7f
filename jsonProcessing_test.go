package main

import (
	"bytes"
	"errors"
	"testing"

	json "github.com/KevinWang15/go-json5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-anderson-ok/DOEcamera/imaging"
	"github.com/bob-anderson-ok/DOEcamera/optics"
)

func parseTable(t *testing.T, src string) map[string]interface{} {
	t.Helper()
	var table map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(src), &table))
	return table
}

func TestValidateDefaults(t *testing.T) {
	var run RunParams
	msg, ok := validateJsonFileAndFillRun(map[string]interface{}{}, &run)
	require.True(t, ok, msg)
	assert.Equal(t, ".", run.OutputFolder)
	assert.True(t, run.Occlusion)
	assert.Equal(t, imaging.PadReplicate, run.Padding)
	assert.Equal(t, int64(1), run.RandomSeed)
	assert.Equal(t, 64, run.MontageCellPixels)
	assert.Equal(t, -1, run.MTFDepthIndex)
	assert.Zero(t, run.WindowSizePixels)
}

func TestValidateFillsRun(t *testing.T) {
	table := parseTable(t, `{
		// comments are fine in json5
		title: "lattice focal",
		window_size_pixels: 600,
		output_folder: "out",
		path_to_scene_image: "scene.png",
		path_to_depthmap: "depth.png",
		occlusion_bool: false,
		padding: "circular",
		random_seed: 42,
		training_bool: true,
		psf_montage_cell_pixels: 32,
		mtf_depth_index: 3,
	}`)
	var run RunParams
	msg, ok := validateJsonFileAndFillRun(table, &run)
	require.True(t, ok, msg)
	assert.Equal(t, RunParams{
		WindowSizePixels:  600,
		Title:             "lattice focal",
		OutputFolder:      "out",
		PathToSceneImage:  "scene.png",
		PathToDepthmap:    "depth.png",
		Occlusion:         false,
		Padding:           imaging.PadCircular,
		RandomSeed:        42,
		Training:          true,
		MontageCellPixels: 32,
		MTFDepthIndex:     3,
	}, run)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"show_input_bool":         `{show_input_bool: 1}`,
		"window_size_pixels":      `{window_size_pixels: "big"}`,
		"scene without depth":     `{path_to_scene_image: "a.png"}`,
		"padding":                 `{padding: "mirror"}`,
		"random_seed":             `{random_seed: 1.5}`,
		"psf_montage_cell_pixels": `{psf_montage_cell_pixels: 0}`,
		"output_folder":           `{output_folder: ""}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			var run RunParams
			msg, ok := validateJsonFileAndFillRun(parseTable(t, src), &run)
			assert.False(t, ok)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestExtractCameraOptions(t *testing.T) {
	table := parseTable(t, `{
		image_size: 64,
		aperture_size: 64,
		n_depths: 4,
		bspline_grid_size: 12,
		initialization_type: "lattice_focal",
		double_precision: false,
	}`)
	cfg, classic, bs, err := extractCameraOptions(table)
	require.NoError(t, err)
	assert.Equal(t, [2]int{64, 64}, cfg.ImageSize)
	assert.Equal(t, 4, cfg.NDepths)
	assert.False(t, classic.DoublePrecision)
	assert.Equal(t, [2]int{12, 12}, bs.GridSize)
	assert.Equal(t, optics.InitLatticeFocal, bs.InitType)

	_, _, _, err = extractCameraOptions(parseTable(t, `{image_size: 63}`))
	assert.True(t, errors.Is(err, optics.ErrConfig))
}

func TestOpticsSummaryNamesOversampling(t *testing.T) {
	cfg := optics.DefaultConfig()
	cfg.MaxDepth = 3
	cfg.NDepths = 5
	cfg.ImageSize = [2]int{32, 32}
	cfg.ApertureDiameter = 0.01
	cfg.CameraPitch = 6.45e-6
	opts := optics.DefaultBSplineOptions()
	opts.GridSize = [2]int{8, 8}
	cam, err := optics.NewBSplineApertureCamera(cfg, optics.DefaultClassicOptions(), opts)
	require.NoError(t, err)
	require.Equal(t, 3, cam.ScaleFactor())

	var buf bytes.Buffer
	printOpticsSummary(&buf, cam)
	assert.Contains(t, buf.String(), "(oversampling factor 3)")
	assert.NotContains(t, buf.String(), "effective PSF factor")
}
