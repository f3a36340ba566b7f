package main

import (
	"fmt"
	"math"

	"github.com/bob-anderson-ok/DOEcamera/imaging"
	"github.com/bob-anderson-ok/DOEcamera/optics"
)

func getLeafValue(jsonTable map[string]interface{}, path ...string) (interface{}, bool) {
	var cur interface{} = jsonTable
	for _, p := range path {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[p]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

var paddingModes = map[string]imaging.PaddingMode{
	"zeros":     imaging.PadZeros,
	"reflect":   imaging.PadReflect,
	"replicate": imaging.PadReplicate,
	"circular":  imaging.PadCircular,
}

func validateJsonFileAndFillRun(jsonTable map[string]interface{}, run *RunParams) (string, bool) {
	msg := "No problem found in json file" // Initialize msg to presumed success.

	showInput, ok := getLeafValue(jsonTable, "show_input_bool")
	if !ok {
		run.ShowInput = false // default to false if this field is missing
	} else {
		run.ShowInput, ok = showInput.(bool)
		if !ok {
			msg = "show_input_bool: is not a bool"
			return msg, false
		}
	}

	windowSize, ok := getLeafValue(jsonTable, "window_size_pixels")
	if !ok {
		run.WindowSizePixels = 0 // No preview windows if this field is missing
	} else {
		wSize, ok := windowSize.(float64)
		if !ok {
			msg = "window_size_pixels: is not a float64"
			return msg, false
		}
		run.WindowSizePixels = int(wSize)
	}

	title, ok := getLeafValue(jsonTable, "title")
	if ok {
		run.Title, ok = title.(string)
		if !ok {
			msg = "title: is not a string"
			return msg, false
		}
	}

	run.OutputFolder = "."
	folder, ok := getLeafValue(jsonTable, "output_folder")
	if ok {
		run.OutputFolder, ok = folder.(string)
		if !ok || run.OutputFolder == "" {
			msg = "output_folder: is not a non-empty string"
			return msg, false
		}
	}

	filePath, ok := getLeafValue(jsonTable, "path_to_scene_image")
	if ok {
		run.PathToSceneImage, ok = filePath.(string)
		if !ok {
			msg = "path_to_scene_image: is not a string"
			return msg, false
		}
	}

	filePath, ok = getLeafValue(jsonTable, "path_to_depthmap")
	if ok {
		run.PathToDepthmap, ok = filePath.(string)
		if !ok {
			msg = "path_to_depthmap: is not a string"
			return msg, false
		}
	}

	if (run.PathToSceneImage == "") != (run.PathToDepthmap == "") {
		msg = "path_to_scene_image and path_to_depthmap: must be given together"
		return msg, false
	}

	filePath, ok = getLeafValue(jsonTable, "path_to_control_points")
	if ok {
		run.PathToControlPoints, ok = filePath.(string)
		if !ok {
			msg = "path_to_control_points: is not a string"
			return msg, false
		}
	}

	occlusion, ok := getLeafValue(jsonTable, "occlusion_bool")
	if !ok {
		run.Occlusion = true // default to occlusion aware image formation
	} else {
		run.Occlusion, ok = occlusion.(bool)
		if !ok {
			msg = "occlusion_bool: is not a bool"
			return msg, false
		}
	}

	run.Padding = imaging.PadReplicate
	padding, ok := getLeafValue(jsonTable, "padding")
	if ok {
		name, ok := padding.(string)
		if !ok {
			msg = "padding: is not a string"
			return msg, false
		}
		run.Padding, ok = paddingModes[name]
		if !ok {
			msg = fmt.Sprintf("padding: %q is not one of zeros, reflect, replicate, circular", name)
			return msg, false
		}
	}

	run.RandomSeed = 1
	seed, ok := getLeafValue(jsonTable, "random_seed")
	if ok {
		s, ok := seed.(float64)
		if !ok || s != math.Trunc(s) {
			msg = "random_seed: is not an integer"
			return msg, false
		}
		run.RandomSeed = int64(s)
	}

	training, ok := getLeafValue(jsonTable, "training_bool")
	if ok {
		run.Training, ok = training.(bool)
		if !ok {
			msg = "training_bool: is not a bool"
			return msg, false
		}
	}

	run.MontageCellPixels = 64
	cell, ok := getLeafValue(jsonTable, "psf_montage_cell_pixels")
	if ok {
		c, ok := cell.(float64)
		if !ok || c < 1 {
			msg = "psf_montage_cell_pixels: is not a positive number"
			return msg, false
		}
		run.MontageCellPixels = int(c)
	}

	run.MTFDepthIndex = -1 // middle of the depth grid
	depthIndex, ok := getLeafValue(jsonTable, "mtf_depth_index")
	if ok {
		d, ok := depthIndex.(float64)
		if !ok {
			msg = "mtf_depth_index: is not a float64"
			return msg, false
		}
		run.MTFDepthIndex = int(d)
	}

	return msg, true
}

// extractCameraOptions reads the camera keys, which sit at the top level of
// the parameter file next to the run keys.
func extractCameraOptions(jsonTable map[string]interface{}) (optics.Config, optics.ClassicOptions, optics.BSplineOptions, error) {
	cfg, err := optics.ExtractConfig(jsonTable)
	if err != nil {
		return cfg, optics.ClassicOptions{}, optics.BSplineOptions{}, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, optics.ClassicOptions{}, optics.BSplineOptions{}, err
	}
	classic, err := optics.ExtractClassicOptions(jsonTable)
	if err != nil {
		return cfg, classic, optics.BSplineOptions{}, err
	}
	bs, err := optics.ExtractBSplineOptions(jsonTable)
	return cfg, classic, bs, err
}
