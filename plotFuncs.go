package main

import (
	"fmt"
	"path/filepath"

	"github.com/bob-anderson-ok/DOEcamera/optics"
	"github.com/bob-anderson-ok/DOEcamera/report"
)

// writeCameraPlots saves the radial MTF at one depth and the DOE height
// profile at the centre wavelength.
func writeCameraPlots(cam *optics.BSplineApertureCamera, run RunParams) ([]string, error) {
	cfg := cam.Config()
	depths := cam.DepthGrid()

	depthIndex := run.MTFDepthIndex
	if depthIndex < 0 {
		depthIndex = len(depths) / 2
	}
	if depthIndex >= len(depths) {
		return nil, fmt.Errorf("mtf_depth_index %d is beyond the %d depth layers", depthIndex, len(depths))
	}

	mtf, err := cam.MTF()
	if err != nil {
		return nil, err
	}
	mtfImg, err := report.PlotMTF(mtf, cfg.Wavelengths, depthIndex, depths[depthIndex], 1000, 500)
	if err != nil {
		return nil, err
	}
	mtfName := filepath.Join(run.OutputFolder, "mtf_plot.png")
	if err := report.SavePlot(mtfName, mtfImg); err != nil {
		return nil, err
	}

	heights, err := cam.HeightmapWithCache(true)
	if err != nil {
		return nil, err
	}
	profile, err := report.PlotHeightProfile(heights[len(heights)/2], cfg.ApertureDiameter, 1000, 500)
	if err != nil {
		return nil, err
	}
	profileName := filepath.Join(run.OutputFolder, "height_profile.png")
	if err := report.SavePlot(profileName, profile); err != nil {
		return nil, err
	}

	return []string{mtfName, profileName}, nil
}
