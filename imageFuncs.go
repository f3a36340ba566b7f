package main

import (
	"fmt"
	"path/filepath"

	"github.com/bob-anderson-ok/DOEcamera/optics"
	"github.com/bob-anderson-ok/DOEcamera/report"
)

// loadScene reads the all-in-focus scene and its depth map. The depth map
// is read as gray levels holding inverse perspective depth, black nearest.
func loadScene(run RunParams, nWavelengths int) ([][][]float64, [][]float64, error) {
	img, err := report.LoadImage(run.PathToSceneImage)
	if err != nil {
		return nil, nil, err
	}
	depthImg, err := report.LoadImage(run.PathToDepthmap)
	if err != nil {
		return nil, nil, err
	}
	if img.Bounds().Size() != depthImg.Bounds().Size() {
		return nil, nil, fmt.Errorf("scene image is %v but depth map is %v", img.Bounds().Size(), depthImg.Bounds().Size())
	}
	return report.ImageToChannels(img, nWavelengths), report.ImageToMatrix(depthImg), nil
}

// writeCameraOutputs renders the PSF, the DOE heightmap, the MTF and the
// resolved parameters into the output folder and returns the file names.
func writeCameraOutputs(cam *optics.BSplineApertureCamera, psf optics.PSF, run RunParams) ([]string, error) {
	cfg := cam.Config()
	out := func(name string) string { return filepath.Join(run.OutputFolder, name) }
	var written []string

	montage, err := report.PSFMontage(psf, cfg.Wavelengths, cam.DepthGrid(), run.MontageCellPixels)
	if err != nil {
		return nil, err
	}
	if err := report.SaveImage(out("psf_montage.png"), montage); err != nil {
		return nil, err
	}
	written = append(written, out("psf_montage.png"))

	// Centre wavelength at the middle depth, clipped so the halo shows.
	centre := len(psf) / 2
	slice, err := report.PSFSliceView(psf, centre, len(psf[centre])/2, 1, 99.5)
	if err != nil {
		return nil, err
	}
	if err := report.SaveImage(out("psf_view8bit.png"), slice); err != nil {
		return nil, err
	}
	written = append(written, out("psf_view8bit.png"))

	if err := report.WritePSFHDR(out("psf.hdr"), psf); err != nil {
		return nil, err
	}
	written = append(written, out("psf.hdr"))

	hm, err := cam.HeightmapLog(cfg.ApertureSize, cfg.ApertureSize)
	if err != nil {
		return nil, err
	}
	view, err := report.HeightmapImage(hm, 512)
	if err != nil {
		return nil, err
	}
	if err := report.SaveImage(out("heightmap.png"), view); err != nil {
		return nil, err
	}
	written = append(written, out("heightmap.png"))

	// Make the scientific (well-defined scaling) version of the heightmap
	data, err := report.MatrixToGray16Data(hm, 65535)
	if err != nil {
		return nil, err
	}
	if err := report.SaveImage(out("heightmap16bit.png"), data); err != nil {
		return nil, err
	}
	written = append(written, out("heightmap16bit.png"))

	plots, err := writeCameraPlots(cam, run)
	if err != nil {
		return nil, err
	}
	written = append(written, plots...)

	if err := report.WriteYAML(out("camera.yaml"), cfg); err != nil {
		return nil, err
	}
	written = append(written, out("camera.yaml"))

	if err := report.WriteYAML(out("parameters.yaml"), cam.Parameters()); err != nil {
		return nil, err
	}
	written = append(written, out("parameters.yaml"))

	return written, nil
}

// writeCaptured stores the simulated sensor image as PNG and lossless WebP.
func writeCaptured(captured [][][]float64, folder string) ([]string, error) {
	img, err := report.ChannelsToImage(captured, 1)
	if err != nil {
		return nil, err
	}
	var written []string
	for _, name := range []string{"captured.png", "captured.webp"} {
		path := filepath.Join(folder, name)
		if err := report.SaveImage(path, img); err != nil {
			return nil, err
		}
		written = append(written, path)
	}
	return written, nil
}
