package optics_test

import (
	"fmt"

	"github.com/bob-anderson-ok/DOEcamera/optics"
)

func Example() {
	cfg := optics.DefaultConfig()
	cfg.MinDepth, cfg.MaxDepth, cfg.NDepths = 1, 3, 5
	cfg.ImageSize = [2]int{32, 32}
	cfg.ApertureDiameter = 0.002
	cfg.CameraPitch = 2e-6

	opts := optics.DefaultBSplineOptions()
	opts.GridSize = [2]int{8, 8}
	opts.InitType = optics.InitLatticeFocal

	cam, err := optics.NewBSplineApertureCamera(cfg, optics.DefaultClassicOptions(), opts)
	if err != nil {
		fmt.Println(err)
		return
	}
	psf, err := cam.PSFAtCamera(cfg.ImageSize, optics.PSFRequest{})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("f/%.0f, PSF shape %v\n", cam.FNumber(), psf.Shape())
	// Output: f/25, PSF shape [3 5 32 32]
}
