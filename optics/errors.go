package optics

import "errors"

var (
	// ErrConfig is returned for camera parameters that cannot describe a camera.
	ErrConfig = errors.New("invalid camera configuration")
	// ErrNoPSF is returned by the OTF and MTF before any PSF has been computed.
	ErrNoPSF = errors.New("no cached PSF")
	// ErrDegenerateAperture is returned when no aperture sample lies inside the stop.
	ErrDegenerateAperture = errors.New("aperture stop blocks every sample")
	// ErrShape is returned when image, depth map and PSF dimensions disagree.
	ErrShape = errors.New("shape mismatch")
)
