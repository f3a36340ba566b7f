// Package optics models a camera fitted with a diffractive optical element.
// It computes wavelength and depth dependent PSFs by scalar diffraction and
// hands them, together with a depth layered scene, to an image formation
// step.
package optics

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Config is the optical configuration of a camera. It is fixed once a
// camera has been built from it.
type Config struct {
	FocalDepth            float64   `yaml:"focal_depth"`
	MinDepth              float64   `yaml:"min_depth"`
	MaxDepth              float64   `yaml:"max_depth"`
	NDepths               int       `yaml:"n_depths"`
	ImageSize             [2]int    `yaml:"image_size,flow"`
	ApertureSize          int       `yaml:"aperture_size"`
	FocalLength           float64   `yaml:"focal_length"`
	ApertureDiameter      float64   `yaml:"aperture_diameter"`
	CameraPitch           float64   `yaml:"camera_pitch"`
	Wavelengths           []float64 `yaml:"wavelengths,flow"`
	DiffractionEfficiency float64   `yaml:"diffraction_efficiency"`
}

// DefaultConfig returns the configuration used when a parameter file leaves
// a value out.
func DefaultConfig() Config {
	return Config{
		FocalDepth:            1.7,
		MinDepth:              1.0,
		MaxDepth:              5.0,
		NDepths:               16,
		ImageSize:             [2]int{256, 256},
		ApertureSize:          256,
		FocalLength:           50e-3,
		ApertureDiameter:      2.5e-3,
		CameraPitch:           6.45e-6,
		Wavelengths:           []float64{632e-9, 550e-9, 450e-9},
		DiffractionEfficiency: 0.7,
	}
}

// Validate reports the first problem that makes c unusable.
func (c Config) Validate() error {
	switch {
	case c.MinDepth < 1e-6:
		return fmt.Errorf("provided min depth (%g) is too small: %w", c.MinDepth, ErrConfig)
	case c.MaxDepth <= c.MinDepth:
		return fmt.Errorf("max depth (%g) must exceed min depth (%g): %w", c.MaxDepth, c.MinDepth, ErrConfig)
	case c.NDepths < 1:
		return fmt.Errorf("n_depths (%d) must be at least 1: %w", c.NDepths, ErrConfig)
	case len(c.Wavelengths) == 0 || len(c.Wavelengths)%3 != 0:
		return fmt.Errorf("the number of wavelengths (%d) has to be a positive multiple of 3: %w", len(c.Wavelengths), ErrConfig)
	case c.ImageSize[0] <= 0 || c.ImageSize[1] <= 0:
		return fmt.Errorf("image size %v must be positive: %w", c.ImageSize, ErrConfig)
	case c.ImageSize[0]%2 == 1 || c.ImageSize[1]%2 == 1:
		return fmt.Errorf("image size %v has to be even: %w", c.ImageSize, ErrConfig)
	case c.DiffractionEfficiency < 0 || c.DiffractionEfficiency > 1:
		return fmt.Errorf("diffraction efficiency (%g) must be in [0,1]: %w", c.DiffractionEfficiency, ErrConfig)
	case c.FocalLength <= 0 || c.ApertureDiameter <= 0 || c.CameraPitch <= 0:
		return fmt.Errorf("focal length, aperture diameter and camera pitch must be positive: %w", ErrConfig)
	case c.FocalDepth <= c.FocalLength:
		return fmt.Errorf("focal depth (%g) must exceed focal length (%g): %w", c.FocalDepth, c.FocalLength, ErrConfig)
	}
	for _, wl := range c.Wavelengths {
		if wl <= 0 {
			return fmt.Errorf("wavelength %g must be positive: %w", wl, ErrConfig)
		}
	}
	return nil
}

// AsYaml renders the configuration for the run log.
func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("# could not render config: %v\n", err)
	}
	return string(b)
}
