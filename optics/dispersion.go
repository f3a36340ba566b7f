package optics

import "math"

// Cauchy coefficients of NOA61 optical adhesive.
// https://refractiveindex.info/?shelf=other&book=Optical_adhesives&page=Norland_NOA61
const (
	CauchyA = 1.5375
	CauchyB = 0.00829045
	CauchyC = -0.000211046
)

// RefractiveIndex evaluates Cauchy's dispersion formula for NOA61 at a
// wavelength given in metres.
func RefractiveIndex(wavelength float64) float64 {
	return CauchyIndex(wavelength, CauchyA, CauchyB, CauchyC)
}

// CauchyIndex evaluates a + b/λ² + c/λ⁴ with λ in micrometres.
func CauchyIndex(wavelength, a, b, c float64) float64 {
	um := wavelength * 1e6
	return a + b/(um*um) + c/(um*um*um*um)
}

// HeightmapToPhase is the phase delay a DOE of the given height adds at a
// wavelength.
func HeightmapToPhase(height, wavelength, refractiveIndex float64) float64 {
	return height * (2 * math.Pi / wavelength) * (refractiveIndex - 1)
}

// FoldProfile wraps a height into [0, λ/(n(λ)-1)), the height that delays
// the design wavelength by one full wave. A zero design wavelength leaves
// the height unchanged.
func FoldProfile(height, designWavelength float64) float64 {
	if designWavelength <= 0 {
		return height
	}
	period := designWavelength / (RefractiveIndex(designWavelength) - 1)
	r := math.Mod(height, period)
	if r < 0 {
		r += period
	}
	return r
}
