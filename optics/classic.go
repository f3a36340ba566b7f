package optics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/bob-anderson-ok/DOEcamera/depth"
	"github.com/bob-anderson-ok/DOEcamera/lattice"
	"github.com/bob-anderson-ok/DOEcamera/spectral"
)

// HeightmapProvider supplies the DOE surface to a ClassicCamera.
type HeightmapProvider interface {
	// Heightmap returns one height field per wavelength on the camera's
	// aperture grids.
	Heightmap() ([][][]float64, error)
	// HeightsAt evaluates the surface on the grid spanned by the column
	// axis u and the row axis v, indexed [v][u].
	HeightsAt(u, v []float64) ([][]float64, error)
}

// ApertureGrid is the aperture sampling lattice for one wavelength.
type ApertureGrid struct {
	U, V     []float64   // column and row axes in metres
	R2       [][]float64 // U²+V², indexed [row][col]
	Interval [2]float64  // row and column sample spacing
}

// FlatHeightmap is a DOE of zero height.
type FlatHeightmap struct {
	Grids []ApertureGrid
}

func (f FlatHeightmap) Heightmap() ([][][]float64, error) {
	out := make([][][]float64, len(f.Grids))
	for i, g := range f.Grids {
		out[i] = spectral.MakeReal2D(len(g.V), len(g.U))
	}
	return out, nil
}

func (f FlatHeightmap) HeightsAt(u, v []float64) ([][]float64, error) {
	return spectral.MakeReal2D(len(v), len(u)), nil
}

// ClassicOptions are the ClassicCamera specific settings.
type ClassicOptions struct {
	// EffectivePSFFactor is the ratio between the sensor size and the size
	// of the computed PSF.
	EffectivePSFFactor int `yaml:"effective_psf_factor"`
	// DoublePrecision evaluates the wavefront in float64. When unset the
	// wavefront terms are rounded to float32.
	DoublePrecision bool `yaml:"double_precision"`
}

func DefaultClassicOptions() ClassicOptions {
	return ClassicOptions{EffectivePSFFactor: 2, DoublePrecision: true}
}

// ClassicCamera computes PSFs by evaluating the scalar diffraction integral
// with an oversampled DFT over the aperture.
type ClassicCamera struct {
	*Base

	opts        ClassicOptions
	scaleFactor int
	grids       []ApertureGrid
	provider    HeightmapProvider
	heightmap   [][][]float64
}

// NewClassicCamera builds the aperture grids for cfg. The camera starts with
// a flat DOE; see SetHeightmapProvider.
func NewClassicCamera(cfg Config, opts ClassicOptions) (*ClassicCamera, error) {
	base, err := newBase(cfg)
	if err != nil {
		return nil, err
	}
	if opts.EffectivePSFFactor < 1 {
		return nil, fmt.Errorf("effective psf factor %d must be positive: %w", opts.EffectivePSFFactor, ErrConfig)
	}
	c := &ClassicCamera{Base: base, opts: opts}

	sd := base.SensorDistance()
	ratio := cfg.CameraPitch / sd * cfg.ApertureDiameter / floats.Min(cfg.Wavelengths)
	c.scaleFactor = int(math.Ceil(ratio) + 1e-5)
	if c.scaleFactor < 1 {
		c.scaleFactor = 1
	}

	for i := range cfg.Wavelengths {
		g, err := c.buildGrid(i)
		if err != nil {
			return nil, err
		}
		c.grids = append(c.grids, g)
	}
	c.provider = FlatHeightmap{Grids: c.grids}
	base.source = c
	return c, nil
}

func (c *ClassicCamera) buildGrid(i int) (ApertureGrid, error) {
	g := ApertureGrid{Interval: c.Interval(i)}
	var axes [2][]float64
	for dim := 0; dim < 2; dim++ {
		n := c.cfg.ImageSize[dim] * c.scaleFactor / c.opts.EffectivePSFFactor
		if n < 1 {
			return g, fmt.Errorf("aperture grid of %d samples: %w", n, ErrConfig)
		}
		axis := spectral.Linspace(-float64(n)/2, float64(n)/2, n)
		floats.Scale(g.Interval[dim], axis)
		axes[dim] = axis
	}
	g.V, g.U = axes[0], axes[1]
	g.R2 = spectral.MakeReal2D(len(g.V), len(g.U))
	for y, v := range g.V {
		for x, u := range g.U {
			g.R2[y][x] = u*u + v*v
		}
	}
	return g, nil
}

// ScaleFactor is the integer oversampling of the aperture grid.
func (c *ClassicCamera) ScaleFactor() int { return c.scaleFactor }

// Grids returns the aperture grids, one per wavelength.
func (c *ClassicCamera) Grids() []ApertureGrid { return c.grids }

// Interval returns the row and column aperture sample spacing for
// wavelength i: λ·sd/pitch · psfFactor/imageSize.
func (c *ClassicCamera) Interval(i int) [2]float64 {
	sampleRange := c.cfg.Wavelengths[i] * c.SensorDistance() / c.cfg.CameraPitch
	f := float64(c.opts.EffectivePSFFactor)
	return [2]float64{
		sampleRange * f / float64(c.cfg.ImageSize[0]),
		sampleRange * f / float64(c.cfg.ImageSize[1]),
	}
}

// SetHeightmapProvider replaces the DOE surface and drops every cache that
// depends on it.
func (c *ClassicCamera) SetHeightmapProvider(p HeightmapProvider) {
	c.provider = p
	c.InvalidateHeightmap()
}

// InvalidateHeightmap drops the memoised heightmap and the cached PSF.
func (c *ClassicCamera) InvalidateHeightmap() {
	c.heightmap = nil
	c.InvalidatePSF()
}

// Heightmap recomputes the DOE height fields and memoises them.
func (c *ClassicCamera) Heightmap() ([][][]float64, error) {
	return c.HeightmapWithCache(false)
}

// HeightmapWithCache returns the memoised heightmap when useCache is set and
// one exists, and recomputes it otherwise.
func (c *ClassicCamera) HeightmapWithCache(useCache bool) ([][][]float64, error) {
	if useCache && c.heightmap != nil {
		return c.heightmap, nil
	}
	h, err := c.provider.Heightmap()
	if err != nil {
		return nil, fmt.Errorf("heightmap: %w", err)
	}
	if len(h) != len(c.grids) {
		return nil, fmt.Errorf("%d heightmaps for %d wavelengths: %w", len(h), len(c.grids), ErrShape)
	}
	for i, g := range c.grids {
		if len(h[i]) != len(g.V) || len(h[i][0]) != len(g.U) {
			return nil, fmt.Errorf("heightmap %d does not match the %dx%d aperture grid: %w", i, len(g.V), len(g.U), ErrShape)
		}
	}
	c.heightmap = h
	return h, nil
}

// PrepareLatticeFocalInit derives the slope range and subsquare count of a
// lattice-focal design for this geometry, with the wavelength it is built for.
func (c *ClassicCamera) PrepareLatticeFocalInit() (slopeRange float64, n int, wavelength float64, err error) {
	slopeRange = c.SlopeRange()
	delta := lattice.Delta(c.cfg.CameraPitch, c.cfg.FocalLength, c.cfg.FocalDepth)
	n, err = lattice.SubsquareCount(c.cfg.ApertureDiameter, slopeRange, delta)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	return slopeRange, n, c.CenterWavelength(), nil
}

// apertureField returns the complex field leaving the aperture for
// wavelength i and a point at distance d. heights may be nil.
func (c *ClassicCamera) apertureField(i int, d float64, heights [][]float64) ([][]complex128, error) {
	g := c.grids[i]
	wl := c.cfg.Wavelengths[i]
	fd := c.cfg.FocalDepth
	round := func(x float64) float64 { return x }
	if !c.opts.DoublePrecision {
		round = func(x float64) float64 { return float64(float32(x)) }
	}
	d = round(math.Max(d, depth.Floor))
	wl = round(wl)
	var index float64
	if heights != nil {
		index = RefractiveIndex(wl)
	}

	amplitude := spectral.MakeReal2D(len(g.V), len(g.U))
	phase := spectral.MakeReal2D(len(g.V), len(g.U))
	peak := 0.0
	for y := range g.R2 {
		for x, r2 := range g.R2[y] {
			if !c.InStop(r2) {
				continue
			}
			r2 = round(r2)
			item := round(r2 + d*d)
			phase1 := round(math.Sqrt(item) - d)
			phase2 := round(math.Sqrt(r2+fd*fd) - fd)
			p := round((phase1 - phase2) * (2 * math.Pi / wl))
			if heights != nil {
				p = round(p + HeightmapToPhase(heights[y][x], wl, index))
			}
			a := round(d / (wl * item))
			amplitude[y][x] = a
			phase[y][x] = p
			peak = math.Max(peak, a)
		}
	}
	if peak == 0 {
		return nil, fmt.Errorf("wavelength %g: %w", c.cfg.Wavelengths[i], ErrDegenerateAperture)
	}
	scale2(amplitude, 1/peak)
	return spectral.Exp2XY(amplitude, phase), nil
}

// sensorScale converts |FFT|² to energy on the sensor for wavelength i.
func (c *ClassicCamera) sensorScale(i int) float64 {
	in := c.grids[i].Interval
	wlsd := c.cfg.Wavelengths[i] * c.SensorDistance()
	area := in[0] * in[1]
	return area * area / (wlsd * wlsd)
}

// propagate takes an aperture field to the sensor PSF for wavelength i.
func (c *ClassicCamera) propagate(i int, field [][]complex128) [][]float64 {
	spectral.FFT2(field, true)
	intensity := spectral.Abs2(field)

	sf := c.scaleFactor
	scale := c.sensorScale(i)
	var rows [][]float64
	for y := sf / 2; y < len(intensity); y += sf {
		var row []float64
		for x := sf / 2; x < len(intensity[y]); x += sf {
			v := intensity[y][x] * scale
			if !c.opts.DoublePrecision {
				v = float64(float32(v))
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return spectral.PadOrCrop(spectral.FFTShift(rows), c.cfg.ImageSize[0], c.cfg.ImageSize[1])
}

// PSF evaluates the diffraction integral for every wavelength and scene
// distance. The result is in physical energy units and is not normalised.
func (c *ClassicCamera) PSF(sceneDistances []float64, modulatePhase bool) (PSF, error) {
	var heights [][][]float64
	if modulatePhase {
		var err error
		if heights, err = c.Heightmap(); err != nil {
			return nil, err
		}
	}
	out := make(PSF, len(c.grids))
	for i := range c.grids {
		out[i] = make([][][]float64, len(sceneDistances))
		var h [][]float64
		if heights != nil {
			h = heights[i]
		}
		for j, d := range sceneDistances {
			field, err := c.apertureField(i, d, h)
			if err != nil {
				return nil, err
			}
			out[i][j] = c.propagate(i, field)
		}
	}
	return out, nil
}

// PSFOutEnergy computes the diffracted PSF on the default depth grid,
// normalises every slice, and measures what lies outside the central
// psfSize x psfSize window.
func (c *ClassicCamera) PSFOutEnergy(psfSize int) (energy, max float64, err error) {
	psf, err := c.PSF(c.DepthGrid(), true)
	if err != nil {
		return 0, 0, err
	}
	psf = NormalizePSF(psf)
	h, w := c.cfg.ImageSize[0], c.cfg.ImageSize[1]
	y0, x0 := h/2-psfSize/2, w/2-psfSize/2
	inside := func(y, x int) bool {
		return y >= y0 && y < y0+psfSize && x >= x0 && x < x0+psfSize
	}
	slices := 0
	for ch := range psf {
		for d := range psf[ch] {
			outside := 0.0
			for y := range psf[ch][d] {
				for x, v := range psf[ch][d][y] {
					if inside(y, x) {
						continue
					}
					outside += v
					max = math.Max(max, v)
				}
			}
			energy += outside
			slices++
		}
	}
	return energy / float64(slices), max, nil
}

// Aberration evaluates exp(i·φ) of the DOE phase at the grid spanned by u
// and v, zero outside the aperture stop. A zero wavelength selects the
// centre wavelength.
func (c *ClassicCamera) Aberration(u, v []float64, wavelength float64) ([][]complex128, error) {
	if wavelength == 0 {
		wavelength = c.CenterWavelength()
	}
	h, err := c.provider.HeightsAt(u, v)
	if err != nil {
		return nil, fmt.Errorf("aberration: %w", err)
	}
	index := RefractiveIndex(wavelength)
	amplitude := spectral.MakeReal2D(len(v), len(u))
	phase := spectral.MakeReal2D(len(v), len(u))
	for y, vy := range v {
		for x, ux := range u {
			if !c.InStop(ux*ux + vy*vy) {
				continue
			}
			amplitude[y][x] = 1
			phase[y][x] = HeightmapToPhase(h[y][x], wavelength, index)
		}
	}
	return spectral.Exp2XY(amplitude, phase), nil
}
