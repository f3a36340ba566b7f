package optics

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/bob-anderson-ok/DOEcamera/depth"
	"github.com/bob-anderson-ok/DOEcamera/lattice"
	"github.com/bob-anderson-ok/DOEcamera/spectral"
)

// Camera is the capability set shared by every optical model.
type Camera interface {
	// PSF returns unnormalised PSFs for every wavelength and scene distance.
	// With modulatePhase unset the DOE is ignored, giving the ideal lens.
	PSF(sceneDistances []float64, modulatePhase bool) (PSF, error)
	// Heightmap returns the DOE height field for every wavelength.
	Heightmap() ([][][]float64, error)
	// PSFOutEnergy measures how much PSF energy falls outside a psfSize
	// window, returning the mean outside mass and the largest outside value.
	PSFOutEnergy(psfSize int) (energy, max float64, err error)
	// Aberration returns the field the DOE imposes at arbitrary aperture
	// coordinates, indexed [v][u].
	Aberration(u, v []float64, wavelength float64) ([][]complex128, error)
}

// ImageFormer composites a depth layered scene through a PSF.
//
// volume is indexed [channel][depth][row][col], masks [depth][row][col].
// The PSF handed over is normalised per (channel, depth) slice and shares its
// spatial and depth dimensions with volume and masks.
type ImageFormer interface {
	Form(volume [][][][]float64, masks [][][]float64, psf PSF, occlusion bool) (captured [][][]float64, out [][][][]float64, err error)
}

// PSFRequest controls PSFAtCamera. All randomness is drawn from Rand, which
// must be set when Training is.
type PSFRequest struct {
	Training bool
	UseCache bool
	Rand     *rand.Rand
}

// ErrNoRand is returned for a training request without a random source.
var ErrNoRand = errors.New("training PSF request needs a random source")

type psfSource interface {
	PSF(sceneDistances []float64, modulatePhase bool) (PSF, error)
}

// Base holds the configuration and the pipeline shared by the concrete
// cameras: depth sampling, PSF composition and caching, and hand-off to the
// image formation step.
type Base struct {
	// Former is used by Forward.
	Former ImageFormer

	cfg               Config
	depths            []float64
	source            psfSource
	cache             PSFCache
	diffractionScaler [][]float64
}

func newBase(cfg Config) (*Base, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Wavelengths = append([]float64(nil), cfg.Wavelengths...)
	return &Base{
		cfg:    cfg,
		depths: depth.Grid(cfg.NDepths, cfg.MinDepth, cfg.MaxDepth),
	}, nil
}

// Config returns a copy of the camera configuration.
func (b *Base) Config() Config {
	c := b.cfg
	c.Wavelengths = append([]float64(nil), b.cfg.Wavelengths...)
	return c
}

func (b *Base) NWavelengths() int { return len(b.cfg.Wavelengths) }

func (b *Base) FNumber() float64 { return b.cfg.FocalLength / b.cfg.ApertureDiameter }

// SensorDistance follows the thin lens relation for the focal depth.
func (b *Base) SensorDistance() float64 {
	return 1 / (1/b.cfg.FocalLength - 1/b.cfg.FocalDepth)
}

func (b *Base) AperturePitch() float64 {
	return b.cfg.ApertureDiameter / float64(b.cfg.ApertureSize)
}

func (b *Base) SlopeRange() float64 {
	return lattice.SlopeRange(b.cfg.MinDepth, b.cfg.MaxDepth)
}

// DepthGrid returns the default scene distances.
func (b *Base) DepthGrid() []float64 {
	return append([]float64(nil), b.depths...)
}

func (b *Base) CenterWavelength() float64 {
	return b.cfg.Wavelengths[len(b.cfg.Wavelengths)/2]
}

// DiffractionScaler returns the per (channel, depth) sums of the last
// diffracted PSF before normalisation.
func (b *Base) DiffractionScaler() [][]float64 { return b.diffractionScaler }

// InStop reports whether a sample at squared radius r2 passes the aperture stop.
func (b *Base) InStop(r2 float64) bool {
	return r2 < b.cfg.ApertureDiameter*b.cfg.ApertureDiameter/4
}

// ApplyStop zeroes x wherever r2 is outside the circular aperture.
func (b *Base) ApplyStop(r2, x [][]float64) [][]float64 {
	out := make([][]float64, len(x))
	for y := range x {
		out[y] = make([]float64, len(x[y]))
		for i, v := range x[y] {
			if b.InStop(r2[y][i]) {
				out[y][i] = v
			}
		}
	}
	return out
}

// InvalidatePSF drops the cached PSF.
func (b *Base) InvalidatePSF() { b.cache.Invalidate() }

// PSFAtCamera returns the PSF seen by the sensor, cropped or padded to size:
// the efficiency weighted mix of the diffracted and undiffracted PSFs, each
// normalised per slice. Training requests jitter the depth samples and the
// red and blue registration.
func (b *Base) PSFAtCamera(size [2]int, req PSFRequest) (PSF, error) {
	if req.Training && req.Rand == nil {
		return nil, ErrNoRand
	}
	key := PSFKey{Size: size, Training: req.Training}
	return b.cache.GetOrCompute(key, req.UseCache, func() (PSF, error) {
		return b.computePSF(size, req)
	})
}

func (b *Base) sceneDistances(req PSFRequest) []float64 {
	n := b.cfg.NDepths
	u := spectral.Linspace(0, 1, n)
	if req.Training {
		for i := range u {
			// u above 1 maps past infinity for wide depth ranges.
			u[i] = math.Min(u[i]+(req.Rand.Float64()-0.5)/float64(n), 1)
		}
	}
	out := make([]float64, n)
	for i, v := range u {
		out[i] = math.Max(depth.IPSToMetric(v, b.cfg.MinDepth, b.cfg.MaxDepth), depth.Floor)
	}
	if req.Training {
		out[n-1] += req.Rand.Float64() * (100 - b.cfg.MaxDepth)
	}
	return out
}

func (b *Base) computePSF(size [2]int, req PSFRequest) (PSF, error) {
	if b.source == nil {
		return nil, fmt.Errorf("camera has no PSF model: %w", ErrConfig)
	}
	distances := b.sceneDistances(req)

	diffracted, err := b.source.PSF(distances, true)
	if err != nil {
		return nil, fmt.Errorf("diffracted PSF: %w", err)
	}
	undiffracted, err := b.source.PSF(distances, false)
	if err != nil {
		return nil, fmt.Errorf("undiffracted PSF: %w", err)
	}

	b.diffractionScaler = diffracted.Sums()
	undiffractionScaler := undiffracted.Sums()

	eff := b.cfg.DiffractionEfficiency
	mixed := make(PSF, len(diffracted))
	for c := range diffracted {
		mixed[c] = make([][][]float64, len(diffracted[c]))
		for d := range diffracted[c] {
			ds, us := b.diffractionScaler[c][d], undiffractionScaler[c][d]
			if ds == 0 || us == 0 {
				return nil, fmt.Errorf("channel %d depth %d has no energy: %w", c, d, ErrDegenerateAperture)
			}
			slice := diffracted[c][d]
			out := spectral.MakeReal2D(len(slice), len(slice[0]))
			for y := range slice {
				for x := range slice[y] {
					out[y][x] = eff*slice[y][x]/ds + (1-eff)*undiffracted[c][d][y][x]/us
				}
			}
			mixed[c][d] = out
		}
	}

	if req.Training {
		jitterChannels(mixed, req.Rand)
	}

	return mixed.PadOrCrop(size[0], size[1]), nil
}

// jitterChannels rolls the red and blue PSFs of every RGB triplet by
// independent offsets in {-1,0,1}², modelling chromatic registration error.
func jitterChannels(psf PSF, rng *rand.Rand) {
	for c := range psf {
		if c%3 == 1 {
			continue // green stays put
		}
		dy, dx := rng.Intn(3)-1, rng.Intn(3)-1
		for d := range psf[c] {
			psf[c][d] = spectral.Roll(psf[c][d], dy, dx)
		}
	}
}

// Forward images a scene. img is indexed [channel][row][col] with one
// channel per wavelength; depthmap holds inverse perspective depths in (0,1].
// It returns the captured image, the depth layered volume and the
// normalised PSF used.
func (b *Base) Forward(img [][][]float64, depthmap [][]float64, occlusion bool, req PSFRequest) ([][][]float64, [][][][]float64, PSF, error) {
	if b.Former == nil {
		return nil, nil, nil, fmt.Errorf("no image former set: %w", ErrConfig)
	}
	if len(img) != b.NWavelengths() {
		return nil, nil, nil, fmt.Errorf("image has %d channels for %d wavelengths: %w", len(img), b.NWavelengths(), ErrShape)
	}
	h, w, err := spectral.RectSize(depthmap)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("depth map: %w: %w", ErrShape, err)
	}
	for c := range img {
		ih, iw, err := spectral.RectSize(img[c])
		if err != nil || ih != h || iw != w {
			return nil, nil, nil, fmt.Errorf("channel %d is %dx%d, depth map is %dx%d: %w", c, ih, iw, h, w, ErrShape)
		}
	}

	psf, err := b.PSFAtCamera([2]int{h, w}, req)
	if err != nil {
		return nil, nil, nil, err
	}
	psf = NormalizePSF(psf)

	masks := depth.Layers(depthmap, b.cfg.NDepths, true)
	volume := make([][][][]float64, len(img))
	for c := range img {
		volume[c] = make([][][]float64, len(masks))
		for d := range masks {
			layer := spectral.MakeReal2D(h, w)
			for y := 0; y < h; y++ {
				for x := 0; x < w; x++ {
					layer[y][x] = masks[d][y][x] * img[c][y][x]
				}
			}
			volume[c][d] = layer
		}
	}

	captured, volume, err := b.Former.Form(volume, masks, psf, occlusion)
	if err != nil {
		return nil, nil, nil, err
	}
	return captured, volume, psf, nil
}

// OTF returns the centred Fourier transform of every cached PSF slice.
func (b *Base) OTF() ([][][][]complex128, error) {
	psf, _, ok := b.cache.Get()
	if !ok {
		return nil, ErrNoPSF
	}
	out := make([][][][]complex128, len(psf))
	for c := range psf {
		out[c] = make([][][]complex128, len(psf[c]))
		for d := range psf[c] {
			out[c][d] = spectral.FFTShiftComplex(spectral.RealFFT2(psf[c][d]))
		}
	}
	return out, nil
}

// MTF returns the magnitude of the OTF.
func (b *Base) MTF() (PSF, error) {
	otf, err := b.OTF()
	if err != nil {
		return nil, err
	}
	out := make(PSF, len(otf))
	for c := range otf {
		out[c] = make([][][]float64, len(otf[c]))
		for d := range otf[c] {
			out[c][d] = spectral.Abs(otf[c][d])
		}
	}
	return out, nil
}

// MTFLoss sums factor/MTF over the cached MTF. With normalize set the
// factor is D³/(s·|f|) for sensor frequency f, otherwise 1.
func (b *Base) MTFLoss(normalize bool) (float64, error) {
	mtf, err := b.MTF()
	if err != nil {
		return 0, err
	}
	s := mtf.Shape()
	factor := spectral.MakeReal2D(s[2], s[3])
	fy := spectral.Linspace(-0.5, 0.5, s[2])
	fx := spectral.Linspace(-0.5, 0.5, s[3])
	d3 := math.Pow(b.cfg.ApertureDiameter, 3)
	for y := range factor {
		for x := range factor[y] {
			if !normalize {
				factor[y][x] = 1
				continue
			}
			f := math.Hypot(fx[x], fy[y]) / b.cfg.CameraPitch
			factor[y][x] = d3 / (b.SlopeRange() * f)
		}
	}
	loss := 0.0
	for c := range mtf {
		for d := range mtf[c] {
			for y := range mtf[c][d] {
				for x, m := range mtf[c][d][y] {
					loss += factor[y][x] / m
				}
			}
		}
	}
	return loss, nil
}
