package optics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/bob-anderson-ok/DOEcamera/bspline"
	"github.com/bob-anderson-ok/DOEcamera/lattice"
	"github.com/bob-anderson-ok/DOEcamera/spectral"
)

// Initialisation types for the B-spline control points.
const (
	InitDefault      = "default"
	InitLatticeFocal = "lattice_focal"
)

// BSplineOptions are the BSplineApertureCamera specific settings. Index 0
// refers to the aperture rows (v axis), index 1 to the columns (u axis).
type BSplineOptions struct {
	GridSize [2]int `yaml:"grid_size,flow"`
	Degrees  [2]int `yaml:"degrees,flow"`
	// KnotVectors overrides the clamped knot vectors; the degree of an axis
	// is then implied by its knot count.
	KnotVectors      [2][]float64 `yaml:"knot_vectors,omitempty"`
	InitType         string       `yaml:"init_type"`
	Fill             string       `yaml:"fill"`
	DesignWavelength float64      `yaml:"design_wavelength"`
}

func DefaultBSplineOptions() BSplineOptions {
	return BSplineOptions{
		GridSize: [2]int{50, 50},
		Degrees:  [2]int{3, 3},
		InitType: InitDefault,
		Fill:     lattice.FillInscribe,
	}
}

// SplineSurface is a tensor-product B-spline DOE surface over the aperture
// square [-D/2, D/2]². It implements HeightmapProvider.
type SplineSurface struct {
	Knots            [2][]float64
	Degrees          [2]int
	Diameter         float64
	DesignWavelength float64

	ctrl     *mat.Dense
	rowBasis []*mat.Dense
	colBasis []*mat.Dense
}

// normalize maps aperture coordinates to the knot domain [0,1].
func (s *SplineSurface) normalize(axis []float64) []float64 {
	out := make([]float64, len(axis))
	for i, x := range axis {
		out[i] = math.Min(math.Max((x+s.Diameter/2)/s.Diameter, 0), 1)
	}
	return out
}

func (s *SplineSurface) designMatrices(u, v []float64) (rows, cols *mat.Dense, err error) {
	rows, err = bspline.DesignMatrix(s.normalize(v), s.Knots[0], s.Degrees[0])
	if err != nil {
		return nil, nil, err
	}
	cols, err = bspline.DesignMatrix(s.normalize(u), s.Knots[1], s.Degrees[1])
	if err != nil {
		return nil, nil, err
	}
	return rows, cols, nil
}

func (s *SplineSurface) evaluate(rows, cols *mat.Dense) [][]float64 {
	h := bspline.Evaluate(rows, s.ctrl, cols)
	r, c := h.Dims()
	out := spectral.MakeReal2D(r, c)
	for y := 0; y < r; y++ {
		for x := 0; x < c; x++ {
			out[y][x] = FoldProfile(h.At(y, x), s.DesignWavelength)
		}
	}
	return out
}

// Heightmap evaluates the surface on the precomputed aperture grids.
func (s *SplineSurface) Heightmap() ([][][]float64, error) {
	out := make([][][]float64, len(s.rowBasis))
	for i := range s.rowBasis {
		out[i] = s.evaluate(s.rowBasis[i], s.colBasis[i])
	}
	return out, nil
}

// HeightsAt rebuilds the basis at arbitrary coordinates.
func (s *SplineSurface) HeightsAt(u, v []float64) ([][]float64, error) {
	rows, cols, err := s.designMatrices(u, v)
	if err != nil {
		return nil, err
	}
	return s.evaluate(rows, cols), nil
}

// BSplineApertureCamera is a ClassicCamera whose DOE is a B-spline surface
// driven by a grid of trainable control points.
type BSplineApertureCamera struct {
	*ClassicCamera

	opts    BSplineOptions
	surface *SplineSurface
}

// NewBSplineApertureCamera builds the camera, its knot vectors and the
// design matrices for every wavelength, and initialises the control points.
func NewBSplineApertureCamera(cfg Config, classic ClassicOptions, opts BSplineOptions) (*BSplineApertureCamera, error) {
	if opts.InitType != InitDefault && opts.InitType != InitLatticeFocal {
		return nil, fmt.Errorf("unsupported initialization type %q: %w", opts.InitType, ErrConfig)
	}
	if opts.GridSize[0] < 1 || opts.GridSize[1] < 1 {
		return nil, fmt.Errorf("control point grid %v must be positive: %w", opts.GridSize, ErrConfig)
	}
	cc, err := NewClassicCamera(cfg, classic)
	if err != nil {
		return nil, err
	}

	s := &SplineSurface{
		Diameter:         cfg.ApertureDiameter,
		DesignWavelength: opts.DesignWavelength,
	}
	for dim := 0; dim < 2; dim++ {
		if opts.KnotVectors[dim] != nil {
			p, err := bspline.DegreeFromKnots(opts.KnotVectors[dim], opts.GridSize[dim])
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrConfig, err)
			}
			s.Knots[dim] = append([]float64(nil), opts.KnotVectors[dim]...)
			s.Degrees[dim] = p
			continue
		}
		k, err := bspline.ClampedKnotVector(opts.GridSize[dim], opts.Degrees[dim])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		s.Knots[dim] = k
		s.Degrees[dim] = opts.Degrees[dim]
	}
	for _, g := range cc.Grids() {
		rows, cols, err := s.designMatrices(g.U, g.V)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfig, err)
		}
		s.rowBasis = append(s.rowBasis, rows)
		s.colBasis = append(s.colBasis, cols)
	}

	b := &BSplineApertureCamera{ClassicCamera: cc, opts: opts, surface: s}
	if opts.InitType == InitLatticeFocal {
		if s.ctrl, err = b.LatticeFocalInit(); err != nil {
			return nil, err
		}
	} else {
		s.ctrl = mat.NewDense(opts.GridSize[0], opts.GridSize[1], nil)
	}
	cc.SetHeightmapProvider(s)
	return b, nil
}

// Options returns the settings the camera was built with.
func (b *BSplineApertureCamera) Options() BSplineOptions { return b.opts }

// Surface exposes the spline surface, including its knot vectors and degrees.
func (b *BSplineApertureCamera) Surface() *SplineSurface { return b.surface }

// LatticeFocalInit returns control points approximating a lattice-focal
// lens: the lattice height field sampled on the control point grid over
// [-D/2, D/2]² at the centre wavelength.
func (b *BSplineApertureCamera) LatticeFocalInit() (*mat.Dense, error) {
	slopeRange, n, wl, err := b.PrepareLatticeFocalInit()
	if err != nil {
		return nil, err
	}
	r := b.cfg.ApertureDiameter / 2
	u := spectral.Linspace(-r, r, b.opts.GridSize[1])
	v := spectral.Linspace(-r, r, b.opts.GridSize[0])
	field, err := lattice.SlopeMap(u, v, n, slopeRange, b.cfg.ApertureDiameter, b.opts.Fill)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	h, err := lattice.SlopeToHeight(u, v, field, b.cfg.FocalDepth, b.cfg.MinDepth, b.cfg.MaxDepth, RefractiveIndex(wl))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	ctrl := mat.NewDense(len(v), len(u), nil)
	for y := range h {
		ctrl.SetRow(y, h[y])
	}
	return ctrl, nil
}

// ControlPoints returns a copy of the control point grid.
func (b *BSplineApertureCamera) ControlPoints() *mat.Dense {
	return mat.DenseCopyOf(b.surface.ctrl)
}

// SetControlPoints replaces the control points and invalidates the cached
// heightmap and PSF.
func (b *BSplineApertureCamera) SetControlPoints(ctrl mat.Matrix) error {
	r, c := ctrl.Dims()
	if r != b.opts.GridSize[0] || c != b.opts.GridSize[1] {
		return fmt.Errorf("control points are %dx%d, want %dx%d: %w", r, c, b.opts.GridSize[0], b.opts.GridSize[1], ErrShape)
	}
	b.surface.ctrl = mat.DenseCopyOf(ctrl)
	b.InvalidateHeightmap()
	return nil
}

// ControlPointGradient maps per-wavelength heightmap gradients, as returned
// by PSFBackward, to the gradient with respect to the control points.
// Profile folding is treated as the identity.
func (b *BSplineApertureCamera) ControlPointGradient(heightGrads [][][]float64) (*mat.Dense, error) {
	if len(heightGrads) != len(b.surface.rowBasis) {
		return nil, fmt.Errorf("%d gradients for %d wavelengths: %w", len(heightGrads), len(b.surface.rowBasis), ErrShape)
	}
	total := mat.NewDense(b.opts.GridSize[0], b.opts.GridSize[1], nil)
	for i, g := range heightGrads {
		rows, _ := b.surface.rowBasis[i].Dims()
		cols, _ := b.surface.colBasis[i].Dims()
		if len(g) != rows || len(g[0]) != cols {
			return nil, fmt.Errorf("gradient %d is %dx%d, want %dx%d: %w", i, len(g), len(g[0]), rows, cols, ErrShape)
		}
		grad := mat.NewDense(rows, cols, nil)
		for y := range g {
			grad.SetRow(y, g[y])
		}
		total.Add(total, bspline.Backpropagate(b.surface.rowBasis[i], grad, b.surface.colBasis[i]))
	}
	return total, nil
}

// HeightmapLog evaluates the surface on a uniform h x w grid over the
// aperture square, masks it to the aperture circle and rescales it to [0,1].
func (b *BSplineApertureCamera) HeightmapLog(h, w int) ([][]float64, error) {
	s := b.surface
	rows, err := bspline.DesignMatrix(spectral.Linspace(0, 1, h), s.Knots[0], s.Degrees[0])
	if err != nil {
		return nil, err
	}
	cols, err := bspline.DesignMatrix(spectral.Linspace(0, 1, w), s.Knots[1], s.Degrees[1])
	if err != nil {
		return nil, err
	}
	hm := s.evaluate(rows, cols)
	ys := spectral.Linspace(-0.5, 0.5, h)
	xs := spectral.Linspace(-0.5, 0.5, w)
	low, high := math.Inf(1), math.Inf(-1)
	for y := range hm {
		for x := range hm[y] {
			if xs[x]*xs[x]+ys[y]*ys[y] >= 0.25 {
				hm[y][x] = 0
			}
			low = math.Min(low, hm[y][x])
			high = math.Max(high, hm[y][x])
		}
	}
	for y := range hm {
		for x := range hm[y] {
			hm[y][x] -= low
			if high > low {
				hm[y][x] /= high - low
			}
		}
	}
	return hm, nil
}

// Parameters returns the trainable state by name.
func (b *BSplineApertureCamera) Parameters() map[string]interface{} {
	r, _ := b.surface.ctrl.Dims()
	rows := make([][]float64, r)
	for y := 0; y < r; y++ {
		rows[y] = mat.Row(nil, y, b.surface.ctrl)
	}
	return map[string]interface{}{"control_points": rows}
}

// LoadParameters restores state produced by Parameters. Decoded documents
// with generic []interface{} rows are accepted.
func (b *BSplineApertureCamera) LoadParameters(params map[string]interface{}) error {
	raw, ok := params["control_points"]
	if !ok {
		return fmt.Errorf("missing control_points: %w", ErrConfig)
	}
	var rows [][]float64
	switch v := raw.(type) {
	case [][]float64:
		rows = v
	case []interface{}:
		for _, r := range v {
			items, ok := r.([]interface{})
			if !ok {
				return fmt.Errorf("control_points row has type %T: %w", r, ErrConfig)
			}
			row := make([]float64, len(items))
			for i, item := range items {
				f, ok := toFloat(item)
				if !ok {
					return fmt.Errorf("control point has type %T: %w", item, ErrConfig)
				}
				row[i] = f
			}
			rows = append(rows, row)
		}
	default:
		return fmt.Errorf("control_points has type %T: %w", raw, ErrConfig)
	}
	if len(rows) == 0 {
		return fmt.Errorf("empty control_points: %w", ErrShape)
	}
	ctrl := mat.NewDense(len(rows), len(rows[0]), nil)
	for y, row := range rows {
		if len(row) != len(rows[0]) {
			return fmt.Errorf("ragged control_points: %w", ErrShape)
		}
		ctrl.SetRow(y, row)
	}
	return b.SetControlPoints(ctrl)
}
