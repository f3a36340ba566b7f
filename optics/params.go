package optics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bob-anderson-ok/DOEcamera/lattice"
)

// Parameter kinds.
const (
	KindFloat  = "float"
	KindInt    = "int"
	KindBool   = "bool"
	KindString = "string"
	KindFloats = "floats" // a list of numbers, or a single number
	KindSize   = "size"   // an int for a square, or [rows, cols]
)

// ParamSpec declares one recognised camera parameter of the flat parameter
// table.
type ParamSpec struct {
	Name    string
	Kind    string
	Default interface{}
	Help    string
}

// BaseParams are recognised by every camera.
func BaseParams() []ParamSpec {
	d := DefaultConfig()
	return []ParamSpec{
		{"focal_depth", KindFloat, d.FocalDepth, "scene depth in focus without the DOE [m]"},
		{"min_depth", KindFloat, d.MinDepth, "nearest scene depth [m]"},
		{"max_depth", KindFloat, d.MaxDepth, "farthest scene depth [m]"},
		{"n_depths", KindInt, d.NDepths, "number of depth layers"},
		{"image_size", KindSize, d.ImageSize[:], "sensor size in pixels, even"},
		{"aperture_size", KindInt, d.ApertureSize, "number of aperture samples across the diameter"},
		{"focal_length", KindFloat, d.FocalLength, "focal length [m]"},
		{"aperture_diameter", KindFloat, d.ApertureDiameter, "aperture diameter [m]"},
		{"camera_pitch", KindFloat, d.CameraPitch, "sensor pixel pitch [m]"},
		{"wavelengths", KindFloats, d.Wavelengths, "wavelengths in RGB triplets [m]"},
		{"diffraction_efficiency", KindFloat, d.DiffractionEfficiency, "fraction of light following the diffracted path"},
	}
}

// ClassicParams are recognised by ClassicCamera.
func ClassicParams() []ParamSpec {
	d := DefaultClassicOptions()
	return []ParamSpec{
		{"effective_psf_factor", KindInt, d.EffectivePSFFactor, "sensor size divided by computed PSF size"},
		{"double_precision", KindBool, d.DoublePrecision, "evaluate the wavefront in float64"},
	}
}

// BSplineParams are recognised by BSplineApertureCamera.
func BSplineParams() []ParamSpec {
	d := DefaultBSplineOptions()
	return []ParamSpec{
		{"bspline_grid_size", KindInt, d.GridSize[0], "number of control points in each direction for B-spline DOE"},
		{"bspline_degree", KindInt, d.Degrees[0], "degree of B-spline surface in each direction"},
		{"initialization_type", KindString, d.InitType, "default or lattice_focal"},
		{"lattice_fill", KindString, d.Fill, "inscribe or circumscribe"},
		{"design_wavelength", KindFloat, d.DesignWavelength, "fold the profile to one wave at this wavelength [m], 0 disables"},
	}
}

// Usage renders specs as an aligned help listing.
func Usage(specs []ParamSpec) string {
	sorted := append([]ParamSpec(nil), specs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	var sb strings.Builder
	for _, s := range sorted {
		fmt.Fprintf(&sb, "  %-24s %-7s default %-22v %s\n", s.Name, s.Kind, s.Default, s.Help)
	}
	return sb.String()
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func toInt(v interface{}) (int, bool) {
	f, ok := toFloat(v)
	if !ok || f != float64(int(f)) {
		return 0, false
	}
	return int(f), true
}

func getFloat(params map[string]interface{}, key string, dst *float64) error {
	v, ok := params[key]
	if !ok {
		return nil
	}
	f, ok := toFloat(v)
	if !ok {
		return fmt.Errorf("%s: expected a number, got %T: %w", key, v, ErrConfig)
	}
	*dst = f
	return nil
}

func getInt(params map[string]interface{}, key string, dst *int) error {
	v, ok := params[key]
	if !ok {
		return nil
	}
	n, ok := toInt(v)
	if !ok {
		return fmt.Errorf("%s: expected an integer, got %v: %w", key, v, ErrConfig)
	}
	*dst = n
	return nil
}

func getBool(params map[string]interface{}, key string, dst *bool) error {
	v, ok := params[key]
	if !ok {
		return nil
	}
	b, ok := v.(bool)
	if !ok {
		return fmt.Errorf("%s: expected true or false, got %T: %w", key, v, ErrConfig)
	}
	*dst = b
	return nil
}

func getString(params map[string]interface{}, key string, dst *string) error {
	v, ok := params[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("%s: expected a string, got %T: %w", key, v, ErrConfig)
	}
	*dst = s
	return nil
}

func getFloats(params map[string]interface{}, key string, dst *[]float64) error {
	v, ok := params[key]
	if !ok {
		return nil
	}
	if f, ok := toFloat(v); ok {
		*dst = []float64{f}
		return nil
	}
	var items []interface{}
	switch list := v.(type) {
	case []interface{}:
		items = list
	case []float64:
		*dst = append([]float64(nil), list...)
		return nil
	default:
		return fmt.Errorf("%s: expected a number or a list of numbers, got %T: %w", key, v, ErrConfig)
	}
	out := make([]float64, len(items))
	for i, item := range items {
		f, ok := toFloat(item)
		if !ok {
			return fmt.Errorf("%s[%d]: expected a number, got %T: %w", key, i, item, ErrConfig)
		}
		out[i] = f
	}
	*dst = out
	return nil
}

func getSize(params map[string]interface{}, key string, dst *[2]int) error {
	v, ok := params[key]
	if !ok {
		return nil
	}
	if n, ok := toInt(v); ok {
		*dst = [2]int{n, n}
		return nil
	}
	list, ok := v.([]interface{})
	if !ok || len(list) != 2 {
		return fmt.Errorf("%s: expected an integer or [rows, cols], got %v: %w", key, v, ErrConfig)
	}
	for i, item := range list {
		n, ok := toInt(item)
		if !ok {
			return fmt.Errorf("%s[%d]: expected an integer, got %v: %w", key, i, item, ErrConfig)
		}
		dst[i] = n
	}
	return nil
}

// ExtractConfig builds a Config from a flat parameter table, starting from
// DefaultConfig. Numbers decoded from JSON arrive as float64.
func ExtractConfig(params map[string]interface{}) (Config, error) {
	c := DefaultConfig()
	for _, err := range []error{
		getFloat(params, "focal_depth", &c.FocalDepth),
		getFloat(params, "min_depth", &c.MinDepth),
		getFloat(params, "max_depth", &c.MaxDepth),
		getInt(params, "n_depths", &c.NDepths),
		getSize(params, "image_size", &c.ImageSize),
		getInt(params, "aperture_size", &c.ApertureSize),
		getFloat(params, "focal_length", &c.FocalLength),
		getFloat(params, "aperture_diameter", &c.ApertureDiameter),
		getFloat(params, "camera_pitch", &c.CameraPitch),
		getFloats(params, "wavelengths", &c.Wavelengths),
		getFloat(params, "diffraction_efficiency", &c.DiffractionEfficiency),
	} {
		if err != nil {
			return Config{}, err
		}
	}
	return c, nil
}

// ExtractClassicOptions reads the ClassicCamera settings.
func ExtractClassicOptions(params map[string]interface{}) (ClassicOptions, error) {
	o := DefaultClassicOptions()
	if err := getInt(params, "effective_psf_factor", &o.EffectivePSFFactor); err != nil {
		return o, err
	}
	if err := getBool(params, "double_precision", &o.DoublePrecision); err != nil {
		return o, err
	}
	return o, nil
}

// ExtractBSplineOptions reads the BSplineApertureCamera settings. Grid size
// and degree apply to both axes.
func ExtractBSplineOptions(params map[string]interface{}) (BSplineOptions, error) {
	o := DefaultBSplineOptions()
	grid, degree := o.GridSize[0], o.Degrees[0]
	for _, err := range []error{
		getInt(params, "bspline_grid_size", &grid),
		getInt(params, "bspline_degree", &degree),
		getString(params, "initialization_type", &o.InitType),
		getString(params, "lattice_fill", &o.Fill),
		getFloat(params, "design_wavelength", &o.DesignWavelength),
	} {
		if err != nil {
			return o, err
		}
	}
	if o.InitType != InitDefault && o.InitType != InitLatticeFocal {
		return o, fmt.Errorf("unsupported initialization type: %s: %w", o.InitType, ErrConfig)
	}
	if o.Fill != lattice.FillInscribe && o.Fill != lattice.FillCircumscribe {
		return o, fmt.Errorf("unsupported lattice fill: %s: %w", o.Fill, ErrConfig)
	}
	o.GridSize = [2]int{grid, grid}
	o.Degrees = [2]int{degree, degree}
	return o, nil
}
