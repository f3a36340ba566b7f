package report

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"gonum.org/v1/plot"
	_ "gonum.org/v1/plot/font/liberation"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	vgdraw "gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/bob-anderson-ok/DOEcamera/optics"
)

// StepTicks is a custom tick marker for plots with fixed step intervals.
type StepTicks struct {
	Step   float64
	Format string
}

func (t StepTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	if t.Step <= 0 {
		return ticks
	}
	start := math.Ceil(min/t.Step) * t.Step
	for v := start; v <= max; v += t.Step {
		ticks = append(ticks, plot.Tick{
			Value: v,
			Label: fmt.Sprintf(t.Format, v),
		})
	}
	return ticks
}

func newStyledPlot() *plot.Plot {
	p := plot.New()

	p.Title.TextStyle.Font.Typeface = "Liberation"
	p.Title.TextStyle.Font.Variant = "Sans"
	p.Title.TextStyle.Font.Size = vg.Points(12)

	p.X.Label.TextStyle.Font.Typeface = "Liberation"
	p.X.Label.TextStyle.Font.Variant = "Sans"
	p.X.Label.TextStyle.Font.Size = vg.Points(12)

	p.Y.Label.TextStyle.Font.Typeface = "Liberation"
	p.Y.Label.TextStyle.Font.Variant = "Sans"
	p.Y.Label.TextStyle.Font.Size = vg.Points(12)

	p.X.Tick.Label.Font.Typeface = "Liberation"
	p.X.Tick.Label.Font.Variant = "Sans"
	p.X.Tick.Label.Font.Size = vg.Points(10)

	p.Y.Tick.Label.Font.Typeface = "Liberation"
	p.Y.Tick.Label.Font.Variant = "Sans"
	p.Y.Tick.Label.Font.Size = vg.Points(10)

	p.Legend.TextStyle.Font.Typeface = "Liberation"
	p.Legend.TextStyle.Font.Variant = "Sans"
	p.Legend.Top = true

	return p
}

func renderPlot(p *plot.Plot, wPx, hPx float64) image.Image {
	const dpi = 96
	width := vg.Length(wPx) * vg.Inch / dpi
	height := vg.Length(hPx) * vg.Inch / dpi

	c := vgimg.New(width, height)
	dc := vgdraw.New(c)
	p.Draw(dc)
	return c.Image()
}

// MTFProfile is the radial average of a centred MTF slice, normalised to
// its zero frequency value. Entry r covers radius r pixels from the centre,
// out to half the smaller side.
func MTFProfile(mtf [][]float64) []float64 {
	h := len(mtf)
	if h == 0 || len(mtf[0]) == 0 {
		return nil
	}
	w := len(mtf[0])
	cy, cx := h/2, w/2
	n := min(h, w)/2 + 1
	sum := make([]float64, n)
	count := make([]int, n)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := int(math.Round(math.Hypot(float64(y-cy), float64(x-cx))))
			if r >= n {
				continue
			}
			sum[r] += mtf[y][x]
			count[r]++
		}
	}
	dc := mtf[cy][cx]
	if dc == 0 {
		dc = 1
	}
	out := make([]float64, n)
	for r := range out {
		if count[r] > 0 {
			out[r] = sum[r] / float64(count[r]) / dc
		}
	}
	return out
}

// PlotMTF draws the radial MTF of every wavelength at one depth index.
// Frequencies are in cycles per pixel.
func PlotMTF(mtf optics.PSF, wavelengths []float64, depthIndex int, depth float64, wPx, hPx float64) (image.Image, error) {
	s := mtf.Shape()
	if len(wavelengths) != s[0] {
		return nil, fmt.Errorf("%d wavelengths for %d MTF channels", len(wavelengths), s[0])
	}
	if depthIndex < 0 || depthIndex >= s[1] {
		return nil, fmt.Errorf("depth index %d out of range [0,%d)", depthIndex, s[1])
	}

	p := newStyledPlot()
	p.Title.Text = fmt.Sprintf("Radial MTF at %.2f m", depth)
	p.X.Label.Text = "spatial frequency (cycles/pixel)"
	p.Y.Label.Text = "normalized MTF"
	p.X.Min = 0
	p.X.Max = 0.5
	p.Y.Min = 0
	p.Y.Max = 1.05
	p.X.Tick.Marker = StepTicks{Step: 0.05, Format: "%.2f"}
	p.Y.Tick.Marker = StepTicks{Step: 0.1, Format: "%.1f"}
	p.Add(plotter.NewGrid())

	side := float64(min(s[2], s[3]))
	for c := range mtf {
		profile := MTFProfile(mtf[c][depthIndex])
		pts := make(plotter.XYs, len(profile))
		for r, v := range profile {
			pts[r].X = float64(r) / side
			pts[r].Y = v
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		tint := channelTint(c)
		line.Color = color.RGBA{R: uint8(tint[0] * 0.8), G: uint8(tint[1] * 0.8), B: uint8(tint[2] * 0.8), A: 255}
		line.Width = vg.Points(1.5)
		if c >= 3 {
			line.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
		}
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("%.0f nm", wavelengths[c]*1e9), line)
	}

	return renderPlot(p, wPx, hPx), nil
}

// PlotHeightProfile draws the central row of a heightmap, in micrometres,
// across the aperture in millimetres.
func PlotHeightProfile(h [][]float64, diameter, wPx, hPx float64) (image.Image, error) {
	if len(h) == 0 || len(h[0]) == 0 {
		return nil, errors.New("empty heightmap")
	}
	row := h[len(h)/2]
	n := len(row)

	p := newStyledPlot()
	p.Title.Text = "DOE height along the central row"
	p.X.Label.Text = "aperture position (mm)"
	p.Y.Label.Text = "height (µm)"
	p.X.Tick.Marker = StepTicks{Step: diameter * 1e3 / 10, Format: "%.2f"}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, n)
	for i, v := range row {
		pts[i].X = (float64(i)/float64(n) - 0.5) * diameter * 1e3
		pts[i].Y = v * 1e6
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = color.RGBA{R: 0, G: 0, B: 255, A: 255}
	p.Add(line)

	return renderPlot(p, wPx, hPx), nil
}

// SavePlot writes a rendered plot as PNG.
func SavePlot(filename string, img image.Image) (err error) {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return png.Encode(f, img)
}
