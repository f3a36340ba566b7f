package report

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-anderson-ok/DOEcamera/optics"
)

func gaussianPSF(nc, nd, n int) optics.PSF {
	psf := optics.NewPSF(nc, nd, n, n)
	for c := range psf {
		for d := range psf[c] {
			for y := 0; y < n; y++ {
				for x := 0; x < n; x++ {
					dy, dx := float64(y-n/2), float64(x-n/2)
					psf[c][d][y][x] = 1 / (1 + (dx*dx+dy*dy)/float64(1+d+c))
				}
			}
		}
	}
	return psf
}

func TestMTFProfileOfFlatSpectrum(t *testing.T) {
	m := make([][]float64, 8)
	for y := range m {
		m[y] = []float64{2, 2, 2, 2, 2, 2, 2, 2}
	}
	profile := MTFProfile(m)
	require.Len(t, profile, 5)
	for _, v := range profile {
		assert.InDelta(t, 1.0, v, 1e-12)
	}
	assert.Nil(t, MTFProfile(nil))
}

func TestStepTicks(t *testing.T) {
	ticks := StepTicks{Step: 0.25, Format: "%.2f"}.Ticks(0, 0.6)
	require.Len(t, ticks, 3)
	assert.Equal(t, "0.00", ticks[0].Label)
	assert.Equal(t, "0.50", ticks[2].Label)
	assert.Empty(t, StepTicks{}.Ticks(0, 1))
}

func TestGray16Mapping(t *testing.T) {
	img, err := MatrixToGray16Data([][]float64{{0, 0.5}, {2, -1}}, 1000)
	require.NoError(t, err)
	assert.Equal(t, uint16(500), img.Gray16At(1, 0).Y)
	assert.Equal(t, uint16(2000), img.Gray16At(0, 1).Y)
	assert.Equal(t, uint16(0), img.Gray16At(1, 1).Y)

	_, err = MatrixToGray16Data([][]float64{{1}, {1, 2}}, 1)
	assert.Error(t, err)
}

func TestPercentileView(t *testing.T) {
	m := [][]float64{{0, 1, 2, 3, 4}}
	img, err := MatrixToGrayViewPercentile(m, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(255), img.GrayAt(4, 0).Y)

	_, err = MatrixToGrayViewPercentile(m, 50, 10)
	assert.Error(t, err)
}

func TestChannelsRoundTrip(t *testing.T) {
	ch := [][][]float64{
		{{0, 1}, {0.5, 0.25}},
		{{1, 0}, {0.5, 0.75}},
		{{0.2, 0.4}, {0.6, 0.8}},
	}
	img, err := ChannelsToImage(ch, 1)
	require.NoError(t, err)
	back := ImageToChannels(img, 3)
	for c := range ch {
		for y := range ch[c] {
			assert.InDeltaSlice(t, ch[c][y], back[c][y], 1e-4)
		}
	}
	// Six channels fold onto three colours.
	six := ImageToChannels(img, 6)
	assert.Equal(t, six[0], six[3])
}

func TestSaveAndLoadImage(t *testing.T) {
	dir := t.TempDir()
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(60 * x), G: uint8(80 * y), B: 7, A: 255})
		}
	}
	for _, name := range []string{"a.png", "a.tif", "a.webp"} {
		path := filepath.Join(dir, name)
		require.NoError(t, SaveImage(path, src), name)
		img, err := LoadImage(path)
		require.NoError(t, err, name)
		assert.Equal(t, src.Bounds(), img.Bounds(), name)
		r, g, _, _ := img.At(3, 2).RGBA()
		assert.Equal(t, uint32(180)*0x101, r, name)
		assert.Equal(t, uint32(160)*0x101, g, name)
	}
	assert.ErrorIs(t, SaveImage(filepath.Join(dir, "a.bmp"), src), ErrFormat)
}

func TestImageToMatrix(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 1))
	img.SetGray(1, 0, color.Gray{Y: 255})
	m := ImageToMatrix(img)
	assert.InDeltaSlice(t, []float64{0, 1}, m[0], 1e-9)
}

func TestHeightmapImage(t *testing.T) {
	h := [][]float64{{0, 1e-6}, {2e-6, 3e-6}}
	img, err := HeightmapImage(h, 0)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 2, 2), img.Bounds())
	assert.Equal(t, Colormap(0), img.At(0, 0))
	assert.Equal(t, Colormap(1), img.At(1, 1))

	big, err := HeightmapImage(h, 16)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 16), big.Bounds())

	_, err = HeightmapImage(nil, 4)
	assert.Error(t, err)
}

func TestPSFMontage(t *testing.T) {
	psf := gaussianPSF(3, 2, 8)
	img, err := PSFMontage(psf, []float64{632e-9, 550e-9, 450e-9}, []float64{1, 2}, 16)
	require.NoError(t, err)
	assert.Equal(t, montageLeft+3*(16+montageGap), img.Bounds().Dx())
	assert.Equal(t, montageTop+2*(16+montageGap), img.Bounds().Dy())

	_, err = PSFMontage(psf, []float64{1}, []float64{1, 2}, 16)
	assert.Error(t, err)
}

func TestPSFSliceView(t *testing.T) {
	psf := gaussianPSF(3, 2, 8)
	img, err := PSFSliceView(psf, 1, 1, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 8), img.Bounds())

	lo, hi := uint8(255), uint8(0)
	for _, v := range img.Pix {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	assert.Equal(t, uint8(0), lo)
	assert.Equal(t, uint8(255), hi)

	_, err = PSFSliceView(psf, 3, 0, 0, 100)
	assert.Error(t, err)
	_, err = PSFSliceView(psf, 0, 2, 0, 100)
	assert.Error(t, err)
}

func TestPSFStrip(t *testing.T) {
	psf := gaussianPSF(6, 2, 4)
	strip, err := NewPSFStrip(psf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), strip.Bounds())
	assert.Equal(t, 32, strip.Size())

	path := filepath.Join(t.TempDir(), "psf.hdr")
	require.NoError(t, WritePSFHDR(path, psf))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestPlots(t *testing.T) {
	psf := gaussianPSF(3, 1, 16)
	img, err := PlotMTF(psf, []float64{632e-9, 550e-9, 450e-9}, 0, 1.7, 400, 300)
	require.NoError(t, err)
	assert.False(t, img.Bounds().Empty())

	_, err = PlotMTF(psf, []float64{632e-9, 550e-9, 450e-9}, 3, 1.7, 400, 300)
	assert.Error(t, err)

	prof, err := PlotHeightProfile([][]float64{{0, 1e-6, 0}}, 2.5e-3, 400, 300)
	require.NoError(t, err)
	require.NoError(t, SavePlot(filepath.Join(t.TempDir(), "h.png"), prof))
}

func TestYAMLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "camera.yaml")
	cfg := optics.DefaultConfig()
	require.NoError(t, WriteYAML(path, cfg))

	var back optics.Config
	require.NoError(t, ReadYAML(path, &back))
	assert.Equal(t, cfg, back)
}
