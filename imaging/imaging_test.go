package imaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bob-anderson-ok/DOEcamera/optics"
)

func ramp(h, w int) [][]float64 {
	out := make([][]float64, h)
	for y := range out {
		out[y] = make([]float64, w)
		for x := range out[y] {
			out[y][x] = float64(1 + y*w + x)
		}
	}
	return out
}

func delta(h, w, cy, cx int) [][]float64 {
	out := make([][]float64, h)
	for y := range out {
		out[y] = make([]float64, w)
	}
	out[cy][cx] = 1
	return out
}

func TestConvolveCentredDeltaIsIdentity(t *testing.T) {
	img := ramp(6, 7)
	for _, pad := range []PaddingMode{PadZeros, PadReflect, PadReplicate, PadCircular} {
		for _, size := range [][2]int{{4, 4}, {5, 3}} {
			psf := delta(size[0], size[1], size[0]/2, size[1]/2)
			out, err := ConvolvePSFFFT(img, psf, ConvSame, pad)
			require.NoError(t, err)
			require.Len(t, out, 6)
			for y := range img {
				assert.InDeltaSlice(t, img[y], out[y], 1e-9, "pad %d psf %v row %d", pad, size, y)
			}
		}
	}
}

func TestConvolveShiftUsesPadding(t *testing.T) {
	img := ramp(4, 5)
	// Delta one column right of centre moves the image one column right.
	psf := delta(4, 4, 2, 3)

	cases := []struct {
		pad   PaddingMode
		first func(y int) float64
	}{
		{PadZeros, func(int) float64 { return 0 }},
		{PadReplicate, func(y int) float64 { return img[y][0] }},
		{PadReflect, func(y int) float64 { return img[y][1] }},
		{PadCircular, func(y int) float64 { return img[y][4] }},
	}
	for _, tc := range cases {
		out, err := ConvolvePSFFFT(img, psf, ConvSame, tc.pad)
		require.NoError(t, err)
		for y := 0; y < 4; y++ {
			assert.InDelta(t, tc.first(y), out[y][0], 1e-9)
			for x := 1; x < 5; x++ {
				assert.InDelta(t, img[y][x-1], out[y][x], 1e-9)
			}
		}
	}
}

func TestConvolveFullAndValidSizes(t *testing.T) {
	img := ramp(6, 6)
	box := [][]float64{{1, 1}, {1, 1}}

	full, err := ConvolvePSFFFT(img, box, ConvFull, PadZeros)
	require.NoError(t, err)
	assert.Len(t, full, 7)
	assert.Len(t, full[0], 7)
	assert.InDelta(t, img[0][0], full[0][0], 1e-9)

	valid, err := ConvolvePSFFFT(img, box, ConvValid, PadZeros)
	require.NoError(t, err)
	assert.Len(t, valid, 5)
	assert.InDelta(t, img[0][0]+img[0][1]+img[1][0]+img[1][1], valid[0][0], 1e-9)

	_, err = ConvolvePSFFFT(box, img, ConvValid, PadZeros)
	assert.Error(t, err)
}

func TestReflectIndex(t *testing.T) {
	got := make([]int, 0, 12)
	for i := -4; i < 8; i++ {
		got = append(got, reflectIndex(i, 5))
	}
	assert.Equal(t, []int{4, 3, 2, 1, 0, 1, 2, 3, 4, 3, 2, 1}, got)
}

func identityPSF(nc, nd, h, w int) optics.PSF {
	psf := optics.NewPSF(nc, nd, h, w)
	for c := range psf {
		for d := range psf[c] {
			psf[c][d][h/2][w/2] = 1
		}
	}
	return psf
}

func twoLayerScene() ([][][][]float64, [][][]float64) {
	// Left half near, right half far.
	masks := [][][]float64{
		{{1, 1, 0, 0}, {1, 1, 0, 0}},
		{{0, 0, 1, 1}, {0, 0, 1, 1}},
	}
	img := [][]float64{{2, 4, 6, 8}, {1, 3, 5, 7}}
	volume := [][][][]float64{make([][][]float64, 2)}
	for d := range masks {
		volume[0][d] = make([][]float64, 2)
		for y := range masks[d] {
			volume[0][d][y] = make([]float64, 4)
			for x := range masks[d][y] {
				volume[0][d][y][x] = masks[d][y][x] * img[y][x]
			}
		}
	}
	return volume, masks
}

func TestFormWithoutOcclusionSumsLayers(t *testing.T) {
	volume, masks := twoLayerScene()
	captured, out, err := Former{}.Form(volume, masks, identityPSF(1, 2, 2, 4), false)
	require.NoError(t, err)
	assert.Equal(t, volume, out)
	assert.InDeltaSlice(t, []float64{2, 4, 6, 8}, captured[0][0], 1e-9)
	assert.InDeltaSlice(t, []float64{1, 3, 5, 7}, captured[0][1], 1e-9)
}

func TestFormWithOcclusionSharpPSF(t *testing.T) {
	volume, masks := twoLayerScene()
	captured, _, err := Former{Workers: 2}.Form(volume, masks, identityPSF(1, 2, 2, 4), true)
	require.NoError(t, err)
	// Exactly one layer is opaque per pixel, so only the eps term remains.
	want := [][]float64{{2, 4, 6, 8}, {1, 3, 5, 7}}
	for y := range want {
		for x := range want[y] {
			assert.InDelta(t, want[y][x]/(1+OcclusionEps), captured[0][y][x], 1e-9)
		}
	}
}

func TestFormRejectsMismatchedLayout(t *testing.T) {
	volume, masks := twoLayerScene()
	_, _, err := Former{}.Form(volume, masks, identityPSF(2, 2, 2, 4), false)
	assert.ErrorIs(t, err, ErrLayout)
	_, _, err = Former{}.Form(volume, masks[:1], identityPSF(1, 2, 2, 4), false)
	assert.ErrorIs(t, err, ErrLayout)
}
