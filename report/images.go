// Package report renders camera state to files: PSF montages, HDR PSF
// stacks, heightmap views, MTF plots and parameter dumps. It also loads the
// scene images fed to the forward model.
package report

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	_ "github.com/ftrvxmtrx/tga"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"gonum.org/v1/gonum/stat"
)

var ErrFormat = errors.New("unsupported image format")

// LoadImage decodes a PNG, TIFF, TGA or WebP file.
func LoadImage(filename string) (img image.Image, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	img, _, err = image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}
	return img, nil
}

// SaveImage encodes img according to the filename extension: .png, .webp
// (lossless) or .tif/.tiff (deflate).
func SaveImage(filename string, img image.Image) (err error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".webp", ".tif", ".tiff":
	default:
		return fmt.Errorf("%s: %w", filename, ErrFormat)
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filename, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	switch ext {
	case ".png":
		return png.Encode(f, img)
	case ".webp":
		return nativewebp.Encode(f, img, nil)
	default:
		return tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate})
	}
}

// ImageToMatrix returns the luminance of img in [0,1], indexed [row][col].
func ImageToMatrix(img image.Image) [][]float64 {
	b := img.Bounds()
	out := make([][]float64, b.Dy())
	for y := range out {
		out[y] = make([]float64, b.Dx())
		for x := range out[y] {
			g := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
			out[y][x] = float64(g.Y) / 65535
		}
	}
	return out
}

// ImageToChannels splits img into n channels in [0,1]. Channel c takes the
// red, green or blue plane for c%3 equal to 0, 1 or 2.
func ImageToChannels(img image.Image, n int) [][][]float64 {
	b := img.Bounds()
	out := make([][][]float64, n)
	for c := range out {
		out[c] = make([][]float64, b.Dy())
		for y := range out[c] {
			out[c][y] = make([]float64, b.Dx())
		}
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			rgb := [3]float64{float64(r) / 65535, float64(g) / 65535, float64(bl) / 65535}
			for c := 0; c < n; c++ {
				out[c][y][x] = rgb[c%3]
			}
		}
	}
	return out
}

// ChannelsToImage is the inverse of ImageToChannels. Channels sharing a
// colour are averaged and everything is divided by peak before clamping to
// [0,1]. A peak of zero uses the largest value found.
func ChannelsToImage(channels [][][]float64, peak float64) (*image.NRGBA64, error) {
	if len(channels) == 0 || len(channels[0]) == 0 || len(channels[0][0]) == 0 {
		return nil, errors.New("empty image")
	}
	h, w := len(channels[0]), len(channels[0][0])
	if peak <= 0 {
		for _, ch := range channels {
			for _, row := range ch {
				for _, v := range row {
					peak = math.Max(peak, v)
				}
			}
		}
		if peak == 0 {
			peak = 1
		}
	}

	img := image.NewNRGBA64(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum [3]float64
			var count [3]int
			for c := range channels {
				sum[c%3] += channels[c][y][x]
				count[c%3]++
			}
			var v [3]uint16
			for k := 0; k < 3; k++ {
				if count[k] == 0 {
					continue
				}
				v[k] = unit16(sum[k] / float64(count[k]) / peak)
			}
			img.SetNRGBA64(x, y, color.NRGBA64{R: v[0], G: v[1], B: v[2], A: 0xffff})
		}
	}
	return img, nil
}

func unit16(t float64) uint16 {
	if math.IsNaN(t) || t <= 0 {
		return 0
	}
	if t >= 1 {
		return 0xffff
	}
	return uint16(math.Round(t * 0xffff))
}

// MatrixToGray16Data -------------------- Data PNG (Gray16, fixed physical scaling) --------------------
// Mapping: Y16 = round(v * scale), clamped to [0, 65535]
func MatrixToGray16Data(m [][]float64, scale float64) (*image.Gray16, error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return nil, errors.New("empty matrix")
	}
	if scale <= 0 {
		return nil, errors.New("scale must be > 0")
	}
	h := len(m)
	w := len(m[0])
	for y := 1; y < h; y++ {
		if len(m[y]) != w {
			return nil, errors.New("ragged matrix")
		}
	}

	img := image.NewGray16(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := m[y][x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			u := math.Round(v * scale)
			if u < 0 {
				u = 0
			} else if u > 65535 {
				u = 65535
			}
			img.SetGray16(x, y, color.Gray16{Y: uint16(u)})
		}
	}
	return img, nil
}

// MatrixToGrayViewPercentile maps the pLow to pHigh percentile range of m
// onto 0..255 and clamps, which keeps a few bright outliers from washing
// out the view.
func MatrixToGrayViewPercentile(m [][]float64, pLow, pHigh float64) (*image.Gray, error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return nil, errors.New("empty matrix")
	}
	h := len(m)
	w := len(m[0])
	for y := 1; y < h; y++ {
		if len(m[y]) != w {
			return nil, errors.New("ragged matrix")
		}
	}
	if !(0 <= pLow && pLow < pHigh && pHigh <= 100) {
		return nil, errors.New("percentiles must satisfy 0 <= pLow < pHigh <= 100")
	}

	vals := make([]float64, 0, h*w)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := m[y][x]
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				vals = append(vals, v)
			}
		}
	}
	if len(vals) == 0 {
		return nil, errors.New("matrix has no finite values")
	}
	sort.Float64s(vals)

	percentile := func(p float64) float64 {
		if p <= 0 {
			return vals[0]
		}
		if p >= 100 {
			return vals[len(vals)-1]
		}
		return stat.Quantile(p/100, stat.LinInterp, vals, nil)
	}

	lo := percentile(pLow)
	hi := percentile(pHigh)
	if hi == lo {
		hi = lo + 1
	}

	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * img.Stride
		for x := 0; x < w; x++ {
			v := m[y][x]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				img.Pix[row+x] = 0
				continue
			}
			t := (v - lo) / (hi - lo)
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			img.Pix[row+x] = uint8(math.Round(t * 255.0))
		}
	}
	return img, nil
}
