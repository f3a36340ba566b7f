package imaging

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/bob-anderson-ok/DOEcamera/optics"
)

// OcclusionEps keeps the blurred alpha normalisation finite where no layer
// contributes.
const OcclusionEps = 1e-3

var ErrLayout = errors.New("volume, masks and psf do not line up")

// Former implements optics.ImageFormer with FFT convolution.
//
// Without occlusion every channel is the sum over depth of the layer
// convolved with its PSF. With occlusion the blurred layers are normalised
// by the blurred cumulative alpha and composited front to back with the
// over operator, depth index 0 being nearest the camera.
type Former struct {
	Padding PaddingMode
	// Workers bounds the number of concurrent convolutions. Zero means
	// runtime.NumCPU().
	Workers int
}

var _ optics.ImageFormer = Former{}

func (f Former) Form(volume [][][][]float64, masks [][][]float64, psf optics.PSF, occlusion bool) ([][][]float64, [][][][]float64, error) {
	nc := len(volume)
	if nc == 0 || len(psf) != nc {
		return nil, nil, fmt.Errorf("%d channels in volume, %d in psf: %w", nc, len(psf), ErrLayout)
	}
	nd := len(masks)
	for c := 0; c < nc; c++ {
		if len(volume[c]) != nd || len(psf[c]) != nd {
			return nil, nil, fmt.Errorf("channel %d: %d volume layers, %d psf layers, %d masks: %w",
				c, len(volume[c]), len(psf[c]), nd, ErrLayout)
		}
	}
	if nd == 0 {
		return nil, nil, fmt.Errorf("no depth layers: %w", ErrLayout)
	}
	h, w := len(masks[0]), len(masks[0][0])

	// Work on a unit peak scene, restored on the way out.
	scale := 0.0
	for c := range volume {
		for d := range volume[c] {
			for _, row := range volume[c][d] {
				for _, v := range row {
					if v > scale {
						scale = v
					}
				}
			}
		}
	}
	if scale == 0 {
		scale = 1
	}

	blurredVolume, err := f.convolveAll(nc, nd, func(c, d int) [][]float64 { return volume[c][d] }, psf, scale)
	if err != nil {
		return nil, nil, err
	}

	captured := make([][][]float64, nc)
	for c := range captured {
		captured[c] = make([][]float64, h)
		for y := range captured[c] {
			captured[c][y] = make([]float64, w)
		}
	}

	if !occlusion {
		for c := 0; c < nc; c++ {
			for d := 0; d < nd; d++ {
				addScaled(captured[c], blurredVolume[c][d], scale)
			}
		}
		return captured, volume, nil
	}

	// cumulative alpha from the back: layer d plus everything behind it.
	cumAlpha := make([][][]float64, nd)
	for d := nd - 1; d >= 0; d-- {
		cumAlpha[d] = make([][]float64, h)
		for y := 0; y < h; y++ {
			cumAlpha[d][y] = make([]float64, w)
			for x := 0; x < w; x++ {
				cumAlpha[d][y][x] = masks[d][y][x]
				if d < nd-1 {
					cumAlpha[d][y][x] += cumAlpha[d+1][y][x]
				}
			}
		}
	}

	blurredAlpha, err := f.convolveAll(nc, nd, func(_, d int) [][]float64 { return masks[d] }, psf, 1)
	if err != nil {
		return nil, nil, err
	}
	blurredCum, err := f.convolveAll(nc, nd, func(_, d int) [][]float64 { return cumAlpha[d] }, psf, 1)
	if err != nil {
		return nil, nil, err
	}

	for c := 0; c < nc; c++ {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				transmit := 1.0
				acc := 0.0
				for d := 0; d < nd; d++ {
					norm := blurredCum[c][d][y][x] + OcclusionEps
					alpha := blurredAlpha[c][d][y][x] / norm
					acc += transmit * blurredVolume[c][d][y][x] / norm
					transmit *= 1 - alpha
				}
				captured[c][y][x] = scale * acc
			}
		}
	}
	return captured, volume, nil
}

// convolveAll convolves layer(c, d)/div with psf[c][d] for every channel and
// depth, spread over a bounded set of goroutines.
func (f Former) convolveAll(nc, nd int, layer func(c, d int) [][]float64, psf optics.PSF, div float64) ([][][][]float64, error) {
	out := make([][][][]float64, nc)
	for c := range out {
		out[c] = make([][][]float64, nd)
	}

	workers := f.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type job struct{ c, d int }
	jobs := make(chan job)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				src := layer(j.c, j.d)
				in := src
				if div != 1 {
					in = make([][]float64, len(src))
					for y := range src {
						in[y] = make([]float64, len(src[y]))
						for x := range src[y] {
							in[y][x] = src[y][x] / div
						}
					}
				}
				res, err := ConvolvePSFFFT(in, psf[j.c][j.d], ConvSame, f.Padding)
				if err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("channel %d depth %d: %w", j.c, j.d, err)
					}
					mu.Unlock()
					continue
				}
				out[j.c][j.d] = res
			}
		}()
	}
	for c := 0; c < nc; c++ {
		for d := 0; d < nd; d++ {
			jobs <- job{c, d}
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func addScaled(dst, src [][]float64, s float64) {
	for y := range dst {
		for x := range dst[y] {
			dst[y][x] += s * src[y][x]
		}
	}
}
