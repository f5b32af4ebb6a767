package imaging

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// SigmaForSize derives a Gaussian sigma from an odd kernel size the way
// OpenCV's getGaussianKernel does.
func SigmaForSize(size int) float64 {
	return 0.3*(float64(size-1)*0.5-1) + 0.8
}

// SizeForSigma returns the smallest odd kernel size covering +/-3 sigma
func SizeForSigma(sigma float64) int {
	return 2*int(math.Ceil(3*sigma)) + 1
}

// GaussianKernel returns a normalised 1-D Gaussian kernel of odd length size
func GaussianKernel(size int, sigma float64) []float64 {
	if size < 1 {
		size = 1
	}
	if size%2 == 0 {
		size++
	}
	k := make([]float64, size)
	if sigma <= 0 {
		k[size/2] = 1
		return k
	}
	half := size / 2
	for i := range k {
		d := float64(i - half)
		k[i] = math.Exp(-(d * d) / (2 * sigma * sigma))
	}
	floats.Scale(1/floats.Sum(k), k)
	return k
}

// reflect101 maps an out-of-range index back into [0, n) mirroring about the
// edge samples without repeating them (dcb|abcd|cba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}

// ConvolveSeparable filters a w x h row-major grid with kx along rows and ky
// along columns, using reflect-101 borders.
func ConvolveSeparable(src []float64, w, h int, kx, ky []float64) []float64 {
	tmp := make([]float64, len(src))
	rx := len(kx) / 2
	for y := 0; y < h; y++ {
		row := src[y*w : (y+1)*w]
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range kx {
				acc += kv * row[reflect101(x+i-rx, w)]
			}
			tmp[y*w+x] = acc
		}
	}

	out := make([]float64, len(src))
	ry := len(ky) / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for i, kv := range ky {
				acc += kv * tmp[reflect101(y+i-ry, h)*w+x]
			}
			out[y*w+x] = acc
		}
	}
	return out
}

// Convolve2D filters a w x h grid with a kw x kh row-major kernel using
// reflect-101 borders. Kernel dimensions must be odd.
func Convolve2D(src []float64, w, h int, kernel []float64, kw, kh int) []float64 {
	out := make([]float64, len(src))
	rx, ry := kw/2, kh/2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var acc float64
			for j := 0; j < kh; j++ {
				sy := reflect101(y+j-ry, h) * w
				krow := kernel[j*kw : (j+1)*kw]
				for i, kv := range krow {
					if kv == 0 {
						continue
					}
					acc += kv * src[sy+reflect101(x+i-rx, w)]
				}
			}
			out[y*w+x] = acc
		}
	}
	return out
}
