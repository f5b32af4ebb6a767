package degrade

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/imaging"
)

// Degradation kinds as they appear in the JSON envelope
const (
	KindGaussianBlur   = "gaussian_blur"
	KindStigmationBlur = "stigmation_blur"
	KindPoissonNoise   = "poisson_noise"
	KindGaussianNoise  = "gaussian_noise"
	KindContrastShift  = "contrast_shift"
)

// MaxKernelSize bounds blur kernels
const MaxKernelSize = 255

// Spec is one parameterized degradation. The set of implementations is closed.
type Spec interface {
	Kind() string
	Validate() error
	// apply returns the unclipped output samples
	apply(img *imaging.Image, src rand.Source) []float64
}

// GaussianBlur is an isotropic Gaussian blur. Either field may be zero and is
// then derived from the other; both zero leaves the image unchanged.
type GaussianBlur struct {
	KernelSize int
	Sigma      float64
}

func (GaussianBlur) Kind() string { return KindGaussianBlur }

func (g GaussianBlur) Validate() error {
	if g.KernelSize < 0 || g.KernelSize > MaxKernelSize {
		return invalid(g, "kernel_size must be in [0, %d], got %d", MaxKernelSize, g.KernelSize)
	}
	if g.KernelSize > 0 && g.KernelSize%2 == 0 {
		return invalid(g, "kernel_size must be odd, got %d", g.KernelSize)
	}
	if g.Sigma < 0 || math.IsNaN(g.Sigma) || math.IsInf(g.Sigma, 0) {
		return invalid(g, "sigma must be finite and >= 0, got %v", g.Sigma)
	}
	if g.KernelSize == 0 && g.Sigma > 0 && imaging.SizeForSigma(g.Sigma) > MaxKernelSize {
		return invalid(g, "sigma %v needs a kernel larger than %d", g.Sigma, MaxKernelSize)
	}
	return nil
}

// resolve fills in the missing kernel size or sigma
func (g GaussianBlur) resolve() (int, float64) {
	size, sigma := g.KernelSize, g.Sigma
	switch {
	case size == 0 && sigma == 0:
		return 1, 0
	case size == 0:
		size = imaging.SizeForSigma(sigma)
	case sigma == 0:
		sigma = imaging.SigmaForSize(size)
	}
	return size, sigma
}

func (g GaussianBlur) apply(img *imaging.Image, _ rand.Source) []float64 {
	size, sigma := g.resolve()
	if size == 1 {
		return img.Clone()
	}
	k := imaging.GaussianKernel(size, sigma)
	return imaging.ConvolveSeparable(img.Samples(), img.Width(), img.Height(), k, k)
}

// StigmationBlur models astigmatism: an anisotropic Gaussian whose major and
// minor axes have the given kernel sizes, rotated counter-clockwise by Angle
// degrees.
type StigmationBlur struct {
	MajorSize int
	MinorSize int
	Angle     float64
}

func (StigmationBlur) Kind() string { return KindStigmationBlur }

func (s StigmationBlur) Validate() error {
	if err := checkAxis(s, "major_size", s.MajorSize); err != nil {
		return err
	}
	if err := checkAxis(s, "minor_size", s.MinorSize); err != nil {
		return err
	}
	if math.IsNaN(s.Angle) || math.IsInf(s.Angle, 0) {
		return invalid(s, "angle must be finite")
	}
	return nil
}

func checkAxis(s Spec, name string, size int) error {
	if size < 1 || size > MaxKernelSize || size%2 == 0 {
		return invalid(s, "%s must be odd and in [1, %d], got %d", name, MaxKernelSize, size)
	}
	return nil
}

// Kernel returns the rotated 2-D kernel and its (square, odd) side length
func (s StigmationBlur) Kernel() ([]float64, int) {
	size := max(s.MajorSize, s.MinorSize)
	sigmaMajor := imaging.SigmaForSize(s.MajorSize)
	sigmaMinor := imaging.SigmaForSize(s.MinorSize)
	theta := s.Angle * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)

	half := size / 2
	kernel := make([]float64, size*size)
	var sum float64
	for j := 0; j < size; j++ {
		dy := float64(j - half)
		for i := 0; i < size; i++ {
			dx := float64(i - half)
			u := dx*cos + dy*sin
			v := -dx*sin + dy*cos
			w := math.Exp(-(u*u)/(2*sigmaMajor*sigmaMajor) - (v*v)/(2*sigmaMinor*sigmaMinor))
			kernel[j*size+i] = w
			sum += w
		}
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel, size
}

func (s StigmationBlur) apply(img *imaging.Image, _ rand.Source) []float64 {
	kernel, size := s.Kernel()
	return imaging.Convolve2D(img.Samples(), img.Width(), img.Height(), kernel, size, size)
}

// PoissonNoise simulates shot noise: each sample v becomes k/Peak with
// k ~ Poisson(v*Peak). A lower peak means fewer electrons and more noise.
type PoissonNoise struct {
	Peak float64
}

func (PoissonNoise) Kind() string { return KindPoissonNoise }

func (p PoissonNoise) Validate() error {
	if !(p.Peak > 0) || math.IsInf(p.Peak, 0) {
		return invalid(p, "peak must be finite and > 0, got %v", p.Peak)
	}
	return nil
}

func (p PoissonNoise) apply(img *imaging.Image, src rand.Source) []float64 {
	out := img.Clone()
	for i, v := range out {
		lambda := v * p.Peak
		if lambda <= 0 {
			out[i] = 0
			continue
		}
		k := distuv.Poisson{Lambda: lambda, Src: src}.Rand()
		out[i] = k / p.Peak
	}
	return out
}

// GaussianNoise adds zero-mean read noise with the given standard deviation
type GaussianNoise struct {
	StdDev float64
}

func (GaussianNoise) Kind() string { return KindGaussianNoise }

func (g GaussianNoise) Validate() error {
	if g.StdDev < 0 || math.IsNaN(g.StdDev) || math.IsInf(g.StdDev, 0) {
		return invalid(g, "std_dev must be finite and >= 0, got %v", g.StdDev)
	}
	return nil
}

func (g GaussianNoise) apply(img *imaging.Image, src rand.Source) []float64 {
	out := img.Clone()
	if g.StdDev == 0 {
		return out
	}
	noise := distuv.Normal{Mu: 0, Sigma: g.StdDev, Src: src}
	for i := range out {
		out[i] += noise.Rand()
	}
	return out
}

// ContrastShift applies v' = Gain*v + Offset
type ContrastShift struct {
	Gain   float64
	Offset float64
}

func (ContrastShift) Kind() string { return KindContrastShift }

func (c ContrastShift) Validate() error {
	for _, v := range []float64{c.Gain, c.Offset} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalid(c, "gain and offset must be finite")
		}
	}
	return nil
}

func (c ContrastShift) apply(img *imaging.Image, _ rand.Source) []float64 {
	out := img.Clone()
	for i, v := range out {
		out[i] = c.Gain*v + c.Offset
	}
	return out
}

func invalid(s Spec, format string, args ...interface{}) error {
	return apperrors.NewValidationError(s.Kind()+": "+fmt.Sprintf(format, args...), nil)
}
