package analyzer

import (
	"math"
	"math/cmplx"

	"github.com/anime-shed/sem-inspector-go/pkg/models"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
)

// nyquistRadius is the Nyquist frequency in cycles per sample
const nyquistRadius = 0.5

// magnitudeSpectrum returns |F(u,v)| of a w x h row-major grid, computed as
// 1-D complex transforms along rows and then along columns.
func magnitudeSpectrum(samples []float64, w, h int) []float64 {
	coeffs := make([]complex128, w*h)
	for i, v := range samples {
		coeffs[i] = complex(v, 0)
	}

	rowFFT := fourier.NewCmplxFFT(w)
	row := make([]complex128, w)
	for y := 0; y < h; y++ {
		line := coeffs[y*w : (y+1)*w]
		copy(row, line)
		rowFFT.Coefficients(line, row)
	}

	colFFT := fourier.NewCmplxFFT(h)
	col := make([]complex128, h)
	out := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = coeffs[y*w+x]
		}
		colFFT.Coefficients(out, col)
		for y := 0; y < h; y++ {
			coeffs[y*w+x] = out[y]
		}
	}

	mag := make([]float64, w*h)
	for i, c := range coeffs {
		mag[i] = cmplx.Abs(c)
	}
	return mag
}

// signedFrequency maps DFT index i of an n-point transform to its frequency
// in cycles per sample, in [-0.5, 0.5].
func signedFrequency(i, n int) float64 {
	if 2*i > n {
		i -= n
	}
	return float64(i) / float64(n)
}

// spectrumArtifact shifts the zero frequency to the centre and scales
// log(1+|F|) into [0, 1] for display.
func spectrumArtifact(mag []float64, w, h int) *models.Artifact {
	values := make([]float64, w*h)
	for y := 0; y < h; y++ {
		sy := (y + h/2) % h
		for x := 0; x < w; x++ {
			sx := (x + w/2) % w
			values[sy*w+sx] = math.Log1p(mag[y*w+x])
		}
	}
	if peak := floats.Max(values); peak > 0 {
		floats.Scale(1/peak, values)
	}
	return &models.Artifact{Kind: "magnitude_spectrum", Width: w, Height: h, Values: values}
}
