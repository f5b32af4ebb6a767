package analyzer

import (
	"math"
	"runtime"
	"sync"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/imaging"
	"github.com/anime-shed/sem-inspector-go/pkg/models"
	"gonum.org/v1/gonum/stat"
)

// meanEpsilon is the mean intensity below which normalized variance reports 0
const meanEpsilon = 1e-12

// parallelPixelThreshold is the image area above which the Laplacian pass is
// split into row strips
const parallelPixelThreshold = 100000

// metricsCalculator implements NoReferenceCalculator with Gonum statistics
type metricsCalculator struct {
	slicePool sync.Pool
}

// NewMetricsCalculator creates a new no-reference metrics calculator
func NewMetricsCalculator() NoReferenceCalculator {
	return &metricsCalculator{
		slicePool: sync.Pool{
			New: func() interface{} {
				s := make([]float64, 0, 1024)
				return &s
			},
		},
	}
}

// NormalizedVariance returns population variance over mean for the image or
// the given region. A near-black input (mean < 1e-12) returns 0.
func (mc *metricsCalculator) NormalizedVariance(img *imaging.Image, roi *imaging.Region) (float64, error) {
	src := img
	if roi != nil {
		cropped, err := img.Crop(*roi)
		if err != nil {
			return 0, err
		}
		src = cropped
	}
	return normalizedVariance(src.Samples()), nil
}

func normalizedVariance(samples []float64) float64 {
	mean, variance := stat.PopMeanVariance(samples, nil)
	if mean < meanEpsilon {
		return 0
	}
	return variance / mean
}

// LaplacianVariance convolves the interior pixels with the 4-neighbour
// Laplacian [0 1 0; 1 -4 1; 0 1 0] and returns the population variance of the
// response. Images smaller than 3x3 have no interior and return 0.
func (mc *metricsCalculator) LaplacianVariance(img *imaging.Image) float64 {
	width, height := img.Width(), img.Height()
	if width < 3 || height < 3 {
		return 0
	}
	pix := img.Samples()
	innerW, innerH := width-2, height-2
	n := innerW * innerH

	// Get reusable slice from pool
	buf := mc.slicePool.Get().(*[]float64)
	defer mc.slicePool.Put(buf)
	if cap(*buf) < n {
		*buf = make([]float64, n)
	}
	data := (*buf)[:n]

	laplacianRows := func(startY, endY int) {
		for y := startY; y < endY; y++ {
			row := y * width
			out := (y - 1) * innerW
			for x := 1; x < width-1; x++ {
				i := row + x
				data[out+x-1] = pix[i-width] + pix[i+width] + pix[i-1] + pix[i+1] - 4*pix[i]
			}
		}
	}

	if width*height < parallelPixelThreshold {
		laplacianRows(1, height-1)
		return stat.PopVariance(data, nil)
	}

	// Process image in horizontal strips for better cache locality
	numWorkers := min(runtime.NumCPU(), innerH)
	rowsPerWorker := (innerH + numWorkers - 1) / numWorkers
	var wg sync.WaitGroup
	for startY := 1; startY < height-1; startY += rowsPerWorker {
		endY := min(startY+rowsPerWorker, height-1)
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			laplacianRows(startY, endY)
		}(startY, endY)
	}
	wg.Wait()

	return stat.PopVariance(data, nil)
}

// HighFrequencyRatio returns the share of spectral magnitude lying outside a
// centred low-frequency disk whose radius is lowFrequencyRadius times the
// Nyquist radius. The artifact is the shifted log-magnitude spectrum.
func (mc *metricsCalculator) HighFrequencyRatio(img *imaging.Image, lowFrequencyRadius float64) (float64, *models.Artifact, error) {
	if lowFrequencyRadius <= 0 || lowFrequencyRadius > 1 {
		return 0, nil, apperrors.NewValidationError("low-frequency radius must be in (0, 1]", nil)
	}
	width, height := img.Width(), img.Height()
	mag := magnitudeSpectrum(img.Samples(), width, height)

	cutoff := lowFrequencyRadius * nyquistRadius
	var low, high float64
	for v := 0; v < height; v++ {
		fv := signedFrequency(v, height)
		for u := 0; u < width; u++ {
			fu := signedFrequency(u, width)
			m := mag[v*width+u]
			if math.Hypot(fu, fv) <= cutoff {
				low += m
			} else {
				high += m
			}
		}
	}

	total := low + high
	if total == 0 {
		return 0, nil, apperrors.NewDegenerateInputError("image has no spectral energy", nil)
	}
	return high / total, spectrumArtifact(mag, width, height), nil
}

// ContrastToNoise returns |mean(signal) - mean(background)| divided by the
// pooled standard deviation sqrt((var_s + var_b) / 2).
func (mc *metricsCalculator) ContrastToNoise(img *imaging.Image, signal, background imaging.Region) (float64, error) {
	s, err := img.Crop(signal)
	if err != nil {
		return 0, err
	}
	b, err := img.Crop(background)
	if err != nil {
		return 0, err
	}

	meanS, varS := stat.PopMeanVariance(s.Samples(), nil)
	meanB, varB := stat.PopMeanVariance(b.Samples(), nil)
	pooled := math.Sqrt((varS + varB) / 2)
	if pooled == 0 {
		return 0, apperrors.NewDegenerateInputError("signal and background regions have zero variance", nil)
	}
	return math.Abs(meanS-meanB) / pooled, nil
}
