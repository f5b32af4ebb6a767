package analyzer

import (
	"fmt"
	"math"
	"sort"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/imaging"
	"github.com/anime-shed/sem-inspector-go/pkg/models"
	"github.com/anime-shed/sem-inspector-go/pkg/validation"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// maxBhattacharyya caps the distance of disjoint histograms, whose
// Bhattacharyya coefficient is zero, at -log of the smallest float64.
var maxBhattacharyya = -math.Log(math.SmallestNonzeroFloat64)

// histogramMatcher implements HistogramMatcher for one bin count and method
type histogramMatcher struct {
	bins      int
	method    string
	validator *validation.QualityValidator
}

// NewHistogramMatcher creates a matcher. Unknown methods fail at Compare.
func NewHistogramMatcher(bins int, method string, validator *validation.QualityValidator) HistogramMatcher {
	if validator == nil {
		validator = validation.NewQualityValidator()
	}
	return &histogramMatcher{bins: bins, method: method, validator: validator}
}

// Summarize bins the image over [0, 1] and reports its distribution moments
func (hm *histogramMatcher) Summarize(img *imaging.Image) (models.HistogramStats, error) {
	if hm.bins < 2 {
		return models.HistogramStats{}, apperrors.NewValidationError(
			fmt.Sprintf("histogram needs at least 2 bins, got %d", hm.bins), nil)
	}
	samples := img.Samples()

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	dividers := floats.Span(make([]float64, hm.bins+1), 0, 1)
	// stat.Histogram bins are half-open, so nudge the last edge to keep 1.0
	dividers[hm.bins] = math.Nextafter(1, 2)
	probs := stat.Histogram(nil, dividers, sorted, nil)
	floats.Scale(1/float64(len(sorted)), probs)

	mean, std := stat.PopMeanStdDev(samples, nil)
	hs := models.HistogramStats{
		Bins:          hm.bins,
		Mean:          mean,
		StdDev:        std,
		Entropy:       stat.Entropy(probs),
		Probabilities: probs,
	}
	if std > 0 {
		hs.Skewness = stat.Skew(samples, nil)
		hs.ExKurtosis = stat.ExKurtosis(samples, nil)
	}
	return hs, nil
}

// Compare summarizes both images and measures the distance between their
// histograms. The images need not share a shape. Identical histograms always
// score distance 0 and correlation 1.
func (hm *histogramMatcher) Compare(a, b *imaging.Image) (models.HistogramComparison, error) {
	ha, err := hm.Summarize(a)
	if err != nil {
		return models.HistogramComparison{}, err
	}
	hb, err := hm.Summarize(b)
	if err != nil {
		return models.HistogramComparison{}, err
	}

	cmp := models.HistogramComparison{
		A:         ha,
		B:         hb,
		Method:    hm.method,
		MeanShift: hb.Mean - ha.Mean,
	}
	switch {
	case ha.StdDev > 0:
		cmp.ContrastRatio = hb.StdDev / ha.StdDev
	case hb.StdDev == 0:
		cmp.ContrastRatio = 1
	}

	p, q := ha.Probabilities, hb.Probabilities
	if floats.Equal(p, q) {
		cmp.Distance = 0
		cmp.Correlation = 1
	} else {
		cmp.Correlation = histogramCorrelation(p, q)
		cmp.Distance, err = histogramDistance(hm.method, p, q, cmp.Correlation)
		if err != nil {
			return models.HistogramComparison{}, err
		}
	}

	cmp.Tier, err = hm.validator.ClassifyHistogram(hm.method, cmp.Distance)
	if err != nil {
		return models.HistogramComparison{}, err
	}
	return cmp, nil
}

// histogramCorrelation is the Pearson correlation of two different
// histograms. A flat histogram has no defined correlation and reports 0.
func histogramCorrelation(p, q []float64) float64 {
	r := stat.Correlation(p, q, nil)
	if math.IsNaN(r) {
		return 0
	}
	return r
}

func histogramDistance(method string, p, q []float64, correlation float64) (float64, error) {
	switch method {
	case validation.MethodCorrelation:
		return 1 - correlation, nil
	case validation.MethodBhattacharyya:
		d := stat.Bhattacharyya(p, q)
		if math.IsInf(d, 1) {
			return maxBhattacharyya, nil
		}
		return math.Max(d, 0), nil
	case validation.MethodHellinger:
		d := stat.Hellinger(p, q)
		if math.IsNaN(d) {
			// rounding pushed the coefficient past 1
			return 0, nil
		}
		return d, nil
	case validation.MethodChiSquare:
		var d float64
		for i := range p {
			if s := p[i] + q[i]; s > 0 {
				diff := p[i] - q[i]
				d += diff * diff / s
			}
		}
		return d, nil
	}
	return 0, apperrors.NewValidationError(fmt.Sprintf("unknown histogram method %q", method), nil)
}
