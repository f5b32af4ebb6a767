package analyzer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/imaging"
	"github.com/anime-shed/sem-inspector-go/pkg/models"
	"github.com/anime-shed/sem-inspector-go/pkg/validation"
)

var allMethods = []string{
	validation.MethodCorrelation,
	validation.MethodBhattacharyya,
	validation.MethodHellinger,
	validation.MethodChiSquare,
}

func gradientImage(t *testing.T, w, h int, lo, hi float64) *imaging.Image {
	t.Helper()
	pix := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix[y*w+x] = lo + (hi-lo)*float64(x)/float64(w-1)
		}
	}
	img, err := imaging.New(w, h, pix)
	require.NoError(t, err)
	return img
}

func TestSummarize(t *testing.T) {
	m := NewHistogramMatcher(4, validation.MethodCorrelation, nil)
	img, err := imaging.New(4, 1, []float64{0, 0.3, 0.6, 1})
	require.NoError(t, err)

	stats, err := m.Summarize(img)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Bins)
	assert.Equal(t, []float64{0.25, 0.25, 0.25, 0.25}, stats.Probabilities)
	assert.InDelta(t, 0.475, stats.Mean, 1e-12)
	assert.InDelta(t, math.Log(4), stats.Entropy, 1e-12)
	assert.Greater(t, stats.StdDev, 0.0)
}

func TestSummarize_FlatImage(t *testing.T) {
	m := NewHistogramMatcher(256, validation.MethodCorrelation, nil)
	stats, err := m.Summarize(createUniformImage(t, 8, 8, 1))
	require.NoError(t, err)

	assert.Equal(t, 0.0, stats.StdDev)
	assert.Equal(t, 0.0, stats.Skewness)
	assert.Equal(t, 0.0, stats.ExKurtosis)
	assert.Equal(t, 0.0, stats.Entropy)
	assert.Equal(t, 1.0, stats.Probabilities[255])
}

func TestSummarize_TooFewBins(t *testing.T) {
	m := NewHistogramMatcher(1, validation.MethodCorrelation, nil)
	_, err := m.Summarize(createUniformImage(t, 4, 4, 0.5))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}

func TestCompare_SelfMatch(t *testing.T) {
	img := createTwoRegionImage(t, 32, 0.8, 0.9, 0.1, 0.2)
	for _, method := range allMethods {
		t.Run(method, func(t *testing.T) {
			m := NewHistogramMatcher(256, method, nil)
			cmp, err := m.Compare(img, img)
			require.NoError(t, err)

			assert.Equal(t, 0.0, cmp.Distance)
			assert.Equal(t, 1.0, cmp.Correlation)
			assert.Equal(t, 0.0, cmp.MeanShift)
			assert.Equal(t, 1.0, cmp.ContrastRatio)
			assert.Equal(t, models.TierExcellent, cmp.Tier)
			assert.Equal(t, method, cmp.Method)
		})
	}
}

func TestCompare_DisjointHistograms(t *testing.T) {
	black := createUniformImage(t, 8, 8, 0)
	white := createUniformImage(t, 8, 8, 1)

	for _, method := range allMethods {
		t.Run(method, func(t *testing.T) {
			m := NewHistogramMatcher(16, method, nil)
			cmp, err := m.Compare(black, white)
			require.NoError(t, err)

			assert.False(t, math.IsInf(cmp.Distance, 0), "distance must stay finite")
			assert.Greater(t, cmp.Distance, 0.0)
			assert.Equal(t, models.TierPoor, cmp.Tier)
			assert.Equal(t, 1.0, cmp.MeanShift)
			assert.Equal(t, 1.0, cmp.ContrastRatio)
		})
	}
}

func TestCompare_ShiftedDistribution(t *testing.T) {
	a := gradientImage(t, 64, 4, 0.2, 0.6)
	b := gradientImage(t, 64, 4, 0.25, 0.65)

	m := NewHistogramMatcher(64, validation.MethodHellinger, nil)
	cmp, err := m.Compare(a, b)
	require.NoError(t, err)

	assert.InDelta(t, 0.05, cmp.MeanShift, 1e-9)
	assert.InDelta(t, 1.0, cmp.ContrastRatio, 1e-9)
	assert.Greater(t, cmp.Distance, 0.0)
	assert.LessOrEqual(t, cmp.Distance, 1.0)
	assert.Less(t, cmp.Correlation, 1.0)
}

func TestCompare_DifferentShapes(t *testing.T) {
	a := createCheckerboard(t, 16, 16, 2)
	b := createCheckerboard(t, 32, 8, 4)

	m := NewHistogramMatcher(256, validation.MethodChiSquare, nil)
	cmp, err := m.Compare(a, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, cmp.Distance)
	assert.Equal(t, models.TierExcellent, cmp.Tier)
}

func TestCompare_UnknownMethod(t *testing.T) {
	img := createCheckerboard(t, 8, 8, 2)
	m := NewHistogramMatcher(16, "earth_mover", nil)
	_, err := m.Compare(img, createUniformImage(t, 8, 8, 0.5))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
