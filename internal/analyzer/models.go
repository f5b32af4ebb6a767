package analyzer

import (
	"github.com/anime-shed/sem-inspector-go/internal/imaging"
	"github.com/anime-shed/sem-inspector-go/pkg/models"
)

// QualityReport is an alias to the shared models.QualityReport
type QualityReport = models.QualityReport

// ImagePair is one unit of batch work
type ImagePair struct {
	Reference *imaging.Image
	Test      *imaging.Image
	// Config overrides the analyzer default when non-nil
	Config *Config
}

// FocusComparison holds the normalized variance of both images and how the
// test drifted from the reference
type FocusComparison struct {
	Reference float64
	Test      float64
	// Delta is Test - Reference
	Delta float64
	// Ratio is Test / Reference; undefined when Reference is 0
	Ratio float64
}

// Metric names used as keys in the report
const (
	MetricNormalizedVariance = "normalized_variance"
	MetricLaplacianVariance  = "laplacian_variance"
	MetricHighFrequencyRatio = "high_frequency_ratio"
	MetricCNR                = "cnr"
	MetricSSIM               = "ssim"
	MetricPSNR               = "psnr"
	MetricFocusRatio         = "focus_ratio"
	MetricFocusDelta         = "focus_delta"
)
