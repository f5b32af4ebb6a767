package analyzer

import (
	"github.com/anime-shed/sem-inspector-go/internal/imaging"
	"github.com/anime-shed/sem-inspector-go/pkg/models"
)

// ImageAnalyzer defines the main interface for image quality assessment
type ImageAnalyzer interface {
	// Assess runs every metric with the analyzer's configuration. A nil
	// reference skips the full-reference metrics and histogram comparison.
	Assess(reference, test *imaging.Image) QualityReport

	// AssessWithConfig runs every metric with an explicit configuration
	AssessWithConfig(reference, test *imaging.Image, cfg Config) QualityReport

	// AssessBatch assesses independent pairs on the worker pool. Results
	// keep the input order.
	AssessBatch(pairs []ImagePair) []QualityReport

	// Match compares the grey-level distributions of two images
	Match(a, b *imaging.Image) (models.HistogramComparison, error)

	// Config returns the analyzer's default configuration
	Config() Config

	// Lifecycle management
	Close() error
}

// NoReferenceCalculator computes focus and contrast scores from a single image
type NoReferenceCalculator interface {
	NormalizedVariance(img *imaging.Image, roi *imaging.Region) (float64, error)
	LaplacianVariance(img *imaging.Image) float64
	HighFrequencyRatio(img *imaging.Image, lowFrequencyRadius float64) (float64, *models.Artifact, error)
	ContrastToNoise(img *imaging.Image, signal, background imaging.Region) (float64, error)
}

// FullReferenceCalculator compares a test image against a reference of the same shape
type FullReferenceCalculator interface {
	SSIM(reference, test *imaging.Image, window int, sigma float64) (float64, *models.Artifact, error)
	PSNR(reference, test *imaging.Image) (float64, *models.Artifact, error)
	FocusComparison(reference, test *imaging.Image, roi *imaging.Region) (FocusComparison, error)
}

// HistogramMatcher summarizes and compares grey-level distributions
type HistogramMatcher interface {
	Summarize(img *imaging.Image) (models.HistogramStats, error)
	Compare(a, b *imaging.Image) (models.HistogramComparison, error)
}
