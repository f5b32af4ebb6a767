package analyzer

import (
	"encoding/json"
	"fmt"
	"maps"
	"runtime"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/imaging"
	"github.com/anime-shed/sem-inspector-go/pkg/validation"
)

// Config is the explicit configuration surface of the metric engine
type Config struct {
	// FocusROI restricts the normalized variance focus score; nil means the
	// whole image.
	FocusROI *imaging.Region `yaml:"focus_roi,omitempty" json:"focus_roi,omitempty"`

	// CNR regions; nil defaults to the top-left (signal) and bottom-right
	// (background) quadrants.
	SignalROI     *imaging.Region `yaml:"signal_roi,omitempty" json:"signal_roi,omitempty"`
	BackgroundROI *imaging.Region `yaml:"background_roi,omitempty" json:"background_roi,omitempty"`

	// LowFrequencyRadius is the low-frequency disk radius as a fraction of
	// the Nyquist radius.
	LowFrequencyRadius float64 `yaml:"low_frequency_radius" json:"low_frequency_radius"`

	// Histogram binning and distance method
	HistogramBins   int    `yaml:"histogram_bins" json:"histogram_bins"`
	HistogramMethod string `yaml:"histogram_method" json:"histogram_method"`

	// SSIM Gaussian window
	SSIMWindow int     `yaml:"ssim_window" json:"ssim_window"`
	SSIMSigma  float64 `yaml:"ssim_sigma" json:"ssim_sigma"`

	Thresholds validation.TierThresholds `yaml:"thresholds" json:"thresholds"`

	// MaxWorkers bounds batch parallelism; 0 uses the CPU count
	MaxWorkers int `yaml:"max_workers" json:"max_workers"`
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		LowFrequencyRadius: 0.1,
		HistogramBins:      256,
		HistogramMethod:    validation.MethodCorrelation,
		SSIMWindow:         11,
		SSIMSigma:          1.5,
		Thresholds:         validation.DefaultTierThresholds(),
		MaxWorkers:         runtime.NumCPU(),
	}
}

// Validate rejects configurations no metric can run with
func (c Config) Validate() error {
	if c.LowFrequencyRadius <= 0 || c.LowFrequencyRadius > 1 {
		return apperrors.NewValidationError(
			fmt.Sprintf("low_frequency_radius must be in (0, 1], got %v", c.LowFrequencyRadius), nil)
	}
	if c.HistogramBins < 2 || c.HistogramBins > 65536 {
		return apperrors.NewValidationError(
			fmt.Sprintf("histogram_bins must be in [2, 65536], got %d", c.HistogramBins), nil)
	}
	switch c.HistogramMethod {
	case validation.MethodCorrelation, validation.MethodBhattacharyya,
		validation.MethodHellinger, validation.MethodChiSquare:
	default:
		return apperrors.NewValidationError(fmt.Sprintf("unknown histogram_method %q", c.HistogramMethod), nil)
	}
	if c.SSIMWindow < 1 || c.SSIMWindow%2 == 0 {
		return apperrors.NewValidationError(fmt.Sprintf("ssim_window must be a positive odd number, got %d", c.SSIMWindow), nil)
	}
	if c.SSIMSigma <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("ssim_sigma must be > 0, got %v", c.SSIMSigma), nil)
	}
	if c.MaxWorkers < 0 {
		return apperrors.NewValidationError(fmt.Sprintf("max_workers must be >= 0, got %d", c.MaxWorkers), nil)
	}
	return c.Thresholds.Validate()
}

// WithOverrides decodes a partial JSON object over a copy of c and validates it
func (c Config) WithOverrides(raw json.RawMessage) (Config, error) {
	out := c.clone()
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return c, apperrors.NewValidationError("invalid metric configuration", err)
	}
	if err := out.Validate(); err != nil {
		return c, err
	}
	return out, nil
}

// clone deep-copies the pointer and map fields
func (c Config) clone() Config {
	out := c
	if c.FocusROI != nil {
		r := *c.FocusROI
		out.FocusROI = &r
	}
	if c.SignalROI != nil {
		r := *c.SignalROI
		out.SignalROI = &r
	}
	if c.BackgroundROI != nil {
		r := *c.BackgroundROI
		out.BackgroundROI = &r
	}
	out.Thresholds.Histogram = maps.Clone(c.Thresholds.Histogram)
	return out
}

// WithFocusROI restricts the focus score to a region
func (c Config) WithFocusROI(roi imaging.Region) Config {
	out := c.clone()
	out.FocusROI = &roi
	return out
}

// WithCNRRegions sets explicit signal and background regions
func (c Config) WithCNRRegions(signal, background imaging.Region) Config {
	out := c.clone()
	out.SignalROI = &signal
	out.BackgroundROI = &background
	return out
}

// WithHistogram sets the bin count and distance method
func (c Config) WithHistogram(bins int, method string) Config {
	out := c.clone()
	out.HistogramBins = bins
	out.HistogramMethod = method
	return out
}

// WithLowFrequencyRadius sets the FFT low-frequency disk fraction
func (c Config) WithLowFrequencyRadius(fraction float64) Config {
	out := c.clone()
	out.LowFrequencyRadius = fraction
	return out
}

// WithThresholds replaces the tier policy table
func (c Config) WithThresholds(t validation.TierThresholds) Config {
	out := c.clone()
	out.Thresholds = t
	out.Thresholds.Histogram = maps.Clone(t.Histogram)
	return out
}

// cnrRegions resolves the configured or default CNR regions for a w x h image
func (c Config) cnrRegions(w, h int) (signal, background imaging.Region) {
	q := imaging.Quadrants(w, h)
	signal, background = q[0], q[3]
	if c.SignalROI != nil {
		signal = *c.SignalROI
	}
	if c.BackgroundROI != nil {
		background = *c.BackgroundROI
	}
	return signal, background
}
