package validation

import (
	"fmt"
	"math"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/pkg/models"
)

// Histogram distance method names
const (
	MethodCorrelation   = "correlation"
	MethodBhattacharyya = "bhattacharyya"
	MethodHellinger     = "hellinger"
	MethodChiSquare     = "chi_square"
)

// Bands holds the three cut points separating the four tiers.
// With HigherIsBetter a score >= Excellent is Excellent, >= Good is Good,
// >= Fair is Fair and anything lower is Poor. Otherwise a score < Excellent
// is Excellent, < Good is Good, < Fair is Fair and anything else is Poor.
type Bands struct {
	Excellent      float64 `yaml:"excellent" json:"excellent"`
	Good           float64 `yaml:"good" json:"good"`
	Fair           float64 `yaml:"fair" json:"fair"`
	HigherIsBetter bool    `yaml:"higher_is_better" json:"higher_is_better"`
}

// Classify maps a score onto a tier. NaN is always Poor.
func (b Bands) Classify(v float64) models.Tier {
	if math.IsNaN(v) {
		return models.TierPoor
	}
	if b.HigherIsBetter {
		switch {
		case v >= b.Excellent:
			return models.TierExcellent
		case v >= b.Good:
			return models.TierGood
		case v >= b.Fair:
			return models.TierFair
		}
		return models.TierPoor
	}
	switch {
	case v < b.Excellent:
		return models.TierExcellent
	case v < b.Good:
		return models.TierGood
	case v < b.Fair:
		return models.TierFair
	}
	return models.TierPoor
}

// Validate checks that the cut points are ordered
func (b Bands) Validate() error {
	ordered := b.Excellent <= b.Good && b.Good <= b.Fair
	if b.HigherIsBetter {
		ordered = b.Excellent >= b.Good && b.Good >= b.Fair
	}
	if !ordered {
		return fmt.Errorf("bands out of order: excellent=%v good=%v fair=%v higher_is_better=%v",
			b.Excellent, b.Good, b.Fair, b.HigherIsBetter)
	}
	return nil
}

// TierThresholds defines configurable tier bands per metric category
type TierThresholds struct {
	// Contrast-to-noise ratio, higher is better
	CNR Bands `yaml:"cnr" json:"cnr"`

	// Full-reference similarity
	SSIM Bands `yaml:"ssim" json:"ssim"`
	PSNR Bands `yaml:"psnr" json:"psnr"`

	// FocusDrift applies to |1 - focus_ratio|
	FocusDrift Bands `yaml:"focus_drift" json:"focus_drift"`

	// Histogram distance bands keyed by distance method
	Histogram map[string]Bands `yaml:"histogram" json:"histogram"`
}

// DefaultTierThresholds returns the default policy table. The cut points are
// a documented policy, not derived from a statistical model.
func DefaultTierThresholds() TierThresholds {
	return TierThresholds{
		CNR:        Bands{Excellent: 5, Good: 3, Fair: 1, HigherIsBetter: true},
		SSIM:       Bands{Excellent: 0.95, Good: 0.85, Fair: 0.70, HigherIsBetter: true},
		PSNR:       Bands{Excellent: 40, Good: 30, Fair: 20, HigherIsBetter: true},
		FocusDrift: Bands{Excellent: 0.05, Good: 0.15, Fair: 0.30},
		Histogram: map[string]Bands{
			MethodCorrelation:   {Excellent: 0.05, Good: 0.15, Fair: 0.30},
			MethodBhattacharyya: {Excellent: 0.01, Good: 0.05, Fair: 0.15},
			MethodHellinger:     {Excellent: 0.10, Good: 0.20, Fair: 0.35},
			MethodChiSquare:     {Excellent: 0.02, Good: 0.10, Fair: 0.25},
		},
	}
}

// Validate checks every band in the table
func (t TierThresholds) Validate() error {
	named := map[string]Bands{
		"cnr":         t.CNR,
		"ssim":        t.SSIM,
		"psnr":        t.PSNR,
		"focus_drift": t.FocusDrift,
	}
	for method, b := range t.Histogram {
		named["histogram."+method] = b
	}
	for name, b := range named {
		if err := b.Validate(); err != nil {
			return apperrors.NewValidationError("invalid tier thresholds for "+name, err)
		}
	}
	return nil
}

// QualityValidator classifies metric scores into tiers
type QualityValidator struct {
	thresholds TierThresholds
}

// NewQualityValidator creates a new quality validator with default thresholds
func NewQualityValidator() *QualityValidator {
	return &QualityValidator{
		thresholds: DefaultTierThresholds(),
	}
}

// NewQualityValidatorWithThresholds creates a quality validator with custom
// thresholds. Histogram methods missing from the custom table fall back to the
// defaults.
func NewQualityValidatorWithThresholds(thresholds TierThresholds) *QualityValidator {
	merged := make(map[string]Bands, len(thresholds.Histogram))
	for method, b := range DefaultTierThresholds().Histogram {
		merged[method] = b
	}
	for method, b := range thresholds.Histogram {
		merged[method] = b
	}
	thresholds.Histogram = merged
	return &QualityValidator{
		thresholds: thresholds,
	}
}

// Thresholds returns the table in use
func (qv *QualityValidator) Thresholds() TierThresholds {
	return qv.thresholds
}

// ClassifyCNR classifies a contrast-to-noise ratio
func (qv *QualityValidator) ClassifyCNR(cnr float64) models.Tier {
	return qv.thresholds.CNR.Classify(cnr)
}

// ClassifySSIM classifies a structural similarity score
func (qv *QualityValidator) ClassifySSIM(ssim float64) models.Tier {
	return qv.thresholds.SSIM.Classify(ssim)
}

// ClassifyPSNR classifies a PSNR in dB; +Inf (identical images) is Excellent
func (qv *QualityValidator) ClassifyPSNR(psnr float64) models.Tier {
	return qv.thresholds.PSNR.Classify(psnr)
}

// ClassifyFocusRatio classifies the test/reference focus ratio by its drift from 1
func (qv *QualityValidator) ClassifyFocusRatio(ratio float64) models.Tier {
	return qv.thresholds.FocusDrift.Classify(math.Abs(1 - ratio))
}

// ClassifyHistogram classifies a histogram distance for the given method
func (qv *QualityValidator) ClassifyHistogram(method string, distance float64) (models.Tier, error) {
	b, ok := qv.thresholds.Histogram[method]
	if !ok {
		return "", apperrors.NewValidationError(fmt.Sprintf("no tier thresholds for histogram method %q", method), nil)
	}
	return b.Classify(distance), nil
}
