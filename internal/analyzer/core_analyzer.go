package analyzer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/imaging"
	"github.com/anime-shed/sem-inspector-go/internal/logger"
	"github.com/anime-shed/sem-inspector-go/pkg/models"
	"github.com/anime-shed/sem-inspector-go/pkg/validation"
)

// coreAnalyzer implements ImageAnalyzer and orchestrates the metric sets
type coreAnalyzer struct {
	workerPool *WorkerPool
	config     Config
	noRef      NoReferenceCalculator
	fullRef    FullReferenceCalculator
	closeOnce  sync.Once
}

// NewImageAnalyzer creates a new image analyzer with all components
func NewImageAnalyzer(cfg Config) (ImageAnalyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	workerPool := NewWorkerPool(cfg.MaxWorkers)
	workerPool.Start()

	noRef := NewMetricsCalculator()
	return &coreAnalyzer{
		workerPool: workerPool,
		config:     cfg.clone(),
		noRef:      noRef,
		fullRef:    NewFullReferenceCalculator(noRef),
	}, nil
}

// Config returns a copy of the default configuration
func (ca *coreAnalyzer) Config() Config {
	return ca.config.clone()
}

// Assess runs every metric with the default configuration
func (ca *coreAnalyzer) Assess(reference, test *imaging.Image) QualityReport {
	return ca.AssessWithConfig(reference, test, ca.config)
}

// AssessWithConfig runs the no-reference, full-reference and histogram sets
// concurrently. A failing metric is recorded in the report and excluded from
// the verdict; it never aborts the others.
func (ca *coreAnalyzer) AssessWithConfig(reference, test *imaging.Image, cfg Config) QualityReport {
	start := time.Now()
	report := QualityReport{
		ID:        uuid.NewString(),
		Timestamp: start,
		Overall:   models.TierPoor,
	}
	log := logger.WithField("assessment_id", report.ID)

	if test == nil {
		report.Errors = []string{"test image is required"}
		report.ProcessingTimeSec = time.Since(start).Seconds()
		return report
	}
	if err := cfg.Validate(); err != nil {
		report.Errors = []string{err.Error()}
		report.ProcessingTimeSec = time.Since(start).Seconds()
		return report
	}

	report.Width, report.Height = test.Width(), test.Height()
	report.HasReference = reference != nil
	validator := validation.NewQualityValidatorWithThresholds(cfg.Thresholds)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		report.NoReference, report.Verdicts.CNR = ca.runNoReference(test, cfg, validator)
	}()
	if reference != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report.FullReference = ca.runFullReference(reference, test, cfg, validator)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		report.Histogram = ca.runHistogram(reference, test, cfg, validator)
	}()
	wg.Wait()

	if m, ok := report.FullReference[MetricSSIM]; ok {
		report.Verdicts.SSIM = m.Tier
	}
	if m, ok := report.FullReference[MetricPSNR]; ok {
		report.Verdicts.PSNR = m.Tier
	}
	if m, ok := report.FullReference[MetricFocusRatio]; ok {
		report.Verdicts.FocusDrift = m.Tier
	}
	if report.Histogram.Comparison != nil {
		report.Verdicts.Histogram = report.Histogram.Comparison.Tier
	}

	report.Errors = collectErrors(report)
	if overall, ok := models.WorstTier(report.Verdicts.All()...); ok {
		report.Overall = overall
	} else {
		report.Errors = append(report.Errors, "no metric produced a verdict")
	}

	report.ProcessingTimeSec = time.Since(start).Seconds()
	log.WithFields(logrus.Fields{
		"overall":         report.Overall,
		"has_reference":   report.HasReference,
		"failed_metrics":  len(report.Errors),
		"processing_time": report.ProcessingTimeSec,
	}).Debug("Assessment complete")
	return report
}

func (ca *coreAnalyzer) runNoReference(test *imaging.Image, cfg Config, validator *validation.QualityValidator) (models.MetricResult, models.Tier) {
	result := make(models.MetricResult, 4)

	result[MetricNormalizedVariance] = computeMetric(MetricNormalizedVariance, func() (float64, *models.Artifact, error) {
		v, err := ca.noRef.NormalizedVariance(test, cfg.FocusROI)
		return v, nil, err
	})
	result[MetricLaplacianVariance] = computeMetric(MetricLaplacianVariance, func() (float64, *models.Artifact, error) {
		return ca.noRef.LaplacianVariance(test), nil, nil
	})
	result[MetricHighFrequencyRatio] = computeMetric(MetricHighFrequencyRatio, func() (float64, *models.Artifact, error) {
		return ca.noRef.HighFrequencyRatio(test, cfg.LowFrequencyRadius)
	})

	signal, background := cfg.cnrRegions(test.Width(), test.Height())
	cnr := computeMetric(MetricCNR, func() (float64, *models.Artifact, error) {
		v, err := ca.noRef.ContrastToNoise(test, signal, background)
		return v, nil, err
	})
	if !cnr.Failed() {
		cnr.Tier = validator.ClassifyCNR(cnr.Score)
	}
	result[MetricCNR] = cnr
	return result, cnr.Tier
}

func (ca *coreAnalyzer) runFullReference(reference, test *imaging.Image, cfg Config, validator *validation.QualityValidator) models.MetricResult {
	result := make(models.MetricResult, 4)

	ssim := computeMetric(MetricSSIM, func() (float64, *models.Artifact, error) {
		return ca.fullRef.SSIM(reference, test, cfg.SSIMWindow, cfg.SSIMSigma)
	})
	if !ssim.Failed() {
		ssim.Tier = validator.ClassifySSIM(ssim.Score)
	}
	result[MetricSSIM] = ssim

	psnr := computeMetric(MetricPSNR, func() (float64, *models.Artifact, error) {
		return ca.fullRef.PSNR(reference, test)
	})
	if !psnr.Failed() {
		psnr.Tier = validator.ClassifyPSNR(psnr.Score)
	}
	result[MetricPSNR] = psnr

	var focus FocusComparison
	ratio := computeMetric(MetricFocusRatio, func() (float64, *models.Artifact, error) {
		var err error
		focus, err = ca.fullRef.FocusComparison(reference, test, cfg.FocusROI)
		return focus.Ratio, nil, err
	})
	if !ratio.Failed() {
		ratio.Tier = validator.ClassifyFocusRatio(ratio.Score)
	}
	result[MetricFocusRatio] = ratio

	// The delta survives a zero reference score; only a shape or region
	// failure leaves it undefined.
	delta := models.Metric{Name: MetricFocusDelta, Score: focus.Delta}
	if ratio.Failed() && ratio.ErrorType != string(apperrors.ErrorTypeDegenerateInput) {
		delta.Error, delta.ErrorType = ratio.Error, ratio.ErrorType
		delta.Score = 0
	}
	result[MetricFocusDelta] = delta
	return result
}

func (ca *coreAnalyzer) runHistogram(reference, test *imaging.Image, cfg Config, validator *validation.QualityValidator) models.HistogramSection {
	matcher := NewHistogramMatcher(cfg.HistogramBins, cfg.HistogramMethod, validator)
	var section models.HistogramSection

	err := guard(func() error {
		if reference == nil {
			stats, err := matcher.Summarize(test)
			if err != nil {
				return err
			}
			section.Test = &stats
			return nil
		}
		cmp, err := matcher.Compare(reference, test)
		if err != nil {
			return err
		}
		section.Test = &cmp.B
		section.Comparison = &cmp
		return nil
	})
	if err != nil {
		section.Error = err.Error()
		logger.WithError(err).Debug("Histogram comparison failed")
	}
	return section
}

// Match compares two images' histograms with the default configuration
func (ca *coreAnalyzer) Match(a, b *imaging.Image) (models.HistogramComparison, error) {
	if a == nil || b == nil {
		return models.HistogramComparison{}, apperrors.NewInvalidImageError("both images are required", nil)
	}
	validator := validation.NewQualityValidatorWithThresholds(ca.config.Thresholds)
	matcher := NewHistogramMatcher(ca.config.HistogramBins, ca.config.HistogramMethod, validator)
	return matcher.Compare(a, b)
}

// AssessBatch fans the pairs out to the worker pool and keeps input order
func (ca *coreAnalyzer) AssessBatch(pairs []ImagePair) []QualityReport {
	reports := make([]QualityReport, len(pairs))
	var wg sync.WaitGroup
	for i, pair := range pairs {
		wg.Add(1)
		ca.workerPool.Submit(func() {
			defer wg.Done()
			cfg := ca.config
			if pair.Config != nil {
				cfg = *pair.Config
			}
			reports[i] = ca.AssessWithConfig(pair.Reference, pair.Test, cfg)
		})
	}
	wg.Wait()
	return reports
}

// Close shuts down the worker pool
func (ca *coreAnalyzer) Close() error {
	ca.closeOnce.Do(ca.workerPool.Close)
	return nil
}

// computeMetric runs one metric atomically, turning an error or a panic from
// the numeric libraries into a failed Metric.
func computeMetric(name string, fn func() (float64, *models.Artifact, error)) models.Metric {
	m := models.Metric{Name: name}
	var (
		score    float64
		artifact *models.Artifact
	)
	err := guard(func() error {
		var err error
		score, artifact, err = fn()
		return err
	})
	if err != nil {
		m.Error = err.Error()
		m.ErrorType = string(apperrors.TypeOf(err))
		logger.WithFields(logrus.Fields{
			"metric":     name,
			"error_type": m.ErrorType,
		}).WithError(err).Debug("Metric failed")
		return m
	}
	m.Score = score
	m.Artifact = artifact
	return m
}

// guard converts a panic inside fn into an internal error
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperrors.NewInternalError(fmt.Sprintf("metric panicked: %v", r), nil)
		}
	}()
	return fn()
}

// collectErrors lists every failed metric as "name: message" in a stable order
func collectErrors(report QualityReport) []string {
	var errs []string
	for _, set := range []models.MetricResult{report.NoReference, report.FullReference} {
		for _, m := range set {
			if m.Failed() {
				errs = append(errs, m.Name+": "+m.Error)
			}
		}
	}
	sort.Strings(errs)
	if report.Histogram.Error != "" {
		errs = append(errs, "histogram: "+report.Histogram.Error)
	}
	return errs
}
