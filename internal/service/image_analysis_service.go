package service

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/sem-inspector-go/internal/analyzer"
	"github.com/anime-shed/sem-inspector-go/internal/degrade"
	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/imaging"
	"github.com/anime-shed/sem-inspector-go/internal/logger"
	"github.com/anime-shed/sem-inspector-go/internal/observer"
	"github.com/anime-shed/sem-inspector-go/internal/repository"
	"github.com/anime-shed/sem-inspector-go/pkg/models"
)

// AssessmentService fetches images by URL and runs the quality analyzer on them
type AssessmentService interface {
	// Assess produces a quality report for the test image, against the
	// reference when one is given
	Assess(ctx context.Context, request models.AssessRequest) (*models.QualityReport, error)

	// Match compares the histograms of two images
	Match(ctx context.Context, request models.MatchRequest) (*models.HistogramComparison, error)

	// Degrade applies a seeded degradation chain to an image
	Degrade(ctx context.Context, request models.DegradeRequest) (*imaging.Image, error)

	// Common validation
	ValidateImageURL(imageURL string) error
}

// Options tunes the service
type Options struct {
	// AnalysisTimeout bounds metric computation after the images arrive;
	// zero waits indefinitely
	AnalysisTimeout time.Duration
}

// assessmentService implements AssessmentService
type assessmentService struct {
	imageRepo repository.ImageRepository
	analyzer  analyzer.ImageAnalyzer
	generator *degrade.Generator
	events    observer.Subject
	opts      Options
}

// NewAssessmentService creates a new assessment service. events may be nil.
func NewAssessmentService(
	imageRepository repository.ImageRepository,
	imageAnalyzer analyzer.ImageAnalyzer,
	generator *degrade.Generator,
	events observer.Subject,
	opts Options,
) AssessmentService {
	return &assessmentService{
		imageRepo: imageRepository,
		analyzer:  imageAnalyzer,
		generator: generator,
		events:    events,
		opts:      opts,
	}
}

// Assess validates the request, fetches both images and runs every metric set
func (s *assessmentService) Assess(ctx context.Context, request models.AssessRequest) (*models.QualityReport, error) {
	start := time.Now()
	s.publish(ctx, observer.Event{EventType: observer.OperationStarted, Operation: observer.OperationAssess, ImageURL: request.TestURL})

	report, err := s.assess(ctx, request)
	if err != nil {
		s.fail(ctx, observer.OperationAssess, request.TestURL, start, err)
		return nil, err
	}

	s.publish(ctx, observer.Event{
		EventType:      observer.OperationCompleted,
		Operation:      observer.OperationAssess,
		ImageURL:       request.TestURL,
		ProcessingTime: time.Since(start),
		Success:        true,
		Overall:        report.Overall,
		Metadata: map[string]interface{}{
			"assessment_id":  report.ID,
			"has_reference":  report.HasReference,
			"failed_metrics": len(report.Errors),
		},
	})
	return report, nil
}

func (s *assessmentService) assess(ctx context.Context, request models.AssessRequest) (*models.QualityReport, error) {
	cfg, err := s.analyzer.Config().WithOverrides(request.Config)
	if err != nil {
		return nil, err
	}

	var reference, test *imaging.Image
	if request.ReferenceURL == "" {
		raw, err := s.fetch(ctx, request.TestURL)
		if err != nil {
			return nil, err
		}
		if test, err = imaging.Normalize(raw); err != nil {
			return nil, err
		}
	} else {
		rawRef, rawTest, err := s.fetchPair(ctx, request.ReferenceURL, request.TestURL)
		if err != nil {
			return nil, err
		}
		reference, test, err = imaging.NormalizePair(rawRef, rawTest, imaging.PairOptions{Resample: request.Resample})
		if err != nil {
			return nil, err
		}
	}

	var report models.QualityReport
	if err := s.compute(ctx, func() error {
		report = s.analyzer.AssessWithConfig(reference, test, cfg)
		return nil
	}); err != nil {
		return nil, err
	}
	return &report, nil
}

// Match fetches two images and compares their grey-level distributions
func (s *assessmentService) Match(ctx context.Context, request models.MatchRequest) (*models.HistogramComparison, error) {
	start := time.Now()
	s.publish(ctx, observer.Event{EventType: observer.OperationStarted, Operation: observer.OperationMatch, ImageURL: request.BURL})

	cmp, err := s.match(ctx, request)
	if err != nil {
		s.fail(ctx, observer.OperationMatch, request.BURL, start, err)
		return nil, err
	}

	s.publish(ctx, observer.Event{
		EventType:      observer.OperationCompleted,
		Operation:      observer.OperationMatch,
		ImageURL:       request.BURL,
		ProcessingTime: time.Since(start),
		Success:        true,
		Overall:        cmp.Tier,
		Metadata:       map[string]interface{}{"method": cmp.Method, "distance": cmp.Distance},
	})
	return cmp, nil
}

func (s *assessmentService) match(ctx context.Context, request models.MatchRequest) (*models.HistogramComparison, error) {
	rawA, rawB, err := s.fetchPair(ctx, request.AURL, request.BURL)
	if err != nil {
		return nil, err
	}

	var a, b *imaging.Image
	if request.Resample {
		a, b, err = imaging.NormalizePair(rawA, rawB, imaging.PairOptions{Resample: true})
		if err != nil {
			return nil, err
		}
	} else {
		// histograms do not need matching shapes
		if a, err = imaging.Normalize(rawA); err != nil {
			return nil, err
		}
		if b, err = imaging.Normalize(rawB); err != nil {
			return nil, err
		}
	}

	var cmp models.HistogramComparison
	if err := s.compute(ctx, func() error {
		var err error
		cmp, err = s.analyzer.Match(a, b)
		return err
	}); err != nil {
		return nil, err
	}
	return &cmp, nil
}

// Degrade fetches an image and applies the requested degradation chain
func (s *assessmentService) Degrade(ctx context.Context, request models.DegradeRequest) (*imaging.Image, error) {
	start := time.Now()
	s.publish(ctx, observer.Event{EventType: observer.OperationStarted, Operation: observer.OperationDegrade, ImageURL: request.URL})

	out, err := s.degrade(ctx, request)
	if err != nil {
		s.fail(ctx, observer.OperationDegrade, request.URL, start, err)
		return nil, err
	}

	s.publish(ctx, observer.Event{
		EventType:      observer.OperationCompleted,
		Operation:      observer.OperationDegrade,
		ImageURL:       request.URL,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata:       map[string]interface{}{"steps": len(request.Degradations), "seed": request.Seed},
	})
	return out, nil
}

func (s *assessmentService) degrade(ctx context.Context, request models.DegradeRequest) (*imaging.Image, error) {
	// Parse first so a bad chain costs no download
	specs, err := degrade.ParseChain(request.Degradations)
	if err != nil {
		return nil, err
	}
	raw, err := s.fetch(ctx, request.URL)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Normalize(raw)
	if err != nil {
		return nil, err
	}
	var out *imaging.Image
	if err := s.compute(ctx, func() error {
		var err error
		out, err = s.generator.ApplyChain(img, specs, request.Seed)
		return err
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// compute runs CPU-bound work under the analysis timeout. Metrics cannot be
// interrupted, so on timeout the work finishes in the background and its
// result is dropped.
func (s *assessmentService) compute(ctx context.Context, fn func() error) error {
	if s.opts.AnalysisTimeout <= 0 {
		return fn()
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	timer := time.NewTimer(s.opts.AnalysisTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		return apperrors.NewTimeoutError(fmt.Sprintf("analysis exceeded %s", s.opts.AnalysisTimeout), nil)
	case <-ctx.Done():
		return apperrors.NewTimeoutError("request ended during analysis", ctx.Err())
	}
}

// ValidateImageURL validates the image URL
func (s *assessmentService) ValidateImageURL(imageURL string) error {
	return s.imageRepo.ValidateImageURL(imageURL)
}

// fetch retrieves one image and reports the outcome to observers
func (s *assessmentService) fetch(ctx context.Context, imageURL string) (image.Image, error) {
	start := time.Now()
	img, err := s.imageRepo.FetchImage(ctx, imageURL)
	event := observer.Event{
		EventType:      observer.ImageFetched,
		ImageURL:       imageURL,
		ProcessingTime: time.Since(start),
		Success:        err == nil,
	}
	if err != nil {
		event.EventType = observer.ImageFetchFailed
		event.ErrorMessage = err.Error()
	}
	s.publish(ctx, event)
	return img, err
}

// fetchPair downloads two images concurrently. The first error wins.
func (s *assessmentService) fetchPair(ctx context.Context, firstURL, secondURL string) (image.Image, image.Image, error) {
	// Validate both before any download starts
	for _, u := range []string{firstURL, secondURL} {
		if err := s.ValidateImageURL(u); err != nil {
			return nil, nil, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg            sync.WaitGroup
		once          sync.Once
		first, second image.Image
		firstErr      error
	)
	// The first failure cancels the other download and is the one reported
	record := func(err error) {
		if err != nil {
			once.Do(func() {
				firstErr = err
				cancel()
			})
		}
	}
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		first, err = s.fetch(ctx, firstURL)
		record(err)
	}()
	go func() {
		defer wg.Done()
		var err error
		second, err = s.fetch(ctx, secondURL)
		record(err)
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, nil, firstErr
	}
	return first, second, nil
}

func (s *assessmentService) fail(ctx context.Context, op observer.Operation, imageURL string, start time.Time, err error) {
	logger.WithFields(logrus.Fields{
		"operation":  op,
		"image_url":  imageURL,
		"error_type": apperrors.TypeOf(err),
	}).WithError(err).Debug("Operation failed")

	s.publish(ctx, observer.Event{
		EventType:      observer.OperationFailed,
		Operation:      op,
		ImageURL:       imageURL,
		ProcessingTime: time.Since(start),
		ErrorMessage:   err.Error(),
	})
}

func (s *assessmentService) publish(ctx context.Context, event observer.Event) {
	if s.events == nil {
		return
	}
	event.Timestamp = time.Now()
	s.events.NotifyObservers(ctx, event)
}
