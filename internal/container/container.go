package container

import (
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/sem-inspector-go/internal/analyzer"
	"github.com/anime-shed/sem-inspector-go/internal/config"
	"github.com/anime-shed/sem-inspector-go/internal/degrade"
	"github.com/anime-shed/sem-inspector-go/internal/logger"
	"github.com/anime-shed/sem-inspector-go/internal/observer"
	"github.com/anime-shed/sem-inspector-go/internal/repository"
	"github.com/anime-shed/sem-inspector-go/internal/service"
	"github.com/anime-shed/sem-inspector-go/internal/storage"
	"github.com/anime-shed/sem-inspector-go/internal/transport"
	"github.com/anime-shed/sem-inspector-go/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config            *config.Config
	imageAnalyzer     analyzer.ImageAnalyzer
	imageRepository   repository.ImageRepository
	events            observer.Subject
	metrics           *observer.MetricsObserver
	assessmentService service.AssessmentService
	handler           http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	metricsCfg, err := config.LoadMetricsConfig(cfg.MetricsConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load metrics config: %w", err)
	}
	if cfg.BatchWorkers > 0 {
		metricsCfg.MaxWorkers = cfg.BatchWorkers
	}

	// Build dependency graph
	imageAnalyzer, err := analyzer.NewImageAnalyzer(metricsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	fetcher := storage.NewHTTPImageFetcherWithOptions(storage.HTTPFetcherOptions{
		Timeout:      cfg.ImageFetchTimeout,
		MaxAttempts:  storage.DefaultHTTPFetcherOptions().MaxAttempts,
		RetryBackoff: storage.DefaultHTTPFetcherOptions().RetryBackoff,
	})

	var blobs storage.BlobStorage
	if cfg.AzureEnabled() {
		blobs, err = storage.NewAzureStorage(cfg.AzureStorageAccount, cfg.AzureStorageKey)
		if err != nil {
			imageAnalyzer.Close()
			return nil, fmt.Errorf("failed to create blob storage: %w", err)
		}
	}

	urlValidator := validation.NewURLValidatorWithOptions([]string{"http", "https"}, cfg.AllowedImageHosts)
	imageRepository := repository.NewImageRepository(fetcher, blobs, urlValidator)

	metrics := observer.NewMetricsObserver()
	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	assessmentService := service.NewAssessmentService(
		imageRepository,
		imageAnalyzer,
		degrade.NewGenerator(),
		events,
		service.Options{AnalysisTimeout: cfg.AnalysisTimeout},
	)
	handler := transport.NewHandler(assessmentService, metrics, cfg)

	logger.WithFields(logrus.Fields{
		"metrics_config": cfg.MetricsConfigPath,
		"workers":        metricsCfg.MaxWorkers,
		"histogram":      metricsCfg.HistogramMethod,
		"azure_blob":     cfg.AzureEnabled(),
		"allowed_hosts":  len(cfg.AllowedImageHosts),
	}).Info("Container initialised")

	return &Container{
		config:            cfg,
		imageAnalyzer:     imageAnalyzer,
		imageRepository:   imageRepository,
		events:            events,
		metrics:           metrics,
		assessmentService: assessmentService,
		handler:           handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Service returns the assessment service
func (c *Container) Service() service.AssessmentService {
	return c.assessmentService
}

// Close drains pending observer events and stops the analyzer's workers
func (c *Container) Close() error {
	c.events.Wait()
	return c.imageAnalyzer.Close()
}
