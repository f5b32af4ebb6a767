package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/sem-inspector-go/pkg/models"
)

// Operation names the service call an event belongs to
type Operation string

const (
	OperationAssess  Operation = "assess"
	OperationMatch   Operation = "match"
	OperationDegrade Operation = "degrade"
)

// Event represents one step of an assessment, match or degradation request
type Event struct {
	EventType      EventType              `json:"event_type"`
	Operation      Operation              `json:"operation"`
	Timestamp      time.Time              `json:"timestamp"`
	ImageURL       string                 `json:"image_url,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	Overall        models.Tier            `json:"overall,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of event
type EventType string

const (
	// OperationStarted when a request begins
	OperationStarted EventType = "operation_started"
	// OperationCompleted when a request finishes successfully
	OperationCompleted EventType = "operation_completed"
	// OperationFailed when a request fails
	OperationFailed EventType = "operation_failed"
	// ImageFetched when image is successfully fetched
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when image fetch fails
	ImageFetchFailed EventType = "image_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event Event)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event Event)
	// Wait blocks until every notification sent so far has been handled
	Wait()
}

// LoggingObserver logs events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event Event) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"operation":       event.Operation,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}
	if event.ImageURL != "" {
		fields["image_url"] = event.ImageURL
	}
	if event.Overall != "" {
		fields["overall"] = event.Overall
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case OperationStarted:
		entry.Info("Operation started")
	case OperationCompleted:
		entry.Info("Operation completed")
	case OperationFailed:
		entry.Error("Operation failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Warn("Image fetch failed")
	default:
		entry.Info("Event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// operationStats are the counters kept per operation
type operationStats struct {
	Total               int64         `json:"total"`
	Successful          int64         `json:"successful"`
	Failed              int64         `json:"failed"`
	TotalProcessingTime time.Duration `json:"total_processing_time"`
}

// MetricsObserver collects counters from events
type MetricsObserver struct {
	mu          sync.RWMutex
	operations  map[Operation]*operationStats
	tiers       map[models.Tier]int64
	fetched     int64
	fetchFailed int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		operations: make(map[Operation]*operationStats),
		tiers:      make(map[models.Tier]int64),
	}
}

// OnEvent handles events by collecting counters
func (o *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case ImageFetched:
		o.fetched++
		return
	case ImageFetchFailed:
		o.fetchFailed++
		return
	}

	stats, ok := o.operations[event.Operation]
	if !ok {
		stats = &operationStats{}
		o.operations[event.Operation] = stats
	}
	switch event.EventType {
	case OperationStarted:
		stats.Total++
	case OperationCompleted:
		stats.Successful++
		stats.TotalProcessingTime += event.ProcessingTime
		if event.Overall != "" {
			o.tiers[event.Overall]++
		}
	case OperationFailed:
		stats.Failed++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current counters
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	operations := make(map[string]interface{}, len(o.operations))
	for op, stats := range o.operations {
		avg := time.Duration(0)
		if stats.Successful > 0 {
			avg = stats.TotalProcessingTime / time.Duration(stats.Successful)
		}
		operations[string(op)] = map[string]interface{}{
			"total":                 stats.Total,
			"successful":            stats.Successful,
			"failed":                stats.Failed,
			"total_processing_time": stats.TotalProcessingTime.String(),
			"avg_processing_time":   avg.String(),
		}
	}

	tiers := make(map[string]int64, len(o.tiers))
	for tier, n := range o.tiers {
		tiers[string(tier)] = n
	}

	return map[string]interface{}{
		"operations":           operations,
		"overall_tiers":        tiers,
		"images_fetched":       o.fetched,
		"image_fetch_failures": o.fetchFailed,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inflight  sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() Subject {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	// Notify observers concurrently
	for _, observer := range observers {
		p.inflight.Add(1)
		go func(obs Observer) {
			defer p.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					// Log panic but don't crash the application
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Wait blocks until in-flight notifications finish
func (p *EventPublisher) Wait() {
	p.inflight.Wait()
}
