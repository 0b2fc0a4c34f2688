package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-image-identifier/pkg/models"
)

// Snapshot is an immutable copy of the session state at one revision
type Snapshot struct {
	Revision    uint64                  `json:"revision"`
	ModelStatus models.ModelStatus      `json:"model_status"`
	ModelError  error                   `json:"-"`
	Image       models.ImageReference   `json:"image"`
	Results     models.PredictionResult `json:"results"`
	Identified  bool                    `json:"identified"`
	History     []models.ImageReference `json:"history"`
	Classifying bool                    `json:"classifying"`
	LastError   error                   `json:"-"`
}

// Phase returns the state machine position derived from the snapshot
func (s Snapshot) Phase() Phase {
	switch {
	case s.Image.IsEmpty():
		return PhaseIdle
	case s.Identified || len(s.Results) > 0:
		return PhaseResultsReady
	default:
		return PhaseImageSelected
	}
}

// Phase is a position in the image/results state machine
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseImageSelected Phase = "image_selected"
	PhaseResultsReady  Phase = "results_ready"
)

// SessionEvent represents a session state change
type SessionEvent struct {
	EventType      EventType             `json:"event_type"`
	Timestamp      time.Time             `json:"timestamp"`
	ImageRef       models.ImageReference `json:"image_ref,omitempty"`
	ProcessingTime time.Duration         `json:"processing_time,omitempty"`
	Success        bool                  `json:"success"`
	ErrorMessage   string                `json:"error_message,omitempty"`
	Snapshot       Snapshot              `json:"snapshot"`
}

// EventType represents the type of session event
type EventType string

const (
	ModelLoading      EventType = "model_loading"
	ModelReady        EventType = "model_ready"
	ModelFailed       EventType = "model_failed"
	ImageChanged      EventType = "image_changed"
	ClassifyStarted   EventType = "classify_started"
	ClassifyCompleted EventType = "classify_completed"
	ClassifyFailed    EventType = "classify_failed"
	ClassifyDiscarded EventType = "classify_discarded"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event SessionEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event SessionEvent)
}

// LoggingObserver logs session events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles session events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event SessionEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"revision":   event.Snapshot.Revision,
		"success":    event.Success,
	}
	if !event.ImageRef.IsEmpty() {
		fields["image_ref"] = event.ImageRef
	}
	if event.ProcessingTime > 0 {
		fields["processing_time"] = event.ProcessingTime
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	switch event.EventType {
	case ModelLoading:
		o.logger.WithFields(fields).Info("Model loading")
	case ModelReady:
		o.logger.WithFields(fields).Info("Model ready")
	case ModelFailed:
		o.logger.WithFields(fields).Error("Model failed to load")
	case ImageChanged:
		fields["history_len"] = len(event.Snapshot.History)
		o.logger.WithFields(fields).Debug("Image changed")
	case ClassifyStarted:
		o.logger.WithFields(fields).Debug("Identification started")
	case ClassifyCompleted:
		if best, ok := event.Snapshot.Results.BestGuess(); ok {
			fields["best_guess"] = best.Label
			fields["probability"] = best.Probability
		}
		o.logger.WithFields(fields).Info("Identification completed")
	case ClassifyFailed:
		o.logger.WithFields(fields).Error("Identification failed")
	case ClassifyDiscarded:
		o.logger.WithFields(fields).Warn("Discarded stale identification result")
	default:
		o.logger.WithFields(fields).Info("Session event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects identification statistics
type MetricsObserver struct {
	mu                    sync.RWMutex
	imagesSelected        int64
	totalIdentifications  int64
	successfulIdentifies  int64
	failedIdentifications int64
	discardedResults      int64
	totalProcessingTime   time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles session events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event SessionEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case ImageChanged:
		if !event.ImageRef.IsEmpty() {
			o.imagesSelected++
		}
	case ClassifyStarted:
		o.totalIdentifications++
	case ClassifyCompleted:
		o.successfulIdentifies++
		o.totalProcessingTime += event.ProcessingTime
	case ClassifyFailed:
		o.failedIdentifications++
	case ClassifyDiscarded:
		o.discardedResults++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.successfulIdentifies > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulIdentifies)
	}

	return map[string]interface{}{
		"images_selected":        o.imagesSelected,
		"total_identifications":  o.totalIdentifications,
		"successful_identifies":  o.successfulIdentifies,
		"failed_identifications": o.failedIdentifications,
		"discarded_results":      o.discardedResults,
		"total_processing_time":  o.totalProcessingTime,
		"avg_processing_time":    avgProcessingTime,
	}
}

// EventPublisher implements the Subject interface. Observers are notified
// synchronously and in subscription order so that presenters see events in
// the order the session produced them.
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
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
func (p *EventPublisher) NotifyObservers(ctx context.Context, event SessionEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		notify(ctx, observer, event)
	}
}

func notify(ctx context.Context, obs Observer, event SessionEvent) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
