package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-image-identifier/internal/classifier"
	apperrors "go-image-identifier/internal/errors"
	"go-image-identifier/internal/observer"
	"go-image-identifier/internal/service"
	"go-image-identifier/internal/storage"
	"go-image-identifier/internal/strategy"
	"go-image-identifier/pkg/models"
)

// LoadOutcome is delivered once the model load finishes
type LoadOutcome struct {
	Status   models.ModelStatus
	Err      error
	Duration time.Duration
}

// request tags an in-flight identification with the image it was issued for
type request struct {
	seq        uint64
	generation uint64
	image      models.ImageReference
	cancel     context.CancelFunc
}

// Session owns the model handle, the current image, the last results and the
// viewing history. All methods are safe for concurrent use. Every change is
// published to subscribers in revision order.
//
// Observers run while the publish lock is held and must not call mutating
// Session methods synchronously from OnEvent.
type Session struct {
	mu    sync.Mutex
	pubMu sync.Mutex

	provider    classifier.Provider
	service     service.IdentificationService
	uploads     *storage.UploadStore
	policy      strategy.HistoryPolicy
	publisher   *observer.EventPublisher
	loadTimeout time.Duration

	loadOnce   sync.Once
	loadCancel context.CancelFunc
	loaded     chan struct{}
	outcome    LoadOutcome

	status     models.ModelStatus
	model      classifier.Model
	loadErr    error
	image      models.ImageReference
	generation uint64
	results    models.PredictionResult
	identified bool
	history    []models.ImageReference
	lastErr    error
	revision   uint64
	requestSeq uint64
	inflight   *request
	closed     bool
}

// New creates a session. Nil uploads, policy or publisher get defaults.
func New(
	provider classifier.Provider,
	svc service.IdentificationService,
	uploads *storage.UploadStore,
	policy strategy.HistoryPolicy,
	publisher *observer.EventPublisher,
	loadTimeout time.Duration,
) *Session {
	if uploads == nil {
		uploads = storage.NewUploadStore()
	}
	if policy == nil {
		policy = strategy.NewPrependPolicy()
	}
	if publisher == nil {
		publisher = observer.NewEventPublisher()
	}
	return &Session{
		provider:    provider,
		service:     svc,
		uploads:     uploads,
		policy:      policy,
		publisher:   publisher,
		loadTimeout: loadTimeout,
		loaded:      make(chan struct{}),
		status:      models.ModelStatusAbsent,
	}
}

// Subscribe registers an observer for session events
func (s *Session) Subscribe(obs observer.Observer) {
	s.publisher.Subscribe(obs)
}

// Unsubscribe removes a previously registered observer
func (s *Session) Unsubscribe(obs observer.Observer) {
	s.publisher.Unsubscribe(obs)
}

// Start loads the model in the background. The returned channel receives
// the outcome once.
func (s *Session) Start(ctx context.Context) <-chan LoadOutcome {
	out := make(chan LoadOutcome, 1)
	go func() {
		out <- s.LoadModel(ctx)
	}()
	return out
}

// Loaded is closed when the model load has finished, successfully or not
func (s *Session) Loaded() <-chan struct{} {
	return s.loaded
}

// LoadModel loads the model, blocking until done. Only the first call runs
// the provider; later calls return the same outcome.
func (s *Session) LoadModel(ctx context.Context) LoadOutcome {
	s.loadOnce.Do(func() {
		s.load(ctx)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Session) load(ctx context.Context) {
	defer close(s.loaded)

	if s.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.closed {
		s.outcome = LoadOutcome{Status: models.ModelStatusFailed, Err: apperrors.NewModelLoadError("session closed", nil)}
		s.mu.Unlock()
		return
	}
	s.loadCancel = cancel
	s.status = models.ModelStatusLoading
	s.revision++
	s.unlockAndPublish(observer.SessionEvent{EventType: observer.ModelLoading, Success: true})

	start := time.Now()
	var model classifier.Model
	var err error
	if s.provider == nil {
		err = fmt.Errorf("no model provider configured")
	} else {
		model, err = s.provider.Load(ctx)
	}
	elapsed := time.Since(start)

	s.mu.Lock()
	s.loadCancel = nil
	if err == nil && s.closed {
		model.Close()
		err = fmt.Errorf("session closed during load")
	}

	if err != nil {
		s.status = models.ModelStatusFailed
		s.loadErr = apperrors.NewModelLoadError("failed to load model", err)
		s.outcome = LoadOutcome{Status: s.status, Err: s.loadErr, Duration: elapsed}
		s.revision++
		s.unlockAndPublish(observer.SessionEvent{
			EventType:      observer.ModelFailed,
			ProcessingTime: elapsed,
			ErrorMessage:   s.loadErr.Error(),
		})
		return
	}

	s.model = model
	s.status = models.ModelStatusReady
	s.outcome = LoadOutcome{Status: s.status, Duration: elapsed}
	s.revision++
	s.unlockAndPublish(observer.SessionEvent{
		EventType:      observer.ModelReady,
		ProcessingTime: elapsed,
		Success:        true,
	})
}

// SelectFile makes an uploaded file the current image and returns its
// transient reference. A nil file clears the current image.
func (s *Session) SelectFile(file *models.ImageFile) (models.ImageReference, error) {
	if file == nil {
		s.setImage("")
		return "", nil
	}
	if len(file.Data) == 0 {
		return "", apperrors.NewValidationError(fmt.Sprintf("file %q is empty", file.Name), nil)
	}

	ref, err := s.uploads.Put(file)
	if err != nil {
		return "", apperrors.NewInternalError("failed to store upload", err)
	}
	s.setImage(ref)
	return ref, nil
}

// SelectURL makes text the current image verbatim. Empty text clears it.
func (s *Session) SelectURL(text string) {
	s.setImage(models.ImageReference(text))
}

// SelectFromHistory makes a previously viewed reference current again. The
// history policy decides whether that adds another entry.
func (s *Session) SelectFromHistory(ref models.ImageReference) error {
	s.mu.Lock()
	found := false
	for _, h := range s.history {
		if h == ref {
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return apperrors.NewValidationError(fmt.Sprintf("%q is not in history", ref), nil)
	}
	s.setImage(ref)
	return nil
}

func (s *Session) setImage(ref models.ImageReference) {
	s.mu.Lock()
	if s.inflight != nil {
		s.inflight.cancel()
		s.inflight = nil
	}

	s.image = ref
	s.generation++
	s.results = nil
	s.identified = false
	s.lastErr = nil
	if !ref.IsEmpty() {
		s.history = s.policy.Record(s.history, ref)
	}
	s.revision++
	s.unlockAndPublish(observer.SessionEvent{
		EventType: observer.ImageChanged,
		ImageRef:  ref,
		Success:   true,
	})
}

// Identify classifies the current image and replaces the results. It fails
// with a model_not_ready error, leaving state untouched, until the model is
// ready. A result that arrives after the image changed, or after a newer
// Identify started, is discarded with a stale error.
func (s *Session) Identify(ctx context.Context) (models.PredictionResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, apperrors.NewInternalError("session is closed", nil)
	}
	if s.status != models.ModelStatusReady {
		status := s.status
		s.mu.Unlock()
		return nil, apperrors.NewModelNotReadyError(status.Describe(), nil)
	}
	if s.image.IsEmpty() {
		s.mu.Unlock()
		return nil, apperrors.NewNoImageError("select an image first")
	}

	if s.inflight != nil {
		s.inflight.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.requestSeq++
	req := &request{
		seq:        s.requestSeq,
		generation: s.generation,
		image:      s.image,
		cancel:     cancel,
	}
	s.inflight = req
	s.lastErr = nil
	model := s.model
	s.revision++
	s.unlockAndPublish(observer.SessionEvent{
		EventType: observer.ClassifyStarted,
		ImageRef:  req.image,
		Success:   true,
	})

	start := time.Now()
	results, err := s.service.Identify(reqCtx, model, req.image)
	elapsed := time.Since(start)

	s.mu.Lock()
	if s.inflight != req || s.generation != req.generation {
		staleErr := apperrors.NewStaleError(fmt.Sprintf("result of request %d for %q discarded", req.seq, req.image))
		s.unlockAndPublish(observer.SessionEvent{
			EventType:      observer.ClassifyDiscarded,
			ImageRef:       req.image,
			ProcessingTime: elapsed,
			ErrorMessage:   staleErr.Error(),
		})
		return nil, staleErr
	}

	s.inflight = nil
	if err != nil {
		s.lastErr = err
		s.revision++
		s.unlockAndPublish(observer.SessionEvent{
			EventType:      observer.ClassifyFailed,
			ImageRef:       req.image,
			ProcessingTime: elapsed,
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	s.results = results
	s.identified = true
	s.revision++
	s.unlockAndPublish(observer.SessionEvent{
		EventType:      observer.ClassifyCompleted,
		ImageRef:       req.image,
		ProcessingTime: elapsed,
		Success:        true,
	})
	return cloneResults(results), nil
}

// ImageMetadata describes the current image
func (s *Session) ImageMetadata(ctx context.Context) (*models.ImageMetadata, error) {
	s.mu.Lock()
	ref := s.image
	s.mu.Unlock()

	return s.service.GetImageMetadata(ctx, ref)
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() observer.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Close cancels outstanding work, releases the model and drops uploads
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	if s.inflight != nil {
		s.inflight.cancel()
		s.inflight = nil
	}
	if s.loadCancel != nil {
		s.loadCancel()
	}
	model := s.model
	s.model = nil
	if s.status == models.ModelStatusReady {
		s.status = models.ModelStatusAbsent
	}
	s.mu.Unlock()

	s.uploads.Clear()
	if model != nil {
		return model.Close()
	}
	return nil
}

func (s *Session) snapshotLocked() observer.Snapshot {
	var history []models.ImageReference
	if len(s.history) > 0 {
		history = make([]models.ImageReference, len(s.history))
		copy(history, s.history)
	}
	return observer.Snapshot{
		Revision:    s.revision,
		ModelStatus: s.status,
		ModelError:  s.loadErr,
		Image:       s.image,
		Results:     cloneResults(s.results),
		Identified:  s.identified,
		History:     history,
		Classifying: s.inflight != nil,
		LastError:   s.lastErr,
	}
}

// unlockAndPublish must be called with s.mu held. It attaches the current
// snapshot to event, releases s.mu and notifies observers. The publish lock is
// taken before s.mu is released so events are delivered in revision order.
func (s *Session) unlockAndPublish(event observer.SessionEvent) {
	event.Timestamp = time.Now()
	event.Snapshot = s.snapshotLocked()

	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Unlock()

	s.publisher.NotifyObservers(context.Background(), event)
}

func cloneResults(results models.PredictionResult) models.PredictionResult {
	if results == nil {
		return nil
	}
	out := make(models.PredictionResult, len(results))
	copy(out, results)
	return out
}
