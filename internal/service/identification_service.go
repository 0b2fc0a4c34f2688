package service

import (
	"context"
	"errors"
	"time"

	"go-image-identifier/internal/classifier"
	apperrors "go-image-identifier/internal/errors"
	"go-image-identifier/internal/repository"
	"go-image-identifier/pkg/models"
)

// IdentificationService resolves image references and runs them through a model
type IdentificationService interface {
	Identify(ctx context.Context, model classifier.Model, ref models.ImageReference) (models.PredictionResult, error)
	IdentifyBatch(ctx context.Context, model classifier.Model, refs []models.ImageReference, workers int) []models.IdentifyResponse
	GetImageMetadata(ctx context.Context, ref models.ImageReference) (*models.ImageMetadata, error)
}

type identificationService struct {
	imageRepo       repository.ImageRepository
	topK            int
	classifyTimeout time.Duration
}

// NewIdentificationService creates a new identification service
func NewIdentificationService(
	imageRepository repository.ImageRepository,
	topK int,
	classifyTimeout time.Duration,
) IdentificationService {
	return &identificationService{
		imageRepo:       imageRepository,
		topK:            topK,
		classifyTimeout: classifyTimeout,
	}
}

// Identify fetches and decodes ref, classifies it and returns the ranked result
func (s *identificationService) Identify(ctx context.Context, model classifier.Model, ref models.ImageReference) (models.PredictionResult, error) {
	if model == nil {
		return nil, apperrors.NewModelNotReadyError("model is not loaded", nil)
	}
	if ref.IsEmpty() {
		return nil, apperrors.NewNoImageError("no image selected")
	}

	img, err := s.imageRepo.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	classifyCtx := ctx
	if s.classifyTimeout > 0 {
		var cancel context.CancelFunc
		classifyCtx, cancel = context.WithTimeout(ctx, s.classifyTimeout)
		defer cancel()
	}

	predictions, err := model.Classify(classifyCtx, img)
	if err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			return nil, apperrors.NewStaleError("identification was superseded")
		case errors.Is(err, context.DeadlineExceeded):
			return nil, apperrors.NewTimeoutError("classification timed out", err)
		default:
			return nil, apperrors.NewClassifyError("classification failed", err)
		}
	}

	return models.Rank(predictions, s.topK), nil
}

// IdentifyBatch identifies refs concurrently. Responses keep the input order.
func (s *identificationService) IdentifyBatch(ctx context.Context, model classifier.Model, refs []models.ImageReference, workers int) []models.IdentifyResponse {
	responses := make([]models.IdentifyResponse, len(refs))

	pool := NewWorkerPool(workers)
	pool.Start()
	defer pool.Close()

	for i, ref := range refs {
		i, ref := i, ref
		pool.Submit(func() {
			responses[i] = s.identifyOne(ctx, model, ref)
		})
	}

	pool.Wait()
	return responses
}

func (s *identificationService) identifyOne(ctx context.Context, model classifier.Model, ref models.ImageReference) models.IdentifyResponse {
	start := time.Now()
	response := models.IdentifyResponse{
		Reference: ref.String(),
		Timestamp: start.Format("2006-01-02T15:04:05Z07:00"),
	}

	predictions, err := s.Identify(ctx, model, ref)
	response.ProcessingTimeSec = time.Since(start).Seconds()
	if err != nil {
		response.Error = &models.ErrorResponse{
			Type:    string(apperrors.TypeOf(err)),
			Message: err.Error(),
		}
		return response
	}

	response.Predictions = predictions
	return response
}

// GetImageMetadata returns content type and dimensions of ref
func (s *identificationService) GetImageMetadata(ctx context.Context, ref models.ImageReference) (*models.ImageMetadata, error) {
	if ref.IsEmpty() {
		return nil, apperrors.NewNoImageError("no image selected")
	}
	return s.imageRepo.GetImageMetadata(ctx, ref)
}
