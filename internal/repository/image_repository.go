package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	apperrors "go-image-identifier/internal/errors"
	"go-image-identifier/internal/storage"
	"go-image-identifier/pkg/models"
	"go-image-identifier/pkg/validation"
)

// BlobFetcher is an ImageFetcher bound to a single storage account
type BlobFetcher interface {
	storage.ImageFetcher
	Handles(blobURL string) bool
}

// Backends groups the storage implementations a repository routes to.
// Nil members disable the corresponding kind of reference.
type Backends struct {
	Uploads *storage.UploadStore
	Remote  storage.ImageFetcher
	Blob    BlobFetcher
	Local   storage.ImageFetcher
}

// imageRepository routes references to storage backends
type imageRepository struct {
	backends  Backends
	validator *validation.URLValidator
}

// NewImageRepository creates a new routing image repository
func NewImageRepository(backends Backends, validator *validation.URLValidator) ImageRepository {
	if validator == nil {
		validator = validation.NewURLValidator()
	}
	return &imageRepository{
		backends:  backends,
		validator: validator,
	}
}

// Resolve fetches and decodes the image behind ref. Every failure is an
// AppError: image_decode for anything about the image itself, network or
// timeout for transport failures.
func (r *imageRepository) Resolve(ctx context.Context, ref models.ImageReference) (image.Image, error) {
	img, err := r.resolve(ctx, ref)
	if err != nil {
		return nil, classify(ref, err)
	}
	return img, nil
}

func (r *imageRepository) resolve(ctx context.Context, ref models.ImageReference) (image.Image, error) {
	switch r.validator.KindOf(ref) {
	case validation.KindEmpty:
		return nil, ErrEmptyReference

	case validation.KindTransient:
		if r.backends.Uploads == nil {
			return nil, ErrNoBackend
		}
		upload, ok := r.backends.Uploads.Get(ref)
		if !ok {
			return nil, ErrUploadNotFound
		}
		img, _, err := storage.DecodeImage(upload.Data)
		return img, err

	case validation.KindRemote:
		if err := r.validator.ValidateImageURL(ref.String()); err != nil {
			return nil, err
		}
		if r.backends.Blob != nil && r.backends.Blob.Handles(ref.String()) {
			return r.backends.Blob.FetchImage(ctx, ref.String())
		}
		if r.backends.Remote == nil {
			return nil, ErrNoBackend
		}
		return r.backends.Remote.FetchImage(ctx, ref.String())

	default:
		if r.backends.Local == nil {
			return nil, ErrNoBackend
		}
		return r.backends.Local.FetchImage(ctx, ref.String())
	}
}

func classify(ref models.ImageReference, err error) error {
	msg := fmt.Sprintf("cannot load image %q", ref)
	switch {
	case apperrors.IsType(err, apperrors.ErrorTypeValidation):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.NewTimeoutError(msg, err)
	case errors.Is(err, context.Canceled):
		return apperrors.NewStaleError(msg + ": request canceled")
	case errors.Is(err, ErrEmptyReference):
		return apperrors.NewNoImageError("no image selected")
	case errors.Is(err, storage.ErrFetchFailed):
		return apperrors.NewNetworkError(msg, err)
	default:
		return apperrors.NewImageDecodeError(msg, err)
	}
}

// GetImageMetadata reports size and format of the image behind ref. Remote
// references are fetched to obtain the dimensions.
func (r *imageRepository) GetImageMetadata(ctx context.Context, ref models.ImageReference) (*models.ImageMetadata, error) {
	if ref.IsTransient() && r.backends.Uploads != nil {
		upload, ok := r.backends.Uploads.Get(ref)
		if !ok {
			return nil, classify(ref, ErrUploadNotFound)
		}
		meta := &models.ImageMetadata{
			Name:          upload.Name,
			ContentType:   upload.ContentType,
			ContentLength: int64(len(upload.Data)),
			Format:        strings.TrimPrefix(upload.ContentType, "image/"),
		}
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(upload.Data)); err == nil {
			meta.Width, meta.Height = cfg.Width, cfg.Height
		}
		return meta, nil
	}

	img, err := r.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	return &models.ImageMetadata{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
