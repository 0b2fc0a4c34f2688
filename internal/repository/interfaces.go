package repository

import (
	"context"
	"image"

	"go-image-identifier/pkg/models"
)

// ImageRepository defines the interface for resolving image references
type ImageRepository interface {
	// Resolve turns a reference into decoded pixels
	Resolve(ctx context.Context, ref models.ImageReference) (image.Image, error)

	// GetImageMetadata describes the image behind a reference
	GetImageMetadata(ctx context.Context, ref models.ImageReference) (*models.ImageMetadata, error)
}
