package classifier

import (
	"context"
	"image"

	"go-image-identifier/pkg/models"
)

// Model turns decoded pixels into label/probability pairs. Implementations
// need not sort their output.
type Model interface {
	Classify(ctx context.Context, img image.Image) ([]models.Prediction, error)
	Close() error
}

// Provider acquires a Model. It is called at most once per session.
type Provider interface {
	Load(ctx context.Context) (Model, error)
}

// ProviderFunc adapts a plain function to Provider
type ProviderFunc func(ctx context.Context) (Model, error)

func (f ProviderFunc) Load(ctx context.Context) (Model, error) {
	return f(ctx)
}
