package factory

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"go-image-identifier/internal/classifier"
	"go-image-identifier/internal/config"
	"go-image-identifier/internal/storage"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
	// LocalStorage for local file system
	LocalStorage StorageType = "local"
)

// ProviderType represents different model runtimes
type ProviderType string

const (
	// OnnxProvider loads models through onnxruntime
	OnnxProvider ProviderType = "onnx"
)

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
}

// ProviderFactory creates model providers
type ProviderFactory interface {
	CreateProvider(providerType ProviderType) (classifier.Provider, error)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.cfg.ImageFetchTimeout, f.cfg.MaxImageSize), nil
	case AzureStorage:
		if !f.cfg.AzureEnabled() {
			return nil, fmt.Errorf("azure storage requires AZURE_STORAGE_ACCOUNT and AZURE_STORAGE_KEY")
		}
		fetcher, err := storage.NewAzureImageFetcher(f.cfg.AzureAccountName, f.cfg.AzureAccountKey, f.cfg.MaxImageSize)
		if err != nil {
			return nil, err
		}
		return fetcher, nil
	case LocalStorage:
		return storage.NewLocalImageFetcher(f.cfg.MaxImageSize), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// providerFactory implements ProviderFactory
type providerFactory struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config, logger *logrus.Logger) ProviderFactory {
	return &providerFactory{cfg: cfg, logger: logger}
}

// CreateProvider creates a model provider based on the specified type
func (f *providerFactory) CreateProvider(providerType ProviderType) (classifier.Provider, error) {
	switch providerType {
	case OnnxProvider:
		return classifier.NewOnnxProvider(f.cfg.ModelPath, f.cfg.MetadataPath, f.cfg.OrtLibraryPath, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", providerType)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory  StorageFactory
	ProviderFactory ProviderFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config, logger *logrus.Logger) *ComponentFactory {
	return &ComponentFactory{
		StorageFactory:  NewStorageFactory(cfg),
		ProviderFactory: NewProviderFactory(cfg, logger),
	}
}
