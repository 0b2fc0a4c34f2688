package container

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"go-image-identifier/internal/classifier"
	"go-image-identifier/internal/config"
	"go-image-identifier/internal/factory"
	"go-image-identifier/internal/logger"
	"go-image-identifier/internal/observer"
	"go-image-identifier/internal/repository"
	"go-image-identifier/internal/service"
	"go-image-identifier/internal/session"
	"go-image-identifier/internal/storage"
	"go-image-identifier/internal/strategy"
	"go-image-identifier/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config                *config.Config
	logger                *logrus.Logger
	uploads               *storage.UploadStore
	localFiles            *storage.LocalImageFetcher
	imageRepository       repository.ImageRepository
	identificationService service.IdentificationService
	provider              classifier.Provider
	publisher             *observer.EventPublisher
	metrics               *observer.MetricsObserver
	session               *session.Session
}

// Option customizes container construction
type Option func(*options)

type options struct {
	provider classifier.Provider
	logger   *logrus.Logger
}

// WithProvider replaces the configured model provider
func WithProvider(p classifier.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithLogger replaces the package logger
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	o := options{logger: logger.Logger}
	for _, opt := range opts {
		opt(&o)
	}

	components := factory.NewComponentFactory(cfg, o.logger)

	remote, err := components.StorageFactory.CreateStorage(factory.HTTPStorage)
	if err != nil {
		return nil, fmt.Errorf("failed to create http storage: %w", err)
	}
	local, err := components.StorageFactory.CreateStorage(factory.LocalStorage)
	if err != nil {
		return nil, fmt.Errorf("failed to create local storage: %w", err)
	}
	localFiles, ok := local.(*storage.LocalImageFetcher)
	if !ok {
		return nil, fmt.Errorf("unexpected local storage type %T", local)
	}

	var blob repository.BlobFetcher
	if cfg.AzureEnabled() {
		fetcher, err := components.StorageFactory.CreateStorage(factory.AzureStorage)
		if err != nil {
			return nil, fmt.Errorf("failed to create azure storage: %w", err)
		}
		if blob, ok = fetcher.(repository.BlobFetcher); !ok {
			return nil, fmt.Errorf("azure storage cannot route blob URLs")
		}
	}

	uploads := storage.NewUploadStore()
	imageRepository := repository.NewImageRepository(repository.Backends{
		Uploads: uploads,
		Remote:  remote,
		Blob:    blob,
		Local:   localFiles,
	}, validation.NewURLValidatorWithOptions([]string{"http", "https"}, cfg.AllowedImageHosts))

	identificationService := service.NewIdentificationService(imageRepository, cfg.TopK, cfg.ClassifyTimeout)

	provider := o.provider
	if provider == nil {
		provider, err = components.ProviderFactory.CreateProvider(factory.OnnxProvider)
		if err != nil {
			return nil, err
		}
	}

	policy, err := strategy.NewHistoryPolicy(cfg.HistoryPolicy)
	if err != nil {
		return nil, err
	}

	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(o.logger))
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(metrics)

	sess := session.New(provider, identificationService, uploads, policy, publisher, cfg.ModelLoadTimeout)

	return &Container{
		config:                cfg,
		logger:                o.logger,
		uploads:               uploads,
		localFiles:            localFiles,
		imageRepository:       imageRepository,
		identificationService: identificationService,
		provider:              provider,
		publisher:             publisher,
		metrics:               metrics,
		session:               sess,
	}, nil
}

// Session returns the interactive session
func (c *Container) Session() *session.Session {
	return c.session
}

// Service returns the identification service used by batch mode
func (c *Container) Service() service.IdentificationService {
	return c.identificationService
}

// Provider returns the model provider
func (c *Container) Provider() classifier.Provider {
	return c.provider
}

// LocalFiles returns the reader used to open files for upload
func (c *Container) LocalFiles() *storage.LocalImageFetcher {
	return c.localFiles
}

// Metrics returns the session statistics collector
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the application logger
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// Close releases the session and logs the final statistics
func (c *Container) Close() error {
	c.logger.WithFields(logrus.Fields(c.metrics.GetMetrics())).Info("Session statistics")
	return c.session.Close()
}
