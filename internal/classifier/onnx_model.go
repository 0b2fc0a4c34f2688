package classifier

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"go-image-identifier/pkg/models"
)

// OnnxProvider loads an ONNX image classifier from disk
type OnnxProvider struct {
	ModelPath    string
	MetadataPath string
	LibraryPath  string
	Logger       *logrus.Logger
}

// NewOnnxProvider creates a provider for the given model and metadata files
func NewOnnxProvider(modelPath, metadataPath, libraryPath string, logger *logrus.Logger) *OnnxProvider {
	return &OnnxProvider{
		ModelPath:    modelPath,
		MetadataPath: metadataPath,
		LibraryPath:  libraryPath,
		Logger:       logger,
	}
}

type loadResult struct {
	model *OnnxModel
	err   error
}

// Load initializes the runtime and creates an inference session. Runtime
// initialization cannot be interrupted; if ctx ends first the session is
// destroyed once it arrives.
func (p *OnnxProvider) Load(ctx context.Context) (Model, error) {
	done := make(chan loadResult, 1)
	go func() {
		m, err := p.load()
		done <- loadResult{model: m, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return res.model, nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.model != nil {
				res.model.Close()
			}
		}()
		return nil, ctx.Err()
	}
}

func (p *OnnxProvider) load() (*OnnxModel, error) {
	meta, err := LoadMetadata(p.MetadataPath)
	if err != nil {
		return nil, err
	}

	if p.LibraryPath != "" {
		ort.SetSharedLibraryPath(p.LibraryPath)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(meta.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(p.ModelPath,
		[]string{meta.InputName}, []string{meta.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	if p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"model":   p.ModelPath,
			"classes": len(meta.Classes),
			"size":    meta.ImageSize,
		}).Info("ONNX model loaded")
	}

	return &OnnxModel{
		session:      session,
		Metadata:     *meta,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

// OnnxModel runs a single-image classification session. The tensors are
// shared between calls so Run is serialized.
type OnnxModel struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	closed       bool
}

// Classify preprocesses img and returns one prediction per class
func (m *OnnxModel) Classify(ctx context.Context, img image.Image) ([]models.Prediction, error) {
	input := ToTensor(img, &m.Metadata)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("model is closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	copy(m.inputTensor.GetData(), input)
	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	scores := make([]float32, len(m.outputTensor.GetData()))
	copy(scores, m.outputTensor.GetData())
	if m.Metadata.ApplySoftmax {
		scores = Softmax(scores)
	}
	return ToPredictions(scores, m.Metadata.Classes), nil
}

// Close releases the session, tensors and runtime environment
func (m *OnnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.inputTensor != nil {
		m.inputTensor.Destroy()
	}
	if m.outputTensor != nil {
		m.outputTensor.Destroy()
	}
	var err error
	if m.session != nil {
		err = m.session.Destroy()
	}
	if envErr := ort.DestroyEnvironment(); err == nil {
		err = envErr
	}
	return err
}
