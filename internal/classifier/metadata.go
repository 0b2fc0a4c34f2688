package classifier

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	LayoutNCHW = "nchw"
	LayoutNHWC = "nhwc"
)

// Metadata describes the tensors and labels of an exported model
type Metadata struct {
	InputShape   []int64   `json:"input_shape"`
	OutputShape  []int64   `json:"output_shape"`
	Classes      []string  `json:"classes"`
	ImageSize    int       `json:"image_size"`
	InputName    string    `json:"input_name"`
	OutputName   string    `json:"output_name"`
	Layout       string    `json:"layout"`
	Mean         []float32 `json:"mean"`
	Std          []float32 `json:"std"`
	ApplySoftmax bool      `json:"apply_softmax"`
}

// LoadMetadata reads and validates a metadata JSON file
func LoadMetadata(path string) (*Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	meta.applyDefaults()
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (m *Metadata) applyDefaults() {
	if m.InputName == "" {
		m.InputName = "input"
	}
	if m.OutputName == "" {
		m.OutputName = "output"
	}
	if m.Layout == "" {
		m.Layout = LayoutNCHW
	}
	if len(m.Mean) == 0 {
		m.Mean = []float32{0, 0, 0}
	}
	if len(m.Std) == 0 {
		m.Std = []float32{1, 1, 1}
	}
	if m.ImageSize == 0 && len(m.InputShape) == 4 {
		if m.Layout == LayoutNHWC {
			m.ImageSize = int(m.InputShape[1])
		} else {
			m.ImageSize = int(m.InputShape[2])
		}
	}
}

// Validate checks that the metadata describes a single-image RGB classifier
func (m *Metadata) Validate() error {
	if len(m.InputShape) != 4 {
		return fmt.Errorf("input_shape must have 4 dimensions, got %v", m.InputShape)
	}
	if m.Layout != LayoutNCHW && m.Layout != LayoutNHWC {
		return fmt.Errorf("unsupported layout: %s", m.Layout)
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("image_size must be positive")
	}
	if len(m.Classes) == 0 {
		return fmt.Errorf("metadata lists no classes")
	}
	if len(m.Mean) != 3 || len(m.Std) != 3 {
		return fmt.Errorf("mean and std must have 3 channels")
	}
	for _, s := range m.Std {
		if s == 0 {
			return fmt.Errorf("std must be non-zero")
		}
	}
	if n := m.outputSize(); n < int64(len(m.Classes)) {
		return fmt.Errorf("output_shape %v smaller than %d classes", m.OutputShape, len(m.Classes))
	}
	return nil
}

func (m *Metadata) outputSize() int64 {
	if len(m.OutputShape) == 0 {
		return 0
	}
	size := int64(1)
	for _, d := range m.OutputShape {
		size *= d
	}
	return size
}
