package models

import (
	"fmt"
	"strings"
)

// TransientScheme prefixes references created for uploaded files. They are
// only valid for the session that created them.
const TransientScheme = "blob:"

// ImageReference identifies an image: a transient local reference or any
// user supplied string (usually a URL). The empty reference means no image.
type ImageReference string

// IsEmpty reports whether no image is selected
func (r ImageReference) IsEmpty() bool {
	return r == ""
}

// IsTransient reports whether the reference points at a session upload
func (r ImageReference) IsTransient() bool {
	return strings.HasPrefix(string(r), TransientScheme)
}

func (r ImageReference) String() string {
	return string(r)
}

// ImageFile is a locally chosen image file
type ImageFile struct {
	Name string
	Data []byte
}

// ImageMetadata contains metadata about an image
type ImageMetadata struct {
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
	Format        string `json:"format"`
	Name          string `json:"name,omitempty"`
}

// ModelStatus is the lifecycle state of the classification model
type ModelStatus string

const (
	ModelStatusAbsent  ModelStatus = "absent"
	ModelStatusLoading ModelStatus = "loading"
	ModelStatusReady   ModelStatus = "ready"
	ModelStatusFailed  ModelStatus = "failed"
)

// Describe returns a readable sentence for error messages
func (s ModelStatus) Describe() string {
	switch s {
	case ModelStatusAbsent:
		return "model has not been loaded"
	case ModelStatusLoading:
		return "model is still loading"
	case ModelStatusReady:
		return "model is ready"
	case ModelStatusFailed:
		return "model failed to load"
	default:
		return fmt.Sprintf("model is in unknown state %q", string(s))
	}
}
