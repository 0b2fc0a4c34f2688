package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"go-image-identifier/pkg/models"
)

// Upload is a file held in memory for the lifetime of a session
type Upload struct {
	Reference   models.ImageReference
	Name        string
	Data        []byte
	ContentType string
	CreatedAt   time.Time
}

// UploadStore keeps uploaded files addressable by transient references
type UploadStore struct {
	mu      sync.RWMutex
	uploads map[models.ImageReference]*Upload
}

func NewUploadStore() *UploadStore {
	return &UploadStore{uploads: make(map[models.ImageReference]*Upload)}
}

// Put stores the file and returns a fresh transient reference
func (s *UploadStore) Put(file *models.ImageFile) (models.ImageReference, error) {
	if file == nil {
		return "", fmt.Errorf("no file given")
	}

	ref := models.ImageReference(models.TransientScheme + uuid.NewString())
	upload := &Upload{
		Reference:   ref,
		Name:        file.Name,
		Data:        file.Data,
		ContentType: DetectContentType(file.Data),
		CreatedAt:   time.Now(),
	}

	s.mu.Lock()
	s.uploads[ref] = upload
	s.mu.Unlock()

	return ref, nil
}

func (s *UploadStore) Get(ref models.ImageReference) (*Upload, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	upload, ok := s.uploads[ref]
	return upload, ok
}

func (s *UploadStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.uploads)
}

// Clear drops every upload; outstanding references stop resolving.
func (s *UploadStore) Clear() {
	s.mu.Lock()
	s.uploads = make(map[models.ImageReference]*Upload)
	s.mu.Unlock()
}
