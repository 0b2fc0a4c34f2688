package repository

import "errors"

var (
	// ErrEmptyReference indicates that no image was selected
	ErrEmptyReference = errors.New("empty image reference")

	// ErrUploadNotFound indicates a transient reference that is no longer held
	ErrUploadNotFound = errors.New("upload not found in this session")

	// ErrNoBackend indicates that no storage backend can serve the reference
	ErrNoBackend = errors.New("no storage backend for reference")
)
