package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go-image-identifier/pkg/models"
)

// LocalImageFetcher reads images from the local file system. It accepts
// plain paths and file:// URLs.
type LocalImageFetcher struct {
	maxBytes int64
}

func NewLocalImageFetcher(maxBytes int64) *LocalImageFetcher {
	return &LocalImageFetcher{maxBytes: maxBytes}
}

func (l *LocalImageFetcher) FetchImage(ctx context.Context, ref string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := l.ReadFile(LocalPath(ref))
	if err != nil {
		return nil, err
	}

	img, _, err := DecodeImage(data)
	return img, err
}

// ReadFile reads a file subject to the size limit
func (l *LocalImageFetcher) ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	return ReadLimited(f, l.maxBytes)
}

// OpenImageFile reads a file chosen by the user into an ImageFile
func (l *LocalImageFetcher) OpenImageFile(path string) (*models.ImageFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("no file path given")
	}
	data, err := l.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &models.ImageFile{Name: filepath.Base(path), Data: data}, nil
}

// LocalPath converts a file:// URL into a path; other input is returned as is.
func LocalPath(ref string) string {
	if strings.HasPrefix(ref, "file://") {
		if parsed, err := url.Parse(ref); err == nil {
			return parsed.Path
		}
	}
	return ref
}

// IsLocalFile reports whether ref names an existing regular file
func IsLocalFile(ref string) bool {
	info, err := os.Stat(LocalPath(ref))
	return err == nil && info.Mode().IsRegular()
}
