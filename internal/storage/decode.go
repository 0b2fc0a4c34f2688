package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUndecodable marks data that is not a decodable image
	ErrUndecodable = errors.New("image could not be decoded")

	// ErrTooLarge marks images above the configured size limit
	ErrTooLarge = errors.New("image exceeds size limit")

	// ErrFetchFailed marks transport failures while downloading an image
	ErrFetchFailed = errors.New("failed to fetch image")
)

// ReadLimited reads at most limit bytes from r and fails with ErrTooLarge
// when more are available.
func ReadLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w (limit: %d bytes)", ErrTooLarge, limit)
	}
	return data, nil
}

// DetectContentType sniffs the MIME type of raw image data
func DetectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

// DecodeImage decodes raw bytes into pixels. Non-image content is rejected
// before decoding.
func DecodeImage(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty data", ErrUndecodable)
	}

	contentType := DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("%w: content type %s", ErrUndecodable, contentType)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return img, format, nil
}
