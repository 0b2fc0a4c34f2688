package storage

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureImageFetcher downloads images from an Azure storage account
type AzureImageFetcher struct {
	client      *azblob.Client
	accountHost string
	maxBytes    int64
}

func NewAzureImageFetcher(accountName, accountKey string, maxBytes int64) (*AzureImageFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid azure credentials: %w", err)
	}

	host := fmt.Sprintf("%s.blob.core.windows.net", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential("https://"+host, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}

	return &AzureImageFetcher{client: client, accountHost: host, maxBytes: maxBytes}, nil
}

// Handles reports whether blobURL belongs to the configured account
func (s *AzureImageFetcher) Handles(blobURL string) bool {
	parsed, err := url.Parse(blobURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(parsed.Host, s.accountHost)
}

// FetchImage downloads https://<account>.blob.core.windows.net/<container>/<blob>
func (s *AzureImageFetcher) FetchImage(ctx context.Context, blobURL string) (image.Image, error) {
	containerName, blobName, err := SplitBlobURL(blobURL)
	if err != nil {
		return nil, err
	}

	downloadResponse, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: download failed: %w", ErrFetchFailed, err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	data, err := ReadLimited(retryReader, s.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	img, _, err := DecodeImage(data)
	return img, err
}

// SplitBlobURL extracts the container and blob names from a blob URL
func SplitBlobURL(blobURL string) (string, string, error) {
	parsedURL, err := url.Parse(blobURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid blob URL: %w", err)
	}

	path := strings.TrimPrefix(parsedURL.Path, "/")
	containerName, blobName, ok := strings.Cut(path, "/")
	if !ok || containerName == "" || blobName == "" {
		return "", "", fmt.Errorf("invalid blob URL: expected /<container>/<blob>, got %q", parsedURL.Path)
	}
	return containerName, blobName, nil
}
