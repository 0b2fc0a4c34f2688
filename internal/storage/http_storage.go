package storage

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"time"
)

type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)
}

// HTTPImageFetcher fetches remote images with retries on transient failures
type HTTPImageFetcher struct {
	client       *http.Client
	maxBytes     int64
	retryBackoff time.Duration
}

// NewHTTPImageFetcher creates an HTTP image fetcher
func NewHTTPImageFetcher(timeout time.Duration, maxBytes int64) *HTTPImageFetcher {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes:     maxBytes,
		retryBackoff: time.Second,
	}
}

// FetchImage downloads and decodes an image. 4xx responses are not retried;
// network errors and 5xx responses are retried up to three attempts in total.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	req.Header.Set("Accept", "image/jpeg, image/png, image/webp, image/gif, */*")
	req.Header.Set("User-Agent", "Go-Image-Identifier/1.0")

	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		resp, err = h.client.Do(req)
		if err != nil {
			lastErr = err
			resp = nil
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", ErrFetchFailed, ctx.Err())
			}
		} else if resp.StatusCode == http.StatusOK {
			break
		} else {
			status := resp.StatusCode
			resp.Body.Close()
			resp = nil

			if status >= 400 && status < 500 {
				lastErr = fmt.Errorf("client error: status code %d", status)
				break
			}
			lastErr = fmt.Errorf("server error: status code %d", status)
		}

		if attempt < 2 {
			if err := h.sleep(ctx, time.Duration(attempt+1)*h.retryBackoff); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
			}
		}
	}

	if resp == nil {
		if lastErr != nil {
			return nil, fmt.Errorf("%w after 3 attempts: %w", ErrFetchFailed, lastErr)
		}
		return nil, fmt.Errorf("%w after 3 attempts: unknown error", ErrFetchFailed)
	}
	defer resp.Body.Close()

	data, err := ReadLimited(resp.Body, h.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}

	img, _, err := DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (h *HTTPImageFetcher) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
