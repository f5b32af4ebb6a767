package storage

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"image"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
	"github.com/anime-shed/sem-inspector-go/internal/logger"
)

type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (image.Image, error)
}

// HTTPFetcherOptions tunes the HTTP fetcher
type HTTPFetcherOptions struct {
	// Timeout bounds one whole fetch including retries
	Timeout time.Duration
	// MaxAttempts is the number of tries for transient failures
	MaxAttempts int
	// RetryBackoff is multiplied by the attempt number between tries
	RetryBackoff time.Duration
}

// DefaultHTTPFetcherOptions returns 3 attempts with 1s, 2s backoff
func DefaultHTTPFetcherOptions() HTTPFetcherOptions {
	return HTTPFetcherOptions{
		Timeout:      30 * time.Second,
		MaxAttempts:  3,
		RetryBackoff: time.Second,
	}
}

// HTTPImageFetcher implements ImageFetcher over HTTP(S)
type HTTPImageFetcher struct {
	client *http.Client
	opts   HTTPFetcherOptions
}

// NewHTTPImageFetcher creates an HTTP image fetcher with default options
func NewHTTPImageFetcher() ImageFetcher {
	return NewHTTPImageFetcherWithOptions(DefaultHTTPFetcherOptions())
}

// NewHTTPImageFetcherWithOptions creates an HTTP image fetcher
func NewHTTPImageFetcherWithOptions(opts HTTPFetcherOptions) ImageFetcher {
	defaults := DefaultHTTPFetcherOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaults.MaxAttempts
	}
	if opts.RetryBackoff < 0 {
		opts.RetryBackoff = 0
	}

	// SEM exports are large single files; keep few idle connections
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,

		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	return &HTTPImageFetcher{
		opts: opts,
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,

			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
	}
}

// FetchImage downloads and decodes an image. Transport errors and 5xx
// responses are retried; 4xx responses fail immediately.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid URL", err)
	}

	// Headers for image downloads
	req.Header.Set("Accept", "image/tiff, image/png, image/jpeg, image/gif, */*")
	req.Header.Set("User-Agent", "SEM-Inspector/1.0")

	log := logger.WithFields(logrus.Fields{"component": "http_fetcher", "url": imageURL})

	var lastErr error
	for attempt := 1; attempt <= h.opts.MaxAttempts; attempt++ {
		img, retry, err := h.fetchOnce(req)
		if err == nil {
			return img, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			break
		}
		if attempt < h.opts.MaxAttempts {
			log.WithError(err).WithField("attempt", attempt).Warn("Image fetch failed, retrying")
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
			case <-time.After(time.Duration(attempt) * h.opts.RetryBackoff):
				continue
			}
			break
		}
	}

	if isTimeout(lastErr) {
		return nil, apperrors.NewTimeoutError("image fetch timed out", lastErr)
	}
	var appErr *apperrors.AppError
	if errors.As(lastErr, &appErr) {
		return nil, appErr
	}
	return nil, apperrors.NewNetworkError(fmt.Sprintf("failed to fetch image after %d attempts", h.opts.MaxAttempts), lastErr)
}

// fetchOnce performs one request and reports whether a failure is retryable
func (h *HTTPImageFetcher) fetchOnce(req *http.Request) (image.Image, bool, error) {
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, apperrors.NewNotFoundError("image not found",
			fmt.Errorf("client error: status code %d", resp.StatusCode))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, apperrors.NewNetworkError("image request rejected",
			fmt.Errorf("client error: status code %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, apperrors.NewNetworkError("unexpected response",
			fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}

	img, _, err := DecodeImage(resp.Body)
	if err != nil {
		return nil, false, err
	}
	return img, false, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
