package images

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

const userAgent = "wp2md/1.0"

// FetcherOptions configures the HTTP side of image downloads.
type FetcherOptions struct {
	Timeout   time.Duration
	StrictSSL bool
	Optimize  bool
	MaxWidth  int
	Quality   int
	Retries   int
}

// Fetcher handles fetching images from URLs through a handler chain
type Fetcher struct {
	handlers []ImageHandler
	client   *http.Client
	retries  int
}

// NewFetcher creates a fetcher with the default handlers for opts.
func NewFetcher(opts FetcherOptions) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !opts.StrictSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	f := &Fetcher{
		client:  &http.Client{Timeout: opts.Timeout, Transport: transport},
		retries: opts.Retries,
	}
	if f.retries <= 0 {
		f.retries = 3
	}

	// Register handlers (most specific first)
	if opts.Optimize {
		f.AddHandler(&OptimizingHandler{MaxWidth: opts.MaxWidth, Quality: opts.Quality})
	}
	f.AddHandler(&PassthroughHandler{}) // fallback

	return f
}

// AddHandler adds an image handler to the chain
func (f *Fetcher) AddHandler(handler ImageHandler) {
	f.handlers = append(f.handlers, handler)
}

// Fetch downloads url and processes the body using the handler chain.
// Rate-limited and server-side failures are retried with backoff.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	var lastErr error
	for attempt := 0; attempt < f.retries; attempt++ {
		result, err := f.fetchOnce(ctx, url)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) || attempt == f.retries-1 {
			break
		}

		backoff := time.Duration(1<<uint(attempt)) * 250 * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, lastErr
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, URL: url}
	}

	// Find handler based on URL + response headers
	for _, handler := range f.handlers {
		if handler.CanHandle(url, resp) {
			return handler.Handle(url, resp)
		}
	}

	return nil, fmt.Errorf("no handler found for %s", url)
}

func retryable(err error) bool {
	httpErr, ok := err.(*HTTPError)
	if !ok {
		return false
	}
	return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
}
