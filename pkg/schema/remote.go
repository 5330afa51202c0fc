package schema

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxRemoteDocument caps how much of a remote schema document is read.
const maxRemoteDocument = 4 << 20

// Fetcher downloads schema documents from template services over HTTP.
type Fetcher struct {
	client  *http.Client
	timeout time.Duration
}

// FetcherOption customises a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithTimeout bounds each download.
func WithTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

// NewFetcher returns a Fetcher with sensible defaults.
func NewFetcher(options ...FetcherOption) *Fetcher {
	f := &Fetcher{
		client:  http.DefaultClient,
		timeout: 10 * time.Second,
	}
	for _, opt := range options {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Fetch downloads the document at url, parses it, and validates the result.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Schema, error) {
	if url == "" {
		return Schema{}, errors.New("schema: url is required")
	}

	reqCtx := ctx
	if f.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return Schema{}, fmt.Errorf("schema: fetch %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/yaml, application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return Schema{}, fmt.Errorf("schema: fetch %s: %w", url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Schema{}, fmt.Errorf("schema: fetch %s: unexpected status %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteDocument))
	if err != nil {
		return Schema{}, fmt.Errorf("schema: fetch %s: %w", url, err)
	}
	return Parse(url, data)
}
