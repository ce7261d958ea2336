// Package fetcher provides rate-limited, retrying HTTP access to the
// upstream legislative data sources.
package fetcher

import (
	"context"
	"io"
	"net/http"
)

// Fetcher retrieves documents over HTTP with per-host rate limiting and
// bounded retry on transient failures.
type Fetcher interface {
	// Get fetches the URL with the given extra headers and returns the body.
	// Non-2xx statuses are returned as errors, transient ones retryable.
	Get(ctx context.Context, rawURL string, headers http.Header) (io.ReadCloser, error)

	// GetJSON fetches the URL and decodes the JSON response into out.
	GetJSON(ctx context.Context, rawURL string, headers http.Header, out any) error

	// GetIfModified fetches the URL only when the ETag differs from the one
	// provided. It returns (nil, etag, false, nil) on a 304 Not Modified.
	GetIfModified(ctx context.Context, rawURL string, etag string) (io.ReadCloser, string, bool, error)
}
