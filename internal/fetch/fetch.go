// Package fetch performs the network side of the gateway: issuing a
// request upstream and snapshotting the response into a cache entry.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mentesana/offgate/internal/partition"
)

// DefaultTimeout bounds a single network fetch.
const DefaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response body is snapshotted (16 MiB).
// Larger bodies indicate something that should not be cached wholesale.
const maxBodySize = 16 << 20

// Fetcher issues a request over the network and returns a response
// snapshot. Implementations must not panic on network failure; errors are
// returned for the strategy layer to recover from.
type Fetcher interface {
	Do(ctx context.Context, req *http.Request) (*partition.Entry, error)
}

// Compile-time check that Client implements Fetcher.
var _ Fetcher = (*Client)(nil)

// Client is an http.Client-backed fetcher.
type Client struct {
	http *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// New creates a fetcher with a default timeout-bounded HTTP client.
func New(opts ...Option) *Client {
	c := &Client{
		http: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do issues the request and snapshots the response.
// The request body, if any, is not replayed; gateway traffic is
// overwhelmingly GET and cached entries are only ever stored for
// idempotent lookups.
func (c *Client) Do(ctx context.Context, req *http.Request) (*partition.Entry, error) {
	out, err := http.NewRequestWithContext(ctx, req.Method, req.URL.String(), req.Body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	out.Header = req.Header.Clone()

	resp, err := c.http.Do(out)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return &partition.Entry{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now().UTC(),
	}, nil
}

// Get issues a GET for a raw URL string. Used by precache and preload.
func Get(ctx context.Context, f Fetcher, rawURL string) (*partition.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %q: %w", rawURL, err)
	}
	return f.Do(ctx, req)
}
