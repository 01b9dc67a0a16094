// Package jsonprovider provides a client for a remote json-provider API,
// which serves configuration documents at
// /api/json-provider/{collection}/{document}[/{key}].
package jsonprovider

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ErrNotFound is returned when the document or key does not exist.
var ErrNotFound = eris.New("jsonprovider: not found")

// Client defines the json-provider read operations.
type Client interface {
	// Document returns the data of a document.
	Document(ctx context.Context, collection, document string) (json.RawMessage, error)
	// Key returns one top-level key of a document's data.
	Key(ctx context.Context, collection, document, key string) (json.RawMessage, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithBypassCache asks the server to skip its own document cache.
func WithBypassCache(bypass bool) Option {
	return func(c *httpClient) {
		c.bypassCache = bypass
	}
}

// WithRetryBackoff sets the initial retry delay (for testing).
func WithRetryBackoff(d time.Duration) Option {
	return func(c *httpClient) {
		c.backoff = d
	}
}

type httpClient struct {
	baseURL     string
	http        *http.Client
	bypassCache bool
	backoff     time.Duration
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		backoff: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// retryDo executes a GET with exponential backoff on transport errors and
// retryable statuses. It returns the final body and status code.
func (c *httpClient) retryDo(ctx context.Context, reqURL string) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := c.backoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return nil, 0, eris.Wrap(err, "jsonprovider: create request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err == nil {
			body, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				return nil, resp.StatusCode, eris.Wrap(readErr, "jsonprovider: read response body")
			}
			if !retryableStatusCode(resp.StatusCode) || attempt == maxAttempts {
				return body, resp.StatusCode, nil
			}
			lastErr = eris.Errorf("jsonprovider: status %d", resp.StatusCode)
		} else {
			lastErr = err
			if attempt == maxAttempts {
				break
			}
		}

		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, 0, lastErr
}

func (c *httpClient) get(ctx context.Context, segments ...string) (json.RawMessage, error) {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	reqURL := c.baseURL + "/api/json-provider/" + strings.Join(escaped, "/")
	if c.bypassCache {
		reqURL += "?cache=false"
	}

	body, status, err := c.retryDo(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrapf(err, "jsonprovider: get %s", strings.Join(segments, "/"))
	}
	switch {
	case status == http.StatusNotFound:
		return nil, eris.Wrapf(ErrNotFound, "jsonprovider: %s", strings.Join(segments, "/"))
	case status != http.StatusOK:
		return nil, eris.Errorf("jsonprovider: unexpected status %d: %s", status, string(body))
	case !json.Valid(body):
		return nil, eris.Errorf("jsonprovider: invalid json for %s", strings.Join(segments, "/"))
	}
	return json.RawMessage(body), nil
}

func (c *httpClient) Document(ctx context.Context, collection, document string) (json.RawMessage, error) {
	return c.get(ctx, collection, document)
}

func (c *httpClient) Key(ctx context.Context, collection, document, key string) (json.RawMessage, error) {
	return c.get(ctx, collection, document, key)
}
