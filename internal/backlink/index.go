// Package backlink discovers referring pages for a domain through an
// external full-text web index. The index is a soft dependency: any failure
// degrades to an empty result set, never to an error for the caller.
package backlink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// IndexClient is the query surface of the external web index.
type IndexClient interface {
	// Search returns pages the index associates with the query, best first.
	Search(ctx context.Context, query string, limit int) ([]IndexResult, error)
}

// IndexResult is one hit from the web index.
type IndexResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	Description string `json:"description"`
}

type searchResponse struct {
	Code int           `json:"code"`
	Data []IndexResult `json:"data"`
}

// Option configures the HTTP index client.
type Option func(*httpIndexClient)

// WithBaseURL overrides the index endpoint, mainly for tests.
func WithBaseURL(base string) Option {
	return func(c *httpIndexClient) {
		c.baseURL = base
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpIndexClient) {
		c.http = hc
	}
}

// WithAPIKey sets the bearer token sent with each query.
func WithAPIKey(key string) Option {
	return func(c *httpIndexClient) {
		c.apiKey = key
	}
}

type httpIndexClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewIndexClient builds a client for the Jina search index.
func NewIndexClient(opts ...Option) IndexClient {
	c := &httpIndexClient{
		baseURL: "https://s.jina.ai",
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// retryDo issues the request with up to three attempts, backing off between
// transport failures and retryable statuses.
func (c *httpIndexClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3
	backoff := 500 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			if attempt == maxAttempts {
				return nil, 0, lastErr
			}
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, fmt.Errorf("read index response: %w", readErr)
		}

		if retryableStatus(resp.StatusCode) && attempt < maxAttempts {
			lastErr = fmt.Errorf("index status %d", resp.StatusCode)
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func (c *httpIndexClient) Search(ctx context.Context, query string, limit int) ([]IndexResult, error) {
	reqURL := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create index request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	body, status, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("index request: %w", err)
	}
	// The index answers 422 when it has nothing for the query.
	if status == http.StatusUnprocessableEntity {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("index status %d", status)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode index response: %w", err)
	}
	results := parsed.Data
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
