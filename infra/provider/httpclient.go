// Package provider holds the HTTP plumbing shared by the external rate
// provider clients.
package provider

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// maxBodySize caps provider responses.
const maxBodySize = 1 << 20

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute int
	Burst             int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
}

// HTTPClient is a retrying, client-side rate limited JSON fetcher.
type HTTPClient struct {
	client  *retryablehttp.Client
	limiter *rate.Limiter
}

// NewHTTPClient builds an HTTPClient. A non-positive RequestsPerMinute
// disables rate limiting.
func NewHTTPClient(opts HTTPOptions, logger *slog.Logger) *HTTPClient {
	client := retryablehttp.NewClient()
	client.RetryMax = opts.MaxRetries
	if opts.RetryWaitMin > 0 {
		client.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		client.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.Timeout > 0 {
		client.HTTPClient.Timeout = opts.Timeout
	}
	client.Logger = logger

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerMinute > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), burst)
	}
	return &HTTPClient{client: client, limiter: limiter}
}

// StatusError reports a non-200 response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// Get waits for the limiter, performs a GET with retries and returns the
// body of a 200 response.
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
