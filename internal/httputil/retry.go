// Package httputil provides an HTTP client that retries transient failures.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// Default retry configuration.
const (
	DefaultMaxRetries  = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 10 * time.Second
	DefaultHTTPTimeout = 60 * time.Second
)

// ErrRetriesExhausted is wrapped by the error returned when every attempt
// failed.
var ErrRetriesExhausted = errors.New("retries exhausted")

var retryableStatusCodes = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Retryable reports whether a response status is worth another attempt.
func Retryable(status int) bool {
	return retryableStatusCodes[status]
}

// RetryOption configures a Client.
type RetryOption func(*Client)

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) RetryOption {
	return func(c *Client) { c.maxRetries = n }
}

// WithBaseDelay sets the initial backoff delay before jitter.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(c *Client) { c.baseDelay = d }
}

// WithMaxDelay caps the backoff delay, including server-requested waits.
func WithMaxDelay(d time.Duration) RetryOption {
	return func(c *Client) { c.maxDelay = d }
}

// WithHTTPTimeout sets the per-attempt timeout.
func WithHTTPTimeout(d time.Duration) RetryOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) RetryOption {
	return func(c *Client) { c.httpClient = hc }
}

// Client wraps http.Client with retry on connection errors and on 429 and
// 5xx gateway statuses.
type Client struct {
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// NewClient creates a Client with the default retry policy.
func NewClient(opts ...RetryOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		maxRetries: DefaultMaxRetries,
		baseDelay:  DefaultBaseDelay,
		maxDelay:   DefaultMaxDelay,
	}
	for _, o := range opts {
		o(c)
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	return c
}

// Do executes req, retrying transient failures. Request bodies are replayed
// through req.GetBody, so requests built by http.NewRequest from an in-memory
// reader retry safely. On success or a non-retryable status the caller owns
// the response.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.retry(req, c.httpClient.Do)
}

// StandardClient returns an *http.Client whose transport applies the retry
// policy, for SDKs that accept a plain client. It has no overall timeout;
// callers bound each call with a context.
func (c *Client) StandardClient() *http.Client {
	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{Transport: &retryTransport{client: c, base: base}}
}

type retryTransport struct {
	client *Client
	base   http.RoundTripper
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.client.retry(req, t.base.RoundTrip)
}

func (c *Client) retry(req *http.Request, send func(*http.Request) (*http.Response, error)) (*http.Response, error) {
	var lastErr error
	var wait time.Duration

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		attemptReq := req
		if attempt > 0 {
			delay := c.backoff(attempt)
			if wait > 0 {
				delay = min(wait, c.maxDelay)
			}
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(delay):
			}

			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, err
				}
				attemptReq = req.Clone(req.Context())
				attemptReq.Body = body
			}
		}

		resp, err := send(attemptReq)
		if err != nil {
			if ctxErr := req.Context().Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = err
			wait = 0
			continue
		}

		if !Retryable(resp.StatusCode) {
			return resp, nil
		}

		lastErr = fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Host)
		wait = retryAfter(resp)
		_ = resp.Body.Close()
	}

	return nil, fmt.Errorf("%w after %d retries: %w", ErrRetriesExhausted, c.maxRetries, lastErr)
}

// PostJSON encodes body as JSON, posts it to url, and returns the response.
func (c *Client) PostJSON(ctx context.Context, url string, body any, header http.Header) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")

	return c.Do(req)
}

// backoff returns the delay for the given attempt (1-indexed): exponential
// from baseDelay, capped at maxDelay, with full jitter.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > c.maxDelay {
			delay = c.maxDelay
			break
		}
	}
	if delay > 0 {
		delay = time.Duration(rand.Int64N(int64(delay)))
	}
	return delay
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
