package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits; a console talks to a handful of hosts on a LAN
const (
	defaultMaxIdleConns        = 32
	defaultMaxIdleConnsPerHost = 8
	defaultMaxConnsPerHost     = 8
	defaultIdleConnTimeout     = 60 * time.Second
)

// DefaultTimeout is applied when a [Request] carries no timeout.
const DefaultTimeout = 10 * time.Second

// Request describes one HTTP exchange with the studio backend.
type Request struct {
	// Method is the HTTP method. Empty defaults to GET.
	Method string

	// URL is the absolute target URL.
	URL string

	// Headers are set on the outgoing request.
	Headers map[string]string

	// Body is sent as-is. Empty means no body.
	Body string

	// ContentType is set when Body is non-empty.
	ContentType string

	// Timeout bounds the whole exchange. Zero uses [DefaultTimeout].
	Timeout time.Duration
}

// Response holds the result of a [Request].
//
// Response captures the body (limited to 1MB), status code, latency, and
// any transport error. A Response with a nil Error may still carry a
// non-200 status; use [CheckStatus] to classify it.
type Response struct {
	// Body contains the HTTP response body, limited to 1MB.
	Body []byte

	// StatusCode is the HTTP status code.
	// Zero if the request failed before receiving a response.
	StatusCode int

	// Latency is the total time taken for the request.
	Latency time.Duration

	// Error wraps [ErrTransport] when the exchange itself failed.
	Error error
}

// Doer performs requests. [Client] is the production implementation;
// tests substitute scripted fakes.
type Doer interface {
	Do(ctx context.Context, req Request) Response
}

// Client is an HTTP client wrapper for polling and command traffic.
//
// Client uses per-request timeouts via context rather than a global timeout,
// so status polls and commands can use different limits.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new [Client] with a pooled transport.
//
// Connection pooling configuration:
//   - MaxIdleConns: 32 total idle connections
//   - MaxIdleConnsPerHost: 8 idle connections per host
//   - MaxConnsPerHost: 8 concurrent connections per host
//   - IdleConnTimeout: 60 seconds before closing idle connections
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			// no default timeout - we use per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
			},
		},
	}
}

// Do performs the request and returns a structured [Response].
//
// Do always returns a Response; failures are captured in the Error field
// rather than returned separately, which keeps the poll and dispatch loops
// free of branching on two return values.
func (c *Client) Do(ctx context.Context, r Request) Response {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if r.Body != "" {
		body = strings.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("%w: failed to create request: %w", ErrTransport, err),
		}
	}

	for key, value := range r.Headers {
		req.Header.Set(key, value)
	}
	if r.Body != "" && r.ContentType != "" {
		req.Header.Set("Content-Type", r.ContentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Response{
			Latency: time.Since(start),
			Error:   fmt.Errorf("%w: request failed: %w", ErrTransport, err),
		}
	}
	defer func() { _ = resp.Body.Close() }()

	limitedReader := io.LimitReader(resp.Body, maxResponseBodySize)
	data, err := io.ReadAll(limitedReader)
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Latency:    time.Since(start),
			Error:      fmt.Errorf("%w: failed to read response body: %w", ErrTransport, err),
		}
	}

	return Response{
		Body:       data,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times and on a nil receiver. After Close, the client
// remains usable but new connections will be established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}
