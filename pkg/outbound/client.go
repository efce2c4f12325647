// Package outbound performs HTTP calls to merchant configured endpoints.
package outbound

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dukex/shopflow/pkg/protocol"
)

// DefaultTimeout applies to requests that do not set their own.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response is read back.
const maxBodyBytes = 1 << 20

type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.With("module", "outbound"),
	}
}

// Do sends req and returns the status and body of the response.
// Non 2xx statuses are not errors.
func (c *Client) Do(ctx context.Context, req protocol.HTTPRequest) (*protocol.HTTPResponse, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for name, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(name, value)
		}
	}

	c.logger.DebugContext(ctx, "Sending outbound request", "method", req.Method, "url", req.URL)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &protocol.HTTPResponse{Status: resp.StatusCode, Body: respBody}, nil
}
