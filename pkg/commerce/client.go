// Package commerce talks to the Admin API of the shops workflows run for.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dukex/shopflow/pkg/protocol"
)

const (
	DefaultTimeout    = 30 * time.Second
	DefaultAPIVersion = "2024-10"

	accessTokenHeader = "X-Shopify-Access-Token"
)

// Client calls the GraphQL and REST Admin API of one shop.
type Client struct {
	baseURL     string
	accessToken string
	apiVersion  string
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewClient returns a client for creds. Requests time out after timeout, or DefaultTimeout
// when timeout is not positive.
func NewClient(creds Credentials, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	apiVersion := creds.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}

	baseURL := strings.TrimRight(creds.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://" + creds.ShopDomain
	}

	return &Client{
		baseURL:     baseURL,
		accessToken: creds.AccessToken,
		apiVersion:  apiVersion,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   timeout,
		},
		logger: logger.With("module", "commerce_client", "shop_domain", creds.ShopDomain),
	}
}

type graphRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphError struct {
	Message string `json:"message"`
}

type graphResponse struct {
	Data   map[string]any `json:"data"`
	Errors []graphError   `json:"errors"`
}

// GraphCall runs a GraphQL document. The response body is the "data" object.
func (c *Client) GraphCall(ctx context.Context, query string, variables map[string]any) (*protocol.CommerceResponse, error) {
	body, err := json.Marshal(graphRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to encode graphql request: %w", err)
	}

	status, raw, err := c.do(ctx, http.MethodPost, c.endpoint("graphql.json"), body)
	if err != nil {
		return nil, err
	}

	var decoded graphResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil && isSuccess(status) {
			return nil, fmt.Errorf("failed to decode graphql response: %w", err)
		}
	}

	response := &protocol.CommerceResponse{Body: decoded.Data}
	if response.Body == nil {
		response.Body = map[string]any{}
	}

	for _, graphErr := range decoded.Errors {
		response.Errors = append(response.Errors, graphErr.Message)
	}

	if !isSuccess(status) && len(response.Errors) == 0 {
		response.Errors = append(response.Errors, statusError(status, raw))
	}

	return response, nil
}

// RestCall sends params as the query string of GET and DELETE requests and as the JSON
// body otherwise. path is relative to the versioned Admin API root.
func (c *Client) RestCall(ctx context.Context, method, path string, params map[string]any) (*protocol.CommerceResponse, error) {
	method = strings.ToUpper(method)
	target := c.endpoint(strings.TrimLeft(path, "/"))

	var body []byte

	if method == http.MethodGet || method == http.MethodDelete {
		if len(params) > 0 {
			query := url.Values{}
			for key, value := range params {
				query.Set(key, fmt.Sprint(value))
			}

			target += "?" + query.Encode()
		}
	} else if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
		}

		body = encoded
	}

	status, raw, err := c.do(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	response := &protocol.CommerceResponse{Body: map[string]any{}}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &response.Body); err != nil && isSuccess(status) {
			return nil, fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
		}
	}

	response.Errors = restErrors(response.Body["errors"])

	if !isSuccess(status) && len(response.Errors) == 0 {
		response.Errors = append(response.Errors, statusError(status, raw))
	}

	return response, nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/admin/api/" + c.apiVersion + "/" + path
}

func (c *Client) do(ctx context.Context, method, target string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set(accessTokenHeader, c.accessToken)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, target, err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.DebugContext(ctx, "Admin API call", "method", method, "url", target, "status", resp.StatusCode)

	return resp.StatusCode, raw, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func statusError(status int, body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}

	if text == "" {
		return fmt.Sprintf("HTTP %d", status)
	}

	return fmt.Sprintf("HTTP %d: %s", status, text)
}

// restErrors flattens the "errors" member of a REST response, which is a string, a list
// or a map of field to messages.
func restErrors(value any) []string {
	switch typed := value.(type) {
	case nil:
		return nil
	case string:
		return []string{typed}
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			out = append(out, fmt.Sprint(item))
		}

		return out
	case map[string]any:
		out := make([]string, 0, len(typed))
		for field, messages := range typed {
			for _, message := range restErrors(messages) {
				out = append(out, field+" "+message)
			}
		}

		return out
	default:
		return []string{fmt.Sprint(typed)}
	}
}
