package protocol

import (
	"context"
	"strings"
)

// CommerceResponse is the result of one call to the commerce platform API.
// A non empty Errors list is a per call failure, not a transport error.
type CommerceResponse struct {
	Errors []string       `json:"errors,omitempty"`
	Body   map[string]any `json:"body,omitempty"`
}

// HasErrors reports whether the platform rejected the call.
func (r *CommerceResponse) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

// ErrorMessage joins the reported errors.
func (r *CommerceResponse) ErrorMessage() string {
	if r == nil {
		return ""
	}

	return strings.Join(r.Errors, "; ")
}

// CommerceClient reaches the commerce platform API of one shop.
type CommerceClient interface {
	GraphCall(ctx context.Context, query string, variables map[string]any) (*CommerceResponse, error)
	RestCall(ctx context.Context, method, path string, params map[string]any) (*CommerceResponse, error)
}

// ClientProvider returns the API client of a shop.
// It fails with an error wrapping ErrContext when the shop cannot be resolved.
type ClientProvider interface {
	ClientFor(ctx context.Context, shopDomain string) (CommerceClient, error)
}
