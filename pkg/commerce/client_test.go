package commerce

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/shopflow/pkg/protocol"
)

var discard = slog.New(slog.DiscardHandler)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Credentials{
		ShopDomain:  "demo.myshopify.com",
		AccessToken: "shpat_test",
		BaseURL:     server.URL,
	}, time.Second, discard)
}

func TestClient_GraphCall(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/admin/api/"+DefaultAPIVersion+"/graphql.json", r.URL.Path)
		assert.Equal(t, "shpat_test", r.Header.Get(accessTokenHeader))

		var req graphRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gid://shopify/Customer/1", req.Variables["id"])

		_, _ = w.Write([]byte(`{"data":{"customer":{"tags":["vip"]}}}`))
	})

	resp, err := client.GraphCall(context.Background(), "query { customer }", map[string]any{"id": "gid://shopify/Customer/1"})
	require.NoError(t, err)

	assert.False(t, resp.HasErrors())
	assert.Equal(t, []any{"vip"}, resp.Body["customer"].(map[string]any)["tags"])
}

func TestClient_GraphCallErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected []string
	}{
		{name: "graphql errors", status: http.StatusOK, body: `{"errors":[{"message":"Throttled"}]}`, expected: []string{"Throttled"}},
		{name: "http error", status: http.StatusUnauthorized, body: `Invalid token`, expected: []string{"HTTP 401: Invalid token"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := client.GraphCall(context.Background(), "query { shop }", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, resp.Errors)
		})
	}
}

func TestClient_RestCall(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			assert.Equal(t, "/admin/api/"+DefaultAPIVersion+"/orders/9.json", r.URL.Path)

			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"order":{"id":"9","tags":"a, b"}}`, string(body))

			_, _ = w.Write([]byte(`{"order":{"id":9,"tags":"a, b"}}`))
		case http.MethodGet:
			assert.Equal(t, "open", r.URL.Query().Get("status"))

			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"errors":{"status":["is invalid"]}}`))
		}
	})

	resp, err := client.RestCall(context.Background(), "put", "/orders/9.json", map[string]any{
		"order": map[string]any{"id": "9", "tags": "a, b"},
	})
	require.NoError(t, err)
	assert.False(t, resp.HasErrors())
	assert.Equal(t, "a, b", resp.Body["order"].(map[string]any)["tags"])

	resp, err = client.RestCall(context.Background(), http.MethodGet, "orders.json", map[string]any{"status": "open"})
	require.NoError(t, err)
	assert.Equal(t, "status is invalid", resp.ErrorMessage())
}

func TestClient_TransportError(t *testing.T) {
	client := NewClient(Credentials{ShopDomain: "demo", AccessToken: "x", BaseURL: "http://127.0.0.1:1"}, time.Second, discard)

	_, err := client.GraphCall(context.Background(), "query { shop }", nil)
	assert.Error(t, err)
}

func TestProvider_ClientFor(t *testing.T) {
	provider := NewProvider([]Credentials{
		{ShopDomain: "Demo.myshopify.com", AccessToken: "token"},
		{ShopDomain: "notoken.myshopify.com"},
	}, 0, discard)

	first, err := provider.ClientFor(context.Background(), "demo.myshopify.com")
	require.NoError(t, err)

	second, err := provider.ClientFor(context.Background(), "DEMO.myshopify.com")
	require.NoError(t, err)
	assert.Same(t, first, second)

	for _, shop := range []string{"", "unknown.myshopify.com", "notoken.myshopify.com"} {
		_, err := provider.ClientFor(context.Background(), shop)
		assert.ErrorIs(t, err, protocol.ErrContext, shop)
	}
}

func TestLoadCredentialsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shops.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"shop_domain":"demo.myshopify.com","access_token":"t","api_version":"2025-01"}]`), 0600))

	creds, err := LoadCredentialsFile(path)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "2025-01", creds[0].APIVersion)

	_, err = LoadCredentialsFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
