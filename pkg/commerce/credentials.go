package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dukex/shopflow/pkg/protocol"
)

// Credentials grant Admin API access to one shop.
type Credentials struct {
	ShopDomain  string `json:"shop_domain"`
	AccessToken string `json:"access_token"`
	APIVersion  string `json:"api_version,omitempty"`
	// BaseURL overrides https://<shop_domain>.
	BaseURL string `json:"base_url,omitempty"`
}

// Provider hands out one cached Client per shop with known credentials.
type Provider struct {
	timeout time.Duration
	logger  *slog.Logger

	mu          sync.Mutex
	credentials map[string]Credentials
	clients     map[string]*Client
}

func NewProvider(credentials []Credentials, timeout time.Duration, logger *slog.Logger) *Provider {
	provider := &Provider{
		timeout:     timeout,
		logger:      logger,
		credentials: make(map[string]Credentials, len(credentials)),
		clients:     make(map[string]*Client),
	}

	for _, creds := range credentials {
		provider.credentials[strings.ToLower(creds.ShopDomain)] = creds
	}

	return provider
}

// LoadCredentialsFile reads a JSON array of Credentials.
func LoadCredentialsFile(path string) ([]Credentials, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var credentials []Credentials
	if err := json.Unmarshal(body, &credentials); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}

	return credentials, nil
}

// ClientFor returns the client of shopDomain, or a context error when the shop is unknown.
func (p *Provider) ClientFor(_ context.Context, shopDomain string) (protocol.CommerceClient, error) {
	if shopDomain == "" {
		return nil, protocol.NewContextError("execution has no shop", nil)
	}

	shop := strings.ToLower(shopDomain)

	p.mu.Lock()
	defer p.mu.Unlock()

	if client, ok := p.clients[shop]; ok {
		return client, nil
	}

	creds, ok := p.credentials[shop]
	if !ok || creds.AccessToken == "" {
		return nil, protocol.NewContextError("no API credentials for shop "+shopDomain, nil)
	}

	client := NewClient(creds, p.timeout, p.logger)
	p.clients[shop] = client

	return client, nil
}
