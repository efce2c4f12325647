package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dukex/shopflow/pkg/protocol"
)

// MockCommerceClient is a mock implementation of protocol.CommerceClient interface.
type MockCommerceClient struct {
	mock.Mock
}

func (m *MockCommerceClient) GraphCall(ctx context.Context, query string, variables map[string]any) (*protocol.CommerceResponse, error) {
	args := m.Called(ctx, query, variables)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.CommerceResponse), args.Error(1)
}

func (m *MockCommerceClient) RestCall(ctx context.Context, method, path string, params map[string]any) (*protocol.CommerceResponse, error) {
	args := m.Called(ctx, method, path, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*protocol.CommerceResponse), args.Error(1)
}

// StaticClientProvider hands out the same client for every shop, or Err when set.
type StaticClientProvider struct {
	Client protocol.CommerceClient
	Err    error
}

func (p *StaticClientProvider) ClientFor(_ context.Context, _ string) (protocol.CommerceClient, error) {
	if p.Err != nil {
		return nil, p.Err
	}

	return p.Client, nil
}

// MockMailer is a mock implementation of protocol.Mailer interface.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg protocol.MailMessage) error {
	args := m.Called(ctx, msg)

	return args.Error(0)
}
