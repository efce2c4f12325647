package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/shopflow/pkg/commerce"
	"github.com/dukex/shopflow/pkg/mail"
	"github.com/dukex/shopflow/pkg/outbound"
	"github.com/dukex/shopflow/pkg/registry"
)

// RegistryConfig carries what the built-in actions need to reach shops, mail and the web.
type RegistryConfig struct {
	CredentialsFile string
	APITimeout      time.Duration
	Mail            mail.Config
}

// NewRegistry builds the registry with every built-in action bound to real transports.
func NewRegistry(logger *slog.Logger, config RegistryConfig) (*registry.Registry, error) {
	var credentials []commerce.Credentials

	if config.CredentialsFile != "" {
		loaded, err := commerce.LoadCredentialsFile(config.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load shop credentials: %w", err)
		}

		credentials = loaded
	} else {
		logger.Warn("No shop credentials file configured, commerce actions will fail")
	}

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultActions(registry.Dependencies{
		Clients: commerce.NewProvider(credentials, config.APITimeout, logger),
		Mailer:  mail.NewMailer(config.Mail, logger),
		HTTP:    outbound.NewClient(logger),
	})

	return reg, nil
}
