// Package email sends a transactional email for the triggering event.
package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dukex/shopflow/pkg/actions/support"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/protocol"
	"github.com/dukex/shopflow/pkg/template"
)

// Recipient strategies.
const (
	StrategyCustom        = "custom"
	StrategyCustomerEmail = "customer_email"
	StrategyOrderEmail    = "order_email"
	StrategyShopEmail     = "shop_email"
)

const DefaultSubject = "Notification"

// ErrNoRecipient is returned when no address could be resolved. It wraps protocol.ErrContext.
var ErrNoRecipient = fmt.Errorf("no email recipient: %w", protocol.ErrContext)

// payload paths tried before searching the payload, per strategy
var recipientPaths = map[string][]string{
	StrategyCustomerEmail: {"customer.email", "email"},
	StrategyOrderEmail:    {"email", "contact_email", "customer.email"},
}

type Action struct {
	mailer protocol.Mailer
}

func NewAction(mailer protocol.Mailer) *Action {
	return &Action{mailer: mailer}
}

// MissMode makes unresolved variables in the recipient, subject and body render as empty text.
func (a *Action) MissMode() template.MissMode {
	return template.EmptyOnMiss
}

// Strategy returns the configured strategy, inferring it when unset.
func Strategy(settings map[string]any) string {
	if strategy := strings.ToLower(support.String(settings, "strategy")); strategy != "" {
		return strategy
	}

	if support.String(settings, "to") != "" {
		return StrategyCustom
	}

	return StrategyShopEmail
}

// ResolveRecipient returns the address the email goes to, or "" when none is found.
// settings must already be resolved against payload.
func ResolveRecipient(settings, payload map[string]any, ownerEmail string) string {
	strategy := Strategy(settings)

	switch strategy {
	case StrategyCustom:
		if to := support.String(settings, "to"); strings.TrimSpace(to) != "" {
			return strings.TrimSpace(to)
		}
	case StrategyCustomerEmail, StrategyOrderEmail:
		for _, path := range recipientPaths[strategy] {
			if value, ok := template.Lookup(payload, path); ok {
				if address, ok := value.(string); ok && template.IsEmail(address) {
					return strings.TrimSpace(address)
				}
			}
		}

		if address := template.FindEmail(payload); address != "" {
			return address
		}
	}

	return strings.TrimSpace(ownerEmail)
}

func (a *Action) Handle(ctx context.Context, node *models.Node, payload map[string]any, execCtx *protocol.ExecutionContext) error {
	settings := support.Settings(node)
	nodeID := support.NodeID(node)

	to := ResolveRecipient(settings, payload, execCtx.OwnerEmail())
	if to == "" {
		return ErrNoRecipient
	}

	subject := support.String(settings, "subject")
	if strings.TrimSpace(subject) == "" {
		subject = DefaultSubject
	}

	msg := protocol.MailMessage{
		To:          to,
		Subject:     subject,
		HTMLBody:    support.String(settings, "body"),
		FromAddress: support.String(settings, "from_address"),
		FromName:    support.String(settings, "from_name"),
	}

	if err := a.mailer.Send(ctx, msg); err != nil {
		execCtx.Log.Error(ctx, nodeID, "Failed to send email", map[string]any{"to": to, "error": err.Error()})

		return fmt.Errorf("send email to %s: %w", to, err)
	}

	execCtx.Log.Info(ctx, nodeID, "Email sent", map[string]any{"to": to, "subject": subject})

	return nil
}

// IsNoRecipient reports whether err means no recipient could be resolved.
func IsNoRecipient(err error) bool {
	return errors.Is(err, ErrNoRecipient)
}

func (a *Action) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"strategy": map[string]any{
				"type": "string",
				"enum": []string{"", StrategyCustom, StrategyCustomerEmail, StrategyOrderEmail, StrategyShopEmail},
			},
			"to":           map[string]any{"type": "string"},
			"subject":      map[string]any{"type": "string", "default": DefaultSubject},
			"body":         map[string]any{"type": "string", "description": "HTML body. Supports {{ }} variables."},
			"from_address": map[string]any{"type": "string"},
			"from_name":    map[string]any{"type": "string"},
		},
	}
}
