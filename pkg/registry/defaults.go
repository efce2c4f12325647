package registry

import (
	"github.com/dukex/shopflow/pkg/actions/cancelorder"
	"github.com/dukex/shopflow/pkg/actions/email"
	"github.com/dukex/shopflow/pkg/actions/httprequest"
	logaction "github.com/dukex/shopflow/pkg/actions/log"
	"github.com/dukex/shopflow/pkg/actions/support"
	"github.com/dukex/shopflow/pkg/actions/tags"
	"github.com/dukex/shopflow/pkg/actions/webhook"
	"github.com/dukex/shopflow/pkg/protocol"
)

// Variant names reported by Registry.Variant.
const (
	VariantCustomerTags = "tags:customer"
	VariantOrderTags    = "tags:order"
	VariantProductTags  = "tags:product"
	VariantGenericTags  = "tags:generic"
	VariantCancelOrder  = "cancelorder"
	VariantWebhook      = "webhook"
	VariantHTTPRequest  = "httprequest"
	VariantEmail        = "email"
	VariantLog          = "log"
	VariantCustom       = "custom"
)

// Dependencies are the collaborators the built-in actions need.
type Dependencies struct {
	Clients protocol.ClientProvider
	Mailer  protocol.Mailer
	HTTP    protocol.HTTPDoer
}

// DefaultAction is one row of the built-in action table.
type DefaultAction struct {
	Key     string
	Variant string
	build   func(deps Dependencies) protocol.Action
}

func tagAction(resource support.ResourceType, operation tags.Operation) func(Dependencies) protocol.Action {
	return func(deps Dependencies) protocol.Action {
		return tags.NewAction(resource, operation, deps.Clients)
	}
}

func genericTagAction(operation tags.Operation) func(Dependencies) protocol.Action {
	return func(deps Dependencies) protocol.Action {
		return tags.NewGenericAction(operation, deps.Clients)
	}
}

// DefaultActions is the built-in key to variant table.
var DefaultActions = []DefaultAction{
	{Key: "add_customer_tag", Variant: VariantCustomerTags, build: tagAction(support.ResourceCustomer, tags.OperationAdd)},
	{Key: "remove_customer_tag", Variant: VariantCustomerTags, build: tagAction(support.ResourceCustomer, tags.OperationRemove)},
	{Key: "add_order_tag", Variant: VariantOrderTags, build: tagAction(support.ResourceOrder, tags.OperationAdd)},
	{Key: "remove_order_tag", Variant: VariantOrderTags, build: tagAction(support.ResourceOrder, tags.OperationRemove)},
	{Key: "add_product_tag", Variant: VariantProductTags, build: tagAction(support.ResourceProduct, tags.OperationAdd)},
	{Key: "remove_product_tag", Variant: VariantProductTags, build: tagAction(support.ResourceProduct, tags.OperationRemove)},
	{Key: "add_tag", Variant: VariantGenericTags, build: genericTagAction(tags.OperationAdd)},
	{Key: "remove_tag", Variant: VariantGenericTags, build: genericTagAction(tags.OperationRemove)},
	{Key: "cancel_order", Variant: VariantCancelOrder, build: func(deps Dependencies) protocol.Action {
		return cancelorder.NewAction(deps.Clients)
	}},
	{Key: "send_webhook", Variant: VariantWebhook, build: func(deps Dependencies) protocol.Action {
		return webhook.NewAction(deps.HTTP)
	}},
	{Key: "http_request", Variant: VariantHTTPRequest, build: func(deps Dependencies) protocol.Action {
		return httprequest.NewAction(deps.HTTP)
	}},
	{Key: "send_email", Variant: VariantEmail, build: func(deps Dependencies) protocol.Action {
		return email.NewAction(deps.Mailer)
	}},
	{Key: "log_message", Variant: VariantLog, build: func(_ Dependencies) protocol.Action {
		return logaction.NewAction()
	}},
}

// RegisterDefaultActions installs every built-in action.
func (r *Registry) RegisterDefaultActions(deps Dependencies) {
	for _, entry := range DefaultActions {
		r.register(entry.Key, entry.Variant, entry.build(deps))
	}

	r.logger.Info("Registered default actions", "count", len(DefaultActions))
}
