package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/shopflow/pkg/execlog"
	"github.com/dukex/shopflow/pkg/mocks"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/outbound"
	"github.com/dukex/shopflow/pkg/protocol"
	"github.com/dukex/shopflow/pkg/registry"
	"github.com/dukex/shopflow/pkg/testutil"
)

var discard = slog.New(slog.DiscardHandler)

func newTestExecutor(t *testing.T, deps registry.Dependencies) (*Executor, *registry.Registry, *execlog.MemoryStore) {
	t.Helper()

	if deps.HTTP == nil {
		deps.HTTP = outbound.NewClient(discard)
	}

	if deps.Clients == nil {
		deps.Clients = &mocks.StaticClientProvider{Client: &mocks.MockCommerceClient{}}
	}

	if deps.Mailer == nil {
		deps.Mailer = &mocks.MockMailer{}
	}

	reg := registry.NewRegistry(discard)
	reg.RegisterDefaultActions(deps)

	store := execlog.NewMemoryStore()

	return NewExecutor(store, reg, WithLogger(discard)), reg, store
}

func event(topic string, payload map[string]any) models.Event {
	return models.Event{Topic: topic, ShopDomain: testutil.TestShopDomain, ExternalEventID: "evt-1", Payload: payload}
}

func messages(entries []*models.ExecutionLog) []string {
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Message)
	}

	return out
}

func TestExecute_AddCustomerTag(t *testing.T) {
	client := &mocks.MockCommerceClient{}
	gid := "gid://shopify/Customer/123"

	client.On("GraphCall", mock.Anything, mock.MatchedBy(func(q string) bool {
		return strings.HasPrefix(q, "query resourceTags")
	}), map[string]any{"id": gid}).
		Return(&protocol.CommerceResponse{Body: map[string]any{"customer": map[string]any{"tags": []any{}}}}, nil)
	client.On("GraphCall", mock.Anything, mock.MatchedBy(func(q string) bool {
		return strings.Contains(q, "tagsAdd")
	}), map[string]any{"id": gid, "tags": []string{"vip"}}).
		Return(&protocol.CommerceResponse{Body: map[string]any{"tagsAdd": map[string]any{"userErrors": []any{}}}}, nil)

	executor, _, store := newTestExecutor(t, registry.Dependencies{Clients: &mocks.StaticClientProvider{Client: client}})

	trigger := testutil.CreateTestNode(testutil.WithID("trigger"), testutil.WithTrigger("customers/create"))
	tag := testutil.CreateTestNode(testutil.WithID("tag"), testutil.WithAction("add_customer_tag", map[string]any{"tag": "vip"}))
	wf := testutil.CreateTestWorkflow(trigger, tag)
	testutil.Connect(wf, "trigger", "tag", "")

	execution, err := executor.Execute(context.Background(), wf, trigger,
		event("customers/create", map[string]any{"customer": map[string]any{"id": float64(123)}}))
	require.NoError(t, err)

	client.AssertExpectations(t)
	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
	assert.NotNil(t, execution.FinishedAt)

	entries := store.Entries(execution.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LogLevelInfo, entries[0].Level)
	assert.Equal(t, "Successfully added tags to customer", entries[0].Message)

	saved, ok := store.Execution(execution.ID)
	require.True(t, ok)
	assert.Equal(t, models.ExecutionStatusSuccess, saved.Status)
	assert.Equal(t, "evt-1", saved.ExternalEventID)
}

func TestExecute_RemoveOrderTagWithoutOverlap(t *testing.T) {
	client := &mocks.MockCommerceClient{}
	client.On("GraphCall", mock.Anything, mock.Anything, map[string]any{"id": "gid://shopify/Order/77"}).
		Return(&protocol.CommerceResponse{Body: map[string]any{"order": map[string]any{"tags": "a, b"}}}, nil)

	executor, _, store := newTestExecutor(t, registry.Dependencies{Clients: &mocks.StaticClientProvider{Client: client}})

	trigger := testutil.CreateTestNode(testutil.WithID("trigger"), testutil.WithTrigger("orders/updated"))
	untag := testutil.CreateTestNode(testutil.WithID("untag"), testutil.WithAction("remove_order_tag", map[string]any{"tag": "c"}))
	wf := testutil.CreateTestWorkflow(trigger, untag)
	testutil.Connect(wf, "trigger", "untag", "")

	execution, err := executor.Execute(context.Background(), wf, trigger, event("orders/updated", map[string]any{"id": float64(77)}))
	require.NoError(t, err)

	client.AssertNotCalled(t, "RestCall", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
	assert.Equal(t, []string{"Tags not found on order. Skipping update."}, messages(store.Entries(execution.ID)))
}

func TestExecute_EmailWithoutRecipientFails(t *testing.T) {
	mailer := &mocks.MockMailer{}
	executor, _, store := newTestExecutor(t, registry.Dependencies{Mailer: mailer})

	trigger := testutil.CreateTestNode(testutil.WithID("trigger"), testutil.WithTrigger("orders/create"))
	mail := testutil.CreateTestNode(testutil.WithID("mail"), testutil.WithAction("send_email", map[string]any{
		"strategy": "custom",
		"to":       "",
		"subject":  "Hello",
	}))
	wf := testutil.CreateTestWorkflow(trigger, mail)
	wf.OwnerEmail = ""
	testutil.Connect(wf, "trigger", "mail", "")

	execution, err := executor.Execute(context.Background(), wf, trigger, event("orders/create", map[string]any{"id": float64(1)}))
	require.NoError(t, err)

	mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.Error, "no email recipient")
	assert.NotEmpty(t, store.ByLevel(execution.ID, models.LogLevelError))
}

func TestExecute_UnreachableWebhookStillSucceeds(t *testing.T) {
	executor, _, store := newTestExecutor(t, registry.Dependencies{})

	trigger := testutil.CreateTestNode(testutil.WithID("trigger"), testutil.WithTrigger("orders/create"))
	hook := testutil.CreateTestNode(testutil.WithID("hook"), testutil.WithAction("send_webhook", map[string]any{"url": "http://127.0.0.1:1/hook"}))
	wf := testutil.CreateTestWorkflow(trigger, hook)
	testutil.Connect(wf, "trigger", "hook", "")

	execution, err := executor.Execute(context.Background(), wf, trigger, event("orders/create", map[string]any{"id": float64(1)}))
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)

	errorsLogged := store.ByLevel(execution.ID, models.LogLevelError)
	require.Len(t, errorsLogged, 1)
	assert.Equal(t, "Webhook request failed", errorsLogged[0].Message)
	assert.NotEmpty(t, errorsLogged[0].Data["error"])
}

func TestExecute_CycleGuard(t *testing.T) {
	executor, _, store := newTestExecutor(t, registry.Dependencies{})

	trigger := testutil.CreateTestNode(testutil.WithID("trigger"), testutil.WithTrigger("orders/create"))
	first := testutil.CreateTestNode(testutil.WithID("first"), testutil.WithAction("log_message", map[string]any{"message": "first"}))
	second := testutil.CreateTestNode(testutil.WithID("second"), testutil.WithAction("log_message", map[string]any{"message": "second"}))
	wf := testutil.CreateTestWorkflow(trigger, first, second)
	testutil.Connect(wf, "trigger", "first", "")
	testutil.Connect(wf, "first", "second", "")
	testutil.Connect(wf, "second", "first", "")

	execution, err := executor.Execute(context.Background(), wf, trigger, event("orders/create", nil))
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
	assert.Equal(t, []string{"first", "second", "Node already visited in this execution, stopping branch"},
		messages(store.Entries(execution.ID)))
}

func TestExecute_ConditionBranches(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]any
		expected []string
	}{
		{name: "true branch", payload: map[string]any{"total_price": "150.00"}, expected: []string{"big order 150.00"}},
		{name: "false branch", payload: map[string]any{"total_price": "20.00"}, expected: []string{"small order"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor, _, store := newTestExecutor(t, registry.Dependencies{})

			trigger := testutil.CreateTestNode(testutil.WithID("trigger"), testutil.WithTrigger("orders/create"))
			check := testutil.CreateTestNode(testutil.WithID("check"), testutil.WithCondition(map[string]any{
				"field": "total_price", "operator": "greater_than", "value": "100",
			}))
			big := testutil.CreateTestNode(testutil.WithID("big"), testutil.WithAction("log_message", map[string]any{"message": "big order {{total_price}}"}))
			small := testutil.CreateTestNode(testutil.WithID("small"), testutil.WithAction("log_message", map[string]any{"message": "small order"}))
			wf := testutil.CreateTestWorkflow(trigger, check, big, small)
			testutil.Connect(wf, "trigger", "check", "")
			testutil.Connect(wf, "check", "big", models.EdgeLabelTrue)
			testutil.Connect(wf, "check", "small", models.EdgeLabelFalse)

			execution, err := executor.Execute(context.Background(), wf, trigger, event("orders/create", tt.payload))
			require.NoError(t, err)

			assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
			assert.Equal(t, tt.expected, messages(store.Entries(execution.ID)))
		})
	}
}

func TestExecute_ConditionWithoutMatchingEdge(t *testing.T) {
	executor, _, store := newTestExecutor(t, registry.Dependencies{})

	trigger := testutil.CreateTestNode(testutil.WithID("trigger"), testutil.WithTrigger("orders/create"))
	check := testutil.CreateTestNode(testutil.WithID("check"), testutil.WithCondition(map[string]any{"expression": "false"}))
	wf := testutil.CreateTestWorkflow(trigger, check)
	testutil.Connect(wf, "trigger", "check", "")

	execution, err := executor.Execute(context.Background(), wf, trigger, event("orders/create", nil))
	require.NoError(t, err)

	entries := store.Entries(execution.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LogLevelInfo, entries[0].Level)
	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
}

func TestExecute_ConfigurationFailuresAreNotFatal(t *testing.T) {
	executor, _, store := newTestExecutor(t, registry.Dependencies{})

	trigger := testutil.CreateTestNode(testutil.WithID("trigger"), testutil.WithTrigger("orders/create"))
	unknown := testutil.CreateTestNode(testutil.WithID("unknown"), testutil.WithAction("does_not_exist", nil))
	stop := testutil.CreateTestNode(testutil.WithID("stop"), testutil.WithStopper())
	after := testutil.CreateTestNode(testutil.WithID("after"), testutil.WithAction("log_message", map[string]any{"message": "never"}))
	wf := testutil.CreateTestWorkflow(trigger, unknown, stop, after)
	testutil.Connect(wf, "trigger", "unknown", "")
	testutil.Connect(wf, "trigger", "ghost", "")
	testutil.Connect(wf, "trigger", "stop", "")
	testutil.Connect(wf, "unknown", "after", "")
	testutil.Connect(wf, "stop", "after", "")

	execution, err := executor.Execute(context.Background(), wf, trigger, event("orders/create", nil))
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
	assert.Equal(t, []string{
		"Unknown action",
		"Edge points to a node that does not exist",
		"Stopper reached, branch finished",
	}, messages(store.Entries(execution.ID)))
}

type panickingAction struct{}

func (panickingAction) Handle(context.Context, *models.Node, map[string]any, *protocol.ExecutionContext) error {
	panic("kaboom")
}

func (panickingAction) Schema() map[string]any { return map[string]any{"type": "object"} }

type failingAction struct{}

func (failingAction) Handle(context.Context, *models.Node, map[string]any, *protocol.ExecutionContext) error {
	return protocol.NewContextError("shop credentials missing", nil)
}

func (failingAction) Schema() map[string]any { return map[string]any{"type": "object"} }

func TestExecute_FatalBranchDoesNotStopOthers(t *testing.T) {
	executor, reg, store := newTestExecutor(t, registry.Dependencies{})
	reg.RegisterAction("explode", panickingAction{})
	reg.RegisterAction("fail", failingAction{})

	trigger := testutil.CreateTestNode(testutil.WithID("trigger"), testutil.WithTrigger("orders/create"))
	explode := testutil.CreateTestNode(testutil.WithID("explode"), testutil.WithAction("explode", nil))
	fail := testutil.CreateTestNode(testutil.WithID("fail"), testutil.WithAction("fail", nil))
	ok := testutil.CreateTestNode(testutil.WithID("ok"), testutil.WithAction("log_message", map[string]any{"message": "still running"}))
	wf := testutil.CreateTestWorkflow(trigger, explode, fail, ok)
	testutil.Connect(wf, "trigger", "explode", "")
	testutil.Connect(wf, "trigger", "fail", "")
	testutil.Connect(wf, "trigger", "ok", "")

	execution, err := executor.Execute(context.Background(), wf, trigger, event("orders/create", nil))
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusFailed, execution.Status)
	assert.Contains(t, execution.Error, "kaboom")
	assert.Contains(t, messages(store.Entries(execution.ID)), "still running")
	assert.Len(t, store.ByLevel(execution.ID, models.LogLevelError), 2)
}

func TestExecute_SettingsResolvedFromFormAndPayload(t *testing.T) {
	executor, _, store := newTestExecutor(t, registry.Dependencies{})

	trigger := testutil.CreateTestNode(testutil.WithID("trigger"), testutil.WithTrigger("orders/create"))
	say := testutil.CreateTestNode(testutil.WithID("say"), testutil.WithAction("log_message", map[string]any{
		"message": "top level",
		"form":    map[string]any{"message": "Order {{name}} for {{customer.email}} {{missing}}"},
	}))
	wf := testutil.CreateTestWorkflow(trigger, say)
	testutil.Connect(wf, "trigger", "say", "")

	execution, err := executor.Execute(context.Background(), wf, trigger, event("orders/create", map[string]any{
		"name":     "#1001",
		"customer": map[string]any{"email": "jane@example.com"},
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"Order #1001 for jane@example.com {{missing}}"}, messages(store.Entries(execution.ID)))
}

func TestExecute_PayloadValuesAreNotResolvedAgain(t *testing.T) {
	executor, _, store := newTestExecutor(t, registry.Dependencies{})

	trigger := testutil.CreateTestNode(testutil.WithID("trigger"), testutil.WithTrigger("orders/create"))
	say := testutil.CreateTestNode(testutil.WithID("say"), testutil.WithAction("log_message", map[string]any{
		"message": "Note: {{ note }}",
	}))
	wf := testutil.CreateTestWorkflow(trigger, say)
	testutil.Connect(wf, "trigger", "say", "")

	execution, err := executor.Execute(context.Background(), wf, trigger, event("orders/create", map[string]any{
		"note":   "{{ secret }}",
		"secret": "S3CR3T",
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{"Note: {{ secret }}"}, messages(store.Entries(execution.ID)))
}

func TestExecute_EmailSettingsEmptyOnMiss(t *testing.T) {
	mailer := &mocks.MockMailer{}
	mailer.On("Send", mock.Anything, protocol.MailMessage{
		To:       "buyer@x.example",
		Subject:  "Order 12 {{ secret }}",
		HTMLBody: "<p>Hi Ada, </p>",
	}).Return(nil)

	executor, _, _ := newTestExecutor(t, registry.Dependencies{Mailer: mailer})

	trigger := testutil.CreateTestNode(testutil.WithID("trigger"), testutil.WithTrigger("orders/create"))
	send := testutil.CreateTestNode(testutil.WithID("send"), testutil.WithAction("send_email", map[string]any{
		"to":      "{{ email }}",
		"subject": "Order {{ id }} {{ note }}",
		"body":    "<p>Hi {{ customer.first_name }}, {{ customer.nickname }}</p>",
	}))
	wf := testutil.CreateTestWorkflow(trigger, send)
	testutil.Connect(wf, "trigger", "send", "")

	execution, err := executor.Execute(context.Background(), wf, trigger, event("orders/create", map[string]any{
		"id":       float64(12),
		"email":    "buyer@x.example",
		"note":     "{{ secret }}",
		"secret":   "S3CR3T",
		"customer": map[string]any{"first_name": "Ada"},
	}))
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusSuccess, execution.Status)
	mailer.AssertExpectations(t)
}

func TestExecute_InvalidStart(t *testing.T) {
	executor, _, _ := newTestExecutor(t, registry.Dependencies{})

	action := testutil.CreateTestNode()
	wf := testutil.CreateTestWorkflow(action)

	_, err := executor.Execute(context.Background(), wf, action, event("orders/create", nil))
	require.ErrorIs(t, err, ErrInvalidStartNode)

	_, err = executor.Execute(context.Background(), nil, action, event("orders/create", nil))
	require.ErrorIs(t, err, ErrNilWorkflow)
}

type failingStore struct {
	*execlog.MemoryStore
}

func (failingStore) SaveExecution(context.Context, *models.Execution) error {
	return errors.New("database unavailable")
}

func TestExecute_StoreFailure(t *testing.T) {
	reg := registry.NewRegistry(discard)
	executor := NewExecutor(failingStore{execlog.NewMemoryStore()}, reg, WithLogger(discard))

	trigger := testutil.CreateTestNode(testutil.WithTrigger("orders/create"))
	wf := testutil.CreateTestWorkflow(trigger)

	execution, err := executor.Execute(context.Background(), wf, trigger, event("orders/create", nil))
	require.Error(t, err)
	assert.Nil(t, execution)
}

func TestNodeError(t *testing.T) {
	cause := protocol.NewContextError("no shop", nil)
	err := &NodeError{NodeID: "n1", ActionKey: "add_tag", Err: cause}

	assert.Equal(t, "node n1 (add_tag): "+cause.Error(), err.Error())
	assert.ErrorIs(t, err, protocol.ErrContext)
}
