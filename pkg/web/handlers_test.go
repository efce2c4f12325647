package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/shopflow/pkg/dedup"
	"github.com/dukex/shopflow/pkg/events"
	"github.com/dukex/shopflow/pkg/metrics"
	"github.com/dukex/shopflow/pkg/mocks"
	"github.com/dukex/shopflow/pkg/models"
	"github.com/dukex/shopflow/pkg/outbound"
	"github.com/dukex/shopflow/pkg/persistence/file"
	"github.com/dukex/shopflow/pkg/registry"
	"github.com/dukex/shopflow/pkg/services"
	"github.com/dukex/shopflow/pkg/web"
)

type testEnv struct {
	app         *fiber.App
	bus         *mocks.MockEventBus
	persistence *file.Persistence
	metrics     *metrics.Metrics
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultActions(registry.Dependencies{
		Clients: &mocks.StaticClientProvider{},
		Mailer:  &mocks.MockMailer{},
		HTTP:    outbound.NewClient(logger),
	})

	persistence := file.NewPersistence(t.TempDir())
	workflowService := services.NewWorkflow(persistence, services.NewValidator(reg))
	bus := &mocks.MockEventBus{}
	m := metrics.New()

	handlers := web.NewAPIHandlers(logger, workflowService, bus, dedup.NewMemoryDeduplicator(time.Hour), m)

	app := fiber.New()
	app.Post("/events", handlers.ReceiveEvent)
	app.Get("/health", handlers.HealthCheck)

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Get("/:id/executions", handlers.GetWorkflowExecutions)

	e := app.Group("/executions")
	e.Get("/:id", handlers.GetExecution)
	e.Get("/:id/logs", handlers.GetExecutionLogs)

	return &testEnv{app: app, bus: bus, persistence: persistence, metrics: m}
}

func doRequest(t *testing.T, app *fiber.App, req *http.Request) (int, []byte) {
	t.Helper()

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, body
}

func eventRequest(shop, topic, eventID, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(web.HeaderShopDomain, shop)
	req.Header.Set(web.HeaderTopic, topic)

	if eventID != "" {
		req.Header.Set(web.HeaderEventID, eventID)
	}

	return req
}

func TestAPIHandlers_ReceiveEvent(t *testing.T) {
	env := setupTestApp(t)

	env.bus.On("Publish", mock.Anything, "demo.myshopify.com", mock.MatchedBy(func(e *events.CommerceEventReceived) bool {
		return e.Event.Topic == "orders/create" &&
			e.Event.ExternalEventID == "evt-1" &&
			e.Event.Payload["id"] == float64(42)
	})).Return(nil).Once()

	status, body := doRequest(t, env.app, eventRequest("demo.myshopify.com", "orders/create", "evt-1", `{"id": 42}`))
	require.Equal(t, http.StatusAccepted, status)

	var resp web.ReceiveEventResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, web.EventStatusAccepted, resp.Status)
	assert.NotEmpty(t, resp.ID)

	status, body = doRequest(t, env.app, eventRequest("DEMO.myshopify.com", "orders/create", "evt-1", `{"id": 42}`))
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, web.EventStatusDuplicate, resp.Status)

	env.bus.AssertExpectations(t)
}

func TestAPIHandlers_ReceiveEventWithoutID(t *testing.T) {
	env := setupTestApp(t)
	env.bus.On("Publish", mock.Anything, "demo.myshopify.com", mock.Anything).Return(nil).Twice()

	for range 2 {
		status, _ := doRequest(t, env.app, eventRequest("demo.myshopify.com", "customers/create", "", `{}`))
		assert.Equal(t, http.StatusAccepted, status)
	}

	env.bus.AssertExpectations(t)
}

func TestAPIHandlers_ReceiveEventRejected(t *testing.T) {
	tests := []struct {
		name string
		req  *http.Request
	}{
		{name: "invalid json", req: eventRequest("demo.myshopify.com", "orders/create", "", `{`)},
		{name: "null payload", req: eventRequest("demo.myshopify.com", "orders/create", "", `null`)},
		{name: "missing shop", req: eventRequest("", "orders/create", "", `{}`)},
		{name: "missing topic", req: eventRequest("demo.myshopify.com", "", "", `{}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestApp(t)

			status, body := doRequest(t, env.app, tt.req)

			assert.Equal(t, http.StatusBadRequest, status)
			assert.Contains(t, string(body), "validation_error")
			env.bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestAPIHandlers_ReceiveEventPublishFailure(t *testing.T) {
	env := setupTestApp(t)
	env.bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	status, body := doRequest(t, env.app, eventRequest("demo.myshopify.com", "orders/create", "evt-9", `{}`))

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "internal_error")
}

func TestAPIHandlers_ReceiveEventRetryAfterPublishFailure(t *testing.T) {
	env := setupTestApp(t)
	env.bus.On("Publish", mock.Anything, "demo.myshopify.com", mock.Anything).Return(errors.New("broker down")).Once()
	env.bus.On("Publish", mock.Anything, "demo.myshopify.com", mock.Anything).Return(nil).Once()

	status, _ := doRequest(t, env.app, eventRequest("demo.myshopify.com", "orders/create", "evt-9", `{}`))
	require.Equal(t, http.StatusInternalServerError, status)

	status, body := doRequest(t, env.app, eventRequest("demo.myshopify.com", "orders/create", "evt-9", `{}`))
	require.Equal(t, http.StatusAccepted, status, string(body))

	var resp web.ReceiveEventResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, web.EventStatusAccepted, resp.Status)

	status, body = doRequest(t, env.app, eventRequest("demo.myshopify.com", "orders/create", "evt-9", `{}`))
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, web.EventStatusDuplicate, resp.Status)

	env.bus.AssertNumberOfCalls(t, "Publish", 2)
}

func workflowBody() string {
	return `{
		"name": "Tag VIP customers",
		"shop_domain": "demo.myshopify.com",
		"active": true,
		"nodes": [
			{"id": "trigger", "type": "trigger", "settings": {"topic": "customers/create"}},
			{"id": "tag", "type": "action", "action_key": "add_customer_tag", "settings": {"form": {"tags": "vip"}}}
		],
		"edges": [{"id": "e1", "source_node_id": "trigger", "target_node_id": "tag"}]
	}`
}

func createWorkflow(t *testing.T, app *fiber.App, body string) (int, []byte) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/workflows", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	return doRequest(t, app, req)
}

func TestAPIHandlers_WorkflowLifecycle(t *testing.T) {
	env := setupTestApp(t)

	status, body := createWorkflow(t, env.app, workflowBody())
	require.Equal(t, http.StatusCreated, status, string(body))

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))
	require.NotEmpty(t, created.ID)

	status, body = doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/workflows/"+created.ID, nil))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "Tag VIP customers")

	status, body = doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/workflows?shop_domain=DEMO.myshopify.com", nil))
	require.Equal(t, http.StatusOK, status)

	var list struct {
		Workflows  []*models.Workflow `json:"workflows"`
		TotalCount int                `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.TotalCount)

	status, _ = doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/workflows?shop_domain=other.myshopify.com", nil))
	require.Equal(t, http.StatusOK, status)

	status, _ = doRequest(t, env.app, httptest.NewRequest(http.MethodDelete, "/workflows/"+created.ID, nil))
	assert.Equal(t, http.StatusNoContent, status)

	status, body = doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/workflows/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "workflow_not_found")
}

func TestAPIHandlers_CreateWorkflowInvalid(t *testing.T) {
	env := setupTestApp(t)

	status, body := createWorkflow(t, env.app, `{"name": "x"`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "Invalid JSON format")

	status, _ = createWorkflow(t, env.app, `{"name": "ab", "shop_domain": "demo.myshopify.com", "nodes": []}`)
	assert.Equal(t, http.StatusBadRequest, status)

	danglingEdge := `{
		"name": "Broken",
		"shop_domain": "demo.myshopify.com",
		"nodes": [{"id": "trigger", "type": "trigger", "settings": {"topic": "orders/create"}}],
		"edges": [{"id": "e1", "source_node_id": "trigger", "target_node_id": "missing"}]
	}`

	status, body = createWorkflow(t, env.app, danglingEdge)
	require.Equal(t, http.StatusBadRequest, status)

	var problem web.ValidationProblem
	require.NoError(t, json.Unmarshal(body, &problem))
	assert.Equal(t, "validation_error", problem.Type)
	assert.Equal(t, http.StatusBadRequest, problem.Status)
	require.Len(t, problem.Extensions.Problems, 1)
	assert.Equal(t, services.Problem{
		Field:   "edges[e1]",
		Message: `target node "missing" does not exist`,
	}, problem.Extensions.Problems[0])

	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	require.Contains(t, raw, "extensions")
	assert.Len(t, raw["extensions"].(map[string]any)["problems"], 1)
}

func TestAPIHandlers_ExecutionHistory(t *testing.T) {
	env := setupTestApp(t)
	ctx := context.Background()

	status, body := createWorkflow(t, env.app, workflowBody())
	require.Equal(t, http.StatusCreated, status)

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))

	executions := env.persistence.ExecutionRepository()
	require.NoError(t, executions.SaveExecution(ctx, &models.Execution{
		ID:         "exec-1",
		WorkflowID: created.ID,
		Event:      "customers/create",
		ShopDomain: "demo.myshopify.com",
		Status:     models.ExecutionStatusFailed,
		Error:      "Action failed",
		StartedAt:  time.Now().UTC(),
	}))

	for i, level := range []models.LogLevel{models.LogLevelInfo, models.LogLevelError} {
		require.NoError(t, executions.AppendExecutionLog(ctx, &models.ExecutionLog{
			ID:          "log-" + string(rune('a'+i)),
			ExecutionID: "exec-1",
			NodeID:      "tag",
			Level:       level,
			Message:     "entry " + string(level),
			CreatedAt:   time.Now().UTC(),
		}))
	}

	status, body = doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/workflows/"+created.ID+"/executions", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "exec-1")

	status, body = doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/executions/exec-1", nil))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"failed"`)

	status, body = doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/executions/exec-1/logs?level=error", nil))
	require.Equal(t, http.StatusOK, status)

	var logs struct {
		Logs       []*models.ExecutionLog `json:"logs"`
		TotalCount int                    `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &logs))
	require.Equal(t, 1, logs.TotalCount)
	assert.Equal(t, "entry error", logs.Logs[0].Message)

	status, body = doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/executions/missing", nil))
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, string(body), "execution_not_found")

	status, _ = doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/workflows/missing/executions", nil))
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	env := setupTestApp(t)

	status, body := doRequest(t, env.app, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"status":"healthy"`)
}
