package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/shopflow/pkg/channels/gochannel"
	"github.com/dukex/shopflow/pkg/dedup"
	"github.com/dukex/shopflow/pkg/eventbus"
	"github.com/dukex/shopflow/pkg/events"
	"github.com/dukex/shopflow/pkg/metrics"
	"github.com/dukex/shopflow/pkg/persistence/file"
	"github.com/dukex/shopflow/pkg/web"
)

func setupTestApp(t *testing.T) (*fiber.App, eventbus.EventBus) {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub, logger)
	t.Cleanup(func() { _ = bus.Close() })

	api := NewAPI(
		logger,
		file.NewPersistence(t.TempDir()),
		bus,
		dedup.NewMemoryDeduplicator(time.Hour),
		metrics.New(),
	)

	return api.App(), bus
}

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, string(body)
}

func TestAPI_RootEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := get(t, app, "/")

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Shopflow API", body)
}

func TestAPI_HealthEndpoints(t *testing.T) {
	app, _ := setupTestApp(t)

	for _, path := range []string{"/livez", "/readyz", "/health"} {
		status, _ := get(t, app, path)
		assert.Equal(t, http.StatusOK, status, path)
	}
}

func TestAPI_GetWorkflows_Empty(t *testing.T) {
	app, _ := setupTestApp(t)

	status, body := get(t, app, "/workflows")

	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"workflows": [], "total_count": 0}`, body)
}

func TestAPI_EventIsPublishedAndCounted(t *testing.T) {
	app, bus := setupTestApp(t)

	received := make(chan *events.CommerceEventReceived, 1)
	require.NoError(t, bus.Handle(events.CommerceEventReceivedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.CommerceEventReceived)

		return nil
	}))
	require.NoError(t, bus.Subscribe(t.Context()))

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(`{"id": 7, "email": "ana@example.com"}`))
	req.Header.Set(web.HeaderShopDomain, "demo.myshopify.com")
	req.Header.Set(web.HeaderTopic, "customers/create")
	req.Header.Set(web.HeaderEventID, "evt-7")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	select {
	case event := <-received:
		assert.Equal(t, "customers/create", event.Event.Topic)
		assert.Equal(t, "evt-7", event.Event.ExternalEventID)
		assert.Equal(t, "ana@example.com", event.Event.Payload["email"])
	case <-time.After(5 * time.Second):
		t.Fatal("event was not published")
	}

	status, body := get(t, app, "/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `shopflow_events_total{status="success",topic="customers/create"} 1`)
}
