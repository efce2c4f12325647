package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/shopflow/pkg/channels/gochannel"
	"github.com/dukex/shopflow/pkg/events"
	"github.com/dukex/shopflow/pkg/models"
)

func newTestBus(t *testing.T) *WatermillEventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := NewWatermillEventBus(pub, sub, slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = bus.Close() })

	return bus
}

func TestWatermillEventBus_PublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus := newTestBus(t)
	received := make(chan *events.CommerceEventReceived, 1)

	require.NoError(t, bus.Handle(events.CommerceEventReceivedEvent, func(_ context.Context, event any) error {
		received <- event.(*events.CommerceEventReceived)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	sent := events.NewCommerceEventReceived(models.Event{
		Topic:      "orders/create",
		ShopDomain: "demo.myshopify.com",
		Payload:    map[string]any{"id": float64(42)},
	})
	require.NoError(t, bus.Publish(ctx, sent.ShopDomain, sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, "orders/create", got.Event.Topic)
		assert.InDelta(t, 42, got.Event.Payload["id"], 0)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestWatermillEventBus_UnhandledTypesAreAcked(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus := newTestBus(t)
	failed := make(chan *events.ExecutionFailed, 1)

	require.NoError(t, bus.Handle(events.ExecutionFailedEvent, func(_ context.Context, event any) error {
		failed <- event.(*events.ExecutionFailed)

		return nil
	}))
	require.NoError(t, bus.Subscribe(ctx))

	finished := events.NewExecutionOutcome(&models.Execution{ID: "ok", Status: models.ExecutionStatusSuccess})
	require.NoError(t, bus.Publish(ctx, "k", finished.(Event)))

	failure := events.NewExecutionOutcome(&models.Execution{ID: "bad", Status: models.ExecutionStatusFailed, Error: "boom"})
	require.NoError(t, bus.Publish(ctx, "k", failure.(Event)))

	select {
	case got := <-failed:
		assert.Equal(t, "bad", got.ExecutionID)
	case <-ctx.Done():
		t.Fatal("failure event was not delivered")
	}
}

type brokenEvent struct{}

func (brokenEvent) GetType() events.EventType { return "broken" }

func (brokenEvent) MarshalJSON() ([]byte, error) { return nil, errors.New("cannot encode") }

func TestWatermillEventBus_PublishEncodeError(t *testing.T) {
	bus := newTestBus(t)

	assert.Error(t, bus.Publish(context.Background(), "k", brokenEvent{}))
}
