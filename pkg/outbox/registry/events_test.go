package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func TestResolveDecodesTypedPayloads(t *testing.T) {
	reg := ordersRegistry(t)
	orderID := uuid.New()
	expiredAt := time.Date(2026, 3, 4, 5, 6, 0, 0, time.UTC)

	order, err := reg.Resolve(row(t, enums.EventOrderCreated, enums.AggregateOrder, orderID, payloads.OrderCreatedEvent{
		OrderID:          orderID,
		PaymentSessionID: "cs_test_123",
		Total:            "107.20",
	}))
	require.NoError(t, err)
	assert.Equal(t, "orders-topic", order.Descriptor.Topic)
	assert.NotEmpty(t, order.Envelope.EventID)
	require.IsType(t, &payloads.OrderCreatedEvent{}, order.Payload)
	assert.Equal(t, orderID, order.Payload.(*payloads.OrderCreatedEvent).OrderID)
	assert.Equal(t, "107.20", order.Payload.(*payloads.OrderCreatedEvent).Total)

	expired, err := reg.Resolve(row(t, enums.EventCheckoutSessionExpired, enums.AggregateCheckoutSession, uuid.New(), payloads.CheckoutSessionExpiredEvent{
		SessionID: "cs_test_456",
		ExpiredAt: expiredAt,
	}))
	require.NoError(t, err)
	require.IsType(t, &payloads.CheckoutSessionExpiredEvent{}, expired.Payload)
	assert.True(t, expired.Payload.(*payloads.CheckoutSessionExpiredEvent).ExpiredAt.Equal(expiredAt))
}

func TestResolveFailuresAreNonRetryable(t *testing.T) {
	reg := ordersRegistry(t)
	valid := func() models.OutboxEvent {
		return row(t, enums.EventOrderCreated, enums.AggregateOrder, uuid.New(), payloads.OrderCreatedEvent{})
	}

	cases := map[string]func(*models.OutboxEvent){
		"unknown event":        func(e *models.OutboxEvent) { e.EventType = "inventory_adjusted" },
		"aggregate mismatch":   func(e *models.OutboxEvent) { e.AggregateType = enums.AggregateCheckoutSession },
		"missing aggregate id": func(e *models.OutboxEvent) { e.AggregateID = uuid.Nil },
		"broken envelope":      func(e *models.OutboxEvent) { e.Payload = json.RawMessage(`{not json`) },
		"null data":            func(e *models.OutboxEvent) { e.Payload = envelopeWith(t, json.RawMessage("null")) },
		"wrong data shape":     func(e *models.OutboxEvent) { e.Payload = envelopeWith(t, json.RawMessage(`{"order_id":42}`)) },
	}
	for name, corrupt := range cases {
		t.Run(name, func(t *testing.T) {
			event := valid()
			corrupt(&event)

			_, err := reg.Resolve(event)
			var nonRetry NonRetryableError
			require.True(t, errors.As(err, &nonRetry), "got %v", err)
		})
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	require.Error(t, err)
}

func TestNonRetryableErrorUnwraps(t *testing.T) {
	cause := errors.New("bad row")
	err := NewNonRetryableError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "non-retryable error", NonRetryableError{}.Error())
}

func ordersRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "orders-topic"})
	require.NoError(t, err)
	return reg
}

func row(t *testing.T, eventType enums.OutboxEventType, aggregate enums.OutboxAggregateType, id uuid.UUID, data any) models.OutboxEvent {
	t.Helper()
	envelope, err := outbox.NewEnvelope(1, time.Now(), data)
	require.NoError(t, err)
	raw, err := json.Marshal(envelope)
	require.NoError(t, err)
	return models.OutboxEvent{EventType: eventType, AggregateType: aggregate, AggregateID: id, Payload: raw}
}

func envelopeWith(t *testing.T, data json.RawMessage) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), Data: data})
	require.NoError(t, err)
	return raw
}
