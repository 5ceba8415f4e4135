package payment

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/fulfillment/internal/bus"
	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/domain"
	"github.com/akriventsev/fulfillment/internal/events"
	"github.com/akriventsev/fulfillment/internal/repository"
)

type capturingBus struct {
	mu        sync.Mutex
	published []capturedMessage
}

type capturedMessage struct {
	topic string
	key   string
	data  []byte
}

func (b *capturingBus) Publish(ctx context.Context, topic, key string, data []byte, headers map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, capturedMessage{topic: topic, key: key, data: data})
	return nil
}

func (b *capturingBus) messages() []capturedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]capturedMessage(nil), b.published...)
}

func orderConfirmedMessage(t *testing.T, orderID int64) *bus.Message {
	t.Helper()

	money, err := domain.NewMoney("150.00", "EUR")
	require.NoError(t, err)

	order := domain.Order{
		ID:            orderID,
		CustomerID:    "c-1",
		Amount:        money,
		PaymentMethod: domain.PaymentMethodCard,
		Status:        domain.OrderStatusConfirmed,
		CreatedAt:     time.Now().UTC(),
	}
	customer := domain.Customer{
		ID: "c-1", FirstName: "Анна", LastName: "Иванова", Email: "anna@example.com",
	}

	env, err := events.NewOrderConfirmed(order, customer, "trace-1")
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	return &bus.Message{
		Topic: events.TopicOrderConfirmed,
		Key:   env.CorrelationKey,
		Data:  data,
	}
}

func TestRecorder_RecordsPaymentAndPublishes(t *testing.T) {
	capturing := &capturingBus{}
	payments := repository.NewInMemoryPaymentRepository()
	recorder := NewRecorder(payments, events.NewPublisher(capturing)).WithLogger(core.NopLogger{})

	err := recorder.Handle(context.Background(), orderConfirmedMessage(t, 42))
	require.NoError(t, err)

	records, err := payments.PaymentsInWindow(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(42), records[0].OrderID)
	assert.Equal(t, "150.00", records[0].Amount.FixedString())
	assert.Equal(t, domain.PaymentMethodCard, records[0].PaymentMethod)

	published := capturing.messages()
	require.Len(t, published, 1)
	assert.Equal(t, events.TopicPaymentConfirmed, published[0].topic)

	var env events.Envelope
	require.NoError(t, json.Unmarshal(published[0].data, &env))
	payload, err := events.DecodePaymentConfirmed(env)
	require.NoError(t, err)
	assert.Equal(t, int64(42), payload.OrderID)
	assert.Equal(t, records[0].ID, payload.PaymentID)
	assert.Equal(t, "anna@example.com", payload.CustomerEmail)
	assert.Equal(t, "trace-1", env.TraceID)
}

func TestRecorder_DuplicateDeliveryIsAcknowledged(t *testing.T) {
	capturing := &capturingBus{}
	payments := repository.NewInMemoryPaymentRepository()
	recorder := NewRecorder(payments, events.NewPublisher(capturing)).WithLogger(core.NopLogger{})

	msg := orderConfirmedMessage(t, 42)
	require.NoError(t, recorder.Handle(context.Background(), msg))

	// Повторная доставка того же заказа подтверждается без новой записи
	err := recorder.Handle(context.Background(), orderConfirmedMessage(t, 42))
	require.NoError(t, err)

	records, err := payments.PaymentsInWindow(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, records, 1, "Duplicate delivery must not create a second record")
	assert.Len(t, capturing.messages(), 1, "Duplicate delivery must not publish a second event")
}

func TestRecorder_MalformedMessageIsFatal(t *testing.T) {
	recorder := NewRecorder(repository.NewInMemoryPaymentRepository(), events.NewPublisher(&capturingBus{})).
		WithLogger(core.NopLogger{})

	err := recorder.Handle(context.Background(), &bus.Message{
		Topic: events.TopicOrderConfirmed,
		Data:  []byte("{not json"),
	})
	require.Error(t, err)
	assert.True(t, core.IsFatal(err), "Malformed payload must be fatal, got kind %q", core.KindOf(err))
}

func TestRecorder_WrongEventTypeIsFatal(t *testing.T) {
	recorder := NewRecorder(repository.NewInMemoryPaymentRepository(), events.NewPublisher(&capturingBus{})).
		WithLogger(core.NopLogger{})

	env := events.NewEnvelope("something.else", "1", "", json.RawMessage(`{}`))
	data, err := json.Marshal(env)
	require.NoError(t, err)

	err = recorder.Handle(context.Background(), &bus.Message{
		Topic: events.TopicOrderConfirmed,
		Data:  data,
	})
	require.Error(t, err)
	assert.True(t, core.IsFatal(err))
}
