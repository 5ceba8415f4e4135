package order

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/domain"
	"github.com/akriventsev/fulfillment/internal/events"
	"github.com/akriventsev/fulfillment/internal/fetch"
	"github.com/akriventsev/fulfillment/internal/port"
	"github.com/akriventsev/fulfillment/internal/repository"
)

type capturingBus struct {
	mu        sync.Mutex
	published []publishedMessage
}

type publishedMessage struct {
	topic   string
	key     string
	data    []byte
	headers map[string]string
}

func (b *capturingBus) Publish(ctx context.Context, topic, key string, data []byte, headers map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedMessage{topic: topic, key: key, data: data, headers: headers})
	return nil
}

func (b *capturingBus) messages() []publishedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publishedMessage(nil), b.published...)
}

type stubGateway struct {
	err   error
	calls int
}

func (g *stubGateway) Pay(ctx context.Context, req port.PaymentRequest) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return "pay-123", nil
}

func testMoney(t *testing.T, amount string) domain.Money {
	t.Helper()
	money, err := domain.NewMoney(amount, "EUR")
	require.NoError(t, err)
	return money
}

func newTestFetcher(t *testing.T) *fetch.Fetcher {
	t.Helper()

	directory := repository.NewInMemoryCustomerDirectory(
		domain.Customer{ID: "c-1", FirstName: "Анна", LastName: "Иванова", Email: "anna@example.com"},
	)
	catalog := repository.NewInMemoryProductCatalog(
		domain.Product{ID: "p-1", Name: "Laptop", Price: testMoney(t, "100.00"), Stock: 10},
		domain.Product{ID: "p-2", Name: "Mouse", Price: testMoney(t, "20.00"), Stock: 10},
	)

	return fetch.NewFetcher(directory, catalog, fetch.DefaultConfig())
}

func TestOrchestrator_SuccessfulOrder(t *testing.T) {
	bus := &capturingBus{}
	orders := repository.NewInMemoryOrderRepository()
	gateway := &stubGateway{}

	orchestrator := NewOrchestrator(newTestFetcher(t), orders, gateway, events.NewPublisher(bus)).
		WithLogger(core.NopLogger{})

	result, err := orchestrator.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerID:    "c-1",
		Items:         []fetch.PurchaseItem{{ProductID: "p-1", Quantity: 2}, {ProductID: "p-2", Quantity: 1}},
		PaymentMethod: domain.PaymentMethodCard,
	})
	require.NoError(t, err)

	assert.Equal(t, StateConfirmed, result.State)
	assert.Equal(t, "pay-123", result.PaymentID)
	assert.Equal(t, domain.OrderStatusConfirmed, result.Order.Status)
	// 2*100 + 1*20
	assert.Equal(t, "220.00", result.Order.Amount.FixedString())

	stored, err := orders.GetOrder(context.Background(), result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, stored.Status)
	assert.Len(t, stored.Lines, 2)

	published := bus.messages()
	require.Len(t, published, 1, "Expected exactly one published event")
	assert.Equal(t, events.TopicOrderConfirmed, published[0].topic)

	var env events.Envelope
	require.NoError(t, json.Unmarshal(published[0].data, &env))
	assert.Equal(t, events.EventTypeOrderConfirmed, env.EventType)
	assert.Equal(t, env.CorrelationKey, published[0].key, "Partition key must be the correlation key")

	payload, err := events.DecodeOrderConfirmed(env)
	require.NoError(t, err)
	assert.Equal(t, result.Order.ID, payload.OrderID)
	assert.Equal(t, "220.00", payload.Amount)
	assert.Equal(t, "anna@example.com", payload.CustomerEmail)
}

func TestOrchestrator_UnknownCustomer(t *testing.T) {
	bus := &capturingBus{}
	orders := repository.NewInMemoryOrderRepository()
	gateway := &stubGateway{}

	orchestrator := NewOrchestrator(newTestFetcher(t), orders, gateway, events.NewPublisher(bus)).
		WithLogger(core.NopLogger{})

	result, err := orchestrator.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerID:    "c-404",
		Items:         []fetch.PurchaseItem{{ProductID: "p-1", Quantity: 1}},
		PaymentMethod: domain.PaymentMethodCard,
	})
	require.Error(t, err)
	assert.True(t, core.IsNotFound(err), "Expected NOT_FOUND, got kind %q", core.KindOf(err))

	assert.Equal(t, StateFailed, result.State)
	assert.Zero(t, orders.Count(), "No order row should be written")
	assert.Empty(t, bus.messages(), "No event should be published")
	assert.Zero(t, gateway.calls, "Payment should not be requested")
}

func TestOrchestrator_ProductUnavailable(t *testing.T) {
	bus := &capturingBus{}
	orders := repository.NewInMemoryOrderRepository()

	orchestrator := NewOrchestrator(newTestFetcher(t), orders, &stubGateway{}, events.NewPublisher(bus)).
		WithLogger(core.NopLogger{})

	_, err := orchestrator.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerID:    "c-1",
		Items:         []fetch.PurchaseItem{{ProductID: "p-1", Quantity: 999}},
		PaymentMethod: domain.PaymentMethodCard,
	})
	require.Error(t, err)

	var unavailable *fetch.ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, []string{"p-1"}, unavailable.IDs)

	assert.Zero(t, orders.Count())
	assert.Empty(t, bus.messages())
}

func TestOrchestrator_PaymentFailureLeavesOrderPersisted(t *testing.T) {
	bus := &capturingBus{}
	orders := repository.NewInMemoryOrderRepository()
	gateway := &stubGateway{err: core.NewError(core.KindConflict, "payment declined")}

	orchestrator := NewOrchestrator(newTestFetcher(t), orders, gateway, events.NewPublisher(bus)).
		WithLogger(core.NopLogger{})

	result, err := orchestrator.CreateOrder(context.Background(), CreateOrderRequest{
		CustomerID:    "c-1",
		Items:         []fetch.PurchaseItem{{ProductID: "p-1", Quantity: 1}},
		PaymentMethod: domain.PaymentMethodCard,
	})
	require.Error(t, err)
	assert.True(t, core.IsConflict(err))

	// Заказ остается сохраненным, автоматической отмены нет
	assert.Equal(t, StatePersisted, result.State)
	require.Equal(t, 1, orders.Count())

	stored, err := orders.GetOrder(context.Background(), result.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentFailed, stored.Status)

	assert.Empty(t, bus.messages(), "No event should be published on payment failure")
}
