// Package order реализует оркестрацию создания заказа.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/domain"
	"github.com/akriventsev/fulfillment/internal/events"
	"github.com/akriventsev/fulfillment/internal/fetch"
	"github.com/akriventsev/fulfillment/internal/metrics"
	"github.com/akriventsev/fulfillment/internal/port"
)

// State состояние машины создания заказа.
// Терминальные состояния: Confirmed и Failed. Машина выполняется
// один раз на запрос и не повторяется оркестратором.
type State string

const (
	StateGathering        State = "GATHERING"
	StateValidated        State = "VALIDATED"
	StatePersisted        State = "PERSISTED"
	StatePaymentRequested State = "PAYMENT_REQUESTED"
	StateConfirmed        State = "CONFIRMED"
	StateFailed           State = "FAILED"
)

// CreateOrderRequest запрос на создание заказа
type CreateOrderRequest struct {
	CustomerID    string
	Items         []fetch.PurchaseItem
	PaymentMethod domain.PaymentMethod
}

// CreateOrderResult результат создания заказа.
// State отражает достигнутое состояние: при отказе платежа заказ
// остается сохраненным и State равен Persisted, а не Failed.
type CreateOrderResult struct {
	Order     domain.Order
	State     State
	PaymentID string
}

// Orchestrator последовательно выполняет создание заказа:
// сборка данных -> валидация -> сохранение -> платеж -> публикация события.
// Дедупликации клиентских повторов нет: повторный запрос создает
// повторный заказ. Отказ платежа или публикации после сохранения
// не откатывает заказ — ошибки поднимаются вызывающему.
type Orchestrator struct {
	fetcher   *fetch.Fetcher
	orders    port.OrderRepository
	gateway   port.PaymentGateway
	publisher *events.Publisher
	logger    core.Logger
	metrics   *metrics.Metrics
}

// NewOrchestrator создает новый оркестратор заказов
func NewOrchestrator(
	fetcher *fetch.Fetcher,
	orders port.OrderRepository,
	gateway port.PaymentGateway,
	publisher *events.Publisher,
) *Orchestrator {
	return &Orchestrator{
		fetcher:   fetcher,
		orders:    orders,
		gateway:   gateway,
		publisher: publisher,
		logger:    core.DefaultLogger(),
	}
}

// WithLogger устанавливает логгер
func (o *Orchestrator) WithLogger(logger core.Logger) *Orchestrator {
	o.logger = logger
	return o
}

// WithMetrics устанавливает сборщик метрик
func (o *Orchestrator) WithMetrics(m *metrics.Metrics) *Orchestrator {
	o.metrics = m
	return o
}

// CreateOrder выполняет машину состояний создания заказа
func (o *Orchestrator) CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResult, error) {
	start := time.Now()
	result := CreateOrderResult{State: StateGathering}

	// GATHERING -> VALIDATED
	data, err := o.fetcher.Fetch(ctx, req.CustomerID, req.Items)
	if err != nil {
		result.State = StateFailed
		o.record(ctx, string(StateFailed), start)
		return result, fmt.Errorf("createOrder[customer=%s] gather: %w", req.CustomerID, err)
	}

	order, err := buildOrder(req, data)
	if err != nil {
		result.State = StateFailed
		o.record(ctx, string(StateFailed), start)
		return result, fmt.Errorf("createOrder[customer=%s] validate: %w", req.CustomerID, err)
	}
	result.State = StateValidated

	// VALIDATED -> PERSISTED: заказ и позиции пишутся одной транзакцией
	saved, err := o.orders.SaveOrder(ctx, order)
	if err != nil {
		result.State = StateFailed
		o.record(ctx, string(StateFailed), start)
		return result, fmt.Errorf("createOrder[customer=%s] persist: %w", req.CustomerID, err)
	}
	result.Order = saved
	result.State = StatePersisted

	// PERSISTED -> PAYMENT_REQUESTED
	paymentID, err := o.gateway.Pay(ctx, port.PaymentRequest{
		OrderID:       saved.ID,
		Amount:        saved.Amount,
		PaymentMethod: saved.PaymentMethod,
	})
	if err != nil {
		// Заказ остается сохраненным; автоматической отмены нет
		if statusErr := o.orders.UpdateOrderStatus(ctx, saved.ID, domain.OrderStatusPaymentFailed); statusErr != nil {
			o.logger.Log("failed to mark order %d as payment_failed: %v", saved.ID, statusErr)
		}
		o.record(ctx, string(domain.OrderStatusPaymentFailed), start)
		return result, fmt.Errorf("createOrder[order=%d] payment: %w", saved.ID, err)
	}
	result.PaymentID = paymentID
	result.State = StatePaymentRequested

	// PAYMENT_REQUESTED -> CONFIRMED
	if err := o.orders.UpdateOrderStatus(ctx, saved.ID, domain.OrderStatusConfirmed); err != nil {
		return result, fmt.Errorf("createOrder[order=%d] confirm: %w", saved.ID, err)
	}
	saved.Status = domain.OrderStatusConfirmed
	result.Order = saved

	env, err := events.NewOrderConfirmed(saved, data.Customer, traceIDFromContext(ctx))
	if err != nil {
		return result, fmt.Errorf("createOrder[order=%d] event: %w", saved.ID, err)
	}

	if err := o.publisher.Publish(ctx, events.TopicOrderConfirmed, env); err != nil {
		// Заказ уже подтвержден в хранилище; отказ публикации поднимается наверх
		return result, fmt.Errorf("createOrder[order=%d] publish: %w", saved.ID, err)
	}

	result.State = StateConfirmed
	o.record(ctx, string(StateConfirmed), start)
	o.logger.Log("order confirmed: id=%d customer=%s amount=%s payment=%s",
		saved.ID, saved.CustomerID, saved.Amount, paymentID)

	return result, nil
}

// buildOrder собирает заказ из результата сборки данных
func buildOrder(req CreateOrderRequest, data fetch.OrderData) (domain.Order, error) {
	var order domain.Order

	lines := make([]domain.OrderLine, 0, len(data.Products))
	var total domain.Money

	for i, purchased := range data.Products {
		line := domain.OrderLine{
			ProductID: purchased.Product.ID,
			Quantity:  purchased.Quantity,
			Price:     purchased.Product.Price,
		}
		lines = append(lines, line)

		lineTotal := purchased.Product.Price.Mul(purchased.Quantity)
		if i == 0 {
			total = lineTotal
			continue
		}

		sum, err := total.Add(lineTotal)
		if err != nil {
			return order, core.Wrap(err, core.KindValidation, "order total")
		}
		total = sum
	}

	order = domain.Order{
		CustomerID:    data.Customer.ID,
		Lines:         lines,
		Amount:        total,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.OrderStatusPending,
		CreatedAt:     time.Now().UTC(),
	}

	if err := order.Validate(); err != nil {
		return order, err
	}

	return order, nil
}

// traceIDFromContext извлекает trace id активного span или генерирует новый
func traceIDFromContext(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID().String()
	}
	return uuid.New().String()
}

func (o *Orchestrator) record(ctx context.Context, status string, start time.Time) {
	if o.metrics != nil {
		o.metrics.RecordOrder(ctx, status, time.Since(start))
	}
}
