// Package payment реализует учет платежей и сводную отчетность.
package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/akriventsev/fulfillment/internal/bus"
	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/domain"
	"github.com/akriventsev/fulfillment/internal/events"
	"github.com/akriventsev/fulfillment/internal/port"
)

// Recorder потребляет подтверждения заказов и фиксирует платежи.
// Доставка гарантируется как минимум один раз, поэтому повторная
// запись по тому же заказу (CONFLICT хранилища) считается успехом
// и событие платежа при этом не публикуется повторно.
type Recorder struct {
	payments  port.PaymentRepository
	publisher *events.Publisher
	logger    core.Logger
}

// NewRecorder создает обработчик подтверждений заказов
func NewRecorder(payments port.PaymentRepository, publisher *events.Publisher) *Recorder {
	return &Recorder{
		payments:  payments,
		publisher: publisher,
		logger:    core.DefaultLogger(),
	}
}

// WithLogger устанавливает логгер
func (r *Recorder) WithLogger(logger core.Logger) *Recorder {
	r.logger = logger
	return r
}

// Handle обрабатывает одно сообщение топика подтверждений заказов.
// Возврат nil подтверждает сообщение; ошибки разбора фатальны и
// уходят в DLQ без повторов, ошибки хранилища повторяются.
func (r *Recorder) Handle(ctx context.Context, msg *bus.Message) error {
	env, err := events.Decode(msg.Data)
	if err != nil {
		return fmt.Errorf("recorder[%s]: %w", msg.Topic, err)
	}

	confirmed, err := events.DecodeOrderConfirmed(env)
	if err != nil {
		return fmt.Errorf("recorder[event=%s]: %w", env.EventID, err)
	}

	amount, err := domain.NewMoney(confirmed.Amount, confirmed.Currency)
	if err != nil {
		return core.Wrap(err, core.KindFatal, "order confirmation amount")
	}

	method, err := domain.ToPaymentMethod(confirmed.PaymentMethod)
	if err != nil {
		return core.Wrap(err, core.KindFatal, "order confirmation payment method")
	}

	record := domain.PaymentRecord{
		OrderID:       confirmed.OrderID,
		Amount:        amount,
		PaymentMethod: method,
		CreatedAt:     time.Now().UTC(),
	}

	saved, err := r.payments.SavePayment(ctx, record)
	if err != nil {
		if core.IsConflict(err) {
			// Повторная доставка: платеж уже записан
			r.logger.Log("duplicate payment for order %d, acknowledging", confirmed.OrderID)
			return nil
		}
		return fmt.Errorf("recorder[order=%d] save: %w", confirmed.OrderID, err)
	}

	paymentEnv, err := events.NewPaymentConfirmed(saved, confirmed, env.TraceID)
	if err != nil {
		return fmt.Errorf("recorder[payment=%d] event: %w", saved.ID, err)
	}

	if err := r.publisher.Publish(ctx, events.TopicPaymentConfirmed, paymentEnv); err != nil {
		// Платеж записан, публикация не прошла: повтор доставки приведет
		// к CONFLICT выше и сообщение будет подтверждено без события.
		// Потеря события здесь принимается в обмен на отсутствие дублей.
		return fmt.Errorf("recorder[payment=%d] publish: %w", saved.ID, err)
	}

	r.logger.Log("payment recorded: id=%d order=%d amount=%s", saved.ID, saved.OrderID, saved.Amount)
	return nil
}
