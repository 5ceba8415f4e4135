// Package notify реализует уведомления покупателей о событиях заказа.
package notify

import (
	"context"
	"fmt"

	"github.com/akriventsev/fulfillment/internal/bus"
	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/events"
)

// Notification уведомление покупателю
type Notification struct {
	Recipient string
	Subject   string
	Body      string
}

// Sender канал доставки уведомлений
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// LogSender пишет уведомления в лог. Канал по умолчанию:
// внешней почтовой интеграции у сервиса нет.
type LogSender struct {
	logger core.Logger
}

// NewLogSender создает лог-канал доставки
func NewLogSender(logger core.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, n Notification) error {
	s.logger.Log("notification to %s: %s - %s", n.Recipient, n.Subject, n.Body)
	return nil
}

// Notifier потребляет подтверждения заказов и платежей и отправляет
// уведомления. Доставка at-least-once: повторное сообщение приводит
// к повторному уведомлению, дедупликации нет.
type Notifier struct {
	sender Sender
	logger core.Logger
}

// NewNotifier создает сервис уведомлений
func NewNotifier(sender Sender) *Notifier {
	return &Notifier{
		sender: sender,
		logger: core.DefaultLogger(),
	}
}

// WithLogger устанавливает логгер
func (n *Notifier) WithLogger(logger core.Logger) *Notifier {
	n.logger = logger
	return n
}

// HandleOrderConfirmed обрабатывает подтверждение заказа
func (n *Notifier) HandleOrderConfirmed(ctx context.Context, msg *bus.Message) error {
	env, err := events.Decode(msg.Data)
	if err != nil {
		return fmt.Errorf("notifier[%s]: %w", msg.Topic, err)
	}

	confirmed, err := events.DecodeOrderConfirmed(env)
	if err != nil {
		return fmt.Errorf("notifier[event=%s]: %w", env.EventID, err)
	}

	notification := Notification{
		Recipient: confirmed.CustomerEmail,
		Subject:   fmt.Sprintf("Заказ %d подтвержден", confirmed.OrderID),
		Body: fmt.Sprintf("%s %s, ваш заказ %d на сумму %s %s подтвержден.",
			confirmed.CustomerFirstName, confirmed.CustomerLastName,
			confirmed.OrderID, confirmed.Amount, confirmed.Currency),
	}

	if err := n.sender.Send(ctx, notification); err != nil {
		return fmt.Errorf("notifier[order=%d] send: %w", confirmed.OrderID, err)
	}

	return nil
}

// HandlePaymentConfirmed обрабатывает подтверждение платежа
func (n *Notifier) HandlePaymentConfirmed(ctx context.Context, msg *bus.Message) error {
	env, err := events.Decode(msg.Data)
	if err != nil {
		return fmt.Errorf("notifier[%s]: %w", msg.Topic, err)
	}

	confirmed, err := events.DecodePaymentConfirmed(env)
	if err != nil {
		return fmt.Errorf("notifier[event=%s]: %w", env.EventID, err)
	}

	notification := Notification{
		Recipient: confirmed.CustomerEmail,
		Subject:   fmt.Sprintf("Платеж по заказу %d получен", confirmed.OrderID),
		Body: fmt.Sprintf("%s %s, платеж %d на сумму %s %s по заказу %d получен.",
			confirmed.CustomerFirstName, confirmed.CustomerLastName,
			confirmed.PaymentID, confirmed.Amount, confirmed.Currency, confirmed.OrderID),
	}

	if err := n.sender.Send(ctx, notification); err != nil {
		return fmt.Errorf("notifier[payment=%d] send: %w", confirmed.PaymentID, err)
	}

	return nil
}
