// Package domain содержит доменные сущности пайплайна обработки заказов.
package domain

import (
	"time"

	"github.com/akriventsev/fulfillment/internal/core"
)

// OrderStatus статус заказа
type OrderStatus string

const (
	// OrderStatusPending заказ собран, но еще не сохранен
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPersisted заказ сохранен, оплата еще не запрошена или не завершена
	OrderStatusPersisted OrderStatus = "persisted"
	// OrderStatusPaymentFailed оплата не прошла, заказ остается сохраненным
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
	// OrderStatusConfirmed оплата прошла, событие подтверждения опубликовано
	OrderStatusConfirmed OrderStatus = "confirmed"
)

var validOrderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:       {},
	OrderStatusPersisted:     {},
	OrderStatusPaymentFailed: {},
	OrderStatusConfirmed:     {},
}

func ToOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	if _, ok := validOrderStatuses[status]; ok {
		return status, nil
	}

	return "", core.Errorf(core.KindValidation, "invalid order status: %s", s)
}

// OrderLine позиция заказа, принадлежит ровно одному заказу
type OrderLine struct {
	ProductID string
	Quantity  int
	Price     Money
}

// Validate проверяет корректность позиции
func (l OrderLine) Validate() error {
	if l.ProductID == "" {
		return core.NewError(core.KindValidation, "product id cannot be empty")
	}
	if l.Quantity <= 0 {
		return core.Errorf(core.KindValidation, "quantity must be positive, got %d", l.Quantity)
	}
	return nil
}

// Order заказ. Идентификатор присваивается при сохранении;
// после сохранения меняется только статус.
type Order struct {
	ID            int64
	CustomerID    string
	Lines         []OrderLine
	Amount        Money
	PaymentMethod PaymentMethod
	Status        OrderStatus
	CreatedAt     time.Time
}

// Validate проверяет корректность заказа перед сохранением
func (o Order) Validate() error {
	if o.CustomerID == "" {
		return core.NewError(core.KindValidation, "customer id cannot be empty")
	}
	if len(o.Lines) == 0 {
		return core.NewError(core.KindValidation, "order must contain at least one line")
	}
	for _, line := range o.Lines {
		if err := line.Validate(); err != nil {
			return core.Wrap(err, core.KindValidation, "line "+line.ProductID)
		}
	}
	if !o.Amount.IsPositive() {
		return core.NewError(core.KindValidation, "order amount must be positive")
	}
	if _, err := ToPaymentMethod(string(o.PaymentMethod)); err != nil {
		return core.Errorf(core.KindValidation, "invalid payment method: %s", o.PaymentMethod)
	}
	return nil
}
