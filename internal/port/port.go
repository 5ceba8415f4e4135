// Package port определяет интерфейсы внешних коллабораторов пайплайна.
package port

import (
	"context"
	"time"

	"github.com/akriventsev/fulfillment/internal/domain"
)

// OrderRepository хранилище заказов.
// SaveOrder записывает заказ вместе с позициями атомарно и присваивает id.
type OrderRepository interface {
	SaveOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error
	GetOrder(ctx context.Context, orderID int64) (domain.Order, error)
}

// PaymentRepository хранилище платежей.
// SavePayment возвращает ошибку категории CONFLICT при повторной записи
// платежа по тому же заказу — на этом строится идемпотентность потребителя.
type PaymentRepository interface {
	SavePayment(ctx context.Context, record domain.PaymentRecord) (domain.PaymentRecord, error)
	PaymentsInWindow(ctx context.Context, from, to *time.Time) ([]domain.PaymentRecord, error)
}

// PaymentRequest запрос на проведение платежа
type PaymentRequest struct {
	OrderID       int64
	Amount        domain.Money
	PaymentMethod domain.PaymentMethod
}

// PaymentGateway платежный шлюз
type PaymentGateway interface {
	// Pay проводит платеж и возвращает внешний идентификатор платежа
	Pay(ctx context.Context, req PaymentRequest) (string, error)
}
