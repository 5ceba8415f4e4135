package domain

import "time"

// PaymentRecord запись о платеже. Ссылается на заказ по числовому id
// (кросс-сервисная ссылка, без foreign key). Создается ровно один раз
// на успешный платеж и после создания не меняется.
type PaymentRecord struct {
	ID            int64
	OrderID       int64
	Amount        Money
	PaymentMethod PaymentMethod
	CreatedAt     time.Time
}

// PaymentSummary агрегат по платежам за окно времени.
// Производный, не хранится и пересчитывается на каждый запрос.
type PaymentSummary struct {
	PaymentMethod PaymentMethod
	Count         int64
	TotalAmount   Money
}
