// Package events определяет wire-формат событий пайплайна и модель топиков.
package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Топики событий подтверждения и их dead letter пары
const (
	TopicOrderConfirmed   = "orders.confirmed"
	TopicPaymentConfirmed = "payments.confirmed"

	TopicOrderDLQ   = "orders.confirmed.dlq"
	TopicPaymentDLQ = "payments.confirmed.dlq"
)

// Типы событий
const (
	EventTypeOrderConfirmed   = "order.confirmed"
	EventTypePaymentConfirmed = "payment.confirmed"
)

// DLQFor выбирает dead letter топик по исходному топику:
// сообщения заказов уходят в очередь заказов, остальные — в очередь платежей
func DLQFor(sourceTopic string) string {
	if strings.HasPrefix(sourceTopic, "orders.") {
		return TopicOrderDLQ
	}
	return TopicPaymentDLQ
}

// Envelope конверт события. Неизменяемое значение: публикуется один раз
// владеющим сервисом и потребляется любым числом подписчиков.
// CorrelationKey (ссылка на заказ или платеж) используется как ключ
// партиционирования и сохраняет порядок доставки связанных событий.
type Envelope struct {
	EventID        string          `json:"event_id"`
	EventType      string          `json:"event_type"`
	CorrelationKey string          `json:"correlation_key"`
	OccurredAt     time.Time       `json:"occurred_at"`
	TraceID        string          `json:"trace_id"`
	Payload        json.RawMessage `json:"payload"`
}

// OrderConfirmed payload события подтверждения заказа.
// Amount кодируется строкой с фиксированной точностью (два знака).
type OrderConfirmed struct {
	OrderID           int64     `json:"order_id"`
	Amount            string    `json:"amount"`
	Currency          string    `json:"currency"`
	PaymentMethod     string    `json:"payment_method"`
	CustomerFirstName string    `json:"customer_first_name"`
	CustomerLastName  string    `json:"customer_last_name"`
	CustomerEmail     string    `json:"customer_email"`
	ConfirmedAt       time.Time `json:"confirmed_at"`
}

// PaymentConfirmed payload события подтверждения платежа
type PaymentConfirmed struct {
	PaymentID         int64     `json:"payment_id"`
	OrderID           int64     `json:"order_id"`
	Amount            string    `json:"amount"`
	Currency          string    `json:"currency"`
	PaymentMethod     string    `json:"payment_method"`
	CustomerFirstName string    `json:"customer_first_name"`
	CustomerLastName  string    `json:"customer_last_name"`
	CustomerEmail     string    `json:"customer_email"`
	PaidAt            time.Time `json:"paid_at"`
}

// NewEnvelope создает конверт с новым event id и текущим временем
func NewEnvelope(eventType, correlationKey, traceID string, payload json.RawMessage) Envelope {
	return Envelope{
		EventID:        uuid.New().String(),
		EventType:      eventType,
		CorrelationKey: correlationKey,
		OccurredAt:     time.Now().UTC(),
		TraceID:        traceID,
		Payload:        payload,
	}
}
