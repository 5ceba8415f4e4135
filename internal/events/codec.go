package events

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/domain"
)

// NewOrderConfirmed собирает конверт подтверждения заказа.
// Корреляционный ключ — числовой id заказа.
func NewOrderConfirmed(order domain.Order, customer domain.Customer, traceID string) (Envelope, error) {
	payload := OrderConfirmed{
		OrderID:           order.ID,
		Amount:            order.Amount.FixedString(),
		Currency:          order.Amount.Currency.String(),
		PaymentMethod:     string(order.PaymentMethod),
		CustomerFirstName: customer.FirstName,
		CustomerLastName:  customer.LastName,
		CustomerEmail:     customer.Email,
		ConfirmedAt:       order.CreatedAt,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, core.Wrap(err, core.KindFatal, "failed to marshal order confirmation")
	}

	return NewEnvelope(EventTypeOrderConfirmed, strconv.FormatInt(order.ID, 10), traceID, data), nil
}

// NewPaymentConfirmed собирает конверт подтверждения платежа.
// Корреляционный ключ — числовой id платежа.
func NewPaymentConfirmed(record domain.PaymentRecord, source OrderConfirmed, traceID string) (Envelope, error) {
	payload := PaymentConfirmed{
		PaymentID:         record.ID,
		OrderID:           record.OrderID,
		Amount:            record.Amount.FixedString(),
		Currency:          record.Amount.Currency.String(),
		PaymentMethod:     string(record.PaymentMethod),
		CustomerFirstName: source.CustomerFirstName,
		CustomerLastName:  source.CustomerLastName,
		CustomerEmail:     source.CustomerEmail,
		PaidAt:            record.CreatedAt,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, core.Wrap(err, core.KindFatal, "failed to marshal payment confirmation")
	}

	return NewEnvelope(EventTypePaymentConfirmed, strconv.FormatInt(record.ID, 10), traceID, data), nil
}

// Decode разбирает конверт из сырых байт.
// Битый формат — невосстановимая ошибка: такие сообщения не повторяются.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, core.Wrap(err, core.KindFatal, "malformed event envelope")
	}

	if env.EventID == "" || env.EventType == "" {
		return Envelope{}, core.NewError(core.KindFatal, "event envelope is missing id or type")
	}

	return env, nil
}

// DecodeOrderConfirmed разбирает payload подтверждения заказа
func DecodeOrderConfirmed(env Envelope) (OrderConfirmed, error) {
	if env.EventType != EventTypeOrderConfirmed {
		return OrderConfirmed{}, core.Errorf(core.KindFatal,
			"unexpected event type: %s", env.EventType)
	}

	var payload OrderConfirmed
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return OrderConfirmed{}, core.Wrap(err, core.KindFatal, "malformed order confirmation payload")
	}

	if err := validateAmount(payload.Amount); err != nil {
		return OrderConfirmed{}, err
	}

	return payload, nil
}

// DecodePaymentConfirmed разбирает payload подтверждения платежа
func DecodePaymentConfirmed(env Envelope) (PaymentConfirmed, error) {
	if env.EventType != EventTypePaymentConfirmed {
		return PaymentConfirmed{}, core.Errorf(core.KindFatal,
			"unexpected event type: %s", env.EventType)
	}

	var payload PaymentConfirmed
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return PaymentConfirmed{}, core.Wrap(err, core.KindFatal, "malformed payment confirmation payload")
	}

	if err := validateAmount(payload.Amount); err != nil {
		return PaymentConfirmed{}, err
	}

	return payload, nil
}

func validateAmount(amount string) error {
	if _, err := decimal.NewFromString(amount); err != nil {
		return core.Wrap(err, core.KindFatal, fmt.Sprintf("amount[%s] is not a valid decimal", amount))
	}
	return nil
}
