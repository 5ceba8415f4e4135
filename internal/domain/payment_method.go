package domain

import "errors"

// PaymentMethod способ оплаты заказа
type PaymentMethod string

// remember to add new methods to the validPaymentMethods map
const (
	PaymentMethodCard           PaymentMethod = "CARD"
	PaymentMethodTransfer       PaymentMethod = "TRANSFER"
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

var validPaymentMethods = map[PaymentMethod]struct{}{
	PaymentMethodCard:           {},
	PaymentMethodTransfer:       {},
	PaymentMethodCashOnDelivery: {},
}

func ToPaymentMethod(s string) (PaymentMethod, error) {
	method := PaymentMethod(s)
	if _, ok := validPaymentMethods[method]; ok {
		return method, nil
	}

	return "", errors.New("invalid payment method")
}

func PaymentMethods() []PaymentMethod {
	result := make([]PaymentMethod, 0, len(validPaymentMethods))
	for method := range validPaymentMethods {
		result = append(result, method)
	}
	return result
}
