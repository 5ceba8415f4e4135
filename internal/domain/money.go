package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Money денежная сумма с валютой
type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// NewMoney создает сумму из строки с фиксированной точностью и ISO кода валюты
func NewMoney(amount string, code string) (Money, error) {
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("decimal.NewFromString[%s]: %w", amount, err)
	}

	unit, err := currency.ParseISO(code)
	if err != nil {
		return Money{}, fmt.Errorf("currency[%s] is not valid: %w", code, err)
	}

	return Money{Amount: parsed, Currency: unit}, nil
}

// Add складывает суммы, валюты должны совпадать
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

// Mul умножает сумму на количество
func (m Money) Mul(quantity int) Money {
	return Money{
		Amount:   m.Amount.Mul(decimal.NewFromInt(int64(quantity))),
		Currency: m.Currency,
	}
}

// IsPositive проверяет, что сумма строго положительна
func (m Money) IsPositive() bool {
	return m.Amount.IsPositive()
}

// FixedString возвращает сумму с двумя знаками после запятой (wire формат)
func (m Money) FixedString() string {
	return m.Amount.StringFixed(2)
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.FixedString(), m.Currency)
}
