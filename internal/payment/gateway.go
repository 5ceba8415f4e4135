package payment

import (
	"context"

	"github.com/google/uuid"

	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/port"
)

// AcceptingGateway платежный шлюз, принимающий любой корректный платеж.
// Используется в локальных запусках и тестах вместо внешнего провайдера.
type AcceptingGateway struct {
	logger core.Logger
}

// NewAcceptingGateway создает принимающий шлюз
func NewAcceptingGateway() *AcceptingGateway {
	return &AcceptingGateway{logger: core.DefaultLogger()}
}

// WithLogger устанавливает логгер
func (g *AcceptingGateway) WithLogger(logger core.Logger) *AcceptingGateway {
	g.logger = logger
	return g
}

// Pay проводит платеж и возвращает внешний идентификатор
func (g *AcceptingGateway) Pay(_ context.Context, req port.PaymentRequest) (string, error) {
	if !req.Amount.IsPositive() {
		return "", core.NewError(core.KindValidation, "payment amount must be positive")
	}

	paymentID := uuid.New().String()
	g.logger.Log("payment accepted: order=%d amount=%s id=%s", req.OrderID, req.Amount, paymentID)
	return paymentID, nil
}

var _ port.PaymentGateway = (*AcceptingGateway)(nil)
