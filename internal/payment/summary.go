package payment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/akriventsev/fulfillment/internal/domain"
	"github.com/akriventsev/fulfillment/internal/paging"
	"github.com/akriventsev/fulfillment/internal/port"
)

// SummaryService строит сводку платежей за окно времени.
// Сводка производная: считается на каждый запрос из записей платежей.
type SummaryService struct {
	payments port.PaymentRepository
}

// NewSummaryService создает сервис сводной отчетности
func NewSummaryService(payments port.PaymentRepository) *SummaryService {
	return &SummaryService{payments: payments}
}

// Summarize группирует платежи за окно [from, to] по способу оплаты.
// Границы окна необязательны: nil означает открытую границу.
// Результат детерминирован: группы упорядочены по способу оплаты.
func (s *SummaryService) Summarize(ctx context.Context, from, to *time.Time, page, size int) (paging.Page[domain.PaymentSummary], error) {
	records, err := s.payments.PaymentsInWindow(ctx, from, to)
	if err != nil {
		return paging.Page[domain.PaymentSummary]{}, fmt.Errorf("summarize: %w", err)
	}

	groups := lo.GroupBy(records, func(r domain.PaymentRecord) domain.PaymentMethod {
		return r.PaymentMethod
	})

	summaries := make([]domain.PaymentSummary, 0, len(groups))
	for method, items := range groups {
		total := items[0].Amount
		for _, r := range items[1:] {
			sum, err := total.Add(r.Amount)
			if err != nil {
				return paging.Page[domain.PaymentSummary]{}, fmt.Errorf("summarize[%s]: %w", method, err)
			}
			total = sum
		}
		summaries = append(summaries, domain.PaymentSummary{
			PaymentMethod: method,
			Count:         int64(len(items)),
			TotalAmount:   total,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].PaymentMethod < summaries[j].PaymentMethod
	})

	return paging.Slice(summaries, page, size), nil
}
