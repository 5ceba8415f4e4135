package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akriventsev/fulfillment/internal/domain"
	"github.com/akriventsev/fulfillment/internal/repository"
)

func seedPayments(t *testing.T, repo *repository.InMemoryPaymentRepository, method domain.PaymentMethod, createdAt time.Time, amounts ...string) {
	t.Helper()

	for i, amount := range amounts {
		money, err := domain.NewMoney(amount, "EUR")
		require.NoError(t, err)

		_, err = repo.SavePayment(context.Background(), domain.PaymentRecord{
			OrderID:       int64(1000*len(method) + i), // уникальный заказ на запись
			Amount:        money,
			PaymentMethod: method,
			CreatedAt:     createdAt,
		})
		require.NoError(t, err)
	}
}

func TestSummaryService_GroupsByMethod(t *testing.T) {
	repo := repository.NewInMemoryPaymentRepository()
	now := time.Now().UTC()

	seedPayments(t, repo, domain.PaymentMethodCard, now, "100.00", "200.00", "300.00")
	seedPayments(t, repo, domain.PaymentMethodTransfer, now, "50.00")

	service := NewSummaryService(repo)
	page, err := service.Summarize(context.Background(), nil, nil, 1, 10)
	require.NoError(t, err)

	require.Len(t, page.Content, 2)

	// Группы отсортированы по способу оплаты: CARD < TRANSFER
	card := page.Content[0]
	assert.Equal(t, domain.PaymentMethodCard, card.PaymentMethod)
	assert.Equal(t, int64(3), card.Count)
	assert.Equal(t, "600.00", card.TotalAmount.FixedString())

	transfer := page.Content[1]
	assert.Equal(t, domain.PaymentMethodTransfer, transfer.PaymentMethod)
	assert.Equal(t, int64(1), transfer.Count)
	assert.Equal(t, "50.00", transfer.TotalAmount.FixedString())
}

func TestSummaryService_Deterministic(t *testing.T) {
	repo := repository.NewInMemoryPaymentRepository()
	now := time.Now().UTC()

	seedPayments(t, repo, domain.PaymentMethodTransfer, now, "10.00", "20.00")
	seedPayments(t, repo, domain.PaymentMethodCard, now, "30.00")
	seedPayments(t, repo, domain.PaymentMethodCashOnDelivery, now, "40.00")

	service := NewSummaryService(repo)

	first, err := service.Summarize(context.Background(), nil, nil, 1, 10)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := service.Summarize(context.Background(), nil, nil, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, first.Content, again.Content, "Summary order must be stable across calls")
	}
}

func TestSummaryService_WindowFiltering(t *testing.T) {
	repo := repository.NewInMemoryPaymentRepository()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	seedPayments(t, repo, domain.PaymentMethodCard, base.Add(-48*time.Hour), "100.00")
	seedPayments(t, repo, domain.PaymentMethodTransfer, base, "200.00")

	from := base.Add(-time.Hour)
	to := base.Add(time.Hour)

	service := NewSummaryService(repo)
	page, err := service.Summarize(context.Background(), &from, &to, 1, 10)
	require.NoError(t, err)

	require.Len(t, page.Content, 1)
	assert.Equal(t, domain.PaymentMethodTransfer, page.Content[0].PaymentMethod)
}

func TestSummaryService_Pagination(t *testing.T) {
	repo := repository.NewInMemoryPaymentRepository()
	now := time.Now().UTC()

	seedPayments(t, repo, domain.PaymentMethodCard, now, "10.00")
	seedPayments(t, repo, domain.PaymentMethodTransfer, now, "20.00")
	seedPayments(t, repo, domain.PaymentMethodCashOnDelivery, now, "30.00")

	service := NewSummaryService(repo)

	page1, err := service.Summarize(context.Background(), nil, nil, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page1.Content, 2)
	assert.Equal(t, int64(3), page1.TotalElements)
	assert.Equal(t, 2, page1.TotalPages)

	page2, err := service.Summarize(context.Background(), nil, nil, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2.Content, 1)

	page3, err := service.Summarize(context.Background(), nil, nil, 3, 2)
	require.NoError(t, err)
	assert.Empty(t, page3.Content, "Page past the end must be empty")
	assert.Equal(t, int64(3), page3.TotalElements, "Metadata must stay intact past the end")
	assert.Equal(t, 2, page3.TotalPages)
}

func TestSummaryService_EmptyWindow(t *testing.T) {
	service := NewSummaryService(repository.NewInMemoryPaymentRepository())

	page, err := service.Summarize(context.Background(), nil, nil, 1, 10)
	require.NoError(t, err)

	assert.Empty(t, page.Content)
	assert.Zero(t, page.TotalElements)
	assert.Zero(t, page.TotalPages, "Zero results must yield zero total pages")
}
