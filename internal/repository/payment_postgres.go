package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/domain"
	"github.com/akriventsev/fulfillment/internal/port"
)

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository создает Postgres хранилище платежей
func NewPaymentRepository(pool *pgxpool.Pool) port.PaymentRepository {
	return &paymentRepository{pool: pool}
}

// SavePayment записывает платеж и возвращает его с присвоенным id.
// Повторный платеж по тому же заказу нарушает уникальный индекс
// и возвращается ошибкой категории CONFLICT.
func (r *paymentRepository) SavePayment(ctx context.Context, record domain.PaymentRecord) (domain.PaymentRecord, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO payments (order_id, amount, currency, payment_method, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		record.OrderID, record.Amount.FixedString(), record.Amount.Currency.String(),
		string(record.PaymentMethod), record.CreatedAt,
	).Scan(&record.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.PaymentRecord{}, core.Errorf(core.KindConflict,
				"payment for order %d already recorded", record.OrderID)
		}
		return domain.PaymentRecord{}, core.Wrap(err, core.KindTransient, "SavePayment")
	}

	return record, nil
}

// PaymentsInWindow возвращает платежи за окно времени.
// Открытая граница передается как nil; порядок стабилен (id).
func (r *paymentRepository) PaymentsInWindow(ctx context.Context, from, to *time.Time) ([]domain.PaymentRecord, error) {
	query := strings.Builder{}
	query.WriteString(`SELECT id, order_id, amount::text, currency, payment_method, created_at FROM payments`)

	var (
		args    []any
		clauses []string
	)
	if from != nil {
		args = append(args, *from)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if to != nil {
		args = append(args, *to)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if len(clauses) > 0 {
		query.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}
	query.WriteString(" ORDER BY id")

	rows, err := r.pool.Query(ctx, query.String(), args...)
	if err != nil {
		return nil, core.Wrap(err, core.KindTransient, "PaymentsInWindow")
	}
	defer rows.Close()

	var records []domain.PaymentRecord
	for rows.Next() {
		var (
			record        domain.PaymentRecord
			amount        string
			currencyCode  string
			paymentMethod string
		)
		if err := rows.Scan(&record.ID, &record.OrderID, &amount, &currencyCode, &paymentMethod, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		money, err := domain.NewMoney(amount, currencyCode)
		if err != nil {
			return nil, fmt.Errorf("domain.NewMoney: %w", err)
		}
		record.Amount = money

		method, err := domain.ToPaymentMethod(paymentMethod)
		if err != nil {
			return nil, fmt.Errorf("domain.ToPaymentMethod[%s]: %w", paymentMethod, err)
		}
		record.PaymentMethod = method

		records = append(records, record)
	}

	return records, rows.Err()
}
