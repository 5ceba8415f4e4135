package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/domain"
	"github.com/akriventsev/fulfillment/internal/port"
)

const pgUniqueViolation = "23505"

type orderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository создает Postgres хранилище заказов
func NewOrderRepository(pool *pgxpool.Pool) port.OrderRepository {
	return &orderRepository{pool: pool}
}

// SaveOrder сохраняет заказ вместе с позициями в одной транзакции
// и возвращает заказ с присвоенным id
func (r *orderRepository) SaveOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	if err := order.Validate(); err != nil {
		return domain.Order{}, fmt.Errorf("order.Validate: %w", err)
	}

	saved, err := withTx(ctx, r.pool, func(tx pgx.Tx) (domain.Order, error) {
		var id int64
		err := tx.QueryRow(ctx,
			`INSERT INTO orders (customer_id, amount, currency, payment_method, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id`,
			order.CustomerID, order.Amount.FixedString(), order.Amount.Currency.String(),
			string(order.PaymentMethod), string(domain.OrderStatusPersisted), order.CreatedAt,
		).Scan(&id)
		if err != nil {
			return domain.Order{}, fmt.Errorf("insert order: %w", err)
		}

		for _, line := range order.Lines {
			_, err := tx.Exec(ctx,
				`INSERT INTO order_lines (order_id, product_id, quantity, price_amount, price_currency)
				 VALUES ($1, $2, $3, $4, $5)`,
				id, line.ProductID, line.Quantity,
				line.Price.FixedString(), line.Price.Currency.String())
			if err != nil {
				return domain.Order{}, fmt.Errorf("insert order line[%s]: %w", line.ProductID, err)
			}
		}

		order.ID = id
		order.Status = domain.OrderStatusPersisted
		return order, nil
	})
	if err != nil {
		return domain.Order{}, core.Wrap(err, core.KindTransient, "SaveOrder")
	}

	return saved, nil
}

// UpdateOrderStatus меняет статус сохраненного заказа
func (r *orderRepository) UpdateOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	if _, err := domain.ToOrderStatus(string(status)); err != nil {
		return fmt.Errorf("domain.ToOrderStatus[%s]: %w", status, err)
	}

	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $1 WHERE id = $2`, string(status), orderID)
	if err != nil {
		return core.Wrap(err, core.KindTransient, "UpdateOrderStatus")
	}

	if cmdTag.RowsAffected() == 0 {
		return core.Errorf(core.KindNotFound, "order %d not found", orderID)
	}

	return nil
}

// GetOrder возвращает заказ с позициями
func (r *orderRepository) GetOrder(ctx context.Context, orderID int64) (domain.Order, error) {
	var (
		order         domain.Order
		amount        string
		currencyCode  string
		paymentMethod string
		status        string
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id, customer_id, amount::text, currency, payment_method, status, created_at
		 FROM orders WHERE id = $1`, orderID,
	).Scan(&order.ID, &order.CustomerID, &amount, &currencyCode, &paymentMethod, &status, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, core.Errorf(core.KindNotFound, "order %d not found", orderID)
		}
		return domain.Order{}, core.Wrap(err, core.KindTransient, "GetOrder")
	}

	money, err := domain.NewMoney(amount, currencyCode)
	if err != nil {
		return domain.Order{}, fmt.Errorf("domain.NewMoney: %w", err)
	}
	order.Amount = money

	method, err := domain.ToPaymentMethod(paymentMethod)
	if err != nil {
		return domain.Order{}, fmt.Errorf("domain.ToPaymentMethod[%s]: %w", paymentMethod, err)
	}
	order.PaymentMethod = method

	parsedStatus, err := domain.ToOrderStatus(status)
	if err != nil {
		return domain.Order{}, fmt.Errorf("domain.ToOrderStatus[%s]: %w", status, err)
	}
	order.Status = parsedStatus

	lines, err := r.orderLines(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("r.orderLines: %w", err)
	}
	order.Lines = lines

	return order, nil
}

func (r *orderRepository) orderLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT product_id, quantity, price_amount::text, price_currency
		 FROM order_lines WHERE order_id = $1 ORDER BY product_id`, orderID)
	if err != nil {
		return nil, core.Wrap(err, core.KindTransient, "select order lines")
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var (
			line         domain.OrderLine
			amount       string
			currencyCode string
		)
		if err := rows.Scan(&line.ProductID, &line.Quantity, &amount, &currencyCode); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		price, err := domain.NewMoney(amount, currencyCode)
		if err != nil {
			return nil, fmt.Errorf("domain.NewMoney: %w", err)
		}
		line.Price = price

		lines = append(lines, line)
	}

	return lines, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
