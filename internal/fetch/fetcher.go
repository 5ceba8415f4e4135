// Package fetch реализует конкурентную сборку данных для создания заказа.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/domain"
)

// PurchaseItem запрошенная позиция покупки
type PurchaseItem struct {
	ProductID string
	Quantity  int
}

// CustomerDirectory справочник клиентов.
// Отсутствие клиента возвращается ошибкой категории NOT_FOUND.
type CustomerDirectory interface {
	Find(ctx context.Context, customerID string) (domain.Customer, error)
}

// ProductCatalog каталог товаров с авторитетным списанием остатков.
// Недоступность любой позиции возвращается через ProductUnavailableError
// с полным списком нарушающих позиций.
type ProductCatalog interface {
	Purchase(ctx context.Context, items []PurchaseItem) ([]domain.PurchasedProduct, error)
}

// ProductUnavailableError обозначает отсутствующие или недостаточные позиции.
// IDs содержит все нарушающие позиции, а не только первую.
type ProductUnavailableError struct {
	IDs []string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("products unavailable: %s", strings.Join(e.IDs, ", "))
}

// OrderData результат успешной сборки
type OrderData struct {
	Customer domain.Customer
	Products []domain.PurchasedProduct
}

// Config конфигурация сборщика
type Config struct {
	LookupTimeout time.Duration
}

// DefaultConfig возвращает конфигурацию сборщика по умолчанию
func DefaultConfig() Config {
	return Config{
		LookupTimeout: 5 * time.Second,
	}
}

// Fetcher выполняет два независимых lookup (клиент и товары) конкурентно
// и объединяет результаты. Ошибка любого из lookup проваливает сборку
// целиком; второй lookup при этом не отменяется, его результат
// отбрасывается. Таймаут lookup считается отказом сборки.
type Fetcher struct {
	customers CustomerDirectory
	catalog   ProductCatalog
	config    Config
}

// NewFetcher создает новый сборщик
func NewFetcher(customers CustomerDirectory, catalog ProductCatalog, config Config) *Fetcher {
	return &Fetcher{
		customers: customers,
		catalog:   catalog,
		config:    config,
	}
}

type customerResult struct {
	customer domain.Customer
	err      error
}

type productResult struct {
	products []domain.PurchasedProduct
	err      error
}

// Fetch собирает данные заказа: оба lookup стартуют одновременно,
// вызывающий блокируется до завершения обоих
func (f *Fetcher) Fetch(ctx context.Context, customerID string, items []PurchaseItem) (OrderData, error) {
	if customerID == "" {
		return OrderData{}, core.NewError(core.KindValidation, "customer id cannot be empty")
	}
	if len(items) == 0 {
		return OrderData{}, core.NewError(core.KindValidation, "purchase items cannot be empty")
	}
	for _, item := range items {
		if item.ProductID == "" {
			return OrderData{}, core.NewError(core.KindValidation, "product id cannot be empty")
		}
		if item.Quantity <= 0 {
			return OrderData{}, core.Errorf(core.KindValidation,
				"quantity for product %s must be positive, got %d", item.ProductID, item.Quantity)
		}
	}

	if f.config.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.LookupTimeout)
		defer cancel()
	}

	customerCh := make(chan customerResult, 1)
	productCh := make(chan productResult, 1)

	go func() {
		customer, err := f.customers.Find(ctx, customerID)
		customerCh <- customerResult{customer: customer, err: err}
	}()

	go func() {
		products, err := f.catalog.Purchase(ctx, items)
		productCh <- productResult{products: products, err: err}
	}()

	// Точка соединения: ждем оба результата, ошибка одного lookup
	// не отменяет второй, но результат второго при ошибке отбрасывается
	customer := <-customerCh
	product := <-productCh

	if customer.err != nil && product.err != nil {
		return OrderData{}, errors.Join(customer.err, product.err)
	}
	if customer.err != nil {
		return OrderData{}, fmt.Errorf("customer lookup: %w", customer.err)
	}
	if product.err != nil {
		return OrderData{}, fmt.Errorf("product lookup: %w", product.err)
	}

	return OrderData{
		Customer: customer.customer,
		Products: product.products,
	}, nil
}
