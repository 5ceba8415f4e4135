package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/domain"
	"github.com/akriventsev/fulfillment/internal/fetch"
	"github.com/akriventsev/fulfillment/internal/port"
)

// InMemoryOrderRepository хранилище заказов в памяти для тестов
// и локальных запусков
type InMemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[int64]domain.Order
	nextID int64
}

// NewInMemoryOrderRepository создает пустое хранилище заказов
func NewInMemoryOrderRepository() *InMemoryOrderRepository {
	return &InMemoryOrderRepository{
		orders: make(map[int64]domain.Order),
		nextID: 1,
	}
}

func (r *InMemoryOrderRepository) SaveOrder(_ context.Context, order domain.Order) (domain.Order, error) {
	if err := order.Validate(); err != nil {
		return domain.Order{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	order.ID = r.nextID
	order.Status = domain.OrderStatusPersisted
	r.nextID++
	r.orders[order.ID] = order

	return order, nil
}

func (r *InMemoryOrderRepository) UpdateOrderStatus(_ context.Context, orderID int64, status domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[orderID]
	if !ok {
		return core.Errorf(core.KindNotFound, "order %d not found", orderID)
	}

	order.Status = status
	r.orders[orderID] = order
	return nil
}

func (r *InMemoryOrderRepository) GetOrder(_ context.Context, orderID int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, core.Errorf(core.KindNotFound, "order %d not found", orderID)
	}
	return order, nil
}

// Count возвращает количество сохраненных заказов
func (r *InMemoryOrderRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

// InMemoryPaymentRepository хранилище платежей в памяти.
// Уникальность платежа по заказу соблюдается так же, как в Postgres.
type InMemoryPaymentRepository struct {
	mu       sync.RWMutex
	payments map[int64]domain.PaymentRecord
	byOrder  map[int64]int64
	nextID   int64
}

// NewInMemoryPaymentRepository создает пустое хранилище платежей
func NewInMemoryPaymentRepository() *InMemoryPaymentRepository {
	return &InMemoryPaymentRepository{
		payments: make(map[int64]domain.PaymentRecord),
		byOrder:  make(map[int64]int64),
		nextID:   1,
	}
}

func (r *InMemoryPaymentRepository) SavePayment(_ context.Context, record domain.PaymentRecord) (domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byOrder[record.OrderID]; ok {
		return domain.PaymentRecord{}, core.Errorf(core.KindConflict,
			"payment for order %d already recorded", record.OrderID)
	}

	record.ID = r.nextID
	r.nextID++
	r.payments[record.ID] = record
	r.byOrder[record.OrderID] = record.ID

	return record, nil
}

func (r *InMemoryPaymentRepository) PaymentsInWindow(_ context.Context, from, to *time.Time) ([]domain.PaymentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var records []domain.PaymentRecord
	for _, record := range r.payments {
		if from != nil && record.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && record.CreatedAt.After(*to) {
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// InMemoryCustomerDirectory справочник клиентов в памяти
type InMemoryCustomerDirectory struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
}

// NewInMemoryCustomerDirectory создает справочник с начальными клиентами
func NewInMemoryCustomerDirectory(customers ...domain.Customer) *InMemoryCustomerDirectory {
	d := &InMemoryCustomerDirectory{customers: make(map[string]domain.Customer)}
	for _, c := range customers {
		d.customers[c.ID] = c
	}
	return d
}

func (d *InMemoryCustomerDirectory) Find(_ context.Context, customerID string) (domain.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	customer, ok := d.customers[customerID]
	if !ok {
		return domain.Customer{}, core.Errorf(core.KindNotFound, "customer %s not found", customerID)
	}
	return customer, nil
}

// InMemoryProductCatalog каталог товаров в памяти с авторитетным
// списанием остатков. Списание атомарно для всего запроса: при любой
// нарушающей позиции остатки не меняются.
type InMemoryProductCatalog struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

// NewInMemoryProductCatalog создает каталог с начальными товарами
func NewInMemoryProductCatalog(products ...domain.Product) *InMemoryProductCatalog {
	c := &InMemoryProductCatalog{products: make(map[string]domain.Product)}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *InMemoryProductCatalog) Purchase(_ context.Context, items []fetch.PurchaseItem) ([]domain.PurchasedProduct, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Первый проход собирает все нарушающие позиции
	var unavailable []string
	for _, item := range items {
		product, ok := c.products[item.ProductID]
		if !ok || product.Stock < item.Quantity {
			unavailable = append(unavailable, item.ProductID)
		}
	}
	if len(unavailable) > 0 {
		return nil, &fetch.ProductUnavailableError{IDs: unavailable}
	}

	purchased := make([]domain.PurchasedProduct, 0, len(items))
	for _, item := range items {
		product := c.products[item.ProductID]
		product.Stock -= item.Quantity
		c.products[item.ProductID] = product

		purchased = append(purchased, domain.PurchasedProduct{
			Product:  product,
			Quantity: item.Quantity,
		})
	}

	return purchased, nil
}

// Stock возвращает текущий остаток товара
func (c *InMemoryProductCatalog) Stock(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.products[productID].Stock
}

var (
	_ port.OrderRepository    = (*InMemoryOrderRepository)(nil)
	_ port.PaymentRepository  = (*InMemoryPaymentRepository)(nil)
	_ fetch.CustomerDirectory = (*InMemoryCustomerDirectory)(nil)
	_ fetch.ProductCatalog    = (*InMemoryProductCatalog)(nil)
)
