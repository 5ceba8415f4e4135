package fetch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/domain"
)

type stubDirectory struct {
	customer domain.Customer
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func (d *stubDirectory) Find(ctx context.Context, customerID string) (domain.Customer, error) {
	d.calls.Add(1)
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return domain.Customer{}, ctx.Err()
		}
	}
	if d.err != nil {
		return domain.Customer{}, d.err
	}
	return d.customer, nil
}

type stubCatalog struct {
	products []domain.PurchasedProduct
	err      error
	delay    time.Duration
	calls    atomic.Int32
}

func (c *stubCatalog) Purchase(ctx context.Context, items []PurchaseItem) ([]domain.PurchasedProduct, error) {
	c.calls.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.err != nil {
		return nil, c.err
	}
	return c.products, nil
}

func testMoney(t *testing.T, amount string) domain.Money {
	t.Helper()
	money, err := domain.NewMoney(amount, "EUR")
	if err != nil {
		t.Fatalf("NewMoney failed: %v", err)
	}
	return money
}

func TestFetcher_BothLookupsSucceed(t *testing.T) {
	directory := &stubDirectory{
		customer: domain.Customer{ID: "c-1", FirstName: "Анна", LastName: "Иванова", Email: "anna@example.com"},
	}
	catalog := &stubCatalog{
		products: []domain.PurchasedProduct{
			{Product: domain.Product{ID: "p-1", Price: testMoney(t, "10.00"), Stock: 5}, Quantity: 2},
		},
	}

	fetcher := NewFetcher(directory, catalog, DefaultConfig())
	data, err := fetcher.Fetch(context.Background(), "c-1", []PurchaseItem{{ProductID: "p-1", Quantity: 2}})
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if data.Customer.ID != "c-1" {
		t.Errorf("Expected customer c-1, got %s", data.Customer.ID)
	}
	if len(data.Products) != 1 || data.Products[0].Product.ID != "p-1" {
		t.Errorf("Unexpected products: %v", data.Products)
	}
	if directory.calls.Load() != 1 || catalog.calls.Load() != 1 {
		t.Errorf("Expected exactly one call per lookup, got %d/%d",
			directory.calls.Load(), catalog.calls.Load())
	}
}

func TestFetcher_LookupsRunConcurrently(t *testing.T) {
	const delay = 100 * time.Millisecond

	directory := &stubDirectory{customer: domain.Customer{ID: "c-1"}, delay: delay}
	catalog := &stubCatalog{
		products: []domain.PurchasedProduct{{Product: domain.Product{ID: "p-1"}, Quantity: 1}},
		delay:    delay,
	}

	fetcher := NewFetcher(directory, catalog, DefaultConfig())

	start := time.Now()
	_, err := fetcher.Fetch(context.Background(), "c-1", []PurchaseItem{{ProductID: "p-1", Quantity: 1}})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	// Последовательное выполнение заняло бы не меньше 2*delay
	if elapsed >= 2*delay {
		t.Errorf("Lookups appear sequential: took %s", elapsed)
	}
}

func TestFetcher_UnknownCustomer(t *testing.T) {
	directory := &stubDirectory{err: core.Errorf(core.KindNotFound, "customer c-404 not found")}
	catalog := &stubCatalog{
		products: []domain.PurchasedProduct{{Product: domain.Product{ID: "p-1"}, Quantity: 1}},
	}

	fetcher := NewFetcher(directory, catalog, DefaultConfig())
	_, err := fetcher.Fetch(context.Background(), "c-404", []PurchaseItem{{ProductID: "p-1", Quantity: 1}})
	if err == nil {
		t.Fatal("Expected error for unknown customer")
	}
	if !core.IsNotFound(err) {
		t.Errorf("Expected NOT_FOUND kind, got %q", core.KindOf(err))
	}
	// Каталог все равно был вызван: lookup идут параллельно
	if catalog.calls.Load() != 1 {
		t.Errorf("Expected catalog lookup to run, got %d calls", catalog.calls.Load())
	}
}

func TestFetcher_ReportsAllUnavailableProducts(t *testing.T) {
	directory := &stubDirectory{customer: domain.Customer{ID: "c-1"}}
	catalog := &stubCatalog{err: &ProductUnavailableError{IDs: []string{"p-2", "p-5", "p-9"}}}

	fetcher := NewFetcher(directory, catalog, DefaultConfig())
	_, err := fetcher.Fetch(context.Background(), "c-1", []PurchaseItem{
		{ProductID: "p-2", Quantity: 1},
		{ProductID: "p-5", Quantity: 3},
		{ProductID: "p-9", Quantity: 2},
	})
	if err == nil {
		t.Fatal("Expected error for unavailable products")
	}

	var unavailable *ProductUnavailableError
	if !errors.As(err, &unavailable) {
		t.Fatalf("Expected ProductUnavailableError, got %v", err)
	}
	if len(unavailable.IDs) != 3 {
		t.Errorf("Expected all 3 violating ids, got %v", unavailable.IDs)
	}
}

func TestFetcher_BothLookupsFail(t *testing.T) {
	customerErr := core.Errorf(core.KindNotFound, "customer not found")
	productErr := &ProductUnavailableError{IDs: []string{"p-1"}}

	directory := &stubDirectory{err: customerErr}
	catalog := &stubCatalog{err: productErr}

	fetcher := NewFetcher(directory, catalog, DefaultConfig())
	_, err := fetcher.Fetch(context.Background(), "c-1", []PurchaseItem{{ProductID: "p-1", Quantity: 1}})
	if err == nil {
		t.Fatal("Expected error when both lookups fail")
	}

	if !errors.Is(err, customerErr) {
		t.Error("Expected customer error preserved")
	}
	var unavailable *ProductUnavailableError
	if !errors.As(err, &unavailable) {
		t.Error("Expected product error preserved")
	}
}

func TestFetcher_LookupTimeout(t *testing.T) {
	directory := &stubDirectory{customer: domain.Customer{ID: "c-1"}, delay: 500 * time.Millisecond}
	catalog := &stubCatalog{
		products: []domain.PurchasedProduct{{Product: domain.Product{ID: "p-1"}, Quantity: 1}},
	}

	fetcher := NewFetcher(directory, catalog, Config{LookupTimeout: 20 * time.Millisecond})
	_, err := fetcher.Fetch(context.Background(), "c-1", []PurchaseItem{{ProductID: "p-1", Quantity: 1}})
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestFetcher_ValidatesInput(t *testing.T) {
	fetcher := NewFetcher(&stubDirectory{}, &stubCatalog{}, DefaultConfig())

	if _, err := fetcher.Fetch(context.Background(), "", []PurchaseItem{{ProductID: "p-1", Quantity: 1}}); core.KindOf(err) != core.KindValidation {
		t.Errorf("Expected validation error for empty customer id, got %v", err)
	}
	if _, err := fetcher.Fetch(context.Background(), "c-1", nil); core.KindOf(err) != core.KindValidation {
		t.Errorf("Expected validation error for empty items, got %v", err)
	}
	if _, err := fetcher.Fetch(context.Background(), "c-1", []PurchaseItem{{ProductID: "p-1", Quantity: 0}}); core.KindOf(err) != core.KindValidation {
		t.Errorf("Expected validation error for zero quantity, got %v", err)
	}
}
