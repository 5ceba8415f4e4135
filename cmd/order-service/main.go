package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akriventsev/fulfillment/internal/bus"
	"github.com/akriventsev/fulfillment/internal/config"
	"github.com/akriventsev/fulfillment/internal/domain"
	"github.com/akriventsev/fulfillment/internal/events"
	"github.com/akriventsev/fulfillment/internal/fetch"
	"github.com/akriventsev/fulfillment/internal/metrics"
	"github.com/akriventsev/fulfillment/internal/observability"
	"github.com/akriventsev/fulfillment/internal/order"
	"github.com/akriventsev/fulfillment/internal/payment"
	"github.com/akriventsev/fulfillment/internal/port"
	"github.com/akriventsev/fulfillment/internal/repository"
	"github.com/akriventsev/fulfillment/internal/transport"
)

func main() {
	cfg, err := config.Load("order-service")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Метрики
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		provider, err := metrics.Setup(&metrics.SetupConfig{
			ExporterType: cfg.Metrics.Exporter,
			ServiceName:  cfg.ServiceName,
		})
		if err != nil {
			log.Fatalf("Failed to setup metrics: %v", err)
		}
		defer func() {
			if err := metrics.Shutdown(ctx, provider); err != nil {
				log.Printf("Failed to shutdown metrics: %v", err)
			}
		}()

		m, err = metrics.NewMetrics()
		if err != nil {
			log.Fatalf("Failed to create metrics: %v", err)
		}
	}

	// Трассировка
	tracing, err := observability.NewTracingManager(observability.TracingConfig{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.ServiceName,
		Exporter:     cfg.Tracing.Exporter,
		SamplingRate: cfg.Tracing.Sampling,
	})
	if err != nil {
		log.Fatalf("Failed to setup tracing: %v", err)
	}
	defer func() {
		if err := tracing.Stop(ctx); err != nil {
			log.Printf("Failed to stop tracing: %v", err)
		}
	}()

	// Шина сообщений
	messageBus, err := bus.NewMessageBus(cfg.Bus)
	if err != nil {
		log.Fatalf("Failed to create message bus: %v", err)
	}
	if err := messageBus.Start(ctx); err != nil {
		log.Fatalf("Failed to start message bus: %v", err)
	}
	defer func() {
		if err := messageBus.Stop(ctx); err != nil {
			log.Printf("Failed to stop message bus: %v", err)
		}
	}()

	// Хранилище заказов
	var orders port.OrderRepository
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		orders = repository.NewOrderRepository(pool)
	} else {
		orders = repository.NewInMemoryOrderRepository()
	}

	publisher := events.NewPublisher(messageBus).WithMetrics(m)

	fetcher := fetch.NewFetcher(seedCustomers(), seedCatalog(), fetch.DefaultConfig())
	gateway := payment.NewAcceptingGateway()

	orchestrator := order.NewOrchestrator(fetcher, orders, gateway, publisher).WithMetrics(m)

	rest := transport.NewRESTAdapter(transport.RESTConfig{
		Addr:          cfg.HTTPAddr,
		BasePath:      "/api/v1",
		ServiceName:   cfg.ServiceName,
		EnableMetrics: cfg.Metrics.Enabled,
		EnableTracing: cfg.Tracing.Enabled,
	}, orchestrator, nil)

	if err := rest.Start(ctx); err != nil {
		log.Fatalf("Failed to start REST adapter: %v", err)
	}
	defer func() {
		if err := rest.Stop(ctx); err != nil {
			log.Printf("Failed to stop REST adapter: %v", err)
		}
	}()

	log.Printf("order-service started on %s (bus driver: %s)", cfg.HTTPAddr, cfg.Bus.Driver)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("order-service shutting down")
}

// seedCustomers возвращает справочник клиентов для локального запуска
func seedCustomers() fetch.CustomerDirectory {
	return repository.NewInMemoryCustomerDirectory(
		domain.Customer{ID: "c-1001", FirstName: "Анна", LastName: "Иванова", Email: "anna.ivanova@example.com"},
		domain.Customer{ID: "c-1002", FirstName: "Петр", LastName: "Смирнов", Email: "petr.smirnov@example.com"},
	)
}

// seedCatalog возвращает каталог товаров для локального запуска
func seedCatalog() fetch.ProductCatalog {
	price := func(amount string) domain.Money {
		money, err := domain.NewMoney(amount, "EUR")
		if err != nil {
			log.Fatalf("Failed to seed catalog: %v", err)
		}
		return money
	}

	return repository.NewInMemoryProductCatalog(
		domain.Product{ID: "p-1", Name: "Laptop", Category: "electronics", Price: price("1200.00"), Stock: 10},
		domain.Product{ID: "p-2", Name: "Mouse", Category: "electronics", Price: price("25.50"), Stock: 100},
		domain.Product{ID: "p-3", Name: "Desk", Category: "furniture", Price: price("310.00"), Stock: 5},
	)
}
