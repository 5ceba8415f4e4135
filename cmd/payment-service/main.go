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
	"github.com/akriventsev/fulfillment/internal/events"
	"github.com/akriventsev/fulfillment/internal/metrics"
	"github.com/akriventsev/fulfillment/internal/payment"
	"github.com/akriventsev/fulfillment/internal/port"
	"github.com/akriventsev/fulfillment/internal/repository"
	"github.com/akriventsev/fulfillment/internal/transport"
)

func main() {
	cfg, err := config.Load("payment-service")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	var payments port.PaymentRepository
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		defer pool.Close()
		payments = repository.NewPaymentRepository(pool)
	} else {
		payments = repository.NewInMemoryPaymentRepository()
	}

	publisher := events.NewPublisher(messageBus).WithMetrics(m)
	recorder := payment.NewRecorder(payments, publisher)

	router, err := bus.NewRouter(messageBus, bus.RouterConfig{
		Group:   cfg.Group,
		Backoff: cfg.Backoff,
	}, events.DLQFor)
	if err != nil {
		log.Fatalf("Failed to create router: %v", err)
	}
	router = router.WithMetrics(m)

	if err := router.Route(ctx, events.TopicOrderConfirmed, recorder.Handle); err != nil {
		log.Fatalf("Failed to subscribe to %s: %v", events.TopicOrderConfirmed, err)
	}
	defer func() {
		if err := router.Stop(ctx); err != nil {
			log.Printf("Failed to stop router: %v", err)
		}
	}()

	summaries := payment.NewSummaryService(payments)

	rest := transport.NewRESTAdapter(transport.RESTConfig{
		Addr:          cfg.HTTPAddr,
		BasePath:      "/api/v1",
		ServiceName:   cfg.ServiceName,
		EnableMetrics: cfg.Metrics.Enabled,
		EnableTracing: cfg.Tracing.Enabled,
	}, nil, summaries)

	if err := rest.Start(ctx); err != nil {
		log.Fatalf("Failed to start REST adapter: %v", err)
	}
	defer func() {
		if err := rest.Stop(ctx); err != nil {
			log.Printf("Failed to stop REST adapter: %v", err)
		}
	}()

	log.Printf("payment-service started on %s (bus driver: %s, group: %s)",
		cfg.HTTPAddr, cfg.Bus.Driver, cfg.Group)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("payment-service shutting down")
}
