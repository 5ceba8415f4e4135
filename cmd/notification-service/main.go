package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/akriventsev/fulfillment/internal/bus"
	"github.com/akriventsev/fulfillment/internal/config"
	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/events"
	"github.com/akriventsev/fulfillment/internal/metrics"
	"github.com/akriventsev/fulfillment/internal/notify"
)

func main() {
	cfg, err := config.Load("notification-service")
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

	notifier := notify.NewNotifier(notify.NewLogSender(core.DefaultLogger()))

	router, err := bus.NewRouter(messageBus, bus.RouterConfig{
		Group:   cfg.Group,
		Backoff: cfg.Backoff,
	}, events.DLQFor)
	if err != nil {
		log.Fatalf("Failed to create router: %v", err)
	}
	router = router.WithMetrics(m)

	if err := router.Route(ctx, events.TopicOrderConfirmed, notifier.HandleOrderConfirmed); err != nil {
		log.Fatalf("Failed to subscribe to %s: %v", events.TopicOrderConfirmed, err)
	}
	if err := router.Route(ctx, events.TopicPaymentConfirmed, notifier.HandlePaymentConfirmed); err != nil {
		log.Fatalf("Failed to subscribe to %s: %v", events.TopicPaymentConfirmed, err)
	}
	defer func() {
		if err := router.Stop(ctx); err != nil {
			log.Printf("Failed to stop router: %v", err)
		}
	}()

	log.Printf("notification-service started (bus driver: %s, group: %s)", cfg.Bus.Driver, cfg.Group)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("notification-service shutting down")
}
