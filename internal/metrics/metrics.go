// Package metrics предоставляет систему метрик на основе OpenTelemetry.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics сборщик метрик пайплайна
type Metrics struct {
	meter             metric.Meter
	publishedTotal    metric.Int64Counter
	consumedTotal     metric.Int64Counter
	retriesTotal      metric.Int64Counter
	deadLetteredTotal metric.Int64Counter
	errorsTotal       metric.Int64Counter
	handleDuration    metric.Float64Histogram
	ordersTotal       metric.Int64Counter
}

// NewMetrics создает новый сборщик метрик
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("fulfillment")

	publishedTotal, err := meter.Int64Counter(
		"events_published_total",
		metric.WithDescription("Total number of events published"),
	)
	if err != nil {
		return nil, err
	}

	consumedTotal, err := meter.Int64Counter(
		"messages_consumed_total",
		metric.WithDescription("Total number of messages consumed"),
	)
	if err != nil {
		return nil, err
	}

	retriesTotal, err := meter.Int64Counter(
		"consume_retries_total",
		metric.WithDescription("Total number of consume retry attempts"),
	)
	if err != nil {
		return nil, err
	}

	deadLetteredTotal, err := meter.Int64Counter(
		"messages_dead_lettered_total",
		metric.WithDescription("Total number of messages routed to a dead letter topic"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		"errors_total",
		metric.WithDescription("Total number of errors"),
	)
	if err != nil {
		return nil, err
	}

	handleDuration, err := meter.Float64Histogram(
		"message_handle_duration_seconds",
		metric.WithDescription("Message processing duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	ordersTotal, err := meter.Int64Counter(
		"orders_total",
		metric.WithDescription("Total number of order creation attempts"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		meter:             meter,
		publishedTotal:    publishedTotal,
		consumedTotal:     consumedTotal,
		retriesTotal:      retriesTotal,
		deadLetteredTotal: deadLetteredTotal,
		errorsTotal:       errorsTotal,
		handleDuration:    handleDuration,
		ordersTotal:       ordersTotal,
	}, nil
}

// RecordPublish записывает метрику публикации события
func (m *Metrics) RecordPublish(ctx context.Context, topic string, success bool) {
	m.publishedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.Bool("success", success),
	))

	if !success {
		m.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", "publish"),
			attribute.String("topic", topic),
		))
	}
}

// RecordConsume записывает метрику обработки сообщения
func (m *Metrics) RecordConsume(ctx context.Context, topic string, duration time.Duration, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("topic", topic),
		attribute.Bool("success", success),
	}

	m.consumedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.handleDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if !success {
		m.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", "consume"),
			attribute.String("topic", topic),
		))
	}
}

// RecordRetry записывает метрику повторной попытки обработки
func (m *Metrics) RecordRetry(ctx context.Context, topic string, attempt int) {
	m.retriesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("topic", topic),
		attribute.Int("attempt", attempt),
	))
}

// RecordDeadLetter записывает метрику отправки в dead letter topic
func (m *Metrics) RecordDeadLetter(ctx context.Context, sourceTopic, dlqTopic string) {
	m.deadLetteredTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source_topic", sourceTopic),
		attribute.String("dlq_topic", dlqTopic),
	))
}

// RecordOrder записывает метрику создания заказа
func (m *Metrics) RecordOrder(ctx context.Context, status string, duration time.Duration) {
	m.ordersTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
	m.handleDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("topic", "orders.create"),
	))
}
