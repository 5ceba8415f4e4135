package bus

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/metrics"
)

// Заголовки dead letter сообщений
const (
	HeaderOriginalTopic = "x-original-topic"
	HeaderDLQReason     = "x-dlq-reason"
	HeaderAttempts      = "x-attempts"
	HeaderDeadLetterAt  = "x-dead-lettered-at"
)

// DLQRule выбирает dead letter топик по исходному топику сообщения
type DLQRule func(sourceTopic string) string

// RouterConfig конфигурация маршрутизатора потребителя
type RouterConfig struct {
	Group   string
	Backoff BackoffPolicy
}

// DefaultRouterConfig возвращает конфигурацию маршрутизатора по умолчанию
func DefaultRouterConfig(group string) RouterConfig {
	return RouterConfig{
		Group:   group,
		Backoff: DefaultBackoffPolicy(),
	}
}

// Validate проверяет корректность конфигурации
func (c RouterConfig) Validate() error {
	if c.Group == "" {
		return fmt.Errorf("group cannot be empty")
	}
	if c.Backoff.MaxAttempts < 1 {
		return fmt.Errorf("backoff max attempts must be at least 1")
	}
	return nil
}

// Router надежный потребитель поверх MessageBus.
// Обработчик вызывается по одному сообщению на партицию; подтверждение
// уходит в шину только после успешной обработки. Восстановимые ошибки
// повторяются с экспоненциальной задержкой, затем сообщение уходит в
// dead letter топик, выбранный по исходному топику. Невосстановимые
// ошибки (битый формат, отсутствующие записи) уходят в dead letter сразу.
// Задержка повтора блокирует только воркер своей партиции.
type Router struct {
	bus     MessageBus
	config  RouterConfig
	rule    DLQRule
	logger  core.Logger
	metrics *metrics.Metrics
	mu      sync.RWMutex
	topics  []string
	running bool
}

// NewRouter создает новый маршрутизатор потребителя
func NewRouter(b MessageBus, config RouterConfig, rule DLQRule) (*Router, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid router config: %w", err)
	}
	if rule == nil {
		return nil, fmt.Errorf("dlq rule cannot be nil")
	}

	return &Router{
		bus:    b,
		config: config,
		rule:   rule,
		logger: core.DefaultLogger(),
	}, nil
}

// WithLogger устанавливает логгер
func (r *Router) WithLogger(logger core.Logger) *Router {
	r.logger = logger
	return r
}

// WithMetrics устанавливает сборщик метрик
func (r *Router) WithMetrics(m *metrics.Metrics) *Router {
	r.metrics = m
	return r
}

// Name возвращает имя компонента (реализация core.Component)
func (r *Router) Name() string {
	return "consumer-router"
}

// Type возвращает тип компонента (реализация core.Component)
func (r *Router) Type() core.ComponentType {
	return core.ComponentTypeHandler
}

// Route подписывает обработчик на топик с политикой повторов и dead letter
func (r *Router) Route(ctx context.Context, topic string, handler Handler) error {
	if err := r.bus.Subscribe(ctx, topic, r.config.Group, r.wrap(topic, handler)); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	r.mu.Lock()
	r.topics = append(r.topics, topic)
	r.running = true
	r.mu.Unlock()

	return nil
}

// Stop отписывает маршрутизатор от всех топиков
func (r *Router) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, topic := range r.topics {
		_ = r.bus.Unsubscribe(topic)
	}
	r.topics = nil
	r.running = false
	return nil
}

// IsRunning проверяет, есть ли активные подписки
func (r *Router) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// wrap оборачивает обработчик в цикл retry/dead-letter
func (r *Router) wrap(topic string, handler Handler) Handler {
	return func(ctx context.Context, msg *Message) error {
		start := time.Now()
		attempt := 1

		for {
			err := handler(ctx, msg)
			if err == nil {
				if r.metrics != nil {
					r.metrics.RecordConsume(ctx, topic, time.Since(start), true)
				}
				return nil
			}

			if !core.IsRetryable(err) || r.config.Backoff.Exhausted(attempt) {
				if r.metrics != nil {
					r.metrics.RecordConsume(ctx, topic, time.Since(start), false)
				}
				return r.deadLetter(ctx, msg, err, attempt)
			}

			delay := r.config.Backoff.Delay(attempt - 1)
			attempt++

			r.logger.Log(
				"retrying message: topic=%s partition=%d offset=%d key=%s attempt=%d delay=%s error=%v",
				msg.Topic, msg.Partition, msg.Offset, msg.Key, attempt, delay, err,
			)
			if r.metrics != nil {
				r.metrics.RecordRetry(ctx, topic, attempt)
			}

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// deadLetter пересылает сообщение в dead letter топик с сохранением
// ключа и исходных заголовков. Отказ самой dead letter публикации
// фатален и поднимается наверх без вторичных fallback.
func (r *Router) deadLetter(ctx context.Context, msg *Message, cause error, attempts int) error {
	dlqTopic := r.rule(msg.Topic)

	headers := make(map[string]string, len(msg.Headers)+4)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers[HeaderOriginalTopic] = msg.Topic
	headers[HeaderDLQReason] = cause.Error()
	headers[HeaderAttempts] = strconv.Itoa(attempts)
	headers[HeaderDeadLetterAt] = time.Now().UTC().Format(time.RFC3339)

	if err := r.bus.Publish(ctx, dlqTopic, msg.Key, msg.Data, headers); err != nil {
		return core.Wrap(err, core.KindFatal,
			fmt.Sprintf("dead letter publish to %s failed", dlqTopic))
	}

	r.logger.Log(
		"dead-lettered message: topic=%s dlq=%s key=%s attempts=%d error=%v",
		msg.Topic, dlqTopic, msg.Key, attempts, cause,
	)
	if r.metrics != nil {
		r.metrics.RecordDeadLetter(ctx, msg.Topic, dlqTopic)
	}

	return nil
}
