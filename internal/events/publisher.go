package events

import (
	"context"
	"encoding/json"

	"github.com/akriventsev/fulfillment/internal/bus"
	"github.com/akriventsev/fulfillment/internal/core"
	"github.com/akriventsev/fulfillment/internal/metrics"
)

// Заголовки событий в шине
const (
	HeaderEventID   = "x-event-id"
	HeaderEventType = "x-event-type"
	HeaderTraceID   = "x-trace-id"
)

// Publisher публикует события с at-least-once гарантией.
// Корреляционный ключ конверта используется как ключ партиционирования,
// что сохраняет порядок событий одного заказа или платежа. Подтверждение
// публикации не ждет потребителей; ошибка публикации возвращается
// синхронно и не повторяется — политика повторов принадлежит вызывающему.
type Publisher struct {
	bus     bus.Publisher
	logger  core.Logger
	metrics *metrics.Metrics
}

// NewPublisher создает новый публикатор событий
func NewPublisher(b bus.Publisher) *Publisher {
	return &Publisher{
		bus:    b,
		logger: core.DefaultLogger(),
	}
}

// WithLogger устанавливает логгер
func (p *Publisher) WithLogger(logger core.Logger) *Publisher {
	p.logger = logger
	return p
}

// WithMetrics устанавливает сборщик метрик
func (p *Publisher) WithMetrics(m *metrics.Metrics) *Publisher {
	p.metrics = m
	return p
}

// Publish публикует конверт события в топик
func (p *Publisher) Publish(ctx context.Context, topic string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordPublish(ctx, topic, false)
		}
		return core.Wrap(err, core.KindFatal, "failed to serialize event")
	}

	headers := map[string]string{
		HeaderEventID:   env.EventID,
		HeaderEventType: env.EventType,
		HeaderTraceID:   env.TraceID,
	}

	if err := p.bus.Publish(ctx, topic, env.CorrelationKey, data, headers); err != nil {
		if p.metrics != nil {
			p.metrics.RecordPublish(ctx, topic, false)
		}
		return core.Wrap(err, core.KindTransient, "failed to publish event")
	}

	p.logger.Log("published event: topic=%s type=%s id=%s key=%s",
		topic, env.EventType, env.EventID, env.CorrelationKey)
	if p.metrics != nil {
		p.metrics.RecordPublish(ctx, topic, true)
	}

	return nil
}
