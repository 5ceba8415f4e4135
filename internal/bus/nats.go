package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/akriventsev/fulfillment/internal/core"
)

const natsKeyHeader = "x-key"

// NATSConfig конфигурация для NATS адаптера
type NATSConfig struct {
	URL               string
	MaxReconnects     int
	ReconnectWait     time.Duration
	DrainTimeout      time.Duration
	ConnectionTimeout time.Duration
	Username          string
	Password          string
	Token             string
}

// Validate проверяет корректность конфигурации
func (c NATSConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("URL cannot be empty")
	}
	if !strings.HasPrefix(c.URL, "nats://") && !strings.HasPrefix(c.URL, "tls://") {
		return fmt.Errorf("URL must start with nats:// or tls://")
	}
	return nil
}

// DefaultNATSConfig возвращает конфигурацию NATS по умолчанию
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:               "nats://localhost:4222",
		MaxReconnects:     10,
		ReconnectWait:     2 * time.Second,
		DrainTimeout:      30 * time.Second,
		ConnectionTimeout: 5 * time.Second,
	}
}

// NATSAdapter реализация MessageBus через NATS.
// Порядок доставки гарантируется в рамках subject; корреляционный ключ
// переносится в заголовке сообщения.
type NATSAdapter struct {
	config  NATSConfig
	conn    *nats.Conn
	subs    map[string]*nats.Subscription
	mu      sync.RWMutex
	running bool
}

// NewNATSAdapter создает новый NATS адаптер
func NewNATSAdapter(config NATSConfig) (*NATSAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid nats config: %w", err)
	}

	return &NATSAdapter{
		config: config,
		subs:   make(map[string]*nats.Subscription),
	}, nil
}

// Start запускает адаптер и устанавливает подключение (реализация core.Lifecycle)
func (n *NATSAdapter) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.running {
		return nil
	}

	opts := []nats.Option{
		nats.MaxReconnects(n.config.MaxReconnects),
		nats.ReconnectWait(n.config.ReconnectWait),
		nats.Timeout(n.config.ConnectionTimeout),
	}

	if n.config.Token != "" {
		opts = append(opts, nats.Token(n.config.Token))
	}
	if n.config.Username != "" {
		opts = append(opts, nats.UserInfo(n.config.Username, n.config.Password))
	}

	conn, err := nats.Connect(n.config.URL, opts...)
	if err != nil {
		return core.Wrap(err, core.KindTransient, "failed to connect to NATS")
	}

	n.conn = conn
	n.running = true
	return nil
}

// Stop останавливает адаптер с drain подписок (реализация core.Lifecycle)
func (n *NATSAdapter) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.running {
		return nil
	}

	for topic, sub := range n.subs {
		if sub != nil {
			_ = sub.Drain()
		}
		delete(n.subs, topic)
	}

	if n.conn != nil {
		n.conn.Close()
	}

	n.running = false
	return nil
}

// IsRunning проверяет, запущен ли адаптер (реализация core.Lifecycle)
func (n *NATSAdapter) IsRunning() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.running
}

// Name возвращает имя компонента (реализация core.Component)
func (n *NATSAdapter) Name() string {
	return "nats-bus"
}

// Type возвращает тип компонента (реализация core.Component)
func (n *NATSAdapter) Type() core.ComponentType {
	return core.ComponentTypeAdapter
}

// Publish публикует сообщение в subject
func (n *NATSAdapter) Publish(ctx context.Context, topic, key string, data []byte, headers map[string]string) error {
	n.mu.RLock()
	conn := n.conn
	n.mu.RUnlock()

	if conn == nil {
		return core.NewError(core.KindTransient, "nats connection is not established")
	}

	msg := nats.NewMsg(topic)
	msg.Data = data
	msg.Header.Set(natsKeyHeader, key)
	for hk, hv := range headers {
		msg.Header.Set(hk, hv)
	}

	if err := conn.PublishMsg(msg); err != nil {
		return core.Wrap(err, core.KindTransient, "failed to publish message")
	}

	return nil
}

// Subscribe подписывается на subject в составе queue group
func (n *NATSAdapter) Subscribe(ctx context.Context, topic, group string, handler Handler) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.conn == nil {
		return core.NewError(core.KindTransient, "nats connection is not established")
	}

	sub, err := n.conn.QueueSubscribe(topic, group, func(m *nats.Msg) {
		busMsg := &Message{
			Topic:   m.Subject,
			Key:     m.Header.Get(natsKeyHeader),
			Data:    m.Data,
			Headers: make(map[string]string),
		}

		for hk := range m.Header {
			if hk == natsKeyHeader {
				continue
			}
			busMsg.Headers[hk] = m.Header.Get(hk)
		}

		// Ошибка обработчика не прерывает подписку
		_ = handler(ctx, busMsg)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	n.subs[topic] = sub
	return nil
}

// Unsubscribe отписывается от subject
func (n *NATSAdapter) Unsubscribe(topic string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	sub, exists := n.subs[topic]
	if !exists {
		return nil
	}

	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", topic, err)
	}

	delete(n.subs, topic)
	return nil
}
