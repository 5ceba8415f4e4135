package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/akriventsev/fulfillment/internal/core"
)

// RedisConfig конфигурация для Redis Streams адаптера
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MaxRetries   int
	StreamMaxLen int64 // Максимальная длина stream (0 = без ограничений)
	BlockTimeout time.Duration
}

// Validate проверяет корректность конфигурации
func (c RedisConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	return nil
}

// DefaultRedisConfig возвращает конфигурацию Redis по умолчанию
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		MaxRetries:   3,
		StreamMaxLen: 10000,
		BlockTimeout: 5 * time.Second,
	}
}

// RedisAdapter реализация MessageBus через Redis Streams.
// Каждый топик отображается в stream; подтверждение через XACK
// только после успешной обработки.
type RedisAdapter struct {
	config    RedisConfig
	client    *redis.Client
	consumers map[string]string // stream -> consumer name
	mu        sync.RWMutex
	running   bool
}

// NewRedisAdapter создает новый Redis адаптер
func NewRedisAdapter(config RedisConfig) (*RedisAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid redis config: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:       config.Addr,
		Password:   config.Password,
		DB:         config.DB,
		PoolSize:   config.PoolSize,
		MaxRetries: config.MaxRetries,
	})

	return &RedisAdapter{
		config:    config,
		client:    client,
		consumers: make(map[string]string),
	}, nil
}

// Start запускает адаптер и проверяет подключение (реализация core.Lifecycle)
func (r *RedisAdapter) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return core.Wrap(err, core.KindTransient, "failed to connect to Redis")
	}

	r.running = true
	return nil
}

// Stop останавливает адаптер (реализация core.Lifecycle)
func (r *RedisAdapter) Stop(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}

	if r.client != nil {
		_ = r.client.Close()
	}

	r.running = false
	return nil
}

// IsRunning проверяет, запущен ли адаптер (реализация core.Lifecycle)
func (r *RedisAdapter) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Name возвращает имя компонента (реализация core.Component)
func (r *RedisAdapter) Name() string {
	return "redis-bus"
}

// Type возвращает тип компонента (реализация core.Component)
func (r *RedisAdapter) Type() core.ComponentType {
	return core.ComponentTypeAdapter
}

// Publish публикует сообщение в stream (XADD)
func (r *RedisAdapter) Publish(ctx context.Context, topic, key string, data []byte, headers map[string]string) error {
	values := map[string]interface{}{
		"key":  key,
		"data": string(data),
	}

	if headers != nil {
		headersJSON, _ := json.Marshal(headers)
		values["headers"] = string(headersJSON)
	}

	args := redis.XAddArgs{
		Stream: topic,
		Values: values,
	}

	// MAXLEN для автоматической очистки старых сообщений
	if r.config.StreamMaxLen > 0 {
		args.MaxLen = r.config.StreamMaxLen
		args.Approx = true
	}

	if err := r.client.XAdd(ctx, &args).Err(); err != nil {
		return core.Wrap(err, core.KindTransient, "failed to publish message")
	}

	return nil
}

// Subscribe подписывается на stream (XREADGROUP)
func (r *RedisAdapter) Subscribe(ctx context.Context, topic, group string, handler Handler) error {
	consumerName := fmt.Sprintf("consumer-%s", uuid.New().String())

	// Создаем consumer group если не существует
	err := r.client.XGroupCreateMkStream(ctx, topic, group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	r.mu.Lock()
	r.consumers[topic] = consumerName
	r.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				streams, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
					Group:    group,
					Consumer: consumerName,
					Streams:  []string{topic, ">"},
					Count:    10,
					Block:    r.config.BlockTimeout,
				}).Result()

				if err != nil {
					if err == redis.Nil || err == context.Canceled {
						continue
					}
					time.Sleep(1 * time.Second)
					continue
				}

				for _, stream := range streams {
					for _, msg := range stream.Messages {
						busMsg := &Message{
							Topic:   topic,
							Headers: make(map[string]string),
						}

						if keyStr, ok := msg.Values["key"].(string); ok {
							busMsg.Key = keyStr
						}
						if dataStr, ok := msg.Values["data"].(string); ok {
							busMsg.Data = []byte(dataStr)
						}
						if headersStr, ok := msg.Values["headers"].(string); ok {
							_ = json.Unmarshal([]byte(headersStr), &busMsg.Headers)
						}

						if err := handler(ctx, busMsg); err != nil {
							// Без XACK: сообщение останется в pending entries
							continue
						}

						_ = r.client.XAck(ctx, stream.Stream, group, msg.ID).Err()
					}
				}
			}
		}
	}()

	return nil
}

// Unsubscribe отписывается от stream
func (r *RedisAdapter) Unsubscribe(topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.consumers, topic)
	return nil
}
