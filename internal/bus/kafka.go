package bus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/akriventsev/fulfillment/internal/core"
)

// KafkaConfig конфигурация для Kafka адаптера
type KafkaConfig struct {
	Brokers       []string
	Compression   string // none, gzip, snappy, lz4, zstd
	BatchSize     int
	FlushInterval time.Duration
	Consumer      KafkaConsumerConfig
	Producer      KafkaProducerConfig
}

// KafkaConsumerConfig конфигурация для Kafka consumer
type KafkaConsumerConfig struct {
	MinBytes    int
	MaxBytes    int
	MaxWait     time.Duration
	StartOffset int64 // -2 (earliest), -1 (latest), или конкретный offset
}

// KafkaProducerConfig конфигурация для Kafka producer
type KafkaProducerConfig struct {
	RequiredAcks int // 0, 1, -1 (all)
	MaxAttempts  int
}

// Validate проверяет корректность конфигурации
func (c KafkaConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("brokers cannot be empty")
	}
	for i, broker := range c.Brokers {
		if broker == "" {
			return fmt.Errorf("broker[%d] cannot be empty", i)
		}
		if !strings.Contains(broker, ":") {
			return fmt.Errorf("broker[%d] must be in format host:port", i)
		}
	}
	return nil
}

// DefaultKafkaConfig возвращает конфигурацию Kafka по умолчанию
func DefaultKafkaConfig() KafkaConfig {
	return KafkaConfig{
		Brokers:       []string{"localhost:9092"},
		Compression:   "snappy",
		BatchSize:     100,
		FlushInterval: 10 * time.Millisecond,
		Consumer: KafkaConsumerConfig{
			MinBytes:    10e3, // 10KB
			MaxBytes:    10e6, // 10MB
			MaxWait:     1 * time.Second,
			StartOffset: kafka.LastOffset,
		},
		Producer: KafkaProducerConfig{
			RequiredAcks: -1, // all
			MaxAttempts:  1,  // повторы - ответственность вызывающего
		},
	}
}

// KafkaAdapter реализация MessageBus через Kafka.
// Партиционирование по ключу сообщения (Hash balancer) сохраняет
// порядок доставки внутри одного корреляционного ключа.
type KafkaAdapter struct {
	config  KafkaConfig
	writer  *kafka.Writer
	readers map[string]*kafka.Reader
	mu      sync.RWMutex
	running bool
}

// NewKafkaAdapter создает новый Kafka адаптер
func NewKafkaAdapter(config KafkaConfig) (*KafkaAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kafka config: %w", err)
	}

	adapter := &KafkaAdapter{
		config:  config,
		readers: make(map[string]*kafka.Reader),
	}

	adapter.writer = &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(config.Producer.RequiredAcks),
		MaxAttempts:  config.Producer.MaxAttempts,
		Async:        false,
		BatchSize:    config.BatchSize,
		BatchTimeout: config.FlushInterval,
		Compression:  getCompression(config.Compression),
	}

	return adapter, nil
}

// getCompression преобразует строку в kafka.Compression
func getCompression(compression string) kafka.Compression {
	switch compression {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Compression(0) // zero value - no compression
	}
}

// Start запускает адаптер (реализация core.Lifecycle)
func (k *KafkaAdapter) Start(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.running {
		return nil
	}

	k.running = true
	return nil
}

// Stop останавливает адаптер (реализация core.Lifecycle)
func (k *KafkaAdapter) Stop(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.running {
		return nil
	}

	for topic, reader := range k.readers {
		if reader != nil {
			_ = reader.Close()
		}
		delete(k.readers, topic)
	}

	if k.writer != nil {
		_ = k.writer.Close()
	}

	k.running = false
	return nil
}

// IsRunning проверяет, запущен ли адаптер (реализация core.Lifecycle)
func (k *KafkaAdapter) IsRunning() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.running
}

// Name возвращает имя компонента (реализация core.Component)
func (k *KafkaAdapter) Name() string {
	return "kafka-bus"
}

// Type возвращает тип компонента (реализация core.Component)
func (k *KafkaAdapter) Type() core.ComponentType {
	return core.ComponentTypeAdapter
}

// Publish публикует сообщение в топик с ключом партиционирования
func (k *KafkaAdapter) Publish(ctx context.Context, topic, key string, data []byte, headers map[string]string) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}

	if headers != nil {
		msg.Headers = make([]kafka.Header, 0, len(headers))
		for hk, hv := range headers {
			msg.Headers = append(msg.Headers, kafka.Header{
				Key:   hk,
				Value: []byte(hv),
			})
		}
	}

	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return core.Wrap(err, core.KindTransient, "failed to publish message")
	}

	return nil
}

// Subscribe подписывается на топик в составе группы потребителей.
// Kafka выдает одной группе каждую партицию только одному потребителю,
// поэтому обработка внутри партиции последовательна.
func (k *KafkaAdapter) Subscribe(ctx context.Context, topic, group string, handler Handler) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     k.config.Brokers,
		Topic:       topic,
		GroupID:     group,
		MinBytes:    k.config.Consumer.MinBytes,
		MaxBytes:    k.config.Consumer.MaxBytes,
		MaxWait:     k.config.Consumer.MaxWait,
		StartOffset: k.config.Consumer.StartOffset,
	})

	k.mu.Lock()
	k.readers[topic] = reader
	k.mu.Unlock()

	go func() {
		defer func() {
			_ = reader.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				msg, err := reader.FetchMessage(ctx)
				if err != nil {
					if err == context.Canceled {
						return
					}
					continue
				}

				busMsg := &Message{
					Topic:     msg.Topic,
					Key:       string(msg.Key),
					Data:      msg.Value,
					Headers:   make(map[string]string),
					Partition: msg.Partition,
					Offset:    msg.Offset,
				}

				for _, h := range msg.Headers {
					busMsg.Headers[h.Key] = string(h.Value)
				}

				if err := handler(ctx, busMsg); err != nil {
					// Без commit: сообщение будет доставлено повторно
					continue
				}

				// Commit offset только при успешной обработке
				_ = reader.CommitMessages(ctx, msg)
			}
		}
	}()

	return nil
}

// Unsubscribe отписывается от топика
func (k *KafkaAdapter) Unsubscribe(topic string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	reader, exists := k.readers[topic]
	if !exists {
		return nil
	}

	if err := reader.Close(); err != nil {
		return fmt.Errorf("failed to close reader: %w", err)
	}

	delete(k.readers, topic)
	return nil
}
