package bus

import (
	"fmt"

	"github.com/akriventsev/fulfillment/internal/core"
)

// Драйверы шины сообщений
const (
	DriverKafka    = "kafka"
	DriverNATS     = "nats"
	DriverRedis    = "redis"
	DriverInMemory = "inmemory"
)

// Config конфигурация шины сообщений
type Config struct {
	Driver   string
	Kafka    KafkaConfig
	NATS     NATSConfig
	Redis    RedisConfig
	InMemory InMemoryConfig
}

// DefaultConfig возвращает конфигурацию шины по умолчанию
func DefaultConfig() Config {
	return Config{
		Driver:   DriverInMemory,
		Kafka:    DefaultKafkaConfig(),
		NATS:     DefaultNATSConfig(),
		Redis:    DefaultRedisConfig(),
		InMemory: DefaultInMemoryConfig(),
	}
}

// Validate проверяет конфигурацию выбранного драйвера
func (c Config) Validate() error {
	switch c.Driver {
	case DriverKafka:
		return c.Kafka.Validate()
	case DriverNATS:
		return c.NATS.Validate()
	case DriverRedis:
		return c.Redis.Validate()
	case DriverInMemory:
		return nil
	default:
		return fmt.Errorf("unknown messagebus driver: %s", c.Driver)
	}
}

// Adapter объединяет MessageBus с жизненным циклом брокерного подключения
type Adapter interface {
	MessageBus
	core.Lifecycle
	core.Component
}

// NewMessageBus создает адаптер шины по конфигурации
func NewMessageBus(config Config) (Adapter, error) {
	switch config.Driver {
	case DriverKafka:
		return NewKafkaAdapter(config.Kafka)
	case DriverNATS:
		return NewNATSAdapter(config.NATS)
	case DriverRedis:
		return NewRedisAdapter(config.Redis)
	case DriverInMemory:
		return NewInMemoryAdapter(config.InMemory), nil
	default:
		return nil, fmt.Errorf("unknown messagebus driver: %s", config.Driver)
	}
}
