// Package config собирает конфигурацию сервисов из переменных окружения.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/akriventsev/fulfillment/internal/bus"
)

// Config конфигурация сервиса. Собирается один раз при старте
// и передается компонентам через конструкторы.
type Config struct {
	ServiceName string
	HTTPAddr    string
	PostgresDSN string
	Group       string

	Bus     bus.Config
	Backoff bus.BackoffPolicy

	Metrics MetricsConfig
	Tracing TracingConfig
}

// MetricsConfig настройки экспорта метрик
type MetricsConfig struct {
	Enabled  bool
	Exporter string // "prometheus", "otlp"
	Endpoint string
}

// TracingConfig настройки экспорта трассировки
type TracingConfig struct {
	Enabled  bool
	Exporter string // "stdout", "otlp", "zipkin", "jaeger"
	Endpoint string
	Sampling float64
}

// Load читает конфигурацию сервиса из окружения
func Load(serviceName string) (Config, error) {
	busConfig := bus.DefaultConfig()
	busConfig.Driver = getEnv("BUS_DRIVER", bus.DriverInMemory)
	busConfig.Kafka.Brokers = splitList(getEnv("KAFKA_BROKERS", strings.Join(busConfig.Kafka.Brokers, ",")))
	busConfig.NATS.URL = getEnv("NATS_URL", busConfig.NATS.URL)
	busConfig.Redis.Addr = getEnv("REDIS_ADDR", busConfig.Redis.Addr)

	backoff := bus.DefaultBackoffPolicy()
	backoff.InitialInterval = getEnvDuration("RETRY_INITIAL_INTERVAL", backoff.InitialInterval)
	backoff.MaxInterval = getEnvDuration("RETRY_MAX_INTERVAL", backoff.MaxInterval)
	backoff.Multiplier = getEnvFloat("RETRY_MULTIPLIER", backoff.Multiplier)
	backoff.MaxAttempts = getEnvInt("RETRY_MAX_ATTEMPTS", backoff.MaxAttempts)

	cfg := Config{
		ServiceName: serviceName,
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		Group:       getEnv("CONSUMER_GROUP", serviceName),
		Bus:         busConfig,
		Backoff:     backoff,
		Metrics: MetricsConfig{
			Enabled:  getEnvBool("METRICS_ENABLED", true),
			Exporter: getEnv("METRICS_EXPORTER", "prometheus"),
			Endpoint: getEnv("METRICS_ENDPOINT", ""),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvBool("TRACING_ENABLED", false),
			Exporter: getEnv("TRACING_EXPORTER", "stdout"),
			Endpoint: getEnv("TRACING_ENDPOINT", ""),
			Sampling: getEnvFloat("TRACING_SAMPLING", 1.0),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config.Validate: %w", err)
	}

	return cfg, nil
}

// Validate проверяет корректность конфигурации
func (c Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service name cannot be empty")
	}
	if c.Group == "" {
		return fmt.Errorf("consumer group cannot be empty")
	}
	if err := c.Bus.Validate(); err != nil {
		return fmt.Errorf("bus config: %w", err)
	}
	if err := c.Backoff.Validate(); err != nil {
		return fmt.Errorf("backoff policy: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
