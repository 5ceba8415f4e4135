package bus

import (
	"fmt"
	"math"
	"time"
)

// BackoffPolicy политика повторов с экспоненциальной задержкой.
// Попытка 1 — первичная обработка, то есть при MaxAttempts = N
// выполняется не более N-1 повторов.
type BackoffPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxAttempts     int
}

// DefaultBackoffPolicy возвращает политику повторов по умолчанию
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
		MaxAttempts:     3,
	}
}

// Validate проверяет корректность политики повторов
func (p BackoffPolicy) Validate() error {
	if p.InitialInterval <= 0 {
		return fmt.Errorf("initial interval must be positive, got %s", p.InitialInterval)
	}
	if p.MaxInterval < p.InitialInterval {
		return fmt.Errorf("max interval %s is less than initial interval %s", p.MaxInterval, p.InitialInterval)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be at least 1, got %g", p.Multiplier)
	}
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	return nil
}

// Delay возвращает задержку перед повтором номер retry (начиная с 0):
// delay(n) = min(InitialInterval * Multiplier^n, MaxInterval)
func (p BackoffPolicy) Delay(retry int) time.Duration {
	if retry < 0 {
		retry = 0
	}

	delay := time.Duration(float64(p.InitialInterval) * math.Pow(p.Multiplier, float64(retry)))
	if delay > p.MaxInterval {
		return p.MaxInterval
	}
	return delay
}

// Exhausted проверяет, исчерпан ли лимит попыток после attempt выполненных
func (p BackoffPolicy) Exhausted(attempt int) bool {
	return attempt >= p.MaxAttempts
}
