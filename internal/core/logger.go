// Package core предоставляет интерфейс логирования для компонентов пайплайна.
package core

import "log"

// Logger минимальный интерфейс логирования, внедряется в компоненты через конструктор
type Logger interface {
	Log(format string, args ...interface{})
}

// StdLogger реализация Logger через стандартный log
type StdLogger struct{}

func (l StdLogger) Log(format string, args ...interface{}) {
	log.Printf(format, args...)
}

// NopLogger реализация Logger, отбрасывающая записи (для тестов)
type NopLogger struct{}

func (l NopLogger) Log(format string, args ...interface{}) {}

// DefaultLogger возвращает логгер по умолчанию
func DefaultLogger() Logger {
	return StdLogger{}
}
