// Package core предоставляет систему ошибок пайплайна.
package core

import (
	"errors"
	"fmt"
)

// Коды категорий ошибок пайплайна
const (
	// KindNotFound запись отсутствует (клиент, заказ, товар)
	KindNotFound = "NOT_FOUND"
	// KindValidation некорректный запрос, отклоняется до любых side effects
	KindValidation = "VALIDATION"
	// KindConflict конфликт бизнес-состояния (нет остатков, дубликат ключа)
	KindConflict = "CONFLICT"
	// KindTransient временная инфраструктурная ошибка, допускает повтор
	KindTransient = "TRANSIENT"
	// KindFatal невосстановимая ошибка (битый формат сообщения), повтор запрещен
	KindFatal = "FATAL"
)

// Error базовый тип ошибки пайплайна с категорией
type Error struct {
	Kind    string
	Message string
	Cause   error
}

// Error реализует интерфейс error
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap возвращает причину ошибки
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is проверяет, соответствует ли ошибка категории
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// NewError создает новую ошибку пайплайна
func NewError(kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
	}
}

// Errorf создает ошибку с форматированием сообщения
func Errorf(kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap оборачивает существующую ошибку в категорию
func Wrap(err error, kind, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// KindOf возвращает категорию ошибки или пустую строку
func KindOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRetryable проверяет, допускает ли ошибка повторную попытку.
// Повторяются только временные инфраструктурные ошибки;
// нетипизированные ошибки считаются временными.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	kind := KindOf(err)
	return kind == KindTransient || kind == ""
}

// IsFatal проверяет, что ошибка невосстановима
func IsFatal(err error) bool {
	return KindOf(err) == KindFatal
}

// IsNotFound проверяет, что ошибка является отсутствием записи
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsConflict проверяет, что ошибка является бизнес-конфликтом
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}
