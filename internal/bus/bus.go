// Package bus предоставляет абстракции шины сообщений и адаптеры брокеров.
package bus

import (
	"context"
)

// Message представляет сообщение в шине.
// Key — корреляционный ключ: сообщения с одним ключом попадают
// в одну партицию и доставляются по порядку.
type Message struct {
	Topic     string
	Key       string
	Data      []byte
	Headers   map[string]string
	Partition int
	Offset    int64
}

// Handler обработчик сообщений. Возврат nil подтверждает сообщение;
// неподтвержденные сообщения будут доставлены повторно (at-least-once).
type Handler func(ctx context.Context, msg *Message) error

// Publisher публикатор сообщений.
// Ошибка публикации возвращается синхронно и не повторяется публикатором.
type Publisher interface {
	// Publish публикует сообщение с ключом партиционирования
	Publish(ctx context.Context, topic, key string, data []byte, headers map[string]string) error
}

// Subscriber подписчик на сообщения
type Subscriber interface {
	// Subscribe подписывается на топик в составе группы потребителей.
	// Обработка внутри одной партиции строго последовательна.
	Subscribe(ctx context.Context, topic, group string, handler Handler) error
	// Unsubscribe отписывается от топика
	Unsubscribe(topic string) error
}

// MessageBus объединяет возможности публикации и подписки
type MessageBus interface {
	Publisher
	Subscriber
}
