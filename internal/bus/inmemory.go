package bus

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/akriventsev/fulfillment/internal/core"
)

// InMemoryConfig конфигурация для InMemory адаптера
type InMemoryConfig struct {
	BufferSize int
	Partitions int
}

// DefaultInMemoryConfig возвращает конфигурацию InMemory по умолчанию
func DefaultInMemoryConfig() InMemoryConfig {
	return InMemoryConfig{
		BufferSize: 1000,
		Partitions: 4,
	}
}

// inMemorySub подписка с набором партиций.
// Каждая партиция обрабатывается одним воркером, что дает строгий
// порядок для сообщений с одинаковым ключом.
type inMemorySub struct {
	group   string
	handler Handler
	chans   []chan *Message
	offsets []int64
}

// InMemoryAdapter реализация MessageBus в памяти.
// Каждая подписка получает все сообщения топика (fan-out);
// используется в тестах и при локальном запуске всех сервисов в одном процессе.
type InMemoryAdapter struct {
	config  InMemoryConfig
	subs    map[string][]*inMemorySub
	mu      sync.RWMutex
	running bool
	wg      sync.WaitGroup
	stopCh  chan struct{}
}

// NewInMemoryAdapter создает новый InMemory адаптер
func NewInMemoryAdapter(config InMemoryConfig) *InMemoryAdapter {
	if config.Partitions <= 0 {
		config.Partitions = 1
	}
	return &InMemoryAdapter{
		config: config,
		subs:   make(map[string][]*inMemorySub),
		stopCh: make(chan struct{}),
	}
}

// Start запускает адаптер (реализация core.Lifecycle)
func (i *InMemoryAdapter) Start(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.running {
		return nil
	}

	i.running = true
	return nil
}

// Stop останавливает адаптер (реализация core.Lifecycle)
func (i *InMemoryAdapter) Stop(ctx context.Context) error {
	i.mu.Lock()
	if !i.running {
		i.mu.Unlock()
		return nil
	}

	i.running = false
	close(i.stopCh)
	i.mu.Unlock()

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning проверяет, запущен ли адаптер (реализация core.Lifecycle)
func (i *InMemoryAdapter) IsRunning() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.running
}

// Name возвращает имя компонента (реализация core.Component)
func (i *InMemoryAdapter) Name() string {
	return "inmemory-bus"
}

// Type возвращает тип компонента (реализация core.Component)
func (i *InMemoryAdapter) Type() core.ComponentType {
	return core.ComponentTypeAdapter
}

// Publish публикует сообщение в топик
func (i *InMemoryAdapter) Publish(ctx context.Context, topic, key string, data []byte, headers map[string]string) error {
	i.mu.Lock()
	if !i.running {
		i.mu.Unlock()
		return core.NewError(core.KindTransient, "inmemory bus is not running")
	}

	subs := i.subs[topic]
	partition := i.partitionFor(key)

	// Копии сообщения с оффсетами раздаются под общим lock,
	// чтобы порядок внутри партиции был одинаков для всех подписок
	pending := make([]struct {
		ch  chan *Message
		msg *Message
	}, 0, len(subs))

	for _, sub := range subs {
		msg := &Message{
			Topic:     topic,
			Key:       key,
			Data:      data,
			Headers:   headers,
			Partition: partition,
			Offset:    sub.offsets[partition],
		}
		sub.offsets[partition]++
		pending = append(pending, struct {
			ch  chan *Message
			msg *Message
		}{sub.chans[partition], msg})
	}
	i.mu.Unlock()

	for _, p := range pending {
		select {
		case p.ch <- p.msg:
		case <-i.stopCh:
			return core.NewError(core.KindTransient, "inmemory bus stopped")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// Subscribe подписывается на топик
func (i *InMemoryAdapter) Subscribe(ctx context.Context, topic, group string, handler Handler) error {
	sub := &inMemorySub{
		group:   group,
		handler: handler,
		chans:   make([]chan *Message, i.config.Partitions),
		offsets: make([]int64, i.config.Partitions),
	}

	for p := 0; p < i.config.Partitions; p++ {
		ch := make(chan *Message, i.config.BufferSize)
		sub.chans[p] = ch

		i.wg.Add(1)
		go func(ch chan *Message) {
			defer i.wg.Done()
			for {
				select {
				case msg, ok := <-ch:
					if !ok {
						return
					}
					// Ошибка обработчика не прерывает партицию
					_ = handler(ctx, msg)
				case <-i.stopCh:
					return
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	i.mu.Lock()
	i.subs[topic] = append(i.subs[topic], sub)
	i.mu.Unlock()

	return nil
}

// Unsubscribe отписывается от топика
func (i *InMemoryAdapter) Unsubscribe(topic string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	delete(i.subs, topic)
	return nil
}

// GetSubscriberCount возвращает количество подписчиков топика (для тестирования)
func (i *InMemoryAdapter) GetSubscriberCount(topic string) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.subs[topic])
}

func (i *InMemoryAdapter) partitionFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(i.config.Partitions))
}
