package bus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestInMemoryAdapter_PublishSubscribe(t *testing.T) {
	adapter := NewInMemoryAdapter(DefaultInMemoryConfig())
	ctx := context.Background()

	if err := adapter.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer adapter.Stop(ctx)

	received := make(chan *Message, 1)
	err := adapter.Subscribe(ctx, "test.topic", "group-1", func(ctx context.Context, msg *Message) error {
		received <- msg
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	headers := map[string]string{"x-trace-id": "trace-1"}
	if err := adapter.Publish(ctx, "test.topic", "key-1", []byte("payload"), headers); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case msg := <-received:
		if msg.Topic != "test.topic" {
			t.Errorf("Expected topic test.topic, got %s", msg.Topic)
		}
		if msg.Key != "key-1" {
			t.Errorf("Expected key key-1, got %s", msg.Key)
		}
		if string(msg.Data) != "payload" {
			t.Errorf("Expected payload, got %s", msg.Data)
		}
		if msg.Headers["x-trace-id"] != "trace-1" {
			t.Errorf("Expected trace header preserved, got %v", msg.Headers)
		}
	case <-time.After(time.Second):
		t.Fatal("Message was not delivered")
	}
}

func TestInMemoryAdapter_PublishWithoutStart(t *testing.T) {
	adapter := NewInMemoryAdapter(DefaultInMemoryConfig())

	err := adapter.Publish(context.Background(), "test.topic", "key", []byte("data"), nil)
	if err == nil {
		t.Fatal("Expected error when publishing to a stopped bus")
	}
}

func TestInMemoryAdapter_PerKeyOrdering(t *testing.T) {
	adapter := NewInMemoryAdapter(InMemoryConfig{BufferSize: 100, Partitions: 4})
	ctx := context.Background()

	if err := adapter.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer adapter.Stop(ctx)

	var mu sync.Mutex
	receivedByKey := make(map[string][]string)
	done := make(chan struct{})

	const perKey = 20
	keys := []string{"order-1", "order-2", "order-3"}
	total := perKey * len(keys)
	count := 0

	err := adapter.Subscribe(ctx, "orders.confirmed", "group-1", func(ctx context.Context, msg *Message) error {
		mu.Lock()
		receivedByKey[msg.Key] = append(receivedByKey[msg.Key], string(msg.Data))
		count++
		if count == total {
			close(done)
		}
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	for seq := 0; seq < perKey; seq++ {
		for _, key := range keys {
			data := []byte(fmt.Sprintf("%s/%d", key, seq))
			if err := adapter.Publish(ctx, "orders.confirmed", key, data, nil); err != nil {
				t.Fatalf("Publish failed: %v", err)
			}
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Not all messages were delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	for _, key := range keys {
		messages := receivedByKey[key]
		if len(messages) != perKey {
			t.Fatalf("Expected %d messages for key %s, got %d", perKey, key, len(messages))
		}
		for seq, data := range messages {
			expected := fmt.Sprintf("%s/%d", key, seq)
			if data != expected {
				t.Errorf("Out of order delivery for key %s: expected %s, got %s", key, expected, data)
			}
		}
	}
}

func TestInMemoryAdapter_FanOutToAllSubscriptions(t *testing.T) {
	adapter := NewInMemoryAdapter(DefaultInMemoryConfig())
	ctx := context.Background()

	if err := adapter.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer adapter.Stop(ctx)

	first := make(chan *Message, 1)
	second := make(chan *Message, 1)

	_ = adapter.Subscribe(ctx, "test.topic", "group-a", func(ctx context.Context, msg *Message) error {
		first <- msg
		return nil
	})
	_ = adapter.Subscribe(ctx, "test.topic", "group-b", func(ctx context.Context, msg *Message) error {
		second <- msg
		return nil
	})

	if count := adapter.GetSubscriberCount("test.topic"); count != 2 {
		t.Fatalf("Expected 2 subscriptions, got %d", count)
	}

	if err := adapter.Publish(ctx, "test.topic", "key", []byte("data"), nil); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for name, ch := range map[string]chan *Message{"group-a": first, "group-b": second} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatalf("Subscription %s did not receive the message", name)
		}
	}
}
